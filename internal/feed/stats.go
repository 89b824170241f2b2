package feed

import (
	"sort"
	"strings"
	"time"
)

// RepoStat is the per-repository commit summary.
type RepoStat struct {
	FullName     string `json:"fullName"`
	Name         string `json:"name"`
	Owner        string `json:"owner"`
	IsOwn        bool   `json:"isOwn"`
	Commits      int    `json:"commits"`
	LastActivity string `json:"lastActivity"`
}

// PagesSite is a repository with GitHub Pages enabled.
type PagesSite struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Language    string `json:"language"`
}

// Stats is the aggregate document written next to the snapshot. Weekly
// buckets run oldest to newest.
type Stats struct {
	GeneratedAt   string      `json:"generatedAt"`
	Repos         []RepoStat  `json:"repos"`
	WeeklyCommits []int       `json:"weeklyCommits"`
	TotalCommits  int         `json:"totalCommits"`
	ActiveWeeks   int         `json:"activeWeeks"`
	Pages         []PagesSite `json:"pages"`
}

const week = 7 * 24 * time.Hour

// StatsBuilder accumulates commit counts and pages sites over a fixed
// activity window and produces a Stats document.
type StatsBuilder struct {
	user    string
	now     time.Time
	weeks   int
	buckets []int
	repos   map[string]*RepoStat
	pages   []PagesSite
}

// NewStatsBuilder sets up a builder for the window [since, now]. The window
// is split into whole weeks counted back from now; a partial trailing week
// still gets a bucket.
func NewStatsBuilder(user string, now, since time.Time) *StatsBuilder {
	weeks := int(now.Sub(since) / week)
	if now.Sub(since)%week != 0 {
		weeks++
	}
	if weeks < 1 {
		weeks = 1
	}
	return &StatsBuilder{
		user:    user,
		now:     now,
		weeks:   weeks,
		buckets: make([]int, weeks),
		repos:   make(map[string]*RepoStat),
	}
}

// CountCommits records n commits in repo fullName ("owner/name") at the
// given time. Commits older than the window are ignored.
func (b *StatsBuilder) CountCommits(fullName string, at time.Time, n int) {
	if n <= 0 {
		return
	}
	idx := int(b.now.Sub(at) / week)
	if idx < 0 || idx >= b.weeks {
		return
	}
	b.buckets[b.weeks-1-idx] += n

	owner, name := splitRepoName(fullName)
	rs, ok := b.repos[fullName]
	if !ok {
		rs = &RepoStat{
			FullName: fullName,
			Name:     name,
			Owner:    owner,
			IsOwn:    owner == b.user,
		}
		b.repos[fullName] = rs
	}
	rs.Commits += n
	ts := at.UTC().Format(time.RFC3339)
	if ts > rs.LastActivity {
		rs.LastActivity = ts
	}
}

// AddPagesSite registers a GitHub Pages site.
func (b *StatsBuilder) AddPagesSite(site PagesSite) {
	b.pages = append(b.pages, site)
}

// Stats finalizes the document. Repos are sorted by commit count descending
// (name ascending on ties, so identical input yields identical output),
// pages sites by name.
func (b *StatsBuilder) Stats() *Stats {
	repos := make([]RepoStat, 0, len(b.repos))
	for _, rs := range b.repos {
		repos = append(repos, *rs)
	}
	sort.Slice(repos, func(i, j int) bool {
		if repos[i].Commits != repos[j].Commits {
			return repos[i].Commits > repos[j].Commits
		}
		return repos[i].FullName < repos[j].FullName
	})

	pages := make([]PagesSite, len(b.pages))
	copy(pages, b.pages)
	sort.Slice(pages, func(i, j int) bool {
		return strings.ToLower(pages[i].Name) < strings.ToLower(pages[j].Name)
	})

	total := 0
	active := 0
	for _, n := range b.buckets {
		total += n
		if n > 0 {
			active++
		}
	}

	return &Stats{
		GeneratedAt:   b.now.UTC().Format(time.RFC3339),
		Repos:         repos,
		WeeklyCommits: b.buckets,
		TotalCommits:  total,
		ActiveWeeks:   active,
		Pages:         pages,
	}
}

func splitRepoName(fullName string) (owner, name string) {
	if i := strings.IndexByte(fullName, '/'); i >= 0 {
		return fullName[:i], fullName[i+1:]
	}
	return "", fullName
}
