package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"

	"ghfeed/internal/feed"

	gh "github.com/google/go-github/v69/github"
)

const maxEventPages = 10

// Fetcher pulls activity for one account from the GitHub API.
type Fetcher struct {
	gh     *gh.Client
	user   string
	authed bool
}

// New builds a Fetcher for the given account. An empty token selects the
// unauthenticated public-events path with its lower rate limits.
func New(user, token string) *Fetcher {
	client := gh.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	return &Fetcher{gh: client, user: user, authed: token != ""}
}

// Fetch collects the newest events for the account since the cutoff and
// returns at most max records, newest first, plus the aggregate stats for
// the window [since, now]. Any error leaves both results nil; nothing is
// persisted here.
func (f *Fetcher) Fetch(ctx context.Context, now, since time.Time, max int) (feed.Snapshot, *feed.Stats, error) {
	events, err := f.listEvents(ctx, since)
	if err != nil {
		return nil, nil, fmt.Errorf("listing events: %w", err)
	}

	records := make(feed.Snapshot, 0, max)
	for _, e := range events {
		if len(records) >= max {
			break
		}
		records = append(records, mapEvent(e))
	}

	builder := feed.NewStatsBuilder(f.user, now, since)
	if f.authed {
		if err := f.collectRepoStats(ctx, builder, since); err != nil {
			return nil, nil, err
		}
	} else {
		collectEventStats(builder, events)
	}

	return records, builder.Stats(), nil
}

// listEvents pages through the account's public events, newest first,
// stopping at the first event older than the cutoff.
func (f *Fetcher) listEvents(ctx context.Context, since time.Time) ([]*gh.Event, error) {
	var events []*gh.Event
	opts := &gh.ListOptions{PerPage: 100}
	for page := 1; page <= maxEventPages; page++ {
		opts.Page = page
		batch, _, err := f.gh.Activity.ListEventsPerformedByUser(ctx, f.user, false, opts)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}
		for _, e := range batch {
			if e.GetCreatedAt().Time.Before(since) {
				return events, nil
			}
			events = append(events, e)
		}
	}
	return events, nil
}

// collectRepoStats walks every repo accessible to the authenticated user,
// discovering GitHub Pages sites and counting commits authored by the
// account inside the window.
func (f *Fetcher) collectRepoStats(ctx context.Context, b *feed.StatsBuilder, since time.Time) error {
	opts := &gh.RepositoryListByAuthenticatedUserOptions{
		Affiliation: "owner,collaborator",
		ListOptions: gh.ListOptions{PerPage: 100},
	}
	for {
		repos, resp, err := f.gh.Repositories.ListByAuthenticatedUser(ctx, opts)
		if err != nil {
			return fmt.Errorf("listing repositories: %w", err)
		}
		for _, r := range repos {
			if r.GetHasPages() && !r.GetFork() && r.GetName() != f.user+".github.io" {
				b.AddPagesSite(feed.PagesSite{
					Name:        r.GetName(),
					URL:         fmt.Sprintf("https://%s.github.io/%s/", f.user, r.GetName()),
					Description: r.GetDescription(),
					Language:    r.GetLanguage(),
				})
			}
			if err := f.countRepoCommits(ctx, b, r, since); err != nil {
				return err
			}
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return nil
}

func (f *Fetcher) countRepoCommits(ctx context.Context, b *feed.StatsBuilder, r *gh.Repository, since time.Time) error {
	opts := &gh.CommitsListOptions{
		Author:      f.user,
		Since:       since,
		ListOptions: gh.ListOptions{PerPage: 100},
	}
	for {
		commits, resp, err := f.gh.Repositories.ListCommits(ctx, r.GetOwner().GetLogin(), r.GetName(), opts)
		if err != nil {
			// Empty repositories answer 409; skip them instead of
			// failing the whole run.
			var ghErr *gh.ErrorResponse
			if errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusConflict {
				return nil
			}
			return fmt.Errorf("listing commits for %s: %w", r.GetFullName(), err)
		}
		for _, c := range commits {
			b.CountCommits(r.GetFullName(), c.GetCommit().GetAuthor().GetDate().Time, 1)
		}
		if resp.NextPage == 0 {
			return nil
		}
		opts.Page = resp.NextPage
	}
}

// collectEventStats is the unauthenticated fallback: commit counts come from
// the push events already fetched. A push reporting zero commits still
// counts as one.
func collectEventStats(b *feed.StatsBuilder, events []*gh.Event) {
	for _, e := range events {
		if e.GetType() != "PushEvent" {
			continue
		}
		payload, err := e.ParsePayload()
		if err != nil {
			continue
		}
		push, ok := payload.(*gh.PushEvent)
		if !ok {
			continue
		}
		n := len(push.Commits)
		if n == 0 {
			n = 1
		}
		b.CountCommits(e.GetRepo().GetName(), e.GetCreatedAt().Time, n)
	}
}

func mapEvent(e *gh.Event) feed.Record {
	rec := feed.Record{
		Repository: e.GetRepo().GetName(),
		Timestamp:  e.GetCreatedAt().Time.UTC().Format(time.RFC3339),
	}

	payload, err := e.ParsePayload()
	if err != nil {
		payload = nil
	}

	switch p := payload.(type) {
	case *gh.PushEvent:
		rec.Kind = feed.KindPush
		n := len(p.Commits)
		if n == 0 {
			n = p.GetSize()
		}
		if n == 1 {
			rec.Summary = fmt.Sprintf("pushed 1 commit to %s", rec.Repository)
		} else {
			rec.Summary = fmt.Sprintf("pushed %d commits to %s", n, rec.Repository)
		}
	case *gh.WatchEvent:
		rec.Kind = feed.KindStar
		rec.Summary = fmt.Sprintf("starred %s", rec.Repository)
	case *gh.ForkEvent:
		rec.Kind = feed.KindFork
		rec.Summary = fmt.Sprintf("forked %s", rec.Repository)
	case *gh.IssuesEvent:
		rec.Kind = feed.KindIssue
		rec.Summary = fmt.Sprintf("%s issue #%d: %s",
			p.GetAction(), p.GetIssue().GetNumber(), p.GetIssue().GetTitle())
	case *gh.PullRequestEvent:
		rec.Kind = feed.KindPullRequest
		action := p.GetAction()
		if action == "closed" && p.GetPullRequest().GetMerged() {
			action = "merged"
		}
		rec.Summary = fmt.Sprintf("%s pull request #%d: %s",
			action, p.GetPullRequest().GetNumber(), p.GetPullRequest().GetTitle())
	default:
		rec.Kind = feed.KindOther
		rec.Summary = fmt.Sprintf("%s in %s", humanizeEventType(e.GetType()), rec.Repository)
	}

	return rec
}

// humanizeEventType turns an upstream type like "CommitCommentEvent" into
// "commit comment".
func humanizeEventType(t string) string {
	t = strings.TrimSuffix(t, "Event")
	if t == "" {
		return "activity"
	}
	var b strings.Builder
	for i, r := range t {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
