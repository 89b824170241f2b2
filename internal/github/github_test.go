package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ghfeed/internal/feed"

	gh "github.com/google/go-github/v69/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testNow   = time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	testSince = testNow.AddDate(0, 0, -7*12)
)

// eventsJSON is a fixed upstream feed: one event of each mapped kind plus an
// unrecognized type, newest first.
const eventsJSON = `[
  {"type": "PushEvent", "repo": {"name": "alice/site"},
   "payload": {"size": 2, "commits": [{"sha": "a", "message": "one"}, {"sha": "b", "message": "two"}]},
   "created_at": "2026-08-30T12:00:00Z"},
  {"type": "WatchEvent", "repo": {"name": "bob/tools"},
   "payload": {"action": "started"},
   "created_at": "2026-08-29T10:00:00Z"},
  {"type": "ForkEvent", "repo": {"name": "bob/tools"},
   "payload": {},
   "created_at": "2026-08-28T10:00:00Z"},
  {"type": "IssuesEvent", "repo": {"name": "alice/site"},
   "payload": {"action": "opened", "issue": {"number": 7, "title": "Broken link"}},
   "created_at": "2026-08-27T10:00:00Z"},
  {"type": "PullRequestEvent", "repo": {"name": "alice/site"},
   "payload": {"action": "closed", "number": 3, "pull_request": {"number": 3, "title": "Add feed", "merged": true}},
   "created_at": "2026-08-26T10:00:00Z"},
  {"type": "ReleaseEvent", "repo": {"name": "alice/site"},
   "payload": {"action": "published"},
   "created_at": "2026-08-25T10:00:00Z"}
]`

func newTestFetcher(t *testing.T, srv *httptest.Server, authed bool) *Fetcher {
	t.Helper()
	client := gh.NewClient(nil)
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	client.BaseURL = base
	return &Fetcher{gh: client, user: "alice", authed: authed}
}

func eventsHandler(t *testing.T) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page") != "1" {
			w.Write([]byte("[]"))
			return
		}
		w.Write([]byte(eventsJSON))
	}
}

func TestFetch_MapsEventKinds(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/alice/events", eventsHandler(t))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := newTestFetcher(t, srv, false)
	snap, _, err := f.Fetch(context.Background(), testNow, testSince, 30)
	require.NoError(t, err)
	require.Len(t, snap, 6)

	assert.Equal(t, feed.Record{
		Repository: "alice/site",
		Kind:       feed.KindPush,
		Timestamp:  "2026-08-30T12:00:00Z",
		Summary:    "pushed 2 commits to alice/site",
	}, snap[0])

	assert.Equal(t, feed.KindStar, snap[1].Kind)
	assert.Equal(t, "starred bob/tools", snap[1].Summary)

	assert.Equal(t, feed.KindFork, snap[2].Kind)
	assert.Equal(t, "forked bob/tools", snap[2].Summary)

	assert.Equal(t, feed.KindIssue, snap[3].Kind)
	assert.Equal(t, "opened issue #7: Broken link", snap[3].Summary)

	assert.Equal(t, feed.KindPullRequest, snap[4].Kind)
	assert.Equal(t, "merged pull request #3: Add feed", snap[4].Summary)

	assert.Equal(t, feed.KindOther, snap[5].Kind)
	assert.Equal(t, "release in alice/site", snap[5].Summary)
}

func TestFetch_BoundsRecordCount(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/alice/events", eventsHandler(t))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := newTestFetcher(t, srv, false)
	snap, _, err := f.Fetch(context.Background(), testNow, testSince, 2)
	require.NoError(t, err)
	assert.Len(t, snap, 2)

	// Order is preserved from the feed.
	assert.Equal(t, feed.KindPush, snap[0].Kind)
	assert.Equal(t, feed.KindStar, snap[1].Kind)
}

func TestFetch_CutoffStopsPaging(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/alice/events", eventsHandler(t))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := newTestFetcher(t, srv, false)
	since := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	snap, _, err := f.Fetch(context.Background(), testNow, since, 30)
	require.NoError(t, err)

	// Only the three events at or after the cutoff survive.
	assert.Len(t, snap, 3)
}

func TestFetch_FallbackStatsFromPushEvents(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/alice/events", eventsHandler(t))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := newTestFetcher(t, srv, false)
	_, stats, err := f.Fetch(context.Background(), testNow, testSince, 30)
	require.NoError(t, err)
	require.NotNil(t, stats)

	assert.Equal(t, 2, stats.TotalCommits)
	assert.Equal(t, 1, stats.ActiveWeeks)
	require.Len(t, stats.Repos, 1)
	assert.Equal(t, "alice/site", stats.Repos[0].FullName)
	assert.True(t, stats.Repos[0].IsOwn)
	assert.Empty(t, stats.Pages)
}

func TestFetch_AuthenticatedStats(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/alice/events", eventsHandler(t))
	mux.HandleFunc("/user/repos", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
		  {"name": "site", "full_name": "alice/site", "owner": {"login": "alice"},
		   "has_pages": true, "fork": false, "description": "my site", "language": "Go"},
		  {"name": "alice.github.io", "full_name": "alice/alice.github.io", "owner": {"login": "alice"},
		   "has_pages": true, "fork": false},
		  {"name": "shared", "full_name": "bob/shared", "owner": {"login": "bob"},
		   "has_pages": false, "fork": false}
		]`))
	})
	mux.HandleFunc("/repos/alice/site/commits", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "alice", r.URL.Query().Get("author"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
		  {"sha": "a", "commit": {"author": {"name": "alice", "date": "2026-08-30T09:00:00Z"}}},
		  {"sha": "b", "commit": {"author": {"name": "alice", "date": "2026-08-20T09:00:00Z"}}}
		]`))
	})
	mux.HandleFunc("/repos/alice/alice.github.io/commits", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("[]"))
	})
	mux.HandleFunc("/repos/bob/shared/commits", func(w http.ResponseWriter, r *http.Request) {
		// Empty repository.
		http.Error(w, `{"message": "Git Repository is empty."}`, http.StatusConflict)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := newTestFetcher(t, srv, true)
	_, stats, err := f.Fetch(context.Background(), testNow, testSince, 30)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalCommits)
	assert.Equal(t, 2, stats.ActiveWeeks)
	require.Len(t, stats.Repos, 1)
	assert.Equal(t, "alice/site", stats.Repos[0].FullName)
	assert.Equal(t, "2026-08-30T09:00:00Z", stats.Repos[0].LastActivity)

	// Pages sites exclude the <user>.github.io root site.
	require.Len(t, stats.Pages, 1)
	assert.Equal(t, "site", stats.Pages[0].Name)
	assert.Equal(t, "https://alice.github.io/site/", stats.Pages[0].URL)
	assert.Equal(t, "Go", stats.Pages[0].Language)
}

func TestFetch_UpstreamFailureLeavesSnapshotAlone(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/alice/events", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "boom"}`, http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "activity.json")
	existing := feed.Snapshot{{Repository: "alice/site", Kind: feed.KindPush, Timestamp: "2026-08-01T00:00:00Z", Summary: "pushed 1 commit to alice/site"}}
	require.NoError(t, feed.WriteSnapshot(path, existing))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	f := newTestFetcher(t, srv, false)
	snap, stats, err := f.Fetch(context.Background(), testNow, testSince, 30)
	require.Error(t, err)
	assert.Nil(t, snap)
	assert.Nil(t, stats)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestFetch_IdempotentUnderStableFeed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/alice/events", eventsHandler(t))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := newTestFetcher(t, srv, false)

	dir := t.TempDir()
	write := func(name string) []byte {
		snap, stats, err := f.Fetch(context.Background(), testNow, testSince, 30)
		require.NoError(t, err)
		path := filepath.Join(dir, name)
		require.NoError(t, feed.WriteSnapshot(path, snap))
		statsPath := filepath.Join(dir, "stats-"+name)
		require.NoError(t, feed.WriteStats(statsPath, stats))
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		statsData, err := os.ReadFile(statsPath)
		require.NoError(t, err)
		return append(data, statsData...)
	}

	assert.Equal(t, write("first.json"), write("second.json"))
}

func TestFetch_SnapshotIsValidJSONArray(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/alice/events", eventsHandler(t))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := newTestFetcher(t, srv, false)
	snap, _, err := f.Fetch(context.Background(), testNow, testSince, 4)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "activity.json")
	require.NoError(t, feed.WriteSnapshot(path, snap))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var arr []map[string]any
	require.NoError(t, json.Unmarshal(data, &arr))
	assert.LessOrEqual(t, len(arr), 4)
	for _, rec := range arr {
		assert.Contains(t, rec, "repository")
		assert.Contains(t, rec, "kind")
		assert.Contains(t, rec, "timestamp")
		assert.Contains(t, rec, "summary")
	}
}

func TestHumanizeEventType(t *testing.T) {
	assert.Equal(t, "release", humanizeEventType("ReleaseEvent"))
	assert.Equal(t, "commit comment", humanizeEventType("CommitCommentEvent"))
	assert.Equal(t, "activity", humanizeEventType(""))
}
