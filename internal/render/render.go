// Package render turns the snapshot and stats documents into the static
// activity dashboard. Bad or missing input never becomes an error page; the
// records section degrades to a fallback message and the stats panel is
// omitted.
package render

import (
	"fmt"
	"html/template"
	"io"
	"net/http"
	"path/filepath"

	"ghfeed/internal/feed"
)

// FallbackMessage is shown whenever the snapshot cannot be read or parsed.
const FallbackMessage = "No recent activity available."

const (
	// SnapshotFile is the snapshot document's name inside the data dir.
	SnapshotFile = "activity.json"
	// StatsFile is the stats document's name inside the data dir.
	StatsFile = "stats.json"
)

var page = template.Must(template.New("dashboard").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Activity</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 46rem; margin: 2rem auto; padding: 0 1rem; color: #24292f; }
ul.activity { list-style: none; padding: 0; }
li.activity-record { padding: .5rem 0; border-bottom: 1px solid #d0d7de; }
li.activity-record .kind { display: inline-block; min-width: 6.5rem; font-size: .8rem; color: #57606a; text-transform: uppercase; }
li.activity-record time { float: right; font-size: .8rem; color: #57606a; }
section.stats { margin-bottom: 1.5rem; }
section.stats .totals { color: #57606a; }
p.fallback { color: #57606a; font-style: italic; }
</style>
</head>
<body>
<h1>GitHub Activity</h1>
{{- with .Stats}}
<section class="stats">
<p class="totals">{{.TotalCommits}} commits across {{.ActiveWeeks}} active weeks</p>
{{- if .Pages}}
<ul class="pages">
{{- range .Pages}}
<li><a href="{{.URL}}">{{.Name}}</a>{{with .Description}} — {{.}}{{end}}</li>
{{- end}}
</ul>
{{- end}}
</section>
{{- end}}
{{- if .Records}}
<ul class="activity">
{{- range .Records}}
<li class="activity-record"><span class="kind">{{.Kind}}</span> {{.Summary}} <time datetime="{{.Timestamp}}">{{.Timestamp}}</time></li>
{{- end}}
</ul>
{{- else}}
<p class="fallback">{{.Fallback}}</p>
{{- end}}
</body>
</html>
`))

type pageData struct {
	Records  feed.Snapshot
	Stats    *feed.Stats
	Fallback string
}

// Render writes the dashboard for the documents in dataDir to w. Read and
// parse failures are absorbed into the fallback rendering; the only error
// returned is a failed write to w.
func Render(w io.Writer, dataDir string) error {
	data := pageData{Fallback: FallbackMessage}

	if snap, err := feed.LoadSnapshot(filepath.Join(dataDir, SnapshotFile)); err == nil {
		data.Records = snap
	}
	if stats, err := feed.LoadStats(filepath.Join(dataDir, StatsFile)); err == nil {
		data.Stats = stats
	}

	if err := page.Execute(w, data); err != nil {
		return fmt.Errorf("rendering dashboard: %w", err)
	}
	return nil
}

// Handler serves the dashboard at "/", the raw JSON documents under
// "/data/", and, when siteDir is non-empty, any other static assets from it.
func Handler(dataDir, siteDir string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			if siteDir != "" {
				http.FileServer(http.Dir(siteDir)).ServeHTTP(w, r)
				return
			}
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := Render(w, dataDir); err != nil {
			// Headers are already out; nothing useful left to send.
			return
		}
	})

	mux.Handle("/data/", http.StripPrefix("/data/", http.FileServer(http.Dir(dataDir))))

	return mux
}
