package cmd

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	naturaldate "github.com/tj/go-naturaldate"
)

var rootCmd = &cobra.Command{
	Use:   "ghfeed",
	Short: "Fetch GitHub activity snapshots and serve the activity dashboard",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Load .env file without overriding existing env vars.
		// Precedence: real env vars > .env file values.
		_ = godotenv.Load()
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(serveCmd)
}

func Execute() error {
	return rootCmd.Execute()
}

const dateFormat = "2006-01-02"

// parseSince resolves the --since flag into the activity-window cutoff.
//
// Accepts either an exact date (YYYY-MM-DD) or a natural language expression
// such as "yesterday" or "12 weeks ago", interpreted relative to ref. Exact
// dates are tried first.
func parseSince(s string, ref time.Time) (time.Time, error) {
	if t, err := time.ParseInLocation(dateFormat, s, ref.Location()); err == nil {
		return t, nil
	}
	t, err := naturaldate.Parse(s, ref, naturaldate.WithDirection(naturaldate.Past))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --since value %q: %w", s, err)
	}
	if t.After(ref) {
		return time.Time{}, fmt.Errorf("--since (%s) must not be in the future", t.Format(dateFormat))
	}
	return t, nil
}
