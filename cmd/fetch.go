package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ghfeed/internal/feed"
	"ghfeed/internal/github"

	"github.com/spf13/cobra"
)

var (
	fetchUser  string
	fetchOut   string
	fetchStats string
	fetchMax   int
	fetchSince string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch the latest GitHub activity and write the snapshot files",
	RunE:  runFetch,
}

func init() {
	fetchCmd.Flags().StringVar(&fetchUser, "user", "", "GitHub account to fetch activity for (default: $GITHUB_USER)")
	fetchCmd.Flags().StringVar(&fetchOut, "out", filepath.Join("data", "activity.json"), "snapshot output path")
	fetchCmd.Flags().StringVar(&fetchStats, "stats", filepath.Join("data", "stats.json"), "stats output path")
	fetchCmd.Flags().IntVar(&fetchMax, "max", 30, "maximum number of records in the snapshot")
	fetchCmd.Flags().StringVar(&fetchSince, "since", "12 weeks ago", `start of the activity window, e.g. "2026-06-01" or "12 weeks ago"`)
}

func runFetch(cmd *cobra.Command, args []string) error {
	user := fetchUser
	if user == "" {
		user = os.Getenv("GITHUB_USER")
	}
	if user == "" {
		return fmt.Errorf("no account configured: set --user or GITHUB_USER")
	}
	if fetchMax <= 0 {
		return fmt.Errorf("--max must be positive, got %d", fetchMax)
	}

	token := os.Getenv("ACTIVITY_TOKEN")
	if token == "" {
		fmt.Fprintln(os.Stderr, "warning: ACTIVITY_TOKEN not set, private repos won't be included")
	}

	now := time.Now()
	since, err := parseSince(fetchSince, now)
	if err != nil {
		return err
	}

	fetcher := github.New(user, token)
	snap, stats, err := fetcher.Fetch(cmd.Context(), now, since, fetchMax)
	if err != nil {
		// The existing snapshot stays in place; the next scheduled
		// run is the retry.
		return fmt.Errorf("fetching activity for %s: %w", user, err)
	}

	if err := feed.WriteSnapshot(fetchOut, snap); err != nil {
		return err
	}
	if err := feed.WriteStats(fetchStats, stats); err != nil {
		return err
	}

	fmt.Printf("wrote %d records to %s, %d commits to %s\n",
		len(snap), fetchOut, stats.TotalCommits, fetchStats)
	return nil
}
