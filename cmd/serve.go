package cmd

import (
	"fmt"
	"net/http"

	"ghfeed/internal/render"

	"github.com/spf13/cobra"
)

var (
	serveAddr string
	serveData string
	serveSite string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the activity dashboard and snapshot files",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	serveCmd.Flags().StringVar(&serveData, "data", "data", "directory holding the snapshot and stats files")
	serveCmd.Flags().StringVar(&serveSite, "site", "", "optional directory of extra static assets")
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Printf("serving activity dashboard on %s (data: %s)\n", serveAddr, serveData)
	if err := http.ListenAndServe(serveAddr, render.Handler(serveData, serveSite)); err != nil {
		return fmt.Errorf("serving on %s: %w", serveAddr, err)
	}
	return nil
}
