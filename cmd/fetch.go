package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// newFetchCmd creates the 'fetch' subcommand: a one-shot scrape that prints
// the result as JSON. Useful for smoke-testing proxies and selectors without
// running the server.
func newFetchCmd() *cobra.Command {
	var title, artist string

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetches lyrics for one song and prints JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if title == "" || artist == "" {
				return fmt.Errorf("both --title and --artist are required")
			}
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			result, err := appInstance.Failover().Fetch(cmd.Context(), title, artist)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "song title")
	cmd.Flags().StringVar(&artist, "artist", "", "artist name")

	return cmd
}
