package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/terrasync-labs/terrasync/internal/branding"
	"github.com/terrasync-labs/terrasync/internal/config"
	"github.com/terrasync-labs/terrasync/internal/syncer"
)

// staleAfter is how old a full sync may be before status suggests a new one.
const staleAfter = 7 * 24 * time.Hour

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the server, local scenery directory and last sync time",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		root := config.Get(config.KeySceneryDir)

		fmt.Fprintf(out, "Server:       %s\n", config.Get(config.KeyServerURL))
		fmt.Fprintf(out, "Scenery dir:  %s\n", root)
		fmt.Fprintf(out, "Config file:  %s\n", config.FilePath())

		last := syncer.ReadFreshnessMarker(root)
		if last.IsZero() {
			fmt.Fprintln(out, "Last sync:    never")
			fmt.Fprintf(out, "\nRun '%s sync' to download scenery.\n", branding.CLIName())
			return nil
		}
		fmt.Fprintf(out, "Last sync:    %s (%s)\n", last.Format(time.RFC3339), humanize.Time(last))
		if syncer.IsStale(root, staleAfter) {
			fmt.Fprintf(out, "Status:       stale (run '%s sync')\n", branding.CLIName())
		} else {
			fmt.Fprintln(out, "Status:       up to date")
		}
		return nil
	},
}
