package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/terrasync-labs/terrasync/internal/dirindex"
)

func init() {
	rootCmd.AddCommand(verifyCmd)
}

var verifyCmd = &cobra.Command{
	Use:   "verify [path]",
	Short: "Check local files against their " + dirindex.FileName + " manifests",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := targetPath(args)
		if err != nil {
			return err
		}
		s, err := newSyncer(false)
		if err != nil {
			return err
		}
		report, err := s.Verify(cmd.Context(), p)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, problem := range report.Problems {
			fmt.Fprintf(out, "FAIL %s\n", problem)
		}
		printer.Fprintf(out, "Checked %d directories, %d files (%s)\n",
			report.Directories, report.Files, humanize.Bytes(uint64(report.Bytes)))
		if !report.OK() {
			return fmt.Errorf("%d problems found; run sync to repair", len(report.Problems))
		}
		return nil
	},
}
