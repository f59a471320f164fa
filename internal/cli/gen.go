package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/terrasync-labs/terrasync/internal/dirindex"
	"github.com/terrasync-labs/terrasync/internal/gen"
	"github.com/terrasync-labs/terrasync/internal/vpath"
)

var (
	genPath   string
	genDryRun bool
)

func init() {
	genCmd.Flags().StringVar(&genPath, "path", "/", "Subtree of <dir> to index")
	genCmd.Flags().BoolVar(&genDryRun, "dry-run", false, "Compute indexes without writing them")
	rootCmd.AddCommand(genCmd)
}

var genCmd = &cobra.Command{
	Use:   "gen <dir>",
	Short: "Generate " + dirindex.FileName + " files for a local tree",
	Long: `Walk <dir> bottom-up and write a ` + dirindex.FileName + ` into every directory so the
tree can be served to clients. Hidden files are not listed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := vpath.Parse(genPath)
		if err != nil {
			return fmt.Errorf("invalid --path: %w", err)
		}
		_, res, err := gen.Generate(args[0], p, gen.WithLogger(logger), gen.WithDryRun(genDryRun))
		if err != nil {
			return fmt.Errorf("generating indexes: %w", err)
		}

		verb := "Indexed"
		if genDryRun {
			verb = "Would index"
		}
		printer.Fprintf(cmd.OutOrStdout(), "%s %d directories, %d files, %d tarballs (%s)\n",
			verb, res.Directories, res.Files, res.Tarballs, humanize.Bytes(uint64(res.Bytes)))
		for _, s := range res.Skipped {
			fmt.Fprintf(cmd.OutOrStdout(), "  skipped %s\n", s)
		}
		return nil
	},
}
