package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/terrasync-labs/terrasync/internal/dirindex"
	"github.com/terrasync-labs/terrasync/internal/vpath"
	"go.yaml.in/yaml/v3"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	indexPath   string
	indexFormat string
	indexOutput string

	// printer formats counts with thousands separators.
	printer = message.NewPrinter(language.English)
)

func init() {
	indexCmd.PersistentFlags().StringVar(&indexPath, "path", "/", "Virtual location of the index, used in error messages")
	indexShowCmd.Flags().StringVar(&indexFormat, "format", "text", "Output format (text, json, yaml)")
	indexConvertCmd.Flags().StringVarP(&indexOutput, "output", "o", "", "Write the index to a file instead of stdout")

	indexCmd.AddCommand(indexShowCmd)
	indexCmd.AddCommand(indexCheckCmd)
	indexCmd.AddCommand(indexConvertCmd)
	rootCmd.AddCommand(indexCmd)
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Inspect and build " + dirindex.FileName + " files",
}

var indexShowCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "Print the contents of an index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := parseIndexFile(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		switch indexFormat {
		case "text":
			return printIndex(out, idx)
		case "json":
			data, err := json.MarshalIndent(idx.Document(), "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling index: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		case "yaml":
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			if err := enc.Encode(idx.Document()); err != nil {
				return fmt.Errorf("marshaling index: %w", err)
			}
			return enc.Close()
		default:
			return fmt.Errorf("unknown format %q (want text, json or yaml)", indexFormat)
		}
	},
}

var indexCheckCmd = &cobra.Command{
	Use:   "check <file>...",
	Short: "Parse index files and report errors",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		failed := 0
		for _, file := range args {
			idx, err := parseIndexFile(file)
			if err != nil {
				failed++
				fmt.Fprintf(out, "FAIL %s: %v\n", file, err)
				continue
			}
			printer.Fprintf(out, "ok   %s (%d entries, %s)\n", file, idx.Len(), humanize.Bytes(uint64(idx.TotalSize())))
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d index files failed to parse", failed, len(args))
		}
		return nil
	},
}

var indexConvertCmd = &cobra.Command{
	Use:   "convert <document>",
	Short: "Convert a YAML or JSON index document to the " + dirindex.FileName + " format",
	Long: `Validate a YAML or JSON description of an index against the document
schema and write it in the line-oriented format servers publish.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}
		idx, result, err := dirindex.DecodeDocument(data)
		if err != nil {
			return fmt.Errorf("converting %s: %w", args[0], err)
		}
		if !result.Valid {
			for _, issue := range result.Issues {
				fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", issue)
			}
			return fmt.Errorf("%s: %d schema violations", args[0], len(result.Issues))
		}

		text, err := idx.MarshalText()
		if err != nil {
			return err
		}
		if indexOutput == "" {
			_, err = cmd.OutOrStdout().Write(text)
			return err
		}
		if err := os.WriteFile(indexOutput, text, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", indexOutput, err)
		}
		logger.Info("wrote index", "file", indexOutput, "entries", idx.Len())
		return nil
	},
}

func parseIndexFile(file string) (*dirindex.DirIndex, error) {
	location, err := vpath.Parse(indexPath)
	if err != nil {
		return nil, fmt.Errorf("invalid --path: %w", err)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", file, err)
	}
	return dirindex.Parse(data, location)
}

func printIndex(out io.Writer, idx *dirindex.DirIndex) error {
	printer.Fprintf(out, "Version: %d\n", idx.Version())
	printer.Fprintf(out, "Path:    %s\n", idx.Path())
	printer.Fprintf(out, "Entries: %d directories, %d files, %d tarballs (%s)\n\n",
		len(idx.Directories()), len(idx.Files()), len(idx.Tarballs()),
		humanize.Bytes(uint64(idx.TotalSize())))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tNAME\tSIZE\tHASH")
	for _, d := range idx.Directories() {
		fmt.Fprintf(w, "%s\t%s/\t-\t%s\n", dirindex.KindDirectory, d.Name, d.Hash)
	}
	for _, f := range idx.Files() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", dirindex.KindFile, f.Name, humanize.Bytes(uint64(f.Size)), f.Hash)
	}
	for _, t := range idx.Tarballs() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", dirindex.KindTarball, t.Name, humanize.Bytes(uint64(t.Size)), t.Hash)
	}
	return w.Flush()
}
