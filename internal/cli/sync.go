package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/terrasync-labs/terrasync/internal/branding"
	"github.com/terrasync-labs/terrasync/internal/config"
	"github.com/terrasync-labs/terrasync/internal/indexcache"
	"github.com/terrasync-labs/terrasync/internal/remote"
	"github.com/terrasync-labs/terrasync/internal/syncer"
	"github.com/terrasync-labs/terrasync/internal/vpath"
)

var syncJobs int

func init() {
	syncCmd.Flags().IntVarP(&syncJobs, "jobs", "j", 0, "Parallel downloads per directory (overrides jobs)")
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(planCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync [path]",
	Short: "Mirror the scenery server into the local scenery directory",
	Long: `Walk the server's .dirindex manifests from [path] (default: the whole tree),
download new and changed files, verify their hashes and remove files the
server no longer lists.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd, args, false)
	},
}

var planCmd = &cobra.Command{
	Use:   "plan [path]",
	Short: "Show what sync would change without changing anything",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd, args, true)
	},
}

// targetPath returns the virtual path named by the optional argument.
func targetPath(args []string) (vpath.Path, error) {
	if len(args) == 0 {
		return vpath.Root(), nil
	}
	p, err := vpath.Parse(args[0])
	if err != nil {
		return vpath.Path{}, fmt.Errorf("invalid path: %w", err)
	}
	return p, nil
}

// newSyncer wires a syncer from configuration.
func newSyncer(dryRun bool) (*syncer.Syncer, error) {
	serverURL := config.Get(config.KeyServerURL)
	userAgent := config.Get(config.KeyUserAgent)
	if userAgent == "" {
		userAgent = branding.UserAgent(buildVersion)
	}
	reader, err := remote.NewReader(serverURL,
		remote.WithUserAgent(userAgent),
		remote.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	cache, err := indexcache.New(config.GetInt(config.KeyIndexCacheSize))
	if err != nil {
		return nil, err
	}
	jobs := syncJobs
	if jobs <= 0 {
		jobs = config.GetInt(config.KeyJobs)
	}
	return syncer.New(reader, config.Get(config.KeySceneryDir),
		syncer.WithJobs(jobs),
		syncer.WithLogger(logger),
		syncer.WithCache(cache),
		syncer.WithDryRun(dryRun))
}

func runSync(cmd *cobra.Command, args []string, dryRun bool) error {
	p, err := targetPath(args)
	if err != nil {
		return err
	}
	s, err := newSyncer(dryRun)
	if err != nil {
		return err
	}

	logger.Debug("starting", "server", config.Get(config.KeyServerURL), "root", config.Get(config.KeySceneryDir), "path", p)
	start := time.Now()
	res, err := s.Sync(cmd.Context(), p)
	if dryRun {
		printPlans(cmd.OutOrStdout(), res.Plans)
	}
	if err != nil {
		return err
	}
	if !dryRun {
		printSyncSummary(cmd.OutOrStdout(), res, time.Since(start))
	}
	return nil
}

func printPlans(out io.Writer, plans []*syncer.Plan) {
	changed := 0
	var total int64
	for _, plan := range plans {
		if plan.Empty() {
			continue
		}
		changed++
		total += plan.FetchSize()
		fmt.Fprintf(out, "%s\n", plan.Path)
		for _, f := range plan.Fetch {
			fmt.Fprintf(out, "  + %s (%s)\n", f.Name, humanize.Bytes(uint64(f.Size)))
		}
		for _, t := range plan.Tarballs {
			fmt.Fprintf(out, "  + %s (tarball, %s)\n", t.Name, humanize.Bytes(uint64(t.Size)))
		}
		for _, name := range plan.Remove {
			fmt.Fprintf(out, "  - %s\n", name)
		}
	}
	if changed == 0 {
		fmt.Fprintln(out, "Nothing to do.")
		return
	}
	printer.Fprintf(out, "%d directories would change, %s to download\n", changed, humanize.Bytes(uint64(total)))
}

func printSyncSummary(out io.Writer, res *syncer.Result, elapsed time.Duration) {
	printer.Fprintf(out, "Synced %d directories (%d unchanged): %d files, %d tarballs, %s fetched, %d removed in %s\n",
		res.DirsVisited, res.DirsSkipped, res.FilesFetched, res.TarballsFetched,
		humanize.Bytes(uint64(res.BytesFetched)), res.Removed, elapsed.Round(time.Millisecond))
}
