package cli

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/terrasync-labs/terrasync/internal/branding"
	"github.com/terrasync-labs/terrasync/internal/config"
	"github.com/terrasync-labs/terrasync/internal/updater"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string

	verbose bool
	logger  = newLogger(os.Stderr, "info", false)
)

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` keeps a local copy of a scenery tree in step with a server.
Every server directory publishes a .dirindex manifest listing its files,
subdirectories and tarballs with their hashes; ` + branding.CLIName() + ` walks those
manifests, downloads only what changed and verifies everything it writes.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.Load()
		logger = newLogger(cmd.ErrOrStderr(), config.Get(config.KeyLogLevel), verbose)

		// Skip the banner for commands whose output is meant for scripts.
		switch cmd.Name() {
		case "version", "get", "set", "show", "convert":
			return
		}
		if config.GetBool(config.KeyReleaseCheck) {
			// Non-blocking banner from cached version check.
			updater.New(buildVersion).CheckAndPrintBanner(cmd.ErrOrStderr(), config.Dir())
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("server", "", "Scenery server URL or directory (overrides server_url)")
	rootCmd.PersistentFlags().String("scenery-dir", "", "Local scenery directory (overrides scenery_dir)")
	_ = viper.BindPFlag(config.KeyServerURL, rootCmd.PersistentFlags().Lookup("server"))
	_ = viper.BindPFlag(config.KeySceneryDir, rootCmd.PersistentFlags().Lookup("scenery-dir"))
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		logger.Error(err)
	}
	return err
}
