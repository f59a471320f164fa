package cli

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/terrasync-labs/terrasync/internal/branding"
)

// newLogger builds the CLI logger. verbose forces debug output regardless of
// the configured level; an unknown level falls back to info.
func newLogger(w io.Writer, level string, verbose bool) *log.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	if verbose {
		lvl = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		Prefix: branding.CLIName(),
		Level:  lvl,
	})
}
