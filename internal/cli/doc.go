// Package cli defines the Cobra command tree for the terrasync CLI. Each file
// in this package registers one top-level command (sync, gen, index, etc.)
// with the root command. Command implementations delegate to internal
// packages and only handle flag parsing, output formatting and logging.
package cli
