// Package branding provides compile-time identity values for the CLI.
//
// The values come from branding.yaml, embedded into the binary with
// //go:embed. Builds for a different distribution edit that file.
package branding

import (
	_ "embed"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

//go:embed branding.yaml
var rawBranding []byte

var (
	once     sync.Once
	defaults brand
)

type brand struct {
	CLIName     string `yaml:"cli_name"`
	DisplayName string `yaml:"display_name"`
	Description string `yaml:"description"`
	HomeDir     string `yaml:"home_dir"`
	EnvPrefix   string `yaml:"env_prefix"`
	GitHubRepo  string `yaml:"github_repo"`
	ServerURL   string `yaml:"server_url"`
}

func load() {
	once.Do(func() {
		// Hard defaults in case the embedded file is missing or empty.
		defaults = brand{
			CLIName:     "terrasync",
			DisplayName: "TerraSync",
			Description: "Mirror and publish scenery trees over HTTP",
			HomeDir:     ".terrasync",
			EnvPrefix:   "TERRASYNC",
			GitHubRepo:  "terrasync-labs/terrasync",
			ServerURL:   "https://terrasync.flightgear.org/ts",
		}
		_ = yaml.Unmarshal(rawBranding, &defaults)
	})
}

// CLIName returns the root command name (e.g., "terrasync").
func CLIName() string { load(); return defaults.CLIName }

// DisplayName returns the human-readable product name.
func DisplayName() string { load(); return defaults.DisplayName }

// Description returns the short product description.
func Description() string { load(); return defaults.Description }

// HomeDir returns the dot-directory name under $HOME (e.g., ".terrasync").
func HomeDir() string { load(); return defaults.HomeDir }

// EnvPrefix returns the environment variable prefix (e.g., "TERRASYNC").
func EnvPrefix() string { load(); return defaults.EnvPrefix }

// GitHubRepo returns the "owner/repo" string that publishes releases.
func GitHubRepo() string { load(); return defaults.GitHubRepo }

// ServerURL returns the scenery server used when none is configured.
func ServerURL() string { load(); return defaults.ServerURL }

// UserAgent returns the HTTP User-Agent for the given version.
func UserAgent(version string) string {
	return CLIName() + "/" + version
}

// EnvVar returns a fully qualified env var name, e.g., EnvVar("server_url") → "TERRASYNC_SERVER_URL".
func EnvVar(suffix string) string {
	load()
	return defaults.EnvPrefix + "_" + strings.ToUpper(suffix)
}
