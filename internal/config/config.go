package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/spf13/viper"
	"github.com/terrasync-labs/terrasync/internal/branding"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Configuration keys.
const (
	KeyServerURL      = "server_url"
	KeySceneryDir     = "scenery_dir"
	KeyJobs           = "jobs"
	KeyLogLevel       = "log_level"
	KeyUserAgent      = "user_agent"
	KeyIndexCacheSize = "index_cache_size"
	KeyReleaseCheck   = "release_check"
)

// Keys lists every known configuration key.
var Keys = []string{
	KeyServerURL,
	KeySceneryDir,
	KeyJobs,
	KeyLogLevel,
	KeyUserAgent,
	KeyIndexCacheSize,
	KeyReleaseCheck,
}

var intKeys = []string{KeyJobs, KeyIndexCacheSize}

// Dir returns the path to the config directory (~/.terrasync/).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.terrasync/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// DefaultSceneryDir is where scenery is mirrored when scenery_dir is unset.
func DefaultSceneryDir() string {
	return filepath.Join(Dir(), "scenery")
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// Load initializes Viper to read from the config file and environment.
func Load() {
	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.AutomaticEnv()

	viper.SetDefault(KeyServerURL, branding.ServerURL())
	viper.SetDefault(KeySceneryDir, DefaultSceneryDir())
	viper.SetDefault(KeyJobs, 4)
	viper.SetDefault(KeyLogLevel, "info")
	viper.SetDefault(KeyIndexCacheSize, 1024)
	viper.SetDefault(KeyReleaseCheck, true)

	// Ignore error if config file doesn't exist yet.
	_ = viper.ReadInConfig()
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	return viper.GetString(key)
}

// GetInt returns an integer config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a boolean config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// IsKnown reports whether key is a recognized configuration key.
func IsKnown(key string) bool {
	return slices.Contains(Keys, key)
}

// Set writes a config key-value pair and saves the config file.
func Set(key, value string) error {
	if !IsKnown(key) {
		return fmt.Errorf("unknown config key %q", key)
	}
	if slices.Contains(intKeys, key) {
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("%s must be a positive integer, got %q", key, value)
		}
	}
	if key == KeyReleaseCheck {
		if _, err := strconv.ParseBool(value); err != nil {
			return fmt.Errorf("%s must be true or false, got %q", key, value)
		}
	}
	if err := EnsureDir(); err != nil {
		return err
	}

	viper.Set(key, value)

	configFile := FilePath()

	// Create the file if it doesn't exist.
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("creating config file %s: %w", configFile, err)
		}
		f.Close()
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
