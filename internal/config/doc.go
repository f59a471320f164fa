// Package config manages user-level settings stored at ~/.terrasync/config.yaml.
// Values can be overridden with TERRASYNC_* environment variables. Keys cover
// the scenery server, the local scenery directory, download parallelism and
// logging.
package config
