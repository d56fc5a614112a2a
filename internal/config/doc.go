// Package config loads the TOML configuration for zoom-recordings-backup.
//
// The configuration is read once at process start. A missing, empty,
// unparsable or invalid file yields a *ConfigError, which callers treat as
// fatal. Paths accept a leading "~" and are expanded to absolute paths.
package config
