package config

import "errors"

var (
	// ErrNotFound is returned when the configuration file does not exist.
	ErrNotFound = errors.New("configuration file not found")
	// ErrEmpty is returned when the configuration file has no content.
	ErrEmpty = errors.New("configuration file is empty")
)

// ConfigError reports a missing, empty, unparsable or invalid configuration.
// It is fatal at startup.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return "config: " + e.Err.Error()
	}
	return "config " + e.Path + ": " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
