package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Zoom contains Zoom API and credential settings.
type Zoom struct {
	UserID           string `toml:"user_id"`
	CredentialsFile  string `toml:"credentials_file"`
	APIBaseURL       string `toml:"api_base_url"`
	TokenURL         string `toml:"token_url"`
	PageSize         int    `toml:"page_size"`
	RefreshFrequency int    `toml:"refresh_frequency"`
	RotationPolicy   string `toml:"rotation_policy"`
	RequestTimeout   int    `toml:"request_timeout"`
}

// Mirror contains the local mirror layout and the date range to cover.
type Mirror struct {
	BaseDir           string `toml:"base_dir"`
	StartDate         string `toml:"start_date"`
	EndDate           string `toml:"end_date"`
	StateDir          string `toml:"state_dir"`
	DeleteAfterUpload bool   `toml:"delete_after_upload"`
}

// Transfer contains retry and sizing settings for downloads and uploads.
type Transfer struct {
	MaxAttempts       int   `toml:"max_attempts"`
	RetryDelaySeconds int   `toml:"retry_delay_seconds"`
	ChunkSize         int   `toml:"chunk_size"`
	MinUploadSize     int64 `toml:"min_upload_size"`
}

// Drive contains the optional Google Drive upload target.
type Drive struct {
	Enabled         bool   `toml:"enabled"`
	UploadFolderID  string `toml:"upload_folder_id"`
	CredentialsFile string `toml:"credentials_file"`
	TokenFile       string `toml:"token_file"`
	ChunkSizeMiB    int    `toml:"chunk_size_mib"`
}

// Verify contains the reconciliation tolerances.
type Verify struct {
	Margin    float64 `toml:"margin"`
	Threshold int     `toml:"threshold"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	File   string `toml:"file"`
}

// Metrics controls the Prometheus endpoint served during long runs.
type Metrics struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

// Config encapsulates all configuration values for zoom-recordings-backup.
//
// Configuration sections by subsystem:
//   - Zoom: API endpoints, user, credentials file and token refresh cadence
//   - Mirror: local base directory, date range and resume state location
//   - Transfer: retry budget and chunk sizes
//   - Drive: optional secondary upload target
//   - Verify: reconciliation margin and match threshold
//   - Logging: log format, level and optional log file
//   - Metrics: Prometheus endpoint
type Config struct {
	Zoom     Zoom     `toml:"zoom"`
	Mirror   Mirror   `toml:"mirror"`
	Transfer Transfer `toml:"transfer"`
	Drive    Drive    `toml:"drive"`
	Verify   Verify   `toml:"verify"`
	Logging  Logging  `toml:"logging"`
	Metrics  Metrics  `toml:"metrics"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load reads, parses and validates the configuration file at path (or the
// default location when path is empty). Unlike optional settings files, a
// missing or empty configuration is fatal: every failure is a *ConfigError.
func Load(path string) (*Config, string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return nil, "", &ConfigError{Path: defaultConfigPath, Err: err}
		}
		path = defaultPath
	}
	resolved, err := expandPath(path)
	if err != nil {
		return nil, "", &ConfigError{Path: path, Err: err}
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, resolved, &ConfigError{Path: resolved, Err: ErrNotFound}
		}
		return nil, resolved, &ConfigError{Path: resolved, Err: err}
	}

	cfg, err := Parse(data)
	if err != nil {
		var cfgErr *ConfigError
		if errors.As(err, &cfgErr) {
			cfgErr.Path = resolved
			return nil, resolved, cfgErr
		}
		return nil, resolved, &ConfigError{Path: resolved, Err: err}
	}
	return cfg, resolved, nil
}

// Parse decodes TOML data on top of the defaults, expands paths and validates.
func Parse(data []byte) (*Config, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &ConfigError{Err: ErrEmpty}
	}

	cfg := Default()
	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("parse config: %w", err)}
	}

	if err := cfg.normalize(); err != nil {
		return nil, &ConfigError{Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, &ConfigError{Err: err}
	}
	return &cfg, nil
}

// StartDate returns the configured first day of the mirror range (UTC).
func (c *Config) StartDate() time.Time {
	t, _ := time.ParseInLocation(time.DateOnly, c.Mirror.StartDate, time.UTC)
	return t
}

// EndDate returns the configured last day of the mirror range (UTC).
func (c *Config) EndDate() time.Time {
	t, _ := time.ParseInLocation(time.DateOnly, c.Mirror.EndDate, time.UTC)
	return t
}

// RefreshFrequency returns the proactive access-token refresh interval.
func (c *Config) RefreshFrequency() time.Duration {
	return time.Duration(c.Zoom.RefreshFrequency) * time.Second
}

// RetryDelay returns the fixed delay between transfer attempts.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Transfer.RetryDelaySeconds) * time.Second
}

// RequestTimeout returns the per-request timeout for Zoom API calls.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Zoom.RequestTimeout) * time.Second
}

// StatePath returns the resume database location.
func (c *Config) StatePath() string {
	return filepath.Join(c.Mirror.StateDir, "state.db")
}

// LockPath returns the single-run lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Mirror.StateDir, "sync.lock")
}

// EnsureDirectories creates the mirror and state directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Mirror.BaseDir, c.Mirror.StateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func (c *Config) normalize() error {
	var err error
	for _, p := range []*string{
		&c.Zoom.CredentialsFile,
		&c.Mirror.BaseDir,
		&c.Mirror.StateDir,
		&c.Drive.CredentialsFile,
		&c.Drive.TokenFile,
		&c.Logging.File,
	} {
		if *p, err = expandPath(strings.TrimSpace(*p)); err != nil {
			return err
		}
	}

	c.Mirror.StartDate = strings.TrimSpace(c.Mirror.StartDate)
	c.Mirror.EndDate = strings.TrimSpace(c.Mirror.EndDate)
	if c.Mirror.EndDate == "" {
		c.Mirror.EndDate = now().UTC().Format(time.DateOnly)
	}
	c.Zoom.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.Zoom.APIBaseURL), "/")
	c.Zoom.RotationPolicy = strings.ToLower(strings.TrimSpace(c.Zoom.RotationPolicy))
	return nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

var now = time.Now
