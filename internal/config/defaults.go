package config

const (
	defaultConfigPath        = "~/.config/zoom-recordings-backup/config.toml"
	defaultCredentialsFile   = "~/.config/zoom-recordings-backup/zoom-credentials.yaml"
	defaultStateDir          = "~/.local/share/zoom-recordings-backup"
	defaultAPIBaseURL        = "https://api.zoom.us/v2"
	defaultTokenURL          = "https://zoom.us/oauth/token"
	defaultUserID            = "me"
	defaultPageSize          = 30
	defaultRefreshFrequency  = 3500
	defaultRotationPolicy    = "reuse"
	defaultRequestTimeout    = 30
	defaultMaxAttempts       = 3
	defaultRetryDelaySeconds = 5
	defaultChunkSize         = 8192
	defaultMinUploadSize     = 8
	defaultDriveTokenFile    = "~/.config/zoom-recordings-backup/google.token"
	defaultDriveChunkSizeMiB = 8
	defaultVerifyMargin      = 0.01
	defaultVerifyThreshold   = 99
	defaultLogFormat         = "auto"
	defaultLogLevel          = "info"
	defaultMetricsAddr       = ":9090"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Zoom: Zoom{
			UserID:           defaultUserID,
			CredentialsFile:  defaultCredentialsFile,
			APIBaseURL:       defaultAPIBaseURL,
			TokenURL:         defaultTokenURL,
			PageSize:         defaultPageSize,
			RefreshFrequency: defaultRefreshFrequency,
			RotationPolicy:   defaultRotationPolicy,
			RequestTimeout:   defaultRequestTimeout,
		},
		Mirror: Mirror{
			StateDir: defaultStateDir,
		},
		Transfer: Transfer{
			MaxAttempts:       defaultMaxAttempts,
			RetryDelaySeconds: defaultRetryDelaySeconds,
			ChunkSize:         defaultChunkSize,
			MinUploadSize:     defaultMinUploadSize,
		},
		Drive: Drive{
			TokenFile:    defaultDriveTokenFile,
			ChunkSizeMiB: defaultDriveChunkSizeMiB,
		},
		Verify: Verify{
			Margin:    defaultVerifyMargin,
			Threshold: defaultVerifyThreshold,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Metrics: Metrics{
			Addr: defaultMetricsAddr,
		},
	}
}
