package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/phyninja/zoom-recordings-backup/internal/config"
	"github.com/phyninja/zoom-recordings-backup/internal/logging"
)

// rootCmd represents the base command for the zoom-recordings-backup application
var rootCmd = &cobra.Command{
	Use:   "zoom-recordings-backup",
	Short: "Mirrors Zoom cloud recordings to local disk and Google Drive",
	Long: `zoom-recordings-backup downloads every cloud recording of a Zoom user into
a local folder tree, optionally uploads each file to Google Drive, and verifies
that the local mirror matches what Zoom reports.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

var (
	configPath string
	logFormat  string
	logLevel   string
)

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "zoom-recordings-backup version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the TOML configuration file (default ~/.config/zoom-recordings-backup/config.toml)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: auto, text or json (overrides [logging] format)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides [logging] level)")

	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newVerifyCmd())
	rootCmd.AddCommand(newDoctorCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// runtime carries what every command needs after startup.
type runtime struct {
	cfg        *config.Config
	configPath string
	runID      string
	logger     *slog.Logger
	closeLog   func() error
}

// setup loads the configuration and builds the run logger. A configuration
// error is fatal and returned as is.
func setup(operation string) (*runtime, error) {
	cfg, path, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	opts := logging.Options{
		Format: cfg.Logging.Format,
		Level:  cfg.Logging.Level,
		File:   cfg.Logging.File,
	}
	if logFormat != "" {
		opts.Format = logFormat
	}
	if logLevel != "" {
		opts.Level = logLevel
	}
	logger, closeLog, err := logging.New(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to configure logging: %w", err)
	}

	runID := uuid.NewString()
	logger = logging.WithOperation(logging.WithRunID(logger, runID), operation)
	slog.SetDefault(logger)
	logger.Debug("configuration loaded", logging.Path(path))

	return &runtime{
		cfg:        cfg,
		configPath: path,
		runID:      runID,
		logger:     logger,
		closeLog:   closeLog,
	}, nil
}

func (r *runtime) close() {
	if err := r.closeLog(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
	}
}

// commandContext returns a context cancelled on SIGINT or SIGTERM.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
