package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/phyninja/zoom-recordings-backup/internal/drive"
	"github.com/phyninja/zoom-recordings-backup/internal/google"
	"github.com/phyninja/zoom-recordings-backup/internal/instrumentation"
	"github.com/phyninja/zoom-recordings-backup/internal/logging"
	"github.com/phyninja/zoom-recordings-backup/internal/server"
	"github.com/phyninja/zoom-recordings-backup/internal/transfer"
	"github.com/phyninja/zoom-recordings-backup/internal/zoom"
)

// telemetry bundles the instrumentation provider and the optional metrics
// server of one run.
type telemetry struct {
	provider *instrumentation.Provider
	health   *server.HealthChecker
	server   *server.MetricsServer
}

// startTelemetry creates the instrumentation provider. Metrics are only
// collected when [metrics] enabled is set; the Prometheus endpoint is served
// when the provider exports to Prometheus.
func startTelemetry(ctx context.Context, rt *runtime) (*telemetry, error) {
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	instrConfig.RunID = rt.runID
	instrConfig.Enabled = instrConfig.Enabled && rt.cfg.Metrics.Enabled

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}

	t := &telemetry{provider: provider, health: server.NewHealthChecker()}
	if !provider.ExportsPrometheus() {
		return t, nil
	}

	t.server, err = server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    rt.cfg.Metrics.Addr,
		InstrumentationProvider: provider,
		Health:                  t.health,
		Logger:                  rt.logger,
	})
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}
	go func() {
		if err := t.server.Start(); err != nil {
			rt.logger.Error("metrics server stopped", logging.Err(err))
		}
	}()
	return t, nil
}

func (t *telemetry) metrics() *instrumentation.Metrics {
	return t.provider.Metrics()
}

// shutdown stops the metrics server first, then flushes telemetry. It uses a
// fresh context since the run context may already be cancelled.
func (t *telemetry) shutdown(rt *runtime) {
	ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer cancel()
	if t.server != nil {
		if err := t.server.Shutdown(ctx); err != nil {
			rt.logger.Warn("error shutting down metrics server", logging.Err(err))
		}
	}
	if err := t.provider.Shutdown(ctx); err != nil {
		rt.logger.Warn("error during instrumentation shutdown", logging.Err(err))
	}
}

// newTokenManager loads the Zoom credential store and builds the token
// manager that persists every rotation back to it.
func newTokenManager(rt *runtime, metrics *instrumentation.Metrics) (*zoom.TokenManager, error) {
	store := zoom.NewFileStore(rt.cfg.Zoom.CredentialsFile)
	cred, err := store.Load()
	if err != nil {
		return nil, err
	}
	policy, err := zoom.ParseRotationPolicy(rt.cfg.Zoom.RotationPolicy)
	if err != nil {
		return nil, err
	}
	return zoom.NewTokenManager(cred,
		zoom.WithHTTPClient(&http.Client{Timeout: rt.cfg.RequestTimeout()}),
		zoom.WithTokenURL(rt.cfg.Zoom.TokenURL),
		zoom.WithStore(store),
		zoom.WithRotationPolicy(policy),
		zoom.WithRefreshFrequency(rt.cfg.RefreshFrequency()),
		zoom.WithLogger(rt.logger),
		zoom.WithMetrics(metrics),
	), nil
}

func newZoomClient(rt *runtime, tokens zoom.TokenSource, metrics *instrumentation.Metrics) (*zoom.Client, error) {
	return zoom.NewClient(zoom.ClientConfig{
		BaseURL:    rt.cfg.Zoom.APIBaseURL,
		UserID:     rt.cfg.Zoom.UserID,
		PageSize:   rt.cfg.Zoom.PageSize,
		HTTPClient: &http.Client{Timeout: rt.cfg.RequestTimeout()},
		Logger:     rt.logger,
		Metrics:    metrics,
	}, tokens)
}

// newDriveClient authorizes against Google Drive with the cached OAuth token.
func newDriveClient(ctx context.Context, rt *runtime) (*drive.Client, error) {
	conf, err := google.LoadConfig(rt.cfg.Drive.CredentialsFile)
	if err != nil {
		return nil, err
	}
	httpClient, err := google.HTTPClient(ctx, conf, rt.cfg.Drive.TokenFile)
	if err != nil {
		return nil, err
	}
	return drive.NewClient(ctx, httpClient, rt.cfg.Drive.ChunkSizeMiB<<20)
}

// newEngine builds the transfer engine. Downloads carry no overall timeout
// since recordings can take hours; cancellation comes from ctx.
func newEngine(rt *runtime, tokens transfer.TokenSource, uploader transfer.Uploader, metrics *instrumentation.Metrics) *transfer.Engine {
	cfg := transfer.Config{
		HTTPClient: &http.Client{},
		Tokens:     tokens,
		Uploader:   uploader,
		Retry: transfer.RetryPolicy{
			MaxAttempts: rt.cfg.Transfer.MaxAttempts,
			Delay:       rt.cfg.RetryDelay(),
		},
		ChunkSize:     rt.cfg.Transfer.ChunkSize,
		MinUploadSize: rt.cfg.Transfer.MinUploadSize,
		Logger:        rt.logger,
		Metrics:       metrics,
	}
	if isatty.IsTerminal(os.Stderr.Fd()) {
		cfg.Progress = os.Stderr
	}
	return transfer.New(cfg)
}
