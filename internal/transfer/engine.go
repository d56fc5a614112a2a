package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"

	"github.com/phyninja/zoom-recordings-backup/internal/instrumentation"
	"github.com/phyninja/zoom-recordings-backup/internal/logging"
)

const (
	// DefaultChunkSize is the streaming buffer size for downloads.
	DefaultChunkSize = 8192

	// DefaultMinUploadSize rejects uploads of files smaller than this.
	DefaultMinUploadSize = 8
)

// HTTPDoer is the subset of *http.Client used for downloads.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// TokenSource supplies bearer tokens for download URLs and renews them after
// a 401.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Renew(ctx context.Context, stale string) (string, error)
}

// ProgressFunc receives the bytes sent so far and the total.
type ProgressFunc = func(current, total int64)

// Uploader stores a local file in a remote folder and returns its id.
type Uploader interface {
	UploadFile(ctx context.Context, path, folderID string, progress ProgressFunc) (string, error)
}

// Config configures an Engine.
type Config struct {
	HTTPClient    HTTPDoer
	Tokens        TokenSource
	Uploader      Uploader
	Retry         RetryPolicy
	ChunkSize     int
	MinUploadSize int64
	// Progress receives an upload progress bar; nil disables it.
	Progress io.Writer
	Logger   *slog.Logger
	Metrics  *instrumentation.Metrics
}

// Engine moves recording files: Zoom to local disk, local disk to Drive.
// It performs at most one transfer at a time per call.
type Engine struct {
	http          HTTPDoer
	tokens        TokenSource
	uploader      Uploader
	retry         RetryPolicy
	chunkSize     int
	minUploadSize int64
	progress      io.Writer
	logger        *slog.Logger
	metrics       *instrumentation.Metrics
}

// New creates an Engine, filling unset fields with defaults.
func New(cfg Config) *Engine {
	e := &Engine{
		http:          cfg.HTTPClient,
		tokens:        cfg.Tokens,
		uploader:      cfg.Uploader,
		retry:         cfg.Retry,
		chunkSize:     cfg.ChunkSize,
		minUploadSize: cfg.MinUploadSize,
		progress:      cfg.Progress,
		logger:        cfg.Logger,
		metrics:       cfg.Metrics,
	}
	if e.http == nil {
		e.http = &http.Client{}
	}
	if e.retry.MaxAttempts == 0 {
		e.retry = DefaultRetryPolicy()
	}
	if e.chunkSize <= 0 {
		e.chunkSize = DefaultChunkSize
	}
	if e.minUploadSize <= 0 {
		e.minUploadSize = DefaultMinUploadSize
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.logger = logging.WithComponent(e.logger, "transfer")
	return e
}

// Download streams url into dest. When expectedSize is positive and the
// byte count differs, dest is deleted and a *SizeMismatchError returned
// without retrying. Network failures are retried per the RetryPolicy and
// never leave a partial file behind.
func (e *Engine) Download(ctx context.Context, url, dest string, expectedSize int64) error {
	ctx, span := instrumentation.StartClientSpan(ctx, "transfer.download",
		instrumentation.NewSpanAttributeBuilder().WithPath(dest).Build()...)
	var spanErr error
	defer func() { instrumentation.EndSpan(span, spanErr) }()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		spanErr = fmt.Errorf("create destination directory: %w", err)
		return spanErr
	}

	logger := e.logger.With(logging.Path(dest), logging.URL(url))
	started := time.Now()

	var token string
	var err error
	if e.tokens != nil {
		if token, err = e.tokens.Token(ctx); err != nil {
			spanErr = err
			return err
		}
	}

	attempts := e.retry.attempts()
	for attempt := 1; attempt <= attempts; attempt++ {
		var written int64
		written, err = e.downloadOnce(ctx, url, dest, token)
		if err == nil && expectedSize > 0 && written != expectedSize {
			_ = os.Remove(dest)
			err = &SizeMismatchError{Path: dest, Expected: expectedSize, Actual: written}
		}
		if err == nil {
			e.metrics.RecordTransferAttempt(ctx, instrumentation.DirectionDownload, instrumentation.StatusSuccess)
			e.recordCompleted(ctx, logger, instrumentation.DirectionDownload, written, time.Since(started))
			span.SetAttributes(instrumentation.NewSpanAttributeBuilder().WithBytes(written).Build()...)
			return nil
		}

		e.metrics.RecordTransferAttempt(ctx, instrumentation.DirectionDownload, instrumentation.StatusError)
		instrumentation.AddSpanEvent(span, "attempt_failed", instrumentation.AttemptEvent(attempt, err)...)
		if !retryableDownload(err) || attempt == attempts {
			break
		}

		var netErr *NetworkError
		if e.tokens != nil && errors.As(err, &netErr) && netErr.StatusCode == http.StatusUnauthorized {
			renewed, renewErr := e.tokens.Renew(ctx, token)
			if renewErr != nil {
				err = renewErr
				break
			}
			token = renewed
		}

		logger.Warn("download failed; retrying",
			logging.Attempt(attempt),
			slog.Duration("delay", e.retry.Delay),
			logging.Err(err))
		if sleepErr := sleep(ctx, e.retry.Delay); sleepErr != nil {
			err = sleepErr
			break
		}
	}

	logger.Error("download failed", logging.Status(logging.StatusError), logging.Err(err))
	spanErr = err
	return err
}

func (e *Engine) downloadOnce(ctx context.Context, url, dest, token string) (written int64, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build download request: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		return 0, &NetworkError{URL: logging.SanitizeURL(url), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return 0, &NetworkError{URL: logging.SanitizeURL(url), StatusCode: resp.StatusCode}
	}

	f, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", dest, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", dest, closeErr)
		}
		if err != nil {
			_ = os.Remove(dest)
		}
	}()

	buf := make([]byte, e.chunkSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := f.Write(buf[:n]); writeErr != nil {
				return written, fmt.Errorf("write %s: %w", dest, writeErr)
			}
			written += int64(n)
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return written, ctxErr
			}
			return written, &NetworkError{URL: logging.SanitizeURL(url), Err: readErr}
		}
	}
}

// Upload sends localPath to folderID and returns the remote file id. Files
// below the minimum size are rejected with a *TooSmallError.
func (e *Engine) Upload(ctx context.Context, localPath, folderID string) (string, error) {
	if e.uploader == nil {
		return "", errors.New("transfer: no uploader configured")
	}

	ctx, span := instrumentation.StartClientSpan(ctx, "transfer.upload",
		instrumentation.NewSpanAttributeBuilder().WithPath(localPath).Build()...)
	var spanErr error
	defer func() { instrumentation.EndSpan(span, spanErr) }()

	info, err := os.Stat(localPath)
	if err != nil {
		spanErr = fmt.Errorf("stat %s: %w", localPath, err)
		return "", spanErr
	}
	if info.Size() < e.minUploadSize {
		spanErr = &TooSmallError{Path: localPath, Size: info.Size(), Minimum: e.minUploadSize}
		return "", spanErr
	}

	logger := e.logger.With(logging.Path(localPath), slog.String("folder_id", folderID))
	started := time.Now()

	attempts := e.retry.attempts()
	for attempt := 1; attempt <= attempts; attempt++ {
		var id string
		id, err = e.uploader.UploadFile(ctx, localPath, folderID, e.progressFor(localPath, info.Size()))
		if err == nil {
			e.metrics.RecordTransferAttempt(ctx, instrumentation.DirectionUpload, instrumentation.StatusSuccess)
			e.recordCompleted(ctx, logger, instrumentation.DirectionUpload, info.Size(), time.Since(started))
			return id, nil
		}

		e.metrics.RecordTransferAttempt(ctx, instrumentation.DirectionUpload, instrumentation.StatusError)
		instrumentation.AddSpanEvent(span, "attempt_failed", instrumentation.AttemptEvent(attempt, err)...)
		if !retryable(err) || attempt == attempts {
			break
		}
		logger.Warn("upload failed; retrying",
			logging.Attempt(attempt),
			slog.Duration("delay", e.retry.Delay),
			logging.Err(err))
		if sleepErr := sleep(ctx, e.retry.Delay); sleepErr != nil {
			err = sleepErr
			break
		}
	}

	logger.Error("upload failed", logging.Status(logging.StatusError), logging.Err(err))
	spanErr = err
	return "", err
}

func (e *Engine) progressFor(path string, size int64) ProgressFunc {
	if e.progress == nil {
		return nil
	}
	bar := progressbar.NewOptions64(size,
		progressbar.OptionSetWriter(e.progress),
		progressbar.OptionSetDescription("uploading "+filepath.Base(path)),
		progressbar.OptionShowBytes(true),
		progressbar.OptionThrottle(200*time.Millisecond),
		progressbar.OptionOnCompletion(func() { _, _ = fmt.Fprintln(e.progress) }),
	)
	return func(current, _ int64) {
		_ = bar.Set64(current)
	}
}

func (e *Engine) recordCompleted(ctx context.Context, logger *slog.Logger, direction string, n int64, elapsed time.Duration) {
	e.metrics.RecordTransfer(ctx, direction, n, elapsed)

	speed := "n/a"
	if secs := elapsed.Seconds(); secs > 0 {
		speed = humanize.Bytes(uint64(float64(n)/secs)) + "/s"
	}
	logger.Info(direction+" complete",
		logging.Status(logging.StatusSuccess),
		logging.Bytes(n),
		slog.String("size", humanize.Bytes(uint64(n))),
		slog.Duration(logging.KeyDuration, elapsed.Round(time.Millisecond)),
		slog.String("speed", speed))
}
