package mirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phyninja/zoom-recordings-backup/internal/logging"
	"github.com/phyninja/zoom-recordings-backup/internal/zoom"
)

// Collector gathers the remote inventory for verification without
// transferring anything.
type Collector struct {
	fetcher Fetcher
	start   time.Time
	end     time.Time
	logger  *slog.Logger
}

// NewCollector creates a Collector over [start, end].
func NewCollector(fetcher Fetcher, start, end time.Time, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		fetcher: fetcher,
		start:   start,
		end:     end,
		logger:  logging.WithComponent(logger, "mirror.collect"),
	}
}

// Collect fetches every window. Windows that fail with a status error are
// skipped and reported in the returned error alongside the meetings that
// were collected; an *zoom.AuthError or cancellation stops immediately.
func (c *Collector) Collect(ctx context.Context) ([]zoom.Meeting, error) {
	var (
		meetings []zoom.Meeting
		errs     []error
	)
	for _, w := range Windows(c.start, c.end) {
		if err := ctx.Err(); err != nil {
			return meetings, err
		}
		batch, err := c.fetcher.FetchWindow(ctx, w.Start, w.End)
		meetings = append(meetings, batch...)
		if err == nil {
			c.logger.Debug("window collected", logging.Window(w.Start, w.End), slog.Int("meetings", len(batch)))
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return meetings, ctxErr
		}
		var authErr *zoom.AuthError
		if errors.As(err, &authErr) {
			return meetings, err
		}
		c.logger.Warn("window incomplete", logging.Window(w.Start, w.End), logging.Err(err))
		errs = append(errs, fmt.Errorf("window %s: %w", w, err))
	}
	return meetings, errors.Join(errs...)
}
