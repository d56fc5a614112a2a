package mirror

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phyninja/zoom-recordings-backup/internal/zoom"
)

func TestCollector_Collect(t *testing.T) {
	start := time.Date(2024, 1, 20, 15, 4, 0, 0, time.UTC)
	fetcher := &fakeFetcher{
		byStart: map[time.Time][]zoom.Meeting{
			d(2024, 1, 15): {meeting("m1", "Weekly Sync", start)},
			d(2024, 2, 15): {meeting("m2", "Retro", start.AddDate(0, 1, 0))},
		},
		errs: map[time.Time]error{
			d(2024, 2, 15): &zoom.StatusError{Endpoint: "recordings", StatusCode: http.StatusInternalServerError},
		},
	}

	meetings, err := NewCollector(fetcher, d(2024, 1, 15), d(2024, 3, 10), nil).Collect(context.Background())

	var statusErr *zoom.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Contains(t, err.Error(), "2024-02-15..2024-03-10")
	assert.Len(t, meetings, 2, "partial results are kept")
}

func TestCollector_AuthErrorStops(t *testing.T) {
	fetcher := &fakeFetcher{errs: map[time.Time]error{
		d(2024, 1, 1): &zoom.AuthError{StatusCode: http.StatusUnauthorized},
	}}

	_, err := NewCollector(fetcher, d(2024, 1, 1), d(2024, 6, 30), nil).Collect(context.Background())

	var authErr *zoom.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Len(t, fetcher.calls, 1)
}

func TestCollector_Complete(t *testing.T) {
	fetcher := &fakeFetcher{}
	meetings, err := NewCollector(fetcher, d(2024, 1, 1), d(2024, 3, 31), nil).Collect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, meetings)
	assert.Len(t, fetcher.calls, 3)
}
