package transfer

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy bounds the attempts made for a single transfer.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryPolicy makes three attempts five seconds apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Delay: 5 * time.Second}
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// retryable reports whether err may succeed on another attempt.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var mismatch *SizeMismatchError
	if errors.As(err, &mismatch) {
		return false
	}
	var tooSmall *TooSmallError
	return !errors.As(err, &tooSmall)
}

// retryableDownload narrows retryable to transport failures. Local
// filesystem errors fail the file on the first attempt.
func retryableDownload(err error) bool {
	var netErr *NetworkError
	return retryable(err) && errors.As(err, &netErr)
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
