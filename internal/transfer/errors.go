package transfer

import (
	"fmt"
	"net/http"
)

// NetworkError is a retryable transport failure: a dial or read error, or a
// non-2xx response.
type NetworkError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("transfer: %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("transfer: %s: status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	default:
		return fmt.Sprintf("transfer: %s: %v", e.URL, e.Err)
	}
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// SizeMismatchError reports a completed download whose byte count differs
// from the size Zoom advertised. The partial file has already been removed.
// It is never retried.
type SizeMismatchError struct {
	Path     string
	Expected int64
	Actual   int64
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("transfer: %s: size mismatch: expected %d bytes, got %d", e.Path, e.Expected, e.Actual)
}

// TooSmallError rejects uploads of files below the minimum size.
type TooSmallError struct {
	Path    string
	Size    int64
	Minimum int64
}

func (e *TooSmallError) Error() string {
	return fmt.Sprintf("transfer: %s: %d bytes is below the %d byte upload minimum", e.Path, e.Size, e.Minimum)
}
