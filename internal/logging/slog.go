package logging

import (
	"fmt"
	"log/slog"
	"time"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation = "operation"
	KeyComponent = "component"
	KeyRunID     = "run_id"
	KeyWindow    = "window"
	KeyMeeting   = "meeting"
	KeyPath      = "path"
	KeyURL       = "url"
	KeyBytes     = "bytes"
	KeyDuration  = "duration"
	KeyStatus    = "status"
	KeyError     = "error"
	KeyAttempt   = "attempt"
)

// Status values for consistent logging.
// Note: These are intentionally duplicated from instrumentation package
// to avoid circular dependencies (instrumentation imports logging).
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithComponent returns a logger tagged with the subsystem emitting records.
// It uses its own key so that it never repeats the operation attribute set
// once per command.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With(slog.String(KeyComponent, component))
}

// WithRunID returns a logger tagged with the identifier of the current run.
func WithRunID(logger *slog.Logger, runID string) *slog.Logger {
	return logger.With(slog.String(KeyRunID, runID))
}

// Window returns a slog attribute describing an inclusive date window.
func Window(start, end time.Time) slog.Attr {
	return slog.String(KeyWindow, start.Format(time.DateOnly)+".."+end.Format(time.DateOnly))
}

// Meeting returns a slog attribute for a meeting UUID.
func Meeting(uuid string) slog.Attr {
	return slog.String(KeyMeeting, uuid)
}

// Path returns a slog attribute for a filesystem path.
func Path(path string) slog.Attr {
	return slog.String(KeyPath, path)
}

// Bytes returns a slog attribute for a byte count.
func Bytes(n int64) slog.Attr {
	return slog.Int64(KeyBytes, n)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Attempt returns a slog attribute for a 1-based retry attempt.
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

// Err returns a slog attribute for an error.
// If err is nil, returns an empty Group attribute that will be omitted from output.
// This allows safely passing Err(maybeNilErr) without adding empty attributes.
//
// Usage:
//
//	logger.Info("operation", logging.Err(err))  // Safe even if err is nil
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// SanitizeToken returns a masked version of a token for logging.
// It returns a length indicator without exposing any token content.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}

// SanitizeURL strips the query string from a URL before logging, since
// recording download links may carry access tokens as query parameters.
func SanitizeURL(raw string) string {
	for i := 0; i < len(raw); i++ {
		if raw[i] == '?' {
			return raw[:i]
		}
	}
	return raw
}

// URL returns a slog attribute for a sanitized URL.
func URL(raw string) slog.Attr {
	return slog.String(KeyURL, SanitizeURL(raw))
}
