// Package logging provides structured logging utilities for zoom-recordings-backup.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Text output on terminals, JSON everywhere else
//   - Optional copy of every record to a log file
//   - Consistent attribute naming across the codebase
//   - Token and URL sanitization
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithComponent(slog.Default(), "zoom.recordings")
//	logger.Info("fetched page",
//	    logging.Window(start, end),
//	    logging.Status(logging.StatusSuccess))
//
// # Security Considerations
//
//   - Access and refresh tokens are never logged directly
//   - Query strings are stripped from download URLs
package logging
