package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestWithOperation(t *testing.T) {
	logger := slog.Default()
	result := WithOperation(logger, "test_operation")
	if result == nil {
		t.Error("WithOperation returned nil")
	}
}

func TestWithComponent_KeepsOperationUnique(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logger = WithComponent(WithOperation(logger, "verify"), "zoom.token")
	logger.Info("refreshed")

	line := buf.String()
	if n := strings.Count(line, `"operation":`); n != 1 {
		t.Errorf("operation key appears %d times in %s", n, line)
	}
	if !strings.Contains(line, `"operation":"verify"`) {
		t.Errorf("missing operation attribute in %s", line)
	}
	if !strings.Contains(line, `"component":"zoom.token"`) {
		t.Errorf("missing component attribute in %s", line)
	}
}

func TestWithRunID(t *testing.T) {
	logger := slog.Default()
	result := WithRunID(logger, "run-1")
	if result == nil {
		t.Error("WithRunID returned nil")
	}
}

func TestMeetingAttr(t *testing.T) {
	attr := Meeting("aDYlohsHRtCd4ii1uC2+hA==")
	if attr.Key != KeyMeeting {
		t.Errorf("Meeting key = %q, want %q", attr.Key, KeyMeeting)
	}
	if attr.Value.String() != "aDYlohsHRtCd4ii1uC2+hA==" {
		t.Errorf("Meeting value = %q", attr.Value.String())
	}
}

func TestWindowAttr(t *testing.T) {
	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC)
	attr := Window(start, end)
	if attr.Key != KeyWindow {
		t.Errorf("Window key = %q, want %q", attr.Key, KeyWindow)
	}
	if attr.Value.String() != "2024-01-15..2024-02-14" {
		t.Errorf("Window value = %q", attr.Value.String())
	}
}

func TestStatusAttr(t *testing.T) {
	attr := Status(StatusSuccess)
	if attr.Key != KeyStatus {
		t.Errorf("Status key = %q, want %q", attr.Key, KeyStatus)
	}
	if attr.Value.String() != StatusSuccess {
		t.Errorf("Status value = %q, want %q", attr.Value.String(), StatusSuccess)
	}
}

func TestErr(t *testing.T) {
	err := errors.New("test error")
	attr := Err(err)
	if attr.Key != KeyError {
		t.Errorf("Err key = %q, want %q", attr.Key, KeyError)
	}
	if attr.Value.String() != "test error" {
		t.Errorf("Err value = %q, want %q", attr.Value.String(), "test error")
	}

	// Empty Group has empty key
	attr = Err(nil)
	if attr.Key != "" {
		t.Errorf("Err(nil) key = %q, want empty string (empty group)", attr.Key)
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		token    string
		expected string
	}{
		{"", "<empty>"},
		{"abc123", "[token:6 chars]"},
		{"a_very_long_token_string", "[token:24 chars]"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			result := SanitizeToken(tt.token)
			if result != tt.expected {
				t.Errorf("SanitizeToken(%q) = %q, want %q", tt.token, result, tt.expected)
			}
		})
	}
}

func TestSanitizeURL(t *testing.T) {
	tests := []struct {
		raw      string
		expected string
	}{
		{"https://zoom.us/rec/download/abc?access_token=secret", "https://zoom.us/rec/download/abc"},
		{"https://zoom.us/rec/download/abc", "https://zoom.us/rec/download/abc"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := SanitizeURL(tt.raw); got != tt.expected {
				t.Errorf("SanitizeURL(%q) = %q, want %q", tt.raw, got, tt.expected)
			}
		})
	}
}

func TestStatusConstants(t *testing.T) {
	if StatusSuccess != "success" {
		t.Errorf("StatusSuccess = %q, want %q", StatusSuccess, "success")
	}
	if StatusError != "error" {
		t.Errorf("StatusError = %q, want %q", StatusError, "error")
	}
}
