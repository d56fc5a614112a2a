package zoom

import (
	"fmt"
	"strings"
)

// AuthError reports a failed token refresh. A run cannot continue past it
// without new credentials.
type AuthError struct {
	StatusCode int
	Body       string
	Reason     string
}

func (e *AuthError) Error() string {
	var b strings.Builder
	b.WriteString("zoom: authentication failed")
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if body := strings.TrimSpace(e.Body); body != "" {
		b.WriteString(": ")
		b.WriteString(body)
	}
	return b.String()
}

// StatusError reports an unexpected HTTP status from a listing request.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("zoom: %s returned status %d", e.Endpoint, e.StatusCode)
	if body := strings.TrimSpace(e.Body); body != "" {
		msg += ": " + body
	}
	return msg
}
