package zoom

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/phyninja/zoom-recordings-backup/internal/instrumentation"
	"github.com/phyninja/zoom-recordings-backup/internal/logging"
)

const (
	// DefaultBaseURL is the Zoom REST API root.
	DefaultBaseURL = "https://api.zoom.us/v2"

	// DefaultPageSize is the number of meetings requested per page.
	DefaultPageSize = 30

	// DefaultUserID lists the recordings of the authorizing user.
	DefaultUserID = "me"
)

// TokenSource supplies and renews bearer tokens. *TokenManager satisfies it.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Renew(ctx context.Context, stale string) (string, error)
}

// ClientConfig describes the recordings client.
type ClientConfig struct {
	BaseURL    string
	UserID     string
	PageSize   int
	HTTPClient HTTPDoer
	Logger     *slog.Logger
	Metrics    *instrumentation.Metrics
}

// Client lists cloud recordings for a user.
type Client struct {
	baseURL  *url.URL
	userID   string
	pageSize int
	http     HTTPDoer
	tokens   TokenSource
	logger   *slog.Logger
	metrics  *instrumentation.Metrics
}

// NewClient creates a recordings client authenticated by tokens.
func NewClient(cfg ClientConfig, tokens TokenSource) (*Client, error) {
	if tokens == nil {
		return nil, errors.New("zoom: token source is required")
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("zoom: parse base url: %w", err)
	}
	userID := strings.TrimSpace(cfg.UserID)
	if userID == "" {
		userID = DefaultUserID
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:  baseURL,
		userID:   userID,
		pageSize: pageSize,
		http:     httpClient,
		tokens:   tokens,
		logger:   logging.WithComponent(logger, "zoom.recordings"),
		metrics:  cfg.Metrics,
	}, nil
}

// FetchWindow lists every meeting with recordings between start and end
// (inclusive dates, UTC), following next_page_token until it is absent.
//
// On failure the meetings collected so far are returned together with the
// error: an *AuthError when a 401 could not be resolved by refreshing, a
// *StatusError for any other non-200 response.
func (c *Client) FetchWindow(ctx context.Context, start, end time.Time) ([]Meeting, error) {
	window := logging.Window(start, end)
	ctx, span := instrumentation.StartClientSpan(ctx, "zoom.fetch_window",
		instrumentation.NewSpanAttributeBuilder().WithWindow(window.Value.String()).Build()...)
	var spanErr error
	defer func() { instrumentation.EndSpan(span, spanErr) }()

	params := url.Values{}
	params.Set("from", start.UTC().Format(time.DateOnly)+"T00:00:00Z")
	params.Set("to", end.UTC().Format(time.DateOnly)+"T23:59:59Z")
	params.Set("page_size", strconv.Itoa(c.pageSize))

	var meetings []Meeting
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			spanErr = err
			return meetings, err
		}

		payload, err := c.fetchPage(ctx, params)
		if err != nil {
			c.logger.Warn("recordings listing stopped", window, slog.Int("page", page), logging.Err(err))
			spanErr = err
			return meetings, err
		}
		if len(payload.Meetings) == 0 {
			break
		}
		for _, mw := range payload.Meetings {
			meetings = append(meetings, convertMeeting(mw))
		}
		c.metrics.RecordRecordingsFetched(ctx, len(payload.Meetings))
		c.logger.Debug("recordings page fetched",
			window,
			slog.Int("page", page),
			slog.Int("meetings", len(payload.Meetings)),
			slog.Int("total_records", payload.TotalRecords))

		if payload.NextPageToken == "" {
			break
		}
		params.Set("next_page_token", payload.NextPageToken)
	}

	c.logger.Info("recordings window fetched", window, slog.Int("meetings", len(meetings)))
	return meetings, nil
}

func (c *Client) fetchPage(ctx context.Context, params url.Values) (*recordingsPage, error) {
	endpoint := c.baseURL.JoinPath("users", c.userID, "recordings")
	endpoint.RawQuery = params.Encode()

	resp, err := c.authorizedGet(ctx, "recordings", endpoint.String())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Endpoint: "recordings", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var payload recordingsPage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("zoom: decode recordings response: %w", err)
	}
	return &payload, nil
}

// RateLimits issues a lightweight request and reports the rate-limit
// headers Zoom attaches to it.
func (c *Client) RateLimits(ctx context.Context) (RateLimits, error) {
	endpoint := c.baseURL.JoinPath("users", c.userID)

	resp, err := c.authorizedGet(ctx, "users", endpoint.String())
	if err != nil {
		return RateLimits{}, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode != http.StatusOK {
		return RateLimits{}, &StatusError{Endpoint: "users", StatusCode: resp.StatusCode}
	}
	return RateLimits{
		Limit:     resp.Header.Get("X-RateLimit-Limit"),
		Remaining: resp.Header.Get("X-RateLimit-Remaining"),
		Reset:     resp.Header.Get("X-RateLimit-Reset"),
	}, nil
}

// authorizedGet performs a GET with the current bearer token. A 401 triggers
// one renewal and a single retry of the same request.
func (c *Client) authorizedGet(ctx context.Context, name, target string) (*http.Response, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.get(ctx, name, target, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()

	c.logger.Info("access token rejected; refreshing", logging.URL(target))
	renewed, err := c.tokens.Renew(ctx, token)
	if err != nil {
		var authErr *AuthError
		if errors.As(err, &authErr) {
			return nil, err
		}
		return nil, &AuthError{StatusCode: http.StatusUnauthorized, Reason: err.Error()}
	}

	resp, err = c.get(ctx, name, target, renewed)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &AuthError{StatusCode: resp.StatusCode, Body: string(body), Reason: "renewed token rejected"}
	}
	return resp, nil
}

func (c *Client) get(ctx context.Context, name, target, token string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("zoom: build %s request: %w", name, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("zoom: %s request failed: %w", name, err)
	}
	c.metrics.RecordZoomRequest(ctx, name, resp.StatusCode, time.Since(start))
	return resp, nil
}
