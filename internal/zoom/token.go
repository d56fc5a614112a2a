package zoom

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/phyninja/zoom-recordings-backup/internal/instrumentation"
	"github.com/phyninja/zoom-recordings-backup/internal/logging"
)

const (
	// DefaultTokenURL is the Zoom OAuth token endpoint.
	DefaultTokenURL = "https://zoom.us/oauth/token"

	// DefaultRefreshFrequency stays under the one hour access token lifetime.
	DefaultRefreshFrequency = 3500 * time.Second
)

// HTTPDoer is the subset of *http.Client used for API calls.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// RotationPolicy decides what happens when a refresh response omits a new
// refresh token.
type RotationPolicy string

const (
	// RotationReuse keeps the last known refresh token.
	RotationReuse RotationPolicy = "reuse"
	// RotationRequire treats a missing refresh token as an AuthError.
	RotationRequire RotationPolicy = "require"
)

// ParseRotationPolicy maps a config value to a RotationPolicy.
func ParseRotationPolicy(value string) (RotationPolicy, error) {
	switch RotationPolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", RotationReuse:
		return RotationReuse, nil
	case RotationRequire:
		return RotationRequire, nil
	default:
		return "", fmt.Errorf("unknown rotation policy %q", value)
	}
}

// TokenManager owns the Zoom credential. Refreshes are serialized so a
// single-use refresh token is never spent twice.
type TokenManager struct {
	refreshMu sync.Mutex

	mu   sync.RWMutex
	cred Credential

	client    HTTPDoer
	tokenURL  string
	store     CredentialStore
	rotation  RotationPolicy
	frequency time.Duration
	logger    *slog.Logger
	metrics   *instrumentation.Metrics
	now       func() time.Time
}

// TokenManagerOption configures a TokenManager.
type TokenManagerOption func(*TokenManager)

// WithHTTPClient sets the client used for token requests.
func WithHTTPClient(client HTTPDoer) TokenManagerOption {
	return func(m *TokenManager) {
		if client != nil {
			m.client = client
		}
	}
}

// WithTokenURL overrides the token endpoint.
func WithTokenURL(tokenURL string) TokenManagerOption {
	return func(m *TokenManager) {
		if tokenURL != "" {
			m.tokenURL = tokenURL
		}
	}
}

// WithStore persists the credential after every successful refresh.
func WithStore(store CredentialStore) TokenManagerOption {
	return func(m *TokenManager) {
		m.store = store
	}
}

// WithRotationPolicy sets the refresh token rotation policy.
func WithRotationPolicy(policy RotationPolicy) TokenManagerOption {
	return func(m *TokenManager) {
		if policy != "" {
			m.rotation = policy
		}
	}
}

// WithRefreshFrequency sets the proactive refresh interval.
func WithRefreshFrequency(d time.Duration) TokenManagerOption {
	return func(m *TokenManager) {
		if d > 0 {
			m.frequency = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) TokenManagerOption {
	return func(m *TokenManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics records refresh attempts.
func WithMetrics(metrics *instrumentation.Metrics) TokenManagerOption {
	return func(m *TokenManager) {
		m.metrics = metrics
	}
}

// NewTokenManager creates a manager seeded with cred.
func NewTokenManager(cred Credential, opts ...TokenManagerOption) *TokenManager {
	m := &TokenManager{
		cred:      cred,
		client:    &http.Client{Timeout: 30 * time.Second},
		tokenURL:  DefaultTokenURL,
		rotation:  RotationReuse,
		frequency: DefaultRefreshFrequency,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.WithComponent(m.logger, "zoom.token")
	return m
}

// Current returns a snapshot of the credential.
func (m *TokenManager) Current() Credential {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cred
}

// Token returns a usable access token, refreshing first when the current
// one has never been issued by this process or is older than the refresh
// frequency.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	cur := m.Current()
	if cur.AccessToken != "" && !cur.IssuedAt.IsZero() && m.now().Sub(cur.IssuedAt) < m.frequency {
		return cur.AccessToken, nil
	}
	cred, err := m.RefreshIfCurrent(ctx, cur.AccessToken)
	if err != nil {
		return "", err
	}
	return cred.AccessToken, nil
}

// Renew is called after a 401 for stale. It returns a different access
// token or an error; getting the same token back is an *AuthError.
func (m *TokenManager) Renew(ctx context.Context, stale string) (string, error) {
	cred, err := m.RefreshIfCurrent(ctx, stale)
	if err != nil {
		return "", err
	}
	if cred.AccessToken == "" || cred.AccessToken == stale {
		return "", &AuthError{Reason: "refresh did not produce a new access token"}
	}
	return cred.AccessToken, nil
}

// Refresh exchanges the refresh token for a new token pair.
func (m *TokenManager) Refresh(ctx context.Context) (Credential, error) {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()
	return m.refreshLocked(ctx)
}

// RefreshIfCurrent refreshes only when stale is still the current access
// token. When another caller already replaced it, the current credential is
// returned without a network round-trip.
func (m *TokenManager) RefreshIfCurrent(ctx context.Context, stale string) (Credential, error) {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	cur := m.Current()
	if cur.AccessToken != "" && cur.AccessToken != stale {
		m.metrics.RecordTokenRefresh(ctx, instrumentation.RefreshResultSkipped)
		return cur, nil
	}
	return m.refreshLocked(ctx)
}

// Run refreshes the token every refresh frequency until ctx is done.
// Failures are logged and the previous token is kept.
func (m *TokenManager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.frequency)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Refresh(ctx); err != nil && ctx.Err() == nil {
				m.logger.Warn("scheduled token refresh failed; keeping current token", logging.Err(err))
			}
		}
	}
}

func (m *TokenManager) refreshLocked(ctx context.Context) (Credential, error) {
	cred, err := m.exchange(ctx, m.Current())
	if err != nil {
		m.metrics.RecordTokenRefresh(ctx, instrumentation.RefreshResultFailure)
		m.logger.Error("token refresh failed", logging.Status(logging.StatusError), logging.Err(err))
		return Credential{}, err
	}

	m.mu.Lock()
	m.cred = cred
	m.mu.Unlock()

	m.metrics.RecordTokenRefresh(ctx, instrumentation.RefreshResultSuccess)
	m.logger.Info("access token refreshed",
		logging.Status(logging.StatusSuccess),
		slog.String("access_token", logging.SanitizeToken(cred.AccessToken)))

	if m.store != nil {
		if err := m.store.Save(cred); err != nil {
			m.logger.Error("failed to persist refreshed credentials", logging.Err(err))
		}
	}
	return cred, nil
}

func (m *TokenManager) exchange(ctx context.Context, cur Credential) (Credential, error) {
	ctx, span := instrumentation.StartClientSpan(ctx, "zoom.token.refresh")
	var spanErr error
	defer func() { instrumentation.EndSpan(span, spanErr) }()

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", cur.RefreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		spanErr = err
		return Credential{}, fmt.Errorf("zoom: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(cur.ClientID, cur.ClientSecret)

	start := m.now()
	resp, err := m.client.Do(req)
	if err != nil {
		spanErr = err
		return Credential{}, &AuthError{Reason: err.Error()}
	}
	defer resp.Body.Close()
	m.metrics.RecordZoomRequest(ctx, "oauth_token", resp.StatusCode, m.now().Sub(start))

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode != http.StatusOK {
		spanErr = &AuthError{StatusCode: resp.StatusCode, Body: string(body)}
		return Credential{}, spanErr
	}

	var payload tokenResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		spanErr = &AuthError{StatusCode: resp.StatusCode, Reason: "decode token response: " + err.Error()}
		return Credential{}, spanErr
	}
	if payload.AccessToken == "" {
		spanErr = &AuthError{StatusCode: resp.StatusCode, Reason: "token response has no access_token"}
		return Credential{}, spanErr
	}

	next := cur
	next.AccessToken = payload.AccessToken
	next.IssuedAt = m.now().UTC()
	switch {
	case payload.RefreshToken != "":
		next.RefreshToken = payload.RefreshToken
	case m.rotation == RotationRequire:
		spanErr = &AuthError{StatusCode: resp.StatusCode, Reason: "token response has no refresh_token"}
		return Credential{}, spanErr
	}
	return next, nil
}
