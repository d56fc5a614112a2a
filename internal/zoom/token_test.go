package zoom

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu    sync.Mutex
	saved []Credential
	err   error
}

func (s *memoryStore) Save(cred Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, cred)
	return s.err
}

func testCredential() Credential {
	return Credential{
		ClientID:     "client",
		ClientSecret: "secret",
		AccessToken:  "access-0",
		RefreshToken: "refresh-0",
	}
}

// tokenServer issues access-N/refresh-N pairs and counts requests.
func tokenServer(t *testing.T, omitRefresh bool) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)

		assert.Equal(t, http.MethodPost, r.Method)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client", user)
		assert.Equal(t, "secret", pass)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.NotEmpty(t, r.Form.Get("refresh_token"))

		resp := map[string]any{
			"access_token": "access-" + string(rune('0'+n)),
			"token_type":   "bearer",
			"expires_in":   3599,
		}
		if !omitRefresh {
			resp["refresh_token"] = "refresh-" + string(rune('0'+n))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestTokenManager_Refresh(t *testing.T) {
	srv, calls := tokenServer(t, false)
	store := &memoryStore{}

	m := NewTokenManager(testCredential(), WithTokenURL(srv.URL), WithStore(store))

	cred, err := m.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "access-1", cred.AccessToken)
	assert.Equal(t, "refresh-1", cred.RefreshToken)
	assert.False(t, cred.IssuedAt.IsZero())
	assert.Equal(t, cred, m.Current())
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))

	require.Len(t, store.saved, 1)
	assert.Equal(t, "refresh-1", store.saved[0].RefreshToken)
}

func TestTokenManager_Refresh_RotationPolicy(t *testing.T) {
	t.Run("reuse keeps previous refresh token", func(t *testing.T) {
		srv, _ := tokenServer(t, true)
		m := NewTokenManager(testCredential(), WithTokenURL(srv.URL), WithRotationPolicy(RotationReuse))

		cred, err := m.Refresh(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "access-1", cred.AccessToken)
		assert.Equal(t, "refresh-0", cred.RefreshToken)
	})

	t.Run("require rejects missing refresh token", func(t *testing.T) {
		srv, _ := tokenServer(t, true)
		m := NewTokenManager(testCredential(), WithTokenURL(srv.URL), WithRotationPolicy(RotationRequire))

		_, err := m.Refresh(context.Background())
		var authErr *AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Contains(t, authErr.Error(), "refresh_token")
		assert.Equal(t, "access-0", m.Current().AccessToken, "credential must be unchanged")
	})
}

func TestTokenManager_Refresh_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"reason":"Invalid Token!","error":"invalid_request"}`))
	}))
	defer srv.Close()

	store := &memoryStore{}
	m := NewTokenManager(testCredential(), WithTokenURL(srv.URL), WithStore(store))

	_, err := m.Refresh(context.Background())
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusBadRequest, authErr.StatusCode)
	assert.Contains(t, authErr.Body, "Invalid Token!")
	assert.Equal(t, testCredential(), m.Current())
	assert.Empty(t, store.saved)
}

func TestTokenManager_Refresh_StoreFailureKeepsToken(t *testing.T) {
	srv, _ := tokenServer(t, false)
	store := &memoryStore{err: errors.New("disk full")}
	m := NewTokenManager(testCredential(), WithTokenURL(srv.URL), WithStore(store))

	cred, err := m.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-1", cred.AccessToken)
	assert.Equal(t, "access-1", m.Current().AccessToken)
}

func TestTokenManager_RefreshIfCurrent_SkipsWhenReplaced(t *testing.T) {
	srv, calls := tokenServer(t, false)
	m := NewTokenManager(testCredential(), WithTokenURL(srv.URL))

	_, err := m.Refresh(context.Background())
	require.NoError(t, err)

	cred, err := m.RefreshIfCurrent(context.Background(), "access-0")
	require.NoError(t, err)
	assert.Equal(t, "access-1", cred.AccessToken)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestTokenManager_RefreshIfCurrent_Concurrent(t *testing.T) {
	srv, calls := tokenServer(t, false)
	m := NewTokenManager(testCredential(), WithTokenURL(srv.URL))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.RefreshIfCurrent(context.Background(), "access-0")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(calls), "stale token must be refreshed exactly once")
	assert.Equal(t, "access-1", m.Current().AccessToken)
}

func TestTokenManager_Token(t *testing.T) {
	srv, calls := tokenServer(t, false)
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	m := NewTokenManager(testCredential(), WithTokenURL(srv.URL), WithRefreshFrequency(time.Hour))
	m.now = func() time.Time { return now }

	token, err := m.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-1", token, "never-issued token is refreshed first")

	now = now.Add(30 * time.Minute)
	token, err = m.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-1", token)

	now = now.Add(31 * time.Minute)
	token, err = m.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-2", token)
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
}

func TestTokenManager_Renew_SameTokenIsAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"access-0","refresh_token":"refresh-1"}`))
	}))
	defer srv.Close()

	m := NewTokenManager(testCredential(), WithTokenURL(srv.URL))
	_, err := m.Renew(context.Background(), "access-0")

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
}

func TestTokenManager_Run_StopsOnCancel(t *testing.T) {
	srv, calls := tokenServer(t, false)
	m := NewTokenManager(testCredential(), WithTokenURL(srv.URL), WithRefreshFrequency(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return atomic.LoadInt32(calls) >= 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestParseRotationPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    RotationPolicy
		wantErr bool
	}{
		{in: "", want: RotationReuse},
		{in: "reuse", want: RotationReuse},
		{in: " Require ", want: RotationRequire},
		{in: "rotate", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRotationPolicy(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
