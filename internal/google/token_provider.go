package google

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/oauth2"
)

// TokenCache stores an oauth2.Token as JSON on disk.
type TokenCache struct {
	path string
}

// NewTokenCache returns a cache backed by path.
func NewTokenCache(path string) *TokenCache {
	return &TokenCache{path: path}
}

// Load reads the cached token.
func (c *TokenCache) Load() (*oauth2.Token, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("invalid token file %s: %w", c.path, err)
	}
	if tok.RefreshToken == "" && tok.AccessToken == "" {
		return nil, fmt.Errorf("invalid token file %s: no tokens", c.path)
	}
	return &tok, nil
}

// Save writes the token with owner-only permissions.
func (c *TokenCache) Save(tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// cachingTokenSource writes every newly minted token back to the cache.
type cachingTokenSource struct {
	base  oauth2.TokenSource
	cache *TokenCache

	mu   sync.Mutex
	last string
}

func (s *cachingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := s.cache.Save(tok); err != nil {
			return nil, err
		}
	}
	return tok, nil
}
