package google

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// OOBRedirectURL makes Google display the authorization code so it can be
// pasted back into the terminal.
const OOBRedirectURL = "urn:ietf:wg:oauth:2.0:oob"

// ErrNoToken is returned when the token file does not exist yet.
var ErrNoToken = errors.New("no Google OAuth token found; run 'zoom-recordings-backup auth drive' first")

// LoadConfig builds the OAuth2 configuration from a Google client secrets
// JSON file (installed or web application).
func LoadConfig(credentialsFile string) (*oauth2.Config, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read Google credentials %s: %w", credentialsFile, err)
	}
	conf, err := google.ConfigFromJSON(data, DriveScopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Google credentials %s: %w", credentialsFile, err)
	}
	if conf.RedirectURL == "" {
		conf.RedirectURL = OOBRedirectURL
	}
	return conf, nil
}

// AuthURL returns the consent page URL. Offline access is requested so the
// token can be refreshed without user interaction.
func AuthURL(conf *oauth2.Config, state string) string {
	return conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// SaveToken exchanges an authorization code and caches the resulting token.
func SaveToken(ctx context.Context, conf *oauth2.Config, authCode, tokenFile string) error {
	authCode = strings.TrimSpace(authCode)
	if authCode == "" {
		return errors.New("authorization code is required")
	}
	t, err := conf.Exchange(ctx, authCode)
	if err != nil {
		return fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return NewTokenCache(tokenFile).Save(t)
}

// HasToken reports whether a cached token exists at tokenFile.
func HasToken(tokenFile string) bool {
	_, err := os.Stat(tokenFile)
	return err == nil
}

// HTTPClient returns an HTTP client authorized with the cached token.
// Refreshed tokens are written back to tokenFile. The client uses HTTP/1.1
// to avoid HTTP/2 stream errors on long resumable uploads.
func HTTPClient(ctx context.Context, conf *oauth2.Config, tokenFile string) (*http.Client, error) {
	cache := NewTokenCache(tokenFile)
	tok, err := cache.Load()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoToken
		}
		return nil, err
	}

	ts := &cachingTokenSource{
		base:  conf.TokenSource(ctx, tok),
		cache: cache,
		last:  tok.AccessToken,
	}

	client := oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, ts))
	if transport, ok := client.Transport.(*oauth2.Transport); ok {
		transport.Base = &http.Transport{
			Proxy:             http.ProxyFromEnvironment,
			ForceAttemptHTTP2: false,
		}
	}
	return client, nil
}
