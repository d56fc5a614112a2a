// Package google provides OAuth2 authentication for the Google Drive upload
// target: client configuration from a client secrets file, a one-time
// authorization code exchange, and an on-disk token cache that follows
// refreshes.
package google
