// Package drive provides the Google Drive upload target.
//
// It supports:
//   - Finding and creating folders (EnsureFolder avoids duplicates on re-runs)
//   - Chunked resumable uploads with progress callbacks
//   - Reading the account storage quota
//
// # Authentication
//
// The client is built from an OAuth2 HTTP client supplied by the google
// package:
//
//	conf, err := google.LoadConfig(cfg.Drive.CredentialsFile)
//	httpClient, err := google.HTTPClient(ctx, conf, cfg.Drive.TokenFile)
//	client, err := drive.NewClient(ctx, httpClient, 0)
package drive
