// Package cmd implements the command-line interface for zoom-recordings-backup.
//
// This package provides the following commands:
//   - sync: Mirror recordings locally and optionally upload them to Google Drive
//   - verify: Compare the local mirror against Zoom's inventory
//   - doctor: Check configuration, credentials and remote access
//   - auth drive: Authorize Google Drive uploads
//   - version: Display version information
package cmd
