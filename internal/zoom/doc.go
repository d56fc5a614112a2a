// Package zoom talks to the Zoom REST API: it owns the OAuth credential
// lifecycle (TokenManager, FileStore) and lists cloud recordings page by
// page (Client).
package zoom
