// Package naming derives deterministic, filesystem-safe folder and file names
// from recording metadata, and the normalized keys used during verification.
//
// Every function here is pure: identical metadata always yields the identical
// name, which is what makes re-runs idempotent and lets verification find
// previously mirrored folders.
package naming
