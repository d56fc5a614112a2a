// Package mirror drives a sync run: it splits the configured date range
// into month windows, lists each window's recordings and mirrors every
// file into "<base>/<meeting folder>/<file name>", optionally copying it
// to Google Drive. Progress is recorded per window so an interrupted run
// resumes where it stopped.
package mirror
