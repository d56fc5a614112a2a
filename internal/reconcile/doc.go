// Package reconcile verifies a local mirror against the remote recording
// inventory.
//
// Folder names are compared fuzzily: every remote folder is matched to the
// most similar local folder and counts as missing when the best Ratio is
// below the threshold. Inside a matched folder only mp4 and m4a files are
// checked, each against the first local file of the same type whose size
// is within the margin.
package reconcile
