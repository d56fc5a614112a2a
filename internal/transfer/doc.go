// Package transfer downloads recording files with integrity checking and
// uploads them to a secondary store, retrying transient failures.
package transfer
