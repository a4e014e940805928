// Package output serializes reports: pretty JSON to a writer, atomic file
// replacement, and an append-only NDJSON stream for batch runs.
package output
