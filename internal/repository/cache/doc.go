// Package cache implements the artifact cache directory.
//
// Artifacts are keyed by file name only; a name that is already present is
// never fetched again and its contents are not re-verified. Writes go through
// go-update so a file only appears under its final name once it is complete
// and, when a checksum is known, verified.
package cache
