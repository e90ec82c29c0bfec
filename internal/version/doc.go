// Package version exposes build metadata for the action.
//
// Version, Commit and BuildTime are injected through -ldflags at build time.
// Full renders them for the `version` subcommand, UserAgent for outgoing HTTP.
package version
