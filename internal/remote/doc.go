// Package remote holds the HTTP plumbing shared by the release index clients:
// base URL handling, per-call timeouts, default headers, status checks and
// JSON decoding. Requests are never retried.
package remote
