// Package console decides the outcome of a test run from the server console.
//
// A Scanner consumes console lines one at a time, however they are delivered,
// and moves from pending to a terminal verdict once the plugin reports that it
// finished loading. It is not safe for concurrent use; callers serialize lines.
package console
