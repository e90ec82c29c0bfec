// Package integration holds end to end tests that run the whole action
// against fake release indexes and a scripted server runtime.
package integration
