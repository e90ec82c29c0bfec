// Package pipeline runs the action end to end.
//
// Stages run strictly in order and the first error ends the run:
// set up the environment, resolve and download the plugin, resolve and
// download the server runtime, assemble the runner directory, run the server
// and judge its console. Every stage is a log group in the CI output.
package pipeline
