// Package action binds the tool to the GitHub Actions runner: it reads action
// inputs from INPUT_* environment variables and writes workflow commands
// (log groups, annotations) and step outputs.
//
// Outside GitHub Actions the workflow commands are suppressed so local runs
// only print regular logs.
package action
