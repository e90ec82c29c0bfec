package action

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LookupFunc resolves an environment variable.
type LookupFunc func(key string) (string, bool)

// Workflow talks to the CI runner through stdout and environment files.
type Workflow struct {
	// out receives workflow commands.
	out io.Writer
	// lookup reads the runner environment.
	lookup LookupFunc
	// enabled is true inside a GitHub Actions job.
	enabled bool
	// mu serializes command writes.
	mu sync.Mutex
}

// New creates a Workflow writing commands to out and reading the environment through lookup.
func New(out io.Writer, lookup LookupFunc) *Workflow {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	enabled, _ := lookup("GITHUB_ACTIONS")

	return &Workflow{
		out:     out,
		lookup:  lookup,
		enabled: enabled == "true",
	}
}

// FromEnvironment creates a Workflow for the current process.
func FromEnvironment() *Workflow {
	return New(os.Stdout, os.LookupEnv)
}

// Enabled reports whether workflow commands are emitted.
func (w *Workflow) Enabled() bool {
	return w != nil && w.enabled
}

// Input returns the trimmed value of the named action input.
// The runner exposes input "foo bar" as INPUT_FOO_BAR.
func (w *Workflow) Input(name string) (string, bool) {
	key := "INPUT_" + strings.ToUpper(strings.ReplaceAll(name, " ", "_"))

	value, ok := w.lookup(key)
	if !ok {
		return "", false
	}

	return strings.TrimSpace(value), true
}

// Group opens a collapsible log group.
func (w *Workflow) Group(title string) {
	w.command("group", title)
}

// EndGroup closes the current log group.
func (w *Workflow) EndGroup() {
	w.command("endgroup", "")
}

// Error emits an error annotation.
func (w *Workflow) Error(message string) {
	w.command("error", message)
}

// Notice emits a notice annotation.
func (w *Workflow) Notice(message string) {
	w.command("notice", message)
}

// SetOutput appends a step output to the GITHUB_OUTPUT file.
// It is a no-op when the runner did not provide one.
func (w *Workflow) SetOutput(name, value string) error {
	path, ok := w.lookup("GITHUB_OUTPUT")
	if !ok || path == "" {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.OpenFile(filepath.Clean(path), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open step outputs: %w", err)
	}

	defer func() {
		_ = f.Close()
	}()

	if _, err = fmt.Fprintf(f, "%s=%s\n", name, escapeData(value)); err != nil {
		return fmt.Errorf("write step output: %w", err)
	}

	return nil
}

func (w *Workflow) command(name, message string) {
	if !w.Enabled() {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	_, _ = fmt.Fprintf(w.out, "::%s::%s\n", name, escapeData(message))
}

// escapeData encodes characters that would end or corrupt a workflow command.
func escapeData(s string) string {
	return strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A").Replace(s)
}
