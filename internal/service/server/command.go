package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oshokin/skript-action/internal/domain/console"
	"github.com/oshokin/skript-action/internal/logger"
)

var (
	// ErrServerExited is returned when the runtime stops before loading finished.
	ErrServerExited = errors.New("server exited before loading finished")
	// ErrTimeout is returned when loading does not finish within Options.Timeout.
	ErrTimeout = errors.New("server did not finish loading in time")

	errJarRequired = errors.New("server jar must be provided")
)

const (
	// LicenseFlag accepts the game EULA so the server starts unattended.
	LicenseFlag = "-Dcom.mojang.eula.agree=true"

	// DefaultTailSize is how many console lines a Result keeps.
	DefaultTailSize = 50

	// maxLineSize bounds a single console line.
	maxLineSize = 1 << 20

	// waitDelay bounds how long output is read after the runtime was killed.
	waitDelay = 10 * time.Second
)

// CommandFunc builds the runtime command. exec.CommandContext by default.
type CommandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// Options configures a single runtime launch.
type Options struct {
	// Java is the launcher binary.
	Java string
	// Dir is the runner directory used as working directory.
	Dir string
	// Jar is the runtime jar inside Dir.
	Jar string
	// Timeout bounds the whole run. Zero waits until the verdict or exit.
	Timeout time.Duration
	// TailSize overrides DefaultTailSize.
	TailSize int
	// Command overrides how the process is created.
	Command CommandFunc
}

// Result is what the console told about the run.
type Result struct {
	// Verdict is final unless an error was returned alongside.
	Verdict console.Verdict
	// Lines counts console lines from both streams.
	Lines int
	// Tail holds the last console lines in arrival order.
	Tail []string
	// Duration is the time from start to verdict or exit.
	Duration time.Duration
}

// Args returns the runtime arguments for jar.
func Args(jar string) []string {
	return []string{"-jar", LicenseFlag, filepath.Base(jar), "--nogui"}
}

// Run starts the runtime and blocks until the console yields a verdict, the
// runtime exits, the timeout fires or ctx is cancelled.
// A failed verdict is not an error: callers inspect Result.Verdict.
func Run(ctx context.Context, opts *Options) (*Result, error) {
	ctx = logger.WithName(ctx, "server")

	if opts.Jar == "" {
		return nil, errJarRequired
	}

	command := opts.Command
	if command == nil {
		command = exec.CommandContext
	}

	tailSize := opts.TailSize
	if tailSize <= 0 {
		tailSize = DefaultTailSize
	}

	if err := terminateStale(ctx, opts.Dir); err != nil {
		logger.WarnKV(ctx, "Could not terminate a server left by a previous run", "error", err)
	}

	runCtx := ctx

	if opts.Timeout > 0 {
		var cancel context.CancelFunc

		runCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	procCtx, stop := context.WithCancel(runCtx)
	defer stop()

	cmd := command(procCtx, opts.Java, Args(opts.Jar)...)
	cmd.Dir = opts.Dir
	cmd.WaitDelay = waitDelay

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("attach stdout: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("attach stderr: %w", err)
	}

	logger.InfoKV(ctx, "Starting server", "command", cmd.String(), "dir", opts.Dir)

	started := time.Now()

	if err = cmd.Start(); err != nil {
		return nil, fmt.Errorf("start server: %w", err)
	}

	if err = writePIDFile(opts.Dir, cmd); err != nil {
		logger.WarnKV(ctx, "Could not record server pid", "error", err)
	}

	defer removePIDFile(opts.Dir)

	lines := make(chan string)

	var readers errgroup.Group

	readers.Go(func() error { return pump(stdout, lines) })
	readers.Go(func() error { return pump(stderr, lines) })

	readErr := make(chan error, 1)
	drained := make(chan struct{})

	go func() {
		readErr <- readers.Wait()

		close(drained)
		close(lines)
	}()

	// A killed runtime may leave children holding the pipes open.
	go func() {
		<-procCtx.Done()

		select {
		case <-drained:
		case <-time.After(waitDelay):
			_ = stdout.Close()
			_ = stderr.Close()
		}
	}()

	result := &Result{Tail: make([]string, 0, tailSize)}

	var scanner console.Scanner

	for line := range lines {
		result.Lines++

		result.Tail = append(result.Tail, line)
		if len(result.Tail) > tailSize {
			result.Tail = result.Tail[1:]
		}

		logger.DebugKV(ctx, "Console", "line", line)

		switch scanner.Feed(line) {
		case console.EventPluginLoading:
			logger.Info(ctx, "Plugin loaded")
		case console.EventScriptsLoaded:
			logger.Info(ctx, "No errors found while parsing")
		case console.EventFinished:
			result.Duration = time.Since(started)

			logger.InfoKV(ctx, "Loading finished, stopping server", "verdict", scanner.Verdict().String())

			// Output keeps draining until the killed process closes its pipes.
			stop()
		case console.EventNone:
		}
	}

	pumpErr := <-readErr
	waitErr := cmd.Wait()

	result.Verdict = scanner.Verdict()

	if scanner.Done() {
		return result, nil
	}

	result.Duration = time.Since(started)

	switch {
	case opts.Timeout > 0 && errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return result, fmt.Errorf("after %s: %w", opts.Timeout, ErrTimeout)
	case ctx.Err() != nil:
		return result, ctx.Err()
	case waitErr != nil:
		return result, fmt.Errorf("%w: %w", ErrServerExited, waitErr)
	case pumpErr != nil:
		return result, fmt.Errorf("%w: read console: %w", ErrServerExited, pumpErr)
	default:
		return result, ErrServerExited
	}
}

// pump sends every line of r to lines. After a read error the rest of r is
// discarded so the process never blocks on a full pipe.
func pump(r io.Reader, lines chan<- string) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxLineSize)

	for scanner.Scan() {
		lines <- scanner.Text()
	}

	if err := scanner.Err(); err != nil {
		_, _ = io.Copy(io.Discard, r)

		return err
	}

	return nil
}
