package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/skript-action/internal/logger"
)

// PIDFilename records the running server inside the runner directory.
const PIDFilename = "server.pid"

var errMalformedPIDFile = errors.New("malformed pid file")

// writePIDFile stores "<pid> <executable>" for the started command.
func writePIDFile(dir string, cmd *exec.Cmd) error {
	contents := strconv.Itoa(cmd.Process.Pid) + " " + filepath.Base(cmd.Path) + "\n"

	return os.WriteFile(filepath.Join(dir, PIDFilename), []byte(contents), 0o600)
}

func removePIDFile(dir string) {
	_ = os.Remove(filepath.Join(dir, PIDFilename))
}

// readPIDFile returns the recorded pid and executable name.
func readPIDFile(dir string) (int, string, error) {
	contents, err := os.ReadFile(filepath.Join(dir, PIDFilename))
	if err != nil {
		return 0, "", err
	}

	pidText, executable, found := strings.Cut(strings.TrimSpace(string(contents)), " ")
	if !found || executable == "" {
		return 0, "", errMalformedPIDFile
	}

	pid, err := strconv.Atoi(pidText)
	if err != nil || pid <= 0 {
		return 0, "", errMalformedPIDFile
	}

	return pid, executable, nil
}

// terminateStale kills the server recorded by a previous run that never
// cleaned up, provided the pid still belongs to the same executable.
func terminateStale(ctx context.Context, dir string) error {
	pid, executable, err := readPIDFile(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	defer removePIDFile(dir)

	if err != nil {
		return err
	}

	if pid == os.Getpid() {
		return nil
	}

	process, err := ps.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process %d: %w", pid, err)
	}

	if process == nil || !sameExecutable(process.Executable(), executable) {
		return nil
	}

	running, err := os.FindProcess(pid)
	if err != nil {
		return err
	}

	if err = running.Kill(); err != nil {
		return fmt.Errorf("kill process %d: %w", pid, err)
	}

	logger.InfoKV(ctx, "Terminated server left by a previous run", "pid", pid, "executable", executable)

	return nil
}

// sameExecutable compares process names, tolerating the Windows suffix and
// the 15 character limit of Linux process names.
func sameExecutable(running, recorded string) bool {
	running = strings.TrimSuffix(strings.ToLower(running), ".exe")
	recorded = strings.TrimSuffix(strings.ToLower(recorded), ".exe")

	if running == recorded {
		return true
	}

	const linuxCommLimit = 15

	return len(running) == linuxCommLimit && strings.HasPrefix(recorded, running)
}
