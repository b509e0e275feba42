package audio

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

const (
	startupProbe  = 250 * time.Millisecond
	interruptWait = 1200 * time.Millisecond
)

// lookupCommand resolves a configured binary name or path.
func lookupCommand(command string) error {
	if _, err := exec.LookPath(command); err != nil {
		return fmt.Errorf("%s is not available: %w", command, err)
	}
	return nil
}

// waitProcess starts watching cmd and returns a channel that yields its exit
// status once and is then closed.
func waitProcess(cmd *exec.Cmd) <-chan error {
	exited := make(chan error, 1)
	go func() {
		exited <- cmd.Wait()
		close(exited)
	}()
	return exited
}

// interruptProcess asks the process to exit, escalating to kill when it does
// not finish within interruptWait. Exit statuses caused by the signal are not
// reported as errors.
func interruptProcess(process *os.Process, exited <-chan error) error {
	if process != nil {
		_ = process.Signal(os.Interrupt)
	}

	select {
	case err, ok := <-exited:
		if !ok {
			return nil
		}
		return ignoreExitStatus(err)
	case <-time.After(interruptWait):
	}

	if process != nil {
		_ = process.Kill()
	}
	err, ok := <-exited
	if !ok {
		return nil
	}
	return ignoreExitStatus(err)
}

func ignoreExitStatus(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

// withStderr appends trimmed process diagnostics to err.
func withStderr(err error, stderr *bytes.Buffer) error {
	if err == nil || stderr == nil {
		return err
	}
	detail := strings.TrimSpace(stderr.String())
	if detail == "" {
		return err
	}
	return fmt.Errorf("%w: %s", err, detail)
}
