package runner

import (
	"fmt"
	"strings"
	"time"
)

// ProcessFailedError reports a listing tool that exited non-zero.
// ExitStatus is -1 when the process could not be started at all.
type ProcessFailedError struct {
	ExitStatus int
	Stderr     string
	Err        error
}

func (e *ProcessFailedError) Error() string {
	stderr := strings.TrimSpace(e.Stderr)
	switch {
	case e.ExitStatus < 0:
		return fmt.Sprintf("failed to start command: %v", e.Err)
	case stderr != "":
		return fmt.Sprintf("command exited with status %d: %s", e.ExitStatus, stderr)
	default:
		return fmt.Sprintf("command exited with status %d", e.ExitStatus)
	}
}

func (e *ProcessFailedError) Unwrap() error {
	return e.Err
}

// TimedOutError reports a listing that exceeded its deadline
type TimedOutError struct {
	Timeout time.Duration
}

func (e *TimedOutError) Error() string {
	return fmt.Sprintf("command timed out after %s", e.Timeout)
}
