// Package runner invokes the external listing tool for one bucket endpoint.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/yuya-takeyama/strict-s3-diff/pkg/bucket"
	"github.com/yuya-takeyama/strict-s3-diff/pkg/logger"
)

const (
	DefaultTool = "s5cmd"

	// pipes are force-closed this long after a killed process so that
	// orphaned grandchildren holding stdout cannot block Run
	waitDelay = 250 * time.Millisecond

	redacted = "[REDACTED]"
)

type Runner interface {
	Run(ctx context.Context, args []string, timeout time.Duration) (string, error)
}

// Invocation records one process execution for logging
type Invocation struct {
	Argv       []string
	Timeout    time.Duration
	Stdout     string
	ExitStatus int
	Duration   time.Duration
}

// CommandRunner runs the listing tool with the connection flags of a
// single endpoint prepended to every call.
type CommandRunner struct {
	tool     string
	endpoint bucket.Endpoint
	logger   logger.Logger
}

func NewCommandRunner(tool string, endpoint bucket.Endpoint, log logger.Logger) *CommandRunner {
	if tool == "" {
		tool = DefaultTool
	}
	if log == nil {
		log = logger.NullLogger{}
	}
	return &CommandRunner{
		tool:     tool,
		endpoint: endpoint,
		logger:   log.With("bucket", endpoint.BucketName),
	}
}

// Argv returns the full command line for args
func (r *CommandRunner) Argv(args []string) []string {
	argv := []string{r.tool}
	if r.endpoint.CredentialsFile != "" {
		argv = append(argv, "--credentials-file", r.endpoint.CredentialsFile)
	}
	if r.endpoint.Profile != "" {
		argv = append(argv, "--profile", r.endpoint.Profile)
	}
	if r.endpoint.EndpointURL != "" {
		argv = append(argv, "--endpoint-url", r.endpoint.EndpointURL)
	}
	return append(argv, args...)
}

// Run executes the tool and returns its stdout. A non-positive timeout
// leaves the deadline to ctx.
func (r *CommandRunner) Run(ctx context.Context, args []string, timeout time.Duration) (string, error) {
	argv := r.Argv(args)

	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	r.logger.Info("executing command", "command", strings.Join(redact(argv), " "))

	start := time.Now()
	err := cmd.Run()
	inv := Invocation{
		Argv:       redact(argv),
		Timeout:    timeout,
		Stdout:     stdout.String(),
		ExitStatus: exitStatus(cmd, err),
		Duration:   time.Since(start),
	}
	r.logger.Debug("command finished",
		"exit_status", inv.ExitStatus,
		"duration_ms", logger.Duration(inv.Duration),
		"stdout_bytes", len(inv.Stdout),
	)

	if err == nil {
		return inv.Stdout, nil
	}

	if ctx.Err() != nil {
		r.logger.Warn("command cancelled", "reason", ctx.Err().Error())
		return "", fmt.Errorf("command cancelled: %w", ctx.Err())
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		timeoutErr := &TimedOutError{Timeout: timeout}
		r.logger.Error("command timed out", timeoutErr, "timeout_seconds", timeout.Seconds())
		return "", timeoutErr
	}

	failed := &ProcessFailedError{
		ExitStatus: inv.ExitStatus,
		Stderr:     r.redactText(stderr.String()),
		Err:        err,
	}
	r.logger.Error("command failed", failed, "exit_status", failed.ExitStatus)
	return "", failed
}

func exitStatus(cmd *exec.Cmd, err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	return -1
}

// redactText masks the endpoint's credentials file and profile wherever
// the tool echoes them back
func (r *CommandRunner) redactText(s string) string {
	for _, secret := range []string{r.endpoint.CredentialsFile, r.endpoint.Profile} {
		if secret != "" {
			s = strings.ReplaceAll(s, secret, redacted)
		}
	}
	return s
}

// redact masks the values of flags that may carry secrets
func redact(argv []string) []string {
	out := make([]string, len(argv))
	copy(out, argv)
	for i := 0; i < len(out)-1; i++ {
		switch out[i] {
		case "--credentials-file", "--profile":
			out[i+1] = redacted
			i++
		}
	}
	return out
}
