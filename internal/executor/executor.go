// SPDX-License-Identifier: MPL-2.0

// Package executor runs a command descriptor's binary as a subprocess under a
// timeout, capturing combined output and publishing the per-invocation
// acknowledgment/result pair on the event bus.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"mvdan.cc/sh/v3/shell"

	"chatops-anything/internal/command"
	"chatops-anything/internal/event"
)

const (
	// MaxOutputLength bounds the captured output carried in a result.
	MaxOutputLength = 30000

	// helpFlag is the conventional flag used to probe a binary's usage text.
	helpFlag = "--help"
)

var (
	// ErrNotFound is returned when the descriptor's binary does not exist at
	// spawn time.
	ErrNotFound = errors.New("executable not found")
	// ErrExecution is the sentinel error wrapped by ExecError.
	ErrExecution = errors.New("execution failed")
	// ErrBadArguments is returned when the raw argument text cannot be split
	// into words (e.g. an unterminated quote).
	ErrBadArguments = errors.New("malformed argument text")
)

type (
	// Result is the outcome of one finished invocation. Output holds the
	// combined stdout/stderr stream; on timeout it is the partial output
	// captured before the process group was terminated.
	Result struct {
		ExecutionID string
		PID         int
		Output      string
		ExitCode    ExitCode
		TimedOut    bool
		Duration    time.Duration
	}

	// ExecError wraps an OS-level spawn failure that is not a missing
	// binary (not executable, permission denied, ...). It wraps ErrExecution.
	ExecError struct {
		BinPath string
		Cause   error
	}

	// Executor spawns descriptor binaries. It is safe for concurrent use;
	// every invocation is an independent subprocess.
	Executor struct {
		bus *event.Bus
	}
)

// Error implements the error interface.
func (e *ExecError) Error() string {
	return fmt.Sprintf("executing %s: %v", e.BinPath, e.Cause)
}

// Unwrap returns ErrExecution so callers can use errors.Is. The OS cause is
// reachable through errors.As on the wrapped chain.
func (e *ExecError) Unwrap() error { return ErrExecution }

// New creates an Executor publishing on bus.
func New(bus *event.Bus) *Executor {
	return &Executor{bus: bus}
}

// NewExecutionID mints a fresh invocation identifier. Callers that subscribe
// for a specific invocation's events mint the ID first and pass it to
// RunWithID.
func NewExecutionID() string {
	return strings.ToLower(ulid.Make().String())
}

// SplitArgs splits raw user argument text into words with shell quoting
// rules. No shell ever interprets the text, so quoting and escaping are the
// only shell features honored; control syntax has no effect.
func SplitArgs(raw string) ([]string, error) {
	fields, err := shell.Fields(raw, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadArguments, err)
	}
	return fields, nil
}

// Run executes the descriptor's binary with the given raw argument text.
//
// It blocks until the subprocess finishes or its timeout budget elapses, but
// the acknowledgment is published on the bus synchronously right after spawn,
// before any waiting. Callers that need non-blocking semantics run it in
// their own goroutine; invocations are independent.
//
// The effective timeout is the descriptor's own timeout when set, else
// defaultTimeout. A non-positive effective timeout means no deadline.
func (e *Executor) Run(ctx context.Context, desc *command.Descriptor, rawArgs string, defaultTimeout time.Duration) (*Result, error) {
	return e.RunWithID(ctx, NewExecutionID(), desc, rawArgs, defaultTimeout)
}

// RunWithID is Run with a caller-minted execution ID, so the caller can match
// this invocation's bus events before the spawn happens.
func (e *Executor) RunWithID(ctx context.Context, execID string, desc *command.Descriptor, rawArgs string, defaultTimeout time.Duration) (*Result, error) {
	args, err := SplitArgs(rawArgs)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(desc.BinPath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, desc.BinPath)
		}
		return nil, &ExecError{BinPath: desc.BinPath, Cause: err}
	}

	timeout := defaultTimeout
	if desc.Timeout > 0 {
		timeout = desc.Timeout
	}
	runCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()

	var buf bytes.Buffer
	cmd := exec.Command(desc.BinPath, args...)
	// Identical writer for both streams: os/exec serializes the writes,
	// keeping the combined stream ordered.
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	cmd.Env = buildEnv(desc.EnvVars)
	setProcAttributes(cmd)

	if err := cmd.Start(); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, desc.BinPath)
		}
		return nil, &ExecError{BinPath: desc.BinPath, Cause: err}
	}

	pid := cmd.Process.Pid
	slog.Info("command spawned", "command", desc.Name, "pid", pid, "execution_id", execID)
	// Synchronous publish: the ack is observably ordered before the result.
	e.bus.PublishSync(event.Event{
		Type: event.CommandStarted,
		Data: &event.StartedPayload{ExecutionID: execID, Command: desc.Name, PID: pid},
	})

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timedOut := false
	select {
	case err = <-done:
	case <-runCtx.Done():
		timedOut = errors.Is(runCtx.Err(), context.DeadlineExceeded)
		terminateGroup(pid)
		err = <-done
	}

	result := &Result{
		ExecutionID: execID,
		PID:         pid,
		Output:      truncateOutput(buf.String()),
		TimedOut:    timedOut,
		Duration:    time.Since(start),
	}
	switch {
	case timedOut:
		result.ExitCode = ExitCodeKilled
	case err == nil:
		result.ExitCode = 0
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = ExitCode(exitErr.ExitCode())
		} else {
			result.ExitCode = ExitCodeKilled
		}
	}

	slog.Info("command finished",
		"command", desc.Name,
		"execution_id", execID,
		"exit_code", result.ExitCode,
		"timed_out", result.TimedOut,
		"duration", result.Duration)

	e.bus.Publish(event.Event{
		Type: event.CommandFinished,
		Data: &event.FinishedPayload{
			ExecutionID: execID,
			Command:     desc.Name,
			Output:      result.Output,
			ExitCode:    int(result.ExitCode),
			TimedOut:    result.TimedOut,
		},
	})

	return result, nil
}

// Help obtains a binary's self-reported usage text by invoking it with the
// conventional help flag under timeout. Failures come back as an error string
// rather than an error value so help lookup never blocks registry
// construction.
func (e *Executor) Help(ctx context.Context, binPath string, timeout time.Duration) string {
	desc := &command.Descriptor{Name: "help-probe", BinPath: binPath, Timeout: timeout}
	result, err := e.Run(ctx, desc, helpFlag, timeout)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "Error: executable not found"
		}
		return fmt.Sprintf("Error: %v", err)
	}
	return result.Output
}

// buildEnv overlays the descriptor's env vars on the process environment.
func buildEnv(extra map[string]string) []string {
	env := os.Environ()
	for k, v := range extra {
		env = append(env, k+"="+v)
	}
	return env
}

func truncateOutput(s string) string {
	if len(s) <= MaxOutputLength {
		return s
	}
	// Back up so the cut never lands inside a multi-byte rune.
	cut := MaxOutputLength
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "\n\n(Output truncated)"
}
