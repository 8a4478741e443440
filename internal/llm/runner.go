package llm

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"time"
)

// DefaultWaitDelay bounds how long Run waits for the child's output pipes to
// close after the child was killed or exited.
const DefaultWaitDelay = 2 * time.Second

// Invocation describes one external process run.
type Invocation struct {
	// Command is the executable, resolved through PATH when it has no
	// path separator.
	Command string
	// Args are passed verbatim; no shell is involved.
	Args []string
	// Env entries ("KEY=value") are added to the service's own environment.
	Env []string
}

// Result is what a finished process produced.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner runs external processes. Implementations must stop the process
// when ctx is done and must not return before it has been reaped.
//
// A non-zero exit is not an error: it is reported in Result.ExitCode. Run
// returns an error when the process could not be started or when ctx ended
// before it finished.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (*Result, error)
}

// ExecRunner is the os/exec backed Runner.
type ExecRunner struct {
	// WaitDelay overrides DefaultWaitDelay when positive.
	WaitDelay time.Duration
}

// NewExecRunner returns a Runner that starts real processes.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{WaitDelay: DefaultWaitDelay}
}

// Run starts inv and waits for it. Cancelling ctx kills the child.
func (r *ExecRunner) Run(ctx context.Context, inv Invocation) (*Result, error) {
	cmd := exec.CommandContext(ctx, inv.Command, inv.Args...)
	cmd.Env = append(os.Environ(), inv.Env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	// Grandchildren that inherit the pipes must not keep Wait blocked once
	// the child itself is gone.
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = DefaultWaitDelay
	}

	err := cmd.Run()

	res := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: -1,
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, ctxErr
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return res, nil

	case errors.As(err, &exitErr):
		return res, nil

	case errors.Is(err, exec.ErrWaitDelay):
		// The child exited; only its inherited pipes outlived it.
		return res, nil

	default:
		return res, err
	}
}
