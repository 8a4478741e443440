package llm

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// writeScript writes an executable shell script into a temp dir.
func writeScript(t *testing.T, body string) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}

	path := filepath.Join(t.TempDir(), "fake-cli")
	err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755)
	require.NoError(t, err)
	return path
}

func TestExecRunnerPassesArgsAndEnv(t *testing.T) {
	script := writeScript(t, `printf '%s|%s|%s' "$1" "$2" "$SHIM_TEST_CREDENTIAL"`)

	res, err := NewExecRunner().Run(context.Background(), Invocation{
		Command: script,
		Args:    []string{"--print", "it's a \"quoted\" $prompt; rm -rf /"},
		Env:     []string{"SHIM_TEST_CREDENTIAL=secret-value"},
	})
	require.NoError(t, err)
	require.Equal(t, 0, res.ExitCode)
	require.Equal(t,
		"--print|it's a \"quoted\" $prompt; rm -rf /|secret-value",
		res.Stdout)
}

func TestExecRunnerInheritsEnvironment(t *testing.T) {
	t.Setenv("SHIM_TEST_INHERITED", "from-parent")
	script := writeScript(t, `printf '%s' "$SHIM_TEST_INHERITED"`)

	res, err := NewExecRunner().Run(context.Background(),
		Invocation{Command: script})
	require.NoError(t, err)
	require.Equal(t, "from-parent", res.Stdout)
}

func TestExecRunnerNonZeroExit(t *testing.T) {
	script := writeScript(t, `echo partial; echo boom >&2; exit 3`)

	res, err := NewExecRunner().Run(context.Background(),
		Invocation{Command: script})
	require.NoError(t, err)
	require.Equal(t, 3, res.ExitCode)
	require.Equal(t, "partial\n", res.Stdout)
	require.Equal(t, "boom\n", res.Stderr)
}

func TestExecRunnerMissingCommand(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does-not-exist")

	_, err := NewExecRunner().Run(context.Background(),
		Invocation{Command: missing})
	require.Error(t, err)
	require.False(t, errors.Is(err, context.DeadlineExceeded))
}

func TestExecRunnerKillsOnTimeout(t *testing.T) {
	script := writeScript(t, `exec sleep 5`)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := (&ExecRunner{WaitDelay: 500 * time.Millisecond}).Run(ctx,
		Invocation{Command: script})

	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), 3*time.Second)
}

func TestServiceWithExecRunner(t *testing.T) {
	script := writeScript(t,
		`test "$1" = "--print" || exit 2; printf 'echo: %s' "$2"`)

	svc := newTestService(NewExecRunner(), Config{})
	st := enabledSettings()
	st.CommandPath = script

	resp, err := svc.Complete(context.Background(),
		userRequest("hello world"), st)
	require.NoError(t, err)
	require.Equal(t, "echo: hello world", resp.Choices[0].Message.Content)
	require.Equal(t, 3, resp.Usage.CompletionTokens)
}

func TestServiceTimeoutWithExecRunner(t *testing.T) {
	script := writeScript(t, `exec sleep 5`)

	svc := newTestService(NewExecRunner(), Config{})
	st := enabledSettings()
	st.CommandPath = script

	start := time.Now()
	_, err := svc.CompleteWithTimeout(context.Background(),
		userRequest("hi"), st, 100*time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)
	require.Less(t, time.Since(start), 4*time.Second)
	require.False(t, strings.Contains(err.Error(), testCredential))
}
