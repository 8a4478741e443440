package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"chat-shim/internal/settings"
)

const (
	// NoResponsePlaceholder is returned when the CLI succeeds without
	// printing anything.
	NoResponsePlaceholder = "No response from the assistant."

	// DefaultTestMessage is sent by the test endpoint when none is given.
	DefaultTestMessage = "Hello"

	// DefaultTestTimeout bounds test invocations.
	DefaultTestTimeout = 10 * time.Second

	// DefaultModelID is echoed when a request omits its model.
	DefaultModelID = "claude-code"

	// DefaultCredentialEnv carries the credential to the CLI.
	DefaultCredentialEnv = "CLAUDE_CODE_OAUTH_TOKEN"

	// printFlag selects the CLI's non-interactive mode.
	printFlag = "--print"

	// versionFlag asks the CLI for its version.
	versionFlag = "--version"

	// probeTimeout bounds the version probe.
	probeTimeout = 5 * time.Second

	completionIDPrefix = "chatcmpl-"
	redacted           = "[REDACTED]"
	modelOwner         = "chat-shim"
)

// Config tunes the adapter. Zero values select the defaults above.
type Config struct {
	// CredentialEnv names the child environment variable holding the
	// credential.
	CredentialEnv string

	// ModelID is echoed for requests without a model and listed by the
	// models endpoint.
	ModelID string

	// TestTimeout bounds test invocations independently of the configured
	// timeout.
	TestTimeout time.Duration

	// MaxConcurrent bounds the number of child processes running at once.
	// Zero means unbounded.
	MaxConcurrent int
}

// Service is the completion adapter: it turns chat requests into CLI
// invocations and CLI output into chat completions.
type Service struct {
	cfg    Config
	runner Runner
	sem    *semaphore.Weighted
	log    *slog.Logger

	// now and newID are replaced in tests.
	now   func() time.Time
	newID func() string
}

// NewService creates a new adapter around runner.
func NewService(cfg Config, runner Runner, logger *slog.Logger) *Service {
	if cfg.CredentialEnv == "" {
		cfg.CredentialEnv = DefaultCredentialEnv
	}
	if cfg.ModelID == "" {
		cfg.ModelID = DefaultModelID
	}
	if cfg.TestTimeout <= 0 {
		cfg.TestTimeout = DefaultTestTimeout
	}
	if runner == nil {
		runner = NewExecRunner()
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		cfg:    cfg,
		runner: runner,
		log:    logger.With("component", "llm"),
		now:    time.Now,
		newID:  newCompletionID,
	}
	if cfg.MaxConcurrent > 0 {
		s.sem = semaphore.NewWeighted(int64(cfg.MaxConcurrent))
	}

	return s
}

func newCompletionID() string {
	return completionIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Complete runs req against the CLI configured in st, bounded by the
// configured timeout.
func (s *Service) Complete(ctx context.Context, req ChatRequest,
	st settings.Settings) (*ChatResponse, error) {

	timeout := time.Duration(st.TimeoutSeconds) * time.Second
	return s.CompleteWithTimeout(ctx, req, st, timeout)
}

// CompleteWithTimeout is Complete with an explicit bound on the process run.
//
// Preconditions are checked in order: the service must be enabled, a
// credential must be configured, and the request must carry a user message.
func (s *Service) CompleteWithTimeout(ctx context.Context, req ChatRequest,
	st settings.Settings, timeout time.Duration) (*ChatResponse, error) {

	if !st.Enabled {
		return nil, ErrServiceDisabled
	}
	if !st.HasCredential() {
		return nil, ErrUnauthorized
	}

	prompt, ok := ExtractPrompt(req.Messages)
	if !ok {
		return nil, fmt.Errorf("%w: no user message", ErrBadRequest)
	}

	text, err := s.invoke(ctx, prompt, st, timeout)
	if err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = s.cfg.ModelID
	}

	promptTokens := CountWords(prompt)
	completionTokens := CountWords(text)

	return &ChatResponse{
		ID:      s.newID(),
		Object:  ObjectChatCompletion,
		Created: s.now().Unix(),
		Model:   model,
		Choices: []Choice{{
			Index: 0,
			Message: ResponseMessage{
				Role:    RoleAssistant,
				Content: text,
			},
			FinishReason: FinishReasonStop,
		}},
		Usage: Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		},
	}, nil
}

// invoke runs the CLI once and applies the output policy.
func (s *Service) invoke(ctx context.Context, prompt string,
	st settings.Settings, timeout time.Duration) (string, error) {

	if s.sem != nil {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			return "", fmt.Errorf("%w: waiting for a free slot: %v",
				ErrExecution, err)
		}
		defer s.sem.Release(1)
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s.log.Debug("Invoking command", "command", st.CommandPath,
		"prompt_preview", preview(prompt, 100), "timeout", timeout)

	start := s.now()
	res, err := s.runner.Run(runCtx, Invocation{
		Command: st.CommandPath,
		Args:    []string{printFlag, prompt},
		Env:     []string{s.cfg.CredentialEnv + "=" + st.Credential},
	})
	elapsed := s.now().Sub(start)

	if err != nil {
		switch {
		case errors.Is(runCtx.Err(), context.DeadlineExceeded):
			s.log.Error("Command timed out", "command", st.CommandPath,
				"timeout", timeout)
			return "", fmt.Errorf("%w after %d seconds", ErrTimeout,
				int(timeout.Seconds()))

		case ctx.Err() != nil:
			s.log.Warn("Command cancelled by caller",
				"command", st.CommandPath, "elapsed", elapsed)
			return "", fmt.Errorf("%w: request cancelled: %v",
				ErrExecution, ctx.Err())

		default:
			s.log.Error("Failed to run command", "command", st.CommandPath,
				"error", err)
			return "", fmt.Errorf("%w: %s", ErrExecution,
				redact(err.Error(), st.Credential))
		}
	}

	stdout := strings.TrimSpace(res.Stdout)
	stderr := redact(strings.TrimSpace(res.Stderr), st.Credential)

	if stdout != "" {
		if res.ExitCode != 0 {
			s.log.Warn("Command exited non-zero but produced output",
				"command", st.CommandPath, "exit_code", res.ExitCode,
				"stderr", stderr)
		}
		s.log.Debug("Command finished", "command", st.CommandPath,
			"elapsed", elapsed, "bytes", len(stdout))
		return stdout, nil
	}

	if res.ExitCode != 0 {
		s.log.Error("Command failed", "command", st.CommandPath,
			"exit_code", res.ExitCode, "stderr", stderr)

		detail := stderr
		if detail == "" {
			detail = fmt.Sprintf("exit status %d", res.ExitCode)
		}
		return "", fmt.Errorf("%w: %s", ErrExecution, detail)
	}

	return NoResponsePlaceholder, nil
}

// Test runs a single message with the test timeout and folds every failure
// into the result. It never returns an error.
func (s *Service) Test(ctx context.Context, message string,
	st settings.Settings) TestResult {

	if strings.TrimSpace(message) == "" {
		message = DefaultTestMessage
	}

	req := ChatRequest{
		Model: s.cfg.ModelID,
		Messages: []Message{{
			Role:    RoleUser,
			Content: TextContent(message),
		}},
	}

	resp, err := s.CompleteWithTimeout(ctx, req, st, s.cfg.TestTimeout)
	if err != nil {
		return TestResult{Success: false, Error: err.Error()}
	}

	return TestResult{
		Success:  true,
		Response: resp.Choices[0].Message.Content,
	}
}

// ProbeCLI asks the CLI at commandPath for its version.
func (s *Service) ProbeCLI(ctx context.Context, commandPath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	res, err := s.runner.Run(ctx, Invocation{
		Command: commandPath,
		Args:    []string{versionFlag},
	})
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		detail := strings.TrimSpace(res.Stderr)
		if detail == "" {
			detail = fmt.Sprintf("exit status %d", res.ExitCode)
		}
		return "", errors.New(detail)
	}

	return strings.TrimSpace(res.Stdout), nil
}

// Models lists the single advertised model, or nothing when the service is
// disabled.
func (s *Service) Models(st settings.Settings) ModelList {
	list := ModelList{Object: "list", Data: []Model{}}
	if !st.Enabled {
		return list
	}

	list.Data = append(list.Data, Model{
		ID:      s.cfg.ModelID,
		Object:  "model",
		Created: s.now().Unix(),
		OwnedBy: modelOwner,
	})
	return list
}

// redact removes the credential from text that may reach a client.
func redact(text, credential string) string {
	if credential == "" {
		return text
	}
	return strings.ReplaceAll(text, credential, redacted)
}

// preview shortens text for logs.
func preview(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
