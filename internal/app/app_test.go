package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"chat-shim/internal/config"
	"chat-shim/internal/llm"
	"chat-shim/internal/logging"
	"chat-shim/internal/settings"
)

const (
	adminKey   = "admin-key-0123456789"
	userKey    = "user-key-0123456789"
	credential = "sk-ant-REDACTED"
)

// stubRunner answers every invocation with the same result.
type stubRunner struct {
	result *llm.Result
	err    error
	calls  []llm.Invocation
}

func (s *stubRunner) Run(_ context.Context, inv llm.Invocation) (*llm.Result, error) {
	s.calls = append(s.calls, inv)
	if s.err != nil {
		return nil, s.err
	}
	res := *s.result
	return &res, nil
}

func newTestApp(t *testing.T, runner llm.Runner) (*App, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "settings.json")

	cfg := config.Default()
	cfg.SettingsPath = path
	cfg.APIKeys = []string{userKey}
	cfg.AdminAPIKeys = []string{adminKey}

	store := settings.NewStore(settings.StoreConfig{Path: path},
		logging.Discard())

	return NewApp(cfg, store, runner, logging.Discard()), path
}

func do(t *testing.T, h http.Handler, method, path, key string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewApp(t *testing.T) {
	app, _ := newTestApp(t, nil)
	require.NotNil(t, app.Router)
	require.NotNil(t, app.Auth)
	require.NotNil(t, app.Settings)
	require.NotNil(t, app.LLM)
}

func TestHandleHealth(t *testing.T) {
	app, _ := newTestApp(t, &stubRunner{})

	rec := do(t, app.Handler(), http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "healthy", body["status"])
	require.Equal(t, ServiceName, body["service"])
}

func TestHandleStatus(t *testing.T) {
	runner := &stubRunner{result: &llm.Result{Stdout: "1.2.3\n"}}
	app, _ := newTestApp(t, runner)

	rec := do(t, app.Handler(), http.MethodGet, "/status", adminKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "oauth_token")

	var body StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.False(t, body.Enabled)
	require.False(t, body.OAuthConfigured)
	require.Equal(t, settings.DefaultCommandPath, body.Settings.CommandPath)
	require.True(t, body.CLI.Installed)
	require.Equal(t, "1.2.3", body.CLI.Version)
	require.Equal(t, []string{"--version"}, runner.calls[0].Args)
}

func TestHandleStatusCLIMissing(t *testing.T) {
	runner := &stubRunner{err: os.ErrNotExist}
	app, _ := newTestApp(t, runner)

	rec := do(t, app.Handler(), http.MethodGet, "/status", adminKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.False(t, body.CLI.Installed)
	require.NotEmpty(t, body.CLI.Error)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	app, _ := newTestApp(t, &stubRunner{result: &llm.Result{}})

	tests := []struct {
		method string
		path   string
		key    string
		want   int
	}{
		{http.MethodGet, "/status", "", http.StatusUnauthorized},
		{http.MethodGet, "/status", userKey, http.StatusForbidden},
		{http.MethodGet, "/settings", userKey, http.StatusForbidden},
		{http.MethodPost, "/settings", userKey, http.StatusForbidden},
		{http.MethodGet, "/settings", adminKey, http.StatusOK},
	}

	for _, tt := range tests {
		rec := do(t, app.Handler(), tt.method, tt.path, tt.key, nil)
		require.Equal(t, tt.want, rec.Code, "%s %s", tt.method, tt.path)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	app, path := newTestApp(t, &stubRunner{})
	h := app.Handler()

	rec := do(t, h, http.MethodPost, "/settings", adminKey, map[string]any{
		"enabled":      true,
		"oauth_token":  credential,
		"command_path": "/opt/bin/claude",
		"timeout":      120,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t,
		`{"status":"success","message":"Settings updated successfully"}`,
		rec.Body.String())

	rec = do(t, h, http.MethodGet, "/settings", adminKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), credential)

	var got settings.Settings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.True(t, got.Enabled)
	require.Equal(t, settings.Mask(credential), got.Credential)
	require.Equal(t, "/opt/bin/claude", got.CommandPath)
	require.Equal(t, 120, got.TimeoutSeconds)

	// Echoing the masked credential back keeps the stored one.
	rec = do(t, h, http.MethodPost, "/settings", adminKey, got)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, credential, app.Settings.Snapshot().Credential)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), credential)
}

func TestUpdateSettingsErrors(t *testing.T) {
	t.Run("malformed body", func(t *testing.T) {
		app, _ := newTestApp(t, &stubRunner{})

		req := httptest.NewRequest(http.MethodPost, "/settings",
			bytes.NewBufferString(`{"enabled":`))
		req.Header.Set("Authorization", "Bearer "+adminKey)
		rec := httptest.NewRecorder()
		app.Handler().ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid timeout", func(t *testing.T) {
		app, _ := newTestApp(t, &stubRunner{})

		rec := do(t, app.Handler(), http.MethodPost, "/settings", adminKey,
			map[string]any{"timeout": 0})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, settings.DefaultTimeoutSeconds,
			app.Settings.Snapshot().TimeoutSeconds)
	})

	t.Run("persist failure", func(t *testing.T) {
		dir := t.TempDir()
		blocker := filepath.Join(dir, "not-a-dir")
		require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

		cfg := config.Default()
		cfg.AdminAPIKeys = []string{adminKey}
		store := settings.NewStore(settings.StoreConfig{
			Path: filepath.Join(blocker, "settings.json"),
		}, logging.Discard())
		app := NewApp(cfg, store, &stubRunner{}, logging.Discard())

		rec := do(t, app.Handler(), http.MethodPost, "/settings", adminKey,
			map[string]any{"enabled": true})
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.Contains(t, rec.Body.String(), "failed to save settings")
		require.False(t, app.Settings.Snapshot().Enabled)
	})
}

func TestChatCompletionThroughApp(t *testing.T) {
	runner := &stubRunner{result: &llm.Result{Stdout: "Hello!"}}
	app, _ := newTestApp(t, runner)
	h := app.Handler()

	chat := map[string]any{
		"model":    "claude-code",
		"messages": []map[string]string{{"role": "user", "content": "hi"}},
	}

	rec := do(t, h, http.MethodPost, "/v1/chat/completions", userKey, chat)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(t, h, http.MethodPost, "/settings", adminKey, map[string]any{
		"enabled":     true,
		"oauth_token": credential,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/chat/completions", userKey, chat)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp llm.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "Hello!", resp.Choices[0].Message.Content)

	require.Equal(t, []string{config.DefaultCredentialEnv + "=" + credential},
		runner.calls[0].Env)
}

func TestCORSPreflight(t *testing.T) {
	app, _ := newTestApp(t, &stubRunner{})

	rec := do(t, app.Handler(), http.MethodOptions, "/v1/chat/completions", "", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
