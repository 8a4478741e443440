// Package app wires the shim's HTTP surface: health, status and settings
// administration, plus the completion routes owned by the llm package.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"chat-shim/internal/api"
	"chat-shim/internal/auth"
	"chat-shim/internal/config"
	"chat-shim/internal/llm"
	"chat-shim/internal/settings"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "chat-shim"

// maxSettingsBytes caps settings update bodies.
const maxSettingsBytes = 64 << 10

// App represents the main application with its router and services.
type App struct {
	Router   *http.ServeMux
	Auth     *auth.Service
	Settings *settings.Store
	LLM      *llm.Service

	log *slog.Logger
}

// NewApp creates and initializes a new instance of the App struct. A nil
// runner selects the os/exec runner.
func NewApp(cfg config.Config, store *settings.Store, runner llm.Runner,
	logger *slog.Logger) *App {

	if logger == nil {
		logger = slog.Default()
	}

	app := &App{
		Router: http.NewServeMux(),
		Auth: auth.NewService(auth.Config{
			Secret:       cfg.AuthSecret,
			APIKeys:      cfg.APIKeys,
			AdminAPIKeys: cfg.AdminAPIKeys,
			Disabled:     cfg.DisableAuth,
		}, logger),
		Settings: store,
		LLM: llm.NewService(llm.Config{
			CredentialEnv: cfg.CredentialEnv,
			ModelID:       cfg.ModelID,
			TestTimeout:   cfg.TestTimeout,
			MaxConcurrent: cfg.MaxConcurrent,
		}, runner, logger),
		log: logger.With("component", "app"),
	}

	app.initializeRoutes()
	return app
}

func (a *App) initializeRoutes() {
	a.Router.HandleFunc("GET /health", a.handleHealth)
	a.Router.HandleFunc("GET /status", a.Auth.RequireAdmin(a.handleStatus))
	a.Router.HandleFunc("GET /settings", a.Auth.RequireAdmin(a.handleGetSettings))
	a.Router.HandleFunc("POST /settings", a.Auth.RequireAdmin(a.handleUpdateSettings))

	llm.NewServerState(a.LLM, a.Settings, a.log).
		RegisterHandlers(a.Router, a.Auth)
}

// Handler returns the router wrapped in the request logging and CORS
// middleware.
func (a *App) Handler() http.Handler {
	return a.logRequests(cors(a.Router))
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": ServiceName,
	})
}

// CLIStatus describes the configured command as seen by a version probe.
type CLIStatus struct {
	Installed bool   `json:"installed"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
}

// StatusResponse is the body of the status endpoint.
type StatusResponse struct {
	Enabled         bool                `json:"enabled"`
	OAuthConfigured bool                `json:"oauth_configured"`
	Settings        settings.PublicView `json:"settings"`
	CLI             CLIStatus           `json:"cli"`
}

// Status builds the status report, probing the configured command.
func (a *App) Status(ctx context.Context) StatusResponse {
	current := a.Settings.Snapshot()

	cli := CLIStatus{}
	version, err := a.LLM.ProbeCLI(ctx, current.CommandPath)
	if err != nil {
		cli.Error = err.Error()
	} else {
		cli.Installed = true
		cli.Version = version
	}

	return StatusResponse{
		Enabled:         current.Enabled,
		OAuthConfigured: current.HasCredential(),
		Settings:        current.Public(),
		CLI:             cli,
	}
}

func (a *App) handleStatus(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, a.Status(r.Context()))
}

func (a *App) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, a.Settings.Snapshot().Masked())
}

// updateResponse is the body of a successful settings update.
type updateResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (a *App) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxSettingsBytes)

	var patch settings.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		api.WriteError(w, http.StatusBadRequest,
			"invalid request body: "+err.Error())
		return
	}

	if _, err := a.Settings.Update(patch); err != nil {
		switch {
		case errors.Is(err, settings.ErrInvalid):
			api.WriteError(w, http.StatusBadRequest, err.Error())
		default:
			a.log.Error("Failed to save settings", "caller", caller.ID,
				"path", a.Settings.Path(), "error", err)
			api.WriteError(w, http.StatusInternalServerError,
				"failed to save settings")
		}
		return
	}

	a.log.Info("Settings updated", "caller", caller.ID)
	api.WriteJSON(w, http.StatusOK, updateResponse{
		Status:  "success",
		Message: "Settings updated successfully",
	})
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (a *App) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		level := slog.LevelInfo
		if r.URL.Path == "/health" {
			level = slog.LevelDebug
		}
		a.log.Log(r.Context(), level, "Request handled",
			"method", r.Method, "path", r.URL.Path, "status", rec.status,
			"duration", time.Since(start), "remote_addr", r.RemoteAddr)
	})
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
