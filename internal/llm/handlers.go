package llm

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"chat-shim/internal/api"
	"chat-shim/internal/auth"
	"chat-shim/internal/settings"
)

// maxRequestBytes caps chat completion and test request bodies.
const maxRequestBytes = 1 << 20

// SettingsSource hands out the current settings record. *settings.Store
// satisfies it.
type SettingsSource interface {
	Snapshot() settings.Settings
}

// ServerState holds the state for the completion endpoints.
type ServerState struct {
	Service  *Service
	Settings SettingsSource
	log      *slog.Logger
}

// NewServerState creates the handler state. Every request reads a fresh
// settings snapshot from source.
func NewServerState(service *Service, source SettingsSource,
	logger *slog.Logger) *ServerState {

	if logger == nil {
		logger = slog.Default()
	}
	return &ServerState{
		Service:  service,
		Settings: source,
		log:      logger.With("component", "handlers"),
	}
}

// HandleChatCompletions handles the OpenAI-compatible completion endpoint.
func (s *ServerState) HandleChatCompletions(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest,
			"invalid request body: "+err.Error())
		return
	}

	if req.Stream {
		s.log.Debug("Streaming requested, replying with a single response",
			"caller", caller.ID)
	}

	resp, err := s.Service.Complete(r.Context(), req, s.Settings.Snapshot())
	if err != nil {
		status := StatusCode(err)
		s.log.Warn("Chat completion failed", "caller", caller.ID,
			"model", req.Model, "status", status, "error", err)
		api.WriteError(w, status, err.Error())
		return
	}

	s.log.Info("Chat completion served", "caller", caller.ID,
		"model", resp.Model, "completion_tokens", resp.Usage.CompletionTokens)

	api.WriteJSON(w, http.StatusOK, resp)
}

// testRequest is the optional body of the test endpoint.
type testRequest struct {
	Message string `json:"message"`
}

// HandleTest runs a single message through the CLI. It always answers 200;
// failures are reported in the body.
func (s *ServerState) HandleTest(w http.ResponseWriter, r *http.Request) {
	message := r.URL.Query().Get("message")

	if r.Body != nil && r.ContentLength != 0 {
		var body testRequest
		err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes)).
			Decode(&body)
		switch {
		case err == nil:
			if strings.TrimSpace(body.Message) != "" {
				message = body.Message
			}
		case errors.Is(err, io.EOF):
		default:
			s.log.Debug("Ignoring malformed test body", "error", err)
		}
	}

	result := s.Service.Test(r.Context(), message, s.Settings.Snapshot())
	if !result.Success {
		s.log.Warn("Test invocation failed", "error", result.Error)
	}

	api.WriteJSON(w, http.StatusOK, result)
}

// HandleModels lists the advertised model.
func (s *ServerState) HandleModels(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, s.Service.Models(s.Settings.Snapshot()))
}

// RegisterHandlers registers the completion handlers with a router.
func (s *ServerState) RegisterHandlers(mux *http.ServeMux, authSvc *auth.Service) {
	mux.HandleFunc("POST /chat/completions",
		authSvc.RequireUser(s.HandleChatCompletions))
	mux.HandleFunc("POST /v1/chat/completions",
		authSvc.RequireUser(s.HandleChatCompletions))

	mux.HandleFunc("GET /models", authSvc.RequireUser(s.HandleModels))
	mux.HandleFunc("GET /v1/models", authSvc.RequireUser(s.HandleModels))

	mux.HandleFunc("POST /test", authSvc.RequireAdmin(s.HandleTest))
}
