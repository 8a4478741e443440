// Package auth resolves the identity of HTTP callers. A caller presents a
// bearer credential that is either a static API key or a signed caller
// token; the resolved identity gates the admin and user routes and is
// otherwise only used for logging.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"chat-shim/internal/api"
	"chat-shim/pkg/utils"
)

var (
	// ErrMissingCredentials is returned when no bearer credential was sent.
	ErrMissingCredentials = errors.New("missing API key")

	// ErrInvalidCredentials is returned when the credential matches nothing.
	ErrInvalidCredentials = errors.New("invalid API key")
)

// Caller is the authenticated identity behind a request.
type Caller struct {
	// ID identifies the caller: a token subject, a key fingerprint, or
	// "anonymous" when auth is disabled.
	ID string
	// Name is a display name for logs.
	Name string
	// Admin grants access to the status, settings and test routes.
	Admin bool
	// Method records how the caller authenticated.
	Method string
}

// Config selects which credentials are accepted.
type Config struct {
	// Secret verifies caller tokens. Empty disables token callers.
	Secret string
	// APIKeys grant regular access.
	APIKeys []string
	// AdminAPIKeys grant administrator access.
	AdminAPIKeys []string
	// Disabled accepts every request as an anonymous administrator.
	Disabled bool
}

// Service authenticates requests against a Config.
type Service struct {
	cfg Config
	log *slog.Logger
}

// NewService creates and returns a new instance of the Service struct.
func NewService(cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg: cfg,
		log: logger.With("component", "auth"),
	}
}

// ExtractBearer pulls the credential out of an Authorization header value.
// "Bearer x", "Bearer: x" and a bare "x" are all accepted.
func ExtractBearer(header string) string {
	header = strings.TrimSpace(header)
	switch {
	case strings.HasPrefix(header, "Bearer: "):
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer: "))
	case strings.HasPrefix(header, "Bearer "):
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	default:
		return header
	}
}

// Authenticate resolves the caller of r.
func (s *Service) Authenticate(r *http.Request) (*Caller, error) {
	if s.cfg.Disabled {
		return &Caller{
			ID:     "anonymous",
			Name:   "disabled-auth-user",
			Admin:  true,
			Method: "disabled",
		}, nil
	}

	credential := ExtractBearer(r.Header.Get("Authorization"))
	if credential == "" {
		return nil, ErrMissingCredentials
	}

	if matchKey(credential, s.cfg.AdminAPIKeys) {
		return &Caller{
			ID:     "key:" + utils.MaskToken(credential),
			Name:   "admin-key",
			Admin:  true,
			Method: "api_key",
		}, nil
	}
	if matchKey(credential, s.cfg.APIKeys) {
		return &Caller{
			ID:     "key:" + utils.MaskToken(credential),
			Name:   "api-key",
			Method: "api_key",
		}, nil
	}

	if s.cfg.Secret != "" {
		caller, err := ValidateCallerToken(credential, s.cfg.Secret)
		if err == nil {
			return caller, nil
		}
		if errors.Is(err, ErrTokenExpired) {
			return nil, err
		}
	}

	return nil, ErrInvalidCredentials
}

// matchKey compares in constant time against every configured key.
func matchKey(credential string, keys []string) bool {
	found := false
	for _, key := range keys {
		if subtle.ConstantTimeCompare([]byte(credential), []byte(key)) == 1 {
			found = true
		}
	}
	return found
}

// RequireUser admits any authenticated caller.
func (s *Service) RequireUser(next http.HandlerFunc) http.HandlerFunc {
	return s.require(false, next)
}

// RequireAdmin admits only administrator callers.
func (s *Service) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return s.require(true, next)
}

func (s *Service) require(admin bool, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := s.Authenticate(r)
		if err != nil {
			s.log.Warn("Rejected request", "method", r.Method,
				"path", r.URL.Path, "remote_addr", r.RemoteAddr,
				"reason", err)

			if errors.Is(err, ErrTokenExpired) {
				w.Header().Set("X-Token-Expired", "true")
			}
			api.WriteError(w, http.StatusUnauthorized, err.Error())
			return
		}

		if admin && !caller.Admin {
			s.log.Warn("Rejected non-admin caller", "path", r.URL.Path,
				"caller", caller.ID)
			api.WriteError(w, http.StatusForbidden,
				"administrator access required")
			return
		}

		next(w, r.WithContext(WithCaller(r.Context(), caller)))
	}
}

type callerKey struct{}

// WithCaller returns a context carrying caller.
func WithCaller(ctx context.Context, caller *Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFromContext returns the caller stored by the middleware, or an
// anonymous placeholder.
func CallerFromContext(ctx context.Context) *Caller {
	if caller, ok := ctx.Value(callerKey{}).(*Caller); ok && caller != nil {
		return caller
	}
	return &Caller{ID: "anonymous", Method: "none"}
}
