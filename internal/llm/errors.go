package llm

import (
	"errors"
	"net/http"
)

// Adapter errors. Each precondition and failure mode has its own sentinel;
// call sites wrap them with detail via fmt.Errorf("%w: ...").
var (
	ErrServiceDisabled = errors.New("service is disabled in settings")
	ErrUnauthorized    = errors.New("credential not configured")
	ErrBadRequest      = errors.New("bad request")
	ErrTimeout         = errors.New("command timed out")
	ErrExecution       = errors.New("command failed")
)

// StatusCode maps an adapter error to the HTTP status returned to clients.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrServiceDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
