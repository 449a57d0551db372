package services

import (
	"errors"
	"fmt"
	"net/http"
)

// ConfigError is a required configuration value that was absent when it
// was first needed. Not retried.
type ConfigError struct {
	Var string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("missing required environment variable %s", e.Var)
}

// SessionError is a session value that was missing or unreadable. The
// login flow has to be restarted.
type SessionError struct {
	Key string
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session value %q missing", e.Key)
}

// CsrfMismatchError signals a callback whose state does not match the
// one stored at redirect time, a forged or replayed request.
type CsrfMismatchError struct{}

func (e *CsrfMismatchError) Error() string {
	return "CSRF state mismatch"
}

// UpstreamAuthError wraps a transport or protocol failure talking to
// the identity provider.
type UpstreamAuthError struct {
	Err error
}

func (e *UpstreamAuthError) Error() string {
	return fmt.Sprintf("identity provider error: %v", e.Err)
}

func (e *UpstreamAuthError) Unwrap() error {
	return e.Err
}

// ForbiddenEmailError is a sign-in by an identity outside the
// allow-list. A business-rule rejection, not a bug.
type ForbiddenEmailError struct {
	Email string
}

func (e *ForbiddenEmailError) Error() string {
	return fmt.Sprintf("the given email '%s' is not allowed to sign in", e.Email)
}

// PersistenceError wraps a database failure.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("database error: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// HTTPStatus maps every auth error variant to the status the handler
// boundary responds with. Unknown errors are server errors.
func HTTPStatus(err error) int {
	var (
		configErr      *ConfigError
		sessionErr     *SessionError
		csrfErr        *CsrfMismatchError
		upstreamErr    *UpstreamAuthError
		forbiddenErr   *ForbiddenEmailError
		persistenceErr *PersistenceError
	)

	switch {
	case errors.As(err, &sessionErr), errors.As(err, &csrfErr):
		return http.StatusBadRequest
	case errors.As(err, &forbiddenErr):
		return http.StatusForbidden
	case errors.As(err, &configErr), errors.As(err, &upstreamErr), errors.As(err, &persistenceErr):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
