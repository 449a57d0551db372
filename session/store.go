// Package session holds the short-lived per-browser state of the login
// handshake: the CSRF token and the PKCE verifier between redirect and
// callback.
package session

import "time"

// Keys stored during the login handshake.
const (
	CSRFStateKey       = "oauth.csrf-state"
	PKCEVerifierKey    = "pkce.code-verifier"
	InactivityLifetime = 24 * time.Hour
)

// Store is the narrow view of a session backend the auth flow needs.
// Implementations must treat values as opaque strings.
type Store interface {
	// Get returns the stored value and whether it was present.
	Get(sessionID, key string) (string, bool, error)

	// Set writes a value, resetting its inactivity expiry.
	Set(sessionID, key, value string) error

	// Delete removes a value. Deleting an absent value is not an error.
	Delete(sessionID, key string) error
}
