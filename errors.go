package vaultauth

import "errors"

var (
	// ErrInvalidCredentials is returned on login when the email is unknown,
	// the password does not match, or the account is banned. The three cases
	// are deliberately indistinguishable to callers.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrValidation is returned when registration input is malformed.
	ErrValidation = errors.New("invalid registration input")
	// ErrUserExists is returned when registering an email that is taken.
	ErrUserExists = errors.New("user already exists")
	// ErrUnauthenticated is returned when no token was presented.
	ErrUnauthenticated = errors.New("no token presented")
	// ErrTokenRevoked is returned for access tokens on the denylist.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrInvalidSignature is returned when an access token verifies against
	// neither the current signing secret nor any previous one.
	ErrInvalidSignature = errors.New("token signature invalid")
	// ErrTokenInvalid is returned when a correctly signed token carries a
	// payload that cannot be decrypted or decoded. Distinct from
	// ErrInvalidSignature: it indicates tampering or a key mismatch past the
	// signature check.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrSessionMismatch is returned when a presented refresh token is not
	// the one currently stored for the user, which covers replay of an
	// already-rotated token and logout-before-refresh races.
	ErrSessionMismatch = errors.New("refresh session mismatch")
	// ErrUserNotFound is returned by UserStore implementations and engine
	// operations when the referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrStoreUnavailable wraps session/denylist store connectivity
	// failures. It is never conflated with a token-validity answer so that
	// infrastructure outages do not masquerade as security failures.
	ErrStoreUnavailable = errors.New("session store unavailable")
	// ErrEngineNotReady is an exported constant or variable used by the authentication engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
