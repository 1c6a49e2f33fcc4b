// Package httpapi is the HTTP boundary of the auth engine: JSON handlers for
// register, login, logout, refresh, and the current-user endpoint, plus the
// HTTP-only refresh cookie contract. Engine errors are translated to status
// codes here and never leak internals.
package httpapi
