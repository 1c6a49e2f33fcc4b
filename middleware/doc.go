// Package middleware adapts the engine's access-token verification to
// net/http. The guard extracts the bearer token, verifies it, and exposes
// the decrypted identity to downstream handlers via the request context.
package middleware
