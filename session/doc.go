// Package session is the Redis-backed store for refresh sessions and the
// access-token denylist. Both record kinds expire via TTL; no explicit
// garbage collection exists beyond that. Single-key reads and overwrites are
// atomic at the storage layer, which is the only consistency the engine
// relies on.
package session
