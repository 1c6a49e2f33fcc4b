// Package vaultauth provides an authentication engine built around short-lived
// JWT access tokens whose identity claims are encrypted before signing, plus a
// revocable long-lived refresh session stored in Redis.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build]. Secrets and derived encryption keys are computed once at
// build time and never mutated afterwards.
//
// # Architecture boundaries
//
// vaultauth is the public surface. It exposes [Engine], [Builder], [Config],
// the [UserStore] contract, and value types ([User], [Identity], [TokenPair]).
// Cryptographic primitives live in the keyring, payload, and token
// sub-packages; the Redis session/denylist store lives in session.
//
// # Token model
//
// An access token is an HS256 JWT carrying {data, role}, where data is the
// AES-256-CBC ciphertext of the identity claims. Signing uses the raw current
// signing secret; payload encryption uses a 32-byte key derived from that
// secret with argon2id. Verification walks the current secret and then the
// configured previous secrets in order, so tokens issued before a secret
// rotation stay valid until they expire naturally.
//
// A refresh token is the same construction under a dedicated refresh secret,
// with only the user id in the encrypted payload. Exactly one refresh session
// exists per user: issuing a new refresh token overwrites the stored one.
package vaultauth
