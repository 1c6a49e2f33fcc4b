// Package payload implements the symmetric cipher that seals token claims
// before they are signed. Ciphertexts are AES-256-CBC over the JSON encoding
// of the claims, hex encoded, under a derived 32-byte key and a fixed IV.
package payload
