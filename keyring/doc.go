// Package keyring derives the fixed-length symmetric keys used for token
// payload encryption from the raw signing secrets. Derivation runs once at
// engine build time; the resulting keys are read-only for the process
// lifetime and are shared by issuer and verifier by reference.
package keyring
