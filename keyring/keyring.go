package keyring

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	// KeySize is the length in bytes of every derived key.
	KeySize = 32
	// MinSaltSize is the minimum accepted salt length in bytes.
	MinSaltSize = 8

	// argon2id parameters. These match the defaults the token format was
	// originally issued with; changing them breaks decryption of tokens
	// already in circulation.
	argonTime    = 3
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// ErrEmptySecret is an exported constant or variable used by the authentication engine.
var ErrEmptySecret = errors.New("secret required for key derivation")

// ErrSaltTooShort is an exported constant or variable used by the authentication engine.
var ErrSaltTooShort = errors.New("derivation salt missing or too short")

// Material holds the raw signing secrets loaded at startup. Current and
// Refresh must be non-empty; Previous is the ordered rotation grace list and
// is not used for derivation.
type Material struct {
	Current  string
	Previous []string
	Refresh  string
}

// Keys holds the two derived 32-byte payload-encryption keys. Computed once,
// read-only afterward.
type Keys struct {
	Access  []byte
	Refresh []byte
}

// Derive produces a 32-byte key from secret and salt using argon2id. The
// function is deterministic for a fixed (secret, salt) pair and keeps no
// hidden state beyond its arguments.
func Derive(secret string, salt []byte) ([]byte, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if len(salt) < MinSaltSize {
		return nil, ErrSaltTooShort
	}

	return argon2.IDKey([]byte(secret), salt, argonTime, argonMemory, argonThreads, KeySize), nil
}

// DeriveKeys derives the access and refresh payload-encryption keys from the
// given material. It must complete before any token is issued or verified;
// a failure here is fatal to startup.
func DeriveKeys(m Material, salt []byte) (*Keys, error) {
	access, err := Derive(m.Current, salt)
	if err != nil {
		return nil, fmt.Errorf("derive access key: %w", err)
	}
	refresh, err := Derive(m.Refresh, salt)
	if err != nil {
		return nil, fmt.Errorf("derive refresh key: %w", err)
	}

	return &Keys{Access: access, Refresh: refresh}, nil
}
