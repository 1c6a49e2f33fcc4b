package vaultauth

import (
	"crypto/aes"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Config defines a public type used by vaultauth APIs.
//
// Config instances are intended to be configured during initialization and
// then treated as immutable unless documented otherwise.
type Config struct {
	Secrets    SecretsConfig
	Crypto     CryptoConfig
	Token      TokenConfig
	Session    SessionConfig
	Account    AccountConfig
	Password   PasswordConfig
	Metrics    MetricsConfig
	Production bool
}

// SecretsConfig holds the raw signing secrets. Current and Refresh sign
// tokens directly; Previous is the ordered rotation grace list consulted by
// access-token verification only.
type SecretsConfig struct {
	Current  string
	Previous []string
	Refresh  string
}

// CryptoConfig holds the hex-encoded salt and IV for payload encryption.
// The salt feeds argon2id key derivation; the IV is shared by every
// encryption under a given key (an accepted limitation inherited from the
// token format, see the payload package).
type CryptoConfig struct {
	SaltHex string
	IVHex   string
}

// TokenConfig defines a public type used by vaultauth APIs.
//
// TokenConfig instances are intended to be configured during initialization
// and then treated as immutable unless documented otherwise.
type TokenConfig struct {
	AccessTTL          time.Duration
	RefreshTTL         time.Duration
	MaxPreviousSecrets int
}

// SessionConfig defines a public type used by vaultauth APIs.
//
// SessionConfig instances are intended to be configured during initialization
// and then treated as immutable unless documented otherwise.
type SessionConfig struct {
	RedisPrefix string
}

// AccountConfig defines a public type used by vaultauth APIs.
//
// AccountConfig instances are intended to be configured during initialization
// and then treated as immutable unless documented otherwise.
type AccountConfig struct {
	DefaultRole       string
	MinPasswordLength int
}

// PasswordConfig holds the argon2id parameters for password hashing.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// MetricsConfig defines a public type used by vaultauth APIs.
//
// MetricsConfig instances are intended to be configured during initialization
// and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled bool
}

const (
	minSaltBytes = 8
	keyBytes     = 32
)

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			AccessTTL:          time.Hour,
			RefreshTTL:         7 * 24 * time.Hour,
			MaxPreviousSecrets: 5,
		},
		Session: SessionConfig{
			RedisPrefix: "",
		},
		Account: AccountConfig{
			DefaultRole:       "user",
			MinPasswordLength: 8,
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// Validate checks the configuration invariants that must hold before any
// token is issued or verified. A failure here is fatal to startup.
func (c Config) Validate() error {
	if c.Secrets.Current == "" {
		return errors.New("current signing secret must not be empty")
	}
	if c.Secrets.Refresh == "" {
		return errors.New("refresh signing secret must not be empty")
	}
	if c.Token.MaxPreviousSecrets > 0 && len(c.Secrets.Previous) > c.Token.MaxPreviousSecrets {
		return fmt.Errorf("previous secret list exceeds cap of %d", c.Token.MaxPreviousSecrets)
	}
	for i, s := range c.Secrets.Previous {
		if s == "" {
			return fmt.Errorf("previous signing secret %d is empty", i)
		}
	}

	salt, err := hex.DecodeString(c.Crypto.SaltHex)
	if err != nil {
		return errors.New("encryption salt is not valid hex")
	}
	if len(salt) < minSaltBytes {
		return fmt.Errorf("encryption salt must be at least %d bytes", minSaltBytes)
	}
	iv, err := hex.DecodeString(c.Crypto.IVHex)
	if err != nil {
		return errors.New("encryption IV is not valid hex")
	}
	if len(iv) != aes.BlockSize {
		return fmt.Errorf("encryption IV must be exactly %d bytes", aes.BlockSize)
	}

	if c.Token.AccessTTL <= 0 || c.Token.RefreshTTL <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	if c.Account.DefaultRole == "" {
		return errors.New("default role must not be empty")
	}
	if c.Account.MinPasswordLength < 6 {
		return errors.New("minimum password length must be at least 6")
	}

	return nil
}

func (c Config) salt() []byte {
	salt, _ := hex.DecodeString(c.Crypto.SaltHex)
	return salt
}

func (c Config) iv() []byte {
	iv, _ := hex.DecodeString(c.Crypto.IVHex)
	return iv
}

// ConfigFromEnv builds a Config from the environment variables used by
// existing deployments of this token format:
//
//	JWT_SECRET_CURRENT, JWT_SECRET_PREVIOUS (comma separated, ordered),
//	JWT_REFRESH_SECRET, JWT_SALT (hex), ENCRYPTION_IV (hex),
//	JWT_EXPIRES_IN, JWT_REFRESH_EXPIRES_IN (Go durations),
//	APP_ENV ("production" enables secure cookie/production behavior).
//
// The result is validated; an error here must abort startup.
func ConfigFromEnv() (Config, error) {
	cfg := defaultConfig()

	cfg.Secrets.Current = os.Getenv("JWT_SECRET_CURRENT")
	cfg.Secrets.Refresh = os.Getenv("JWT_REFRESH_SECRET")
	if prev := os.Getenv("JWT_SECRET_PREVIOUS"); prev != "" {
		for _, s := range strings.Split(prev, ",") {
			if s = strings.TrimSpace(s); s != "" {
				cfg.Secrets.Previous = append(cfg.Secrets.Previous, s)
			}
		}
	}
	cfg.Crypto.SaltHex = os.Getenv("JWT_SALT")
	cfg.Crypto.IVHex = os.Getenv("ENCRYPTION_IV")

	if v := os.Getenv("JWT_EXPIRES_IN"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid JWT_EXPIRES_IN: %w", err)
		}
		cfg.Token.AccessTTL = d
	}
	if v := os.Getenv("JWT_REFRESH_EXPIRES_IN"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid JWT_REFRESH_EXPIRES_IN: %w", err)
		}
		cfg.Token.RefreshTTL = d
	}
	cfg.Production = os.Getenv("APP_ENV") == "production"

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
