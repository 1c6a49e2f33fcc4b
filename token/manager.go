package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrSignature is returned when a token verifies against none of the
// configured secrets, or is expired or otherwise structurally invalid.
var ErrSignature = errors.New("token verification failed")

// Config defines a public type used by vaultauth APIs.
//
// Config instances are intended to be configured during initialization and
// then treated as immutable unless documented otherwise.
type Config struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// CurrentSecret signs new access tokens. PreviousSecrets is consulted in
	// order during access verification only; refresh tokens always verify
	// against RefreshSecret alone.
	CurrentSecret   []byte
	PreviousSecrets [][]byte
	RefreshSecret   []byte
}

// Manager defines a public type used by vaultauth APIs.
//
// Manager instances are intended to be configured during initialization and
// then treated as immutable unless documented otherwise.
type Manager struct {
	config Config
	parser *jwt.Parser
}

// AccessClaims is the signed body of an access token. Data is the encrypted
// identity payload; Role stays plaintext so routing layers can branch on it
// without holding the payload key.
type AccessClaims struct {
	Data string `json:"data"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// RefreshClaims is the signed body of a refresh token.
type RefreshClaims struct {
	Data string `json:"data"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if len(cfg.CurrentSecret) == 0 {
		return nil, errors.New("current signing secret required")
	}
	if len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("refresh signing secret required")
	}
	for _, s := range cfg.PreviousSecrets {
		if len(s) == 0 {
			return nil, errors.New("previous secret list contains empty secret")
		}
	}

	return &Manager{
		config: cfg,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}, nil
}

// CreateAccess signs an access token over the already-encrypted data claim
// and the plaintext role, expiring after the configured access TTL.
func (m *Manager) CreateAccess(data, role string) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		Data: data,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.AccessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.CurrentSecret)
}

// CreateRefresh signs a refresh token over the encrypted data claim,
// expiring after the configured refresh TTL.
func (m *Manager) CreateRefresh(data string) (string, error) {
	now := time.Now()
	claims := RefreshClaims{
		Data: data,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.RefreshTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.RefreshSecret)
}

// ParseAccess verifies tokenStr against the current secret and then each
// previous secret in configured order, accepting the first that verifies.
// Expiry is enforced on every attempt, so a rotated-out-but-listed secret
// never extends a token's lifetime.
func (m *Manager) ParseAccess(tokenStr string) (*AccessClaims, error) {
	secrets := make([][]byte, 0, 1+len(m.config.PreviousSecrets))
	secrets = append(secrets, m.config.CurrentSecret)
	secrets = append(secrets, m.config.PreviousSecrets...)

	for _, secret := range secrets {
		claims, err := m.parseAccessWith(tokenStr, secret)
		if err == nil {
			return claims, nil
		}
	}

	return nil, ErrSignature
}

// ParseAccessCurrentOnly verifies tokenStr against the current secret alone.
// Logout uses it instead of the full rotation walk; the asymmetry with
// ParseAccess mirrors the original protocol and is preserved on purpose.
func (m *Manager) ParseAccessCurrentOnly(tokenStr string) (*AccessClaims, error) {
	claims, err := m.parseAccessWith(tokenStr, m.config.CurrentSecret)
	if err != nil {
		return nil, ErrSignature
	}
	return claims, nil
}

func (m *Manager) parseAccessWith(tokenStr string, secret []byte) (*AccessClaims, error) {
	token, err := m.parser.ParseWithClaims(tokenStr, &AccessClaims{}, func(*jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, ErrSignature
	}
	return claims, nil
}

// ParseRefresh verifies tokenStr against the refresh secret. There is no
// rotation list for refresh tokens: a single refresh secret is assumed
// current at all times.
func (m *Manager) ParseRefresh(tokenStr string) (*RefreshClaims, error) {
	token, err := m.parser.ParseWithClaims(tokenStr, &RefreshClaims{}, func(*jwt.Token) (any, error) {
		return m.config.RefreshSecret, nil
	})
	if err != nil {
		return nil, ErrSignature
	}

	claims, ok := token.Claims.(*RefreshClaims)
	if !ok || !token.Valid {
		return nil, ErrSignature
	}
	return claims, nil
}
