package vaultauth

import (
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vaultauth/vaultauth/keyring"
	"github.com/vaultauth/vaultauth/password"
	"github.com/vaultauth/vaultauth/payload"
	"github.com/vaultauth/vaultauth/session"
	"github.com/vaultauth/vaultauth/token"
)

// Builder defines a public type used by vaultauth APIs.
//
// Builder instances are intended to be configured during initialization and
// then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  *redis.Client
	users  UserStore
	logger *zap.Logger

	built bool
}

// New returns a Builder preloaded with defaults. Callers must supply a Redis
// client and a UserStore before Build.
func New() *Builder {
	return &Builder{config: defaultConfig()}
}

// WithConfig replaces the builder's configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	merged := defaultConfig()
	merged.Secrets = cfg.Secrets
	merged.Crypto = cfg.Crypto
	merged.Production = cfg.Production
	if cfg.Token.AccessTTL > 0 {
		merged.Token.AccessTTL = cfg.Token.AccessTTL
	}
	if cfg.Token.RefreshTTL > 0 {
		merged.Token.RefreshTTL = cfg.Token.RefreshTTL
	}
	if cfg.Token.MaxPreviousSecrets > 0 {
		merged.Token.MaxPreviousSecrets = cfg.Token.MaxPreviousSecrets
	}
	if cfg.Session.RedisPrefix != "" {
		merged.Session.RedisPrefix = cfg.Session.RedisPrefix
	}
	if cfg.Account.DefaultRole != "" {
		merged.Account.DefaultRole = cfg.Account.DefaultRole
	}
	if cfg.Account.MinPasswordLength > 0 {
		merged.Account.MinPasswordLength = cfg.Account.MinPasswordLength
	}
	if cfg.Password != (PasswordConfig{}) {
		merged.Password = cfg.Password
	}
	merged.Metrics = cfg.Metrics
	b.config = merged
	return b
}

// WithRedis sets the Redis client backing the session and denylist store.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithUserStore sets the user database integration.
func (b *Builder) WithUserStore(store UserStore) *Builder {
	b.users = store
	return b
}

// WithLogger sets the structured logger for security events. When omitted,
// the engine logs nothing.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// Build validates the configuration, derives the payload-encryption keys,
// and assembles the Engine. Key derivation runs exactly once here; if Build
// fails the process must not start accepting requests.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.users == nil {
		return nil, errors.New("user store required")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	keys, err := keyring.DeriveKeys(keyring.Material{
		Current:  cfg.Secrets.Current,
		Previous: cfg.Secrets.Previous,
		Refresh:  cfg.Secrets.Refresh,
	}, cfg.salt())
	if err != nil {
		return nil, err
	}

	iv := cfg.iv()
	accessCipher, err := payload.New(keys.Access, iv)
	if err != nil {
		return nil, err
	}
	refreshCipher, err := payload.New(keys.Refresh, iv)
	if err != nil {
		return nil, err
	}

	previous := make([][]byte, 0, len(cfg.Secrets.Previous))
	for _, s := range cfg.Secrets.Previous {
		previous = append(previous, []byte(s))
	}
	tokens, err := token.NewManager(token.Config{
		AccessTTL:       cfg.Token.AccessTTL,
		RefreshTTL:      cfg.Token.RefreshTTL,
		CurrentSecret:   []byte(cfg.Secrets.Current),
		PreviousSecrets: previous,
		RefreshSecret:   []byte(cfg.Secrets.Refresh),
	})
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	b.built = true

	return &Engine{
		config:        cfg,
		sessions:      session.NewStore(b.redis, cfg.Session.RedisPrefix),
		tokens:        tokens,
		accessCipher:  accessCipher,
		refreshCipher: refreshCipher,
		users:         b.users,
		hasher:        hasher,
		logger:        logger,
		metrics:       newMetrics(cfg.Metrics.Enabled),
	}, nil
}
