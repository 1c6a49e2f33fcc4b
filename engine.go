package vaultauth

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/vaultauth/vaultauth/password"
	"github.com/vaultauth/vaultauth/payload"
	"github.com/vaultauth/vaultauth/session"
	"github.com/vaultauth/vaultauth/token"
)

// Engine defines a public type used by vaultauth APIs.
//
// Engine instances are intended to be configured during initialization and
// then treated as immutable unless documented otherwise. All fields,
// including the derived encryption keys inside the ciphers, are read-only
// after Build, so Engine methods need no locking under concurrent use.
type Engine struct {
	config        Config
	sessions      *session.Store
	tokens        *token.Manager
	accessCipher  *payload.Cipher
	refreshCipher *payload.Cipher
	users         UserStore
	hasher        *password.Argon2
	logger        *zap.Logger
	metrics       *Metrics
}

// refreshPayload is the claim object sealed into refresh tokens. Only the
// user id travels in refresh tokens; email stays out of them.
type refreshPayload struct {
	ID string `json:"id"`
}

// VerifyAccess validates an access token and returns the decrypted identity.
//
// The checks run in a fixed order: presence, denylist, signature (current
// secret, then previous secrets in order), payload decryption. The denylist
// lookup happens before any cryptographic work so revoked tokens cost no
// signature verification and cannot be distinguished from live ones by
// timing that work.
func (e *Engine) VerifyAccess(ctx context.Context, tokenStr string) (*Identity, error) {
	if e == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}
	if tokenStr == "" {
		return nil, ErrUnauthenticated
	}

	revoked, err := e.sessions.IsDenylisted(ctx, tokenStr)
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	if revoked {
		e.metricInc(MetricVerifyRevoked)
		return nil, ErrTokenRevoked
	}

	claims, err := e.tokens.ParseAccess(tokenStr)
	if err != nil {
		e.metricInc(MetricVerifyFailure)
		return nil, ErrInvalidSignature
	}

	var ident Identity
	if err := e.accessCipher.Decrypt(claims.Data, &ident); err != nil {
		// Correctly signed but undecryptable: tampering or key mismatch
		// downstream of the signature check. Reported distinctly from a
		// signature failure.
		e.metricInc(MetricVerifyFailure)
		e.logger.Warn("access token payload decryption failed", zap.Error(err))
		return nil, ErrTokenInvalid
	}
	ident.Role = claims.Role

	e.metricInc(MetricVerifySuccess)
	return &ident, nil
}

// CurrentUser verifies the access token and loads the full user record so
// callers see current role and status rather than token-time values.
func (e *Engine) CurrentUser(ctx context.Context, tokenStr string) (*User, error) {
	ident, err := e.VerifyAccess(ctx, tokenStr)
	if err != nil {
		return nil, err
	}

	user, err := e.users.FindByID(ctx, ident.ID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	return user, nil
}

// Logout revokes an access token and terminates the user's refresh session,
// forcing a full re-login.
//
// An already-denylisted token is an idempotent success. Verification here
// uses the current signing secret only, not the rotation grace list, an
// asymmetry with VerifyAccess carried over from the original protocol.
func (e *Engine) Logout(ctx context.Context, tokenStr string) error {
	if e == nil || e.sessions == nil {
		return ErrEngineNotReady
	}
	if tokenStr == "" {
		return ErrUnauthenticated
	}

	revoked, err := e.sessions.IsDenylisted(ctx, tokenStr)
	if err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	if revoked {
		return nil
	}

	claims, err := e.tokens.ParseAccessCurrentOnly(tokenStr)
	if err != nil {
		return ErrTokenInvalid
	}
	if claims.ExpiresAt == nil {
		return ErrTokenInvalid
	}

	// A non-positive TTL means the token is already expired, which is
	// effectively revoked; nothing to store.
	if ttl := time.Until(claims.ExpiresAt.Time); ttl > 0 {
		if err := e.sessions.Denylist(ctx, tokenStr, ttl); err != nil {
			return errors.Join(ErrStoreUnavailable, err)
		}
	}

	var ident Identity
	if err := e.accessCipher.Decrypt(claims.Data, &ident); err != nil {
		e.logger.Warn("logout could not recover user id from token", zap.Error(err))
		return ErrTokenInvalid
	}
	if err := e.sessions.DeleteRefresh(ctx, ident.ID); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}

	e.metricInc(MetricLogout)
	e.logger.Info("session revoked", zap.String("user_id", ident.ID))
	return nil
}

// issuePair encrypts the identity claims, signs a fresh access/refresh token
// pair, and overwrites the stored refresh session. The overwrite invalidates
// any previously issued refresh token for the user even if never used.
func (e *Engine) issuePair(ctx context.Context, user *User) (TokenPair, error) {
	accessData, err := e.accessCipher.Encrypt(Identity{ID: user.ID, Email: user.Email})
	if err != nil {
		return TokenPair{}, err
	}
	access, err := e.tokens.CreateAccess(accessData, user.Role)
	if err != nil {
		return TokenPair{}, err
	}

	refreshData, err := e.refreshCipher.Encrypt(refreshPayload{ID: user.ID})
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := e.tokens.CreateRefresh(refreshData)
	if err != nil {
		return TokenPair{}, err
	}

	if err := e.sessions.SaveRefresh(ctx, user.ID, refresh, e.config.Token.RefreshTTL); err != nil {
		return TokenPair{}, errors.Join(ErrStoreUnavailable, err)
	}

	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// RefreshTTL exposes the configured refresh lifetime so transport layers can
// size the refresh cookie to match the stored session.
func (e *Engine) RefreshTTL() time.Duration {
	return e.config.Token.RefreshTTL
}
