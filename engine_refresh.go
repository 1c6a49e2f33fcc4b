package vaultauth

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/vaultauth/vaultauth/session"
)

// Refresh rotates a refresh session: it validates the presented token
// against the stored one, then issues and stores a new pair. A refresh token
// is therefore usable at most once: after a successful rotation the store
// holds the newer token and re-presenting the old one fails with
// [ErrSessionMismatch].
//
// Two concurrent calls with the same token can both pass the equality check
// before either overwrite lands; the window is bounded by one cache round
// trip and is accepted here. A deployment needing a hard guarantee would
// fold the check and overwrite into one conditional write keyed on the old
// token value.
func (e *Engine) Refresh(ctx context.Context, oldToken string) (TokenPair, error) {
	if e == nil || e.sessions == nil {
		return TokenPair{}, ErrEngineNotReady
	}
	if oldToken == "" {
		return TokenPair{}, ErrUnauthenticated
	}

	claims, err := e.tokens.ParseRefresh(oldToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return TokenPair{}, ErrTokenInvalid
	}

	var p refreshPayload
	if err := e.refreshCipher.Decrypt(claims.Data, &p); err != nil {
		e.metricInc(MetricRefreshFailure)
		return TokenPair{}, ErrTokenInvalid
	}

	stored, err := e.sessions.GetRefresh(ctx, p.ID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			e.metricInc(MetricRefreshMismatch)
			e.logger.Info("refresh rejected", zap.String("reason", "no_session"), zap.String("user_id", p.ID))
			return TokenPair{}, ErrSessionMismatch
		}
		e.metricInc(MetricRefreshFailure)
		return TokenPair{}, errors.Join(ErrStoreUnavailable, err)
	}
	if stored != oldToken {
		e.metricInc(MetricRefreshMismatch)
		e.logger.Warn("refresh rejected", zap.String("reason", "token_mismatch"), zap.String("user_id", p.ID))
		return TokenPair{}, ErrSessionMismatch
	}

	user, err := e.users.FindByID(ctx, p.ID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.metricInc(MetricRefreshFailure)
			return TokenPair{}, ErrUserNotFound
		}
		e.metricInc(MetricRefreshFailure)
		return TokenPair{}, errors.Join(ErrStoreUnavailable, err)
	}

	pair, err := e.issuePair(ctx, user)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return TokenPair{}, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.logger.Info("refresh rotated", zap.String("user_id", user.ID))
	return pair, nil
}
