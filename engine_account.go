package vaultauth

import (
	"context"
	"errors"
	"net/mail"

	"go.uber.org/zap"
)

// Register validates the input, hashes the password, and creates the user.
// An empty role falls back to the configured default.
func (e *Engine) Register(ctx context.Context, email, pass, role string) (*User, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, errors.Join(ErrValidation, errors.New("invalid email"))
	}
	if len(pass) < e.config.Account.MinPasswordLength {
		return nil, errors.Join(ErrValidation, errors.New("password too short"))
	}
	if role == "" {
		role = e.config.Account.DefaultRole
	}

	existing, err := e.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	if existing != nil {
		e.metricInc(MetricRegisterDuplicate)
		return nil, ErrUserExists
	}

	hash, err := e.hasher.Hash(pass)
	if err != nil {
		return nil, err
	}

	user, err := e.users.Create(ctx, CreateUserInput{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Status:       StatusActive,
	})
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}

	e.metricInc(MetricRegisterSuccess)
	e.logger.Info("account created", zap.String("user_id", user.ID))
	return user, nil
}

// Login checks the credentials and issues a fresh token pair, overwriting
// any existing refresh session for the user (single active session).
//
// Unknown email, banned account, and wrong password all surface as
// [ErrInvalidCredentials]; responses must not reveal which check failed.
func (e *Engine) Login(ctx context.Context, email, pass string) (TokenPair, error) {
	if e == nil || e.users == nil {
		return TokenPair{}, ErrEngineNotReady
	}
	if email == "" || pass == "" {
		e.metricInc(MetricLoginFailure)
		return TokenPair{}, ErrInvalidCredentials
	}

	user, err := e.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			return TokenPair{}, errors.Join(ErrStoreUnavailable, err)
		}
		e.metricInc(MetricLoginFailure)
		e.logger.Info("login failed", zap.String("reason", "user_not_found"))
		return TokenPair{}, ErrInvalidCredentials
	}
	if user.Status == StatusBanned {
		e.metricInc(MetricLoginFailure)
		e.logger.Info("login failed", zap.String("reason", "banned"), zap.String("user_id", user.ID))
		return TokenPair{}, ErrInvalidCredentials
	}

	ok, err := e.hasher.Verify(pass, user.PasswordHash)
	if err != nil || !ok {
		e.metricInc(MetricLoginFailure)
		e.logger.Info("login failed", zap.String("reason", "password_mismatch"), zap.String("user_id", user.ID))
		return TokenPair{}, ErrInvalidCredentials
	}
	pass = ""

	pair, err := e.issuePair(ctx, user)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		return TokenPair{}, err
	}

	e.metricInc(MetricLoginSuccess)
	e.logger.Info("login succeeded", zap.String("user_id", user.ID))
	return pair, nil
}
