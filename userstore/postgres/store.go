// Package postgres implements the UserStore contract over a Postgres table
// via sqlx.
package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	vaultauth "github.com/vaultauth/vaultauth"
)

// NOTE: expected table schema:
// CREATE TABLE auth_users (
//   id TEXT PRIMARY KEY,
//   email TEXT NOT NULL UNIQUE,
//   password_hash TEXT NOT NULL,
//   role TEXT NOT NULL,
//   status TEXT NOT NULL DEFAULT 'active'
// );

type userRow struct {
	ID           string `db:"id"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`
	Role         string `db:"role"`
	Status       string `db:"status"`
}

func (r userRow) toUser() *vaultauth.User {
	return &vaultauth.User{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Role:         r.Role,
		Status:       vaultauth.Status(r.Status),
	}
}

// Store defines a public type used by vaultauth APIs.
//
// Store instances are intended to be configured during initialization and
// then treated as immutable unless documented otherwise.
type Store struct {
	db *sqlx.DB
}

// New creates a Store over db.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// FindByEmail implements vaultauth.UserStore.
func (s *Store) FindByEmail(ctx context.Context, email string) (*vaultauth.User, error) {
	var row userRow
	query := `SELECT id, email, password_hash, role, status FROM auth_users WHERE lower(email) = lower($1)`
	if err := s.db.GetContext(ctx, &row, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, vaultauth.ErrUserNotFound
		}
		return nil, err
	}
	return row.toUser(), nil
}

// FindByID implements vaultauth.UserStore.
func (s *Store) FindByID(ctx context.Context, id string) (*vaultauth.User, error) {
	var row userRow
	query := `SELECT id, email, password_hash, role, status FROM auth_users WHERE id = $1`
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, vaultauth.ErrUserNotFound
		}
		return nil, err
	}
	return row.toUser(), nil
}

// Create implements vaultauth.UserStore.
func (s *Store) Create(ctx context.Context, input vaultauth.CreateUserInput) (*vaultauth.User, error) {
	row := userRow{
		ID:           uuid.NewString(),
		Email:        input.Email,
		PasswordHash: input.PasswordHash,
		Role:         input.Role,
		Status:       string(input.Status),
	}
	query := `INSERT INTO auth_users (id, email, password_hash, role, status) VALUES ($1, $2, $3, $4, $5)`
	if _, err := s.db.ExecContext(ctx, query, row.ID, row.Email, row.PasswordHash, row.Role, row.Status); err != nil {
		return nil, err
	}
	return row.toUser(), nil
}
