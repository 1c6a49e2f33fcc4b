// Package memory is an in-process UserStore for tests and examples.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	vaultauth "github.com/vaultauth/vaultauth"
)

// Store keeps users in a map guarded by a RWMutex. Not meant for
// production use; it exists so the engine can be exercised without a
// database.
type Store struct {
	mu      sync.RWMutex
	byID    map[string]vaultauth.User
	byEmail map[string]string
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		byID:    make(map[string]vaultauth.User),
		byEmail: make(map[string]string),
	}
}

// FindByEmail implements vaultauth.UserStore.
func (s *Store) FindByEmail(_ context.Context, email string) (*vaultauth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[normalize(email)]
	if !ok {
		return nil, vaultauth.ErrUserNotFound
	}
	user := s.byID[id]
	return &user, nil
}

// FindByID implements vaultauth.UserStore.
func (s *Store) FindByID(_ context.Context, id string) (*vaultauth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byID[id]
	if !ok {
		return nil, vaultauth.ErrUserNotFound
	}
	return &user, nil
}

// Create implements vaultauth.UserStore.
func (s *Store) Create(_ context.Context, input vaultauth.CreateUserInput) (*vaultauth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := normalize(input.Email)
	if _, exists := s.byEmail[email]; exists {
		return nil, vaultauth.ErrUserExists
	}

	user := vaultauth.User{
		ID:           uuid.NewString(),
		Email:        input.Email,
		PasswordHash: input.PasswordHash,
		Role:         input.Role,
		Status:       input.Status,
	}
	s.byID[user.ID] = user
	s.byEmail[email] = user.ID

	return &user, nil
}

// SetStatus flips an account's status. Test helper.
func (s *Store) SetStatus(id string, status vaultauth.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user, ok := s.byID[id]; ok {
		user.Status = status
		s.byID[id] = user
	}
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
