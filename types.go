package vaultauth

import "context"

// Status represents the lifecycle state of a user account.
type Status string

const (
	// StatusActive is an exported constant or variable used by the authentication engine.
	StatusActive Status = "active"
	// StatusBanned is an exported constant or variable used by the authentication engine.
	StatusBanned Status = "banned"
)

// User is the account record exchanged with a [UserStore]. The password hash
// is never serialized in API responses.
type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Role         string `json:"role"`
	Status       Status `json:"status"`
}

// Identity is the decrypted claim set recovered from an access token by
// [Engine.VerifyAccess]. ID and Email travel inside the encrypted data claim;
// Role travels as a plain signed claim.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// TokenPair is returned by [Engine.Login] and [Engine.Refresh].
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// CreateUserInput is the input for [UserStore.Create].
type CreateUserInput struct {
	Email        string
	PasswordHash string
	Role         string
	Status       Status
}

// UserStore is the interface callers must implement to integrate vaultauth
// with their user database. Lookups signal absence with [ErrUserNotFound];
// any other error is treated as an infrastructure failure.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, input CreateUserInput) (*User, error)
}
