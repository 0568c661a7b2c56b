// Package store defines the credential store contract used by authcore.
package store

import (
	"context"
	"errors"
	"time"
)

// Store errors.
var (
	// ErrNotFound is returned when a user or grant does not exist.
	ErrNotFound = errors.New("store: record not found")

	// ErrEmailTaken is returned by CreateUser when the email is already
	// registered. Stores must enforce this atomically.
	ErrEmailTaken = errors.New("store: email already registered")

	// ErrInvalidUser is returned when a user record violates a structural invariant.
	ErrInvalidUser = errors.New("store: invalid user")
)

func invalidUser(reason string) error {
	return &invalidUserError{reason: reason}
}

type invalidUserError struct {
	reason string
}

func (e *invalidUserError) Error() string { return ErrInvalidUser.Error() + ": " + e.reason }
func (e *invalidUserError) Unwrap() error { return ErrInvalidUser }

// Store holds user records and permission grants.
// All methods must be safe for concurrent use.
type Store interface {
	// Lifecycle methods

	// Close releases any resources held by the store.
	Close() error

	// Ping verifies the store connection is alive.
	Ping(ctx context.Context) error

	// User methods

	// FindUserByEmail looks up a user by its lowercased email.
	FindUserByEmail(ctx context.Context, email string) (*User, error)

	// FindUserByID looks up a user by id.
	FindUserByID(ctx context.Context, id string) (*User, error)

	// CreateUser persists a new user. ID and CreatedAt are assigned when
	// empty. Exactly one of two concurrent creates with the same email
	// succeeds; the other returns ErrEmailTaken.
	CreateUser(ctx context.Context, user *User) error

	// UpdatePassword replaces the password hash.
	UpdatePassword(ctx context.Context, id, passwordHash string) error

	// UpdateLastLogin records a successful authentication.
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error

	// UpdateStatus changes the account status.
	UpdateStatus(ctx context.Context, id string, status UserStatus) error

	// IncrementTokenVersion atomically adds one to the user's token version
	// and returns the new value. Implementations must increment in place so
	// concurrent calls never collapse into one.
	IncrementTokenVersion(ctx context.Context, id string) (int, error)

	// Permission methods

	// GetPermission returns the grant for (userID, page) or ErrNotFound.
	GetPermission(ctx context.Context, userID string, page Page) (*Permission, error)

	// SavePermission creates or replaces the grant for (UserID, Page).
	SavePermission(ctx context.Context, perm *Permission) error
}
