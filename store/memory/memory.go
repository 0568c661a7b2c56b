// Package memory provides an in-memory credential store for tests and local development.
package memory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/instaflow/authcore/store"
)

// ErrClosed is returned by Ping after Close.
var ErrClosed = errors.New("memory store is closed")

// Store is an in-memory implementation of the store.Store interface.
// Records are copied in and out so callers never share state with the store.
type Store struct {
	mu sync.RWMutex

	users       map[string]*store.User
	byEmail     map[string]string
	permissions map[permissionKey]*store.Permission

	now    func() time.Time
	closed bool
}

type permissionKey struct {
	userID string
	page   store.Page
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		users:       make(map[string]*store.User),
		byEmail:     make(map[string]string),
		permissions: make(map[permissionKey]*store.Permission),
		now:         time.Now,
	}
}

// Close marks the store as closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Ping checks if the store is available.
func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// FindUserByEmail looks up a user by email.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (*store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyUser(s.users[id]), nil
}

// FindUserByID looks up a user by id.
func (s *Store) FindUserByID(ctx context.Context, id string) (*store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyUser(u), nil
}

// CreateUser inserts a user. The email check and insert happen under one
// lock so concurrent duplicates resolve to exactly one winner.
func (s *Store) CreateUser(ctx context.Context, user *store.User) error {
	user.Email = strings.ToLower(user.Email)
	if err := user.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[user.Email]; taken {
		return store.ErrEmailTaken
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := s.now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	s.users[user.ID] = copyUser(user)
	s.byEmail[user.Email] = user.ID
	return nil
}

// UpdatePassword replaces the password hash.
func (s *Store) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return s.update(id, func(u *store.User) {
		u.PasswordHash = passwordHash
	})
}

// UpdateLastLogin records the last successful authentication.
func (s *Store) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	return s.update(id, func(u *store.User) {
		t := at
		u.LastLoginAt = &t
	})
}

// UpdateStatus changes the account status.
func (s *Store) UpdateStatus(ctx context.Context, id string, status store.UserStatus) error {
	if !status.Valid() {
		return store.ErrInvalidUser
	}
	return s.update(id, func(u *store.User) {
		u.Status = status
	})
}

// IncrementTokenVersion bumps the token version under the write lock.
func (s *Store) IncrementTokenVersion(ctx context.Context, id string) (int, error) {
	var version int
	err := s.update(id, func(u *store.User) {
		u.TokenVersion++
		version = u.TokenVersion
	})
	return version, err
}

func (s *Store) update(id string, fn func(u *store.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	fn(u)
	u.UpdatedAt = s.now()
	return nil
}

// GetPermission returns the grant for a (user, page) pair.
func (s *Store) GetPermission(ctx context.Context, userID string, page store.Page) (*store.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.permissions[permissionKey{userID, page}]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// SavePermission creates or replaces a grant.
func (s *Store) SavePermission(ctx context.Context, perm *store.Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[perm.UserID]; !ok {
		return store.ErrNotFound
	}
	cp := *perm
	cp.UpdatedAt = s.now()
	s.permissions[permissionKey{perm.UserID, perm.Page}] = &cp
	return nil
}

func copyUser(u *store.User) *store.User {
	if u == nil {
		return nil
	}
	cp := *u
	if u.ParentUserID != nil {
		parent := *u.ParentUserID
		cp.ParentUserID = &parent
	}
	if u.LastLoginAt != nil {
		at := *u.LastLoginAt
		cp.LastLoginAt = &at
	}
	return &cp
}

var _ store.Store = (*Store)(nil)
