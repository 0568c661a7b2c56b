// Package password provides one-way password hashing for stored credentials.
package password

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownAlgorithm is returned by New for an unsupported algorithm name.
var ErrUnknownAlgorithm = errors.New("password: unknown hashing algorithm")

// ErrUnrecognizedHash is returned when a stored hash matches no known format.
var ErrUnrecognizedHash = errors.New("password: unrecognized hash format")

// Algorithm names a hashing scheme.
type Algorithm string

const (
	AlgorithmBcrypt Algorithm = "bcrypt"
	AlgorithmArgon2 Algorithm = "argon2id"
)

// Hasher defines the interface for password hashing algorithms.
type Hasher interface {
	// Hash creates a hash from a password.
	Hash(password string) (string, error)

	// Verify checks if a password matches a hash. A mismatch is (false, nil).
	Verify(password, hash string) (bool, error)

	// NeedsRehash reports whether the hash was produced with parameters or an
	// algorithm other than the hasher's current ones.
	NeedsRehash(hash string) bool
}

// New returns a hasher for the named algorithm. Hashes produced by the other
// supported algorithm still verify, and NeedsRehash reports them so they are
// migrated on the next successful login.
func New(algorithm Algorithm, bcryptCost int) (Hasher, error) {
	bc := NewBcryptHasher(&BcryptConfig{Cost: bcryptCost})
	ar := NewArgon2Hasher(nil)

	switch Algorithm(strings.ToLower(string(algorithm))) {
	case "", AlgorithmBcrypt:
		return &multiHasher{primary: bc, bcrypt: bc, argon2: ar}, nil
	case AlgorithmArgon2, "argon2":
		return &multiHasher{primary: ar, bcrypt: bc, argon2: ar}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algorithm)
	}
}

// multiHasher hashes with primary and verifies any supported format.
type multiHasher struct {
	primary Hasher
	bcrypt  *BcryptHasher
	argon2  *Argon2Hasher
}

func (m *multiHasher) Hash(password string) (string, error) {
	return m.primary.Hash(password)
}

func (m *multiHasher) Verify(password, hash string) (bool, error) {
	h, err := m.forHash(hash)
	if err != nil {
		return false, err
	}
	return h.Verify(password, hash)
}

func (m *multiHasher) NeedsRehash(hash string) bool {
	h, err := m.forHash(hash)
	if err != nil || h != m.primary {
		return true
	}
	return h.NeedsRehash(hash)
}

func (m *multiHasher) forHash(hash string) (Hasher, error) {
	switch {
	case strings.HasPrefix(hash, "$argon2id$"):
		return m.argon2, nil
	case isBcryptHash(hash):
		return m.bcrypt, nil
	default:
		return nil, ErrUnrecognizedHash
	}
}

func isBcryptHash(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$") || strings.HasPrefix(hash, "$2y$")
}

var _ Hasher = (*multiHasher)(nil)
