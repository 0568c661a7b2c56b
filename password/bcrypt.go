package password

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the work factor for stored passwords.
const DefaultBcryptCost = 12

// bcryptMaxInput is the number of bytes bcrypt reads from its input.
const bcryptMaxInput = 72

// BcryptConfig holds the configuration for bcrypt hashing.
type BcryptConfig struct {
	// Cost is the bcrypt cost factor (4-31).
	Cost int
}

// BcryptHasher implements the Hasher interface using bcrypt.
//
// bcrypt only reads the first 72 bytes of its input. Longer passwords are
// first reduced with SHA-256 so every byte contributes to the hash.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a bcrypt hasher. A nil config or zero cost uses
// DefaultBcryptCost; other values are clamped to bcrypt's valid range.
func NewBcryptHasher(config *BcryptConfig) *BcryptHasher {
	cost := DefaultBcryptCost
	if config != nil && config.Cost != 0 {
		cost = config.Cost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &BcryptHasher{cost: cost}
}

// Cost returns the configured work factor.
func (h *BcryptHasher) Cost() int {
	return h.cost
}

// Hash creates a bcrypt hash from a password.
func (h *BcryptHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(bcryptInput(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify checks if a password matches a bcrypt hash. Passwords past 72
// bytes also match hashes of their first 72 bytes, which is how hashes
// imported from truncating bcrypt implementations were produced.
func (h *BcryptHasher) Verify(password, hash string) (bool, error) {
	ok, err := compareBcrypt(hash, bcryptInput(password))
	if ok || err != nil || len(password) <= bcryptMaxInput {
		return ok, err
	}
	return compareBcrypt(hash, []byte(password)[:bcryptMaxInput])
}

func compareBcrypt(hash string, input []byte) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), input)
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// NeedsRehash checks if a hash was created with a different cost.
func (h *BcryptHasher) NeedsRehash(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return true
	}
	return cost != h.cost
}

func bcryptInput(password string) []byte {
	if len(password) <= bcryptMaxInput {
		return []byte(password)
	}
	sum := sha256.Sum256([]byte(password))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

var _ Hasher = (*BcryptHasher)(nil)
