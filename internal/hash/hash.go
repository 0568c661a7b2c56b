// Package hash provides hashing utilities.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
)

// fingerprintLen is the number of hex characters kept by Fingerprint.
const fingerprintLen = 12

// SHA256 computes the SHA256 hash of the input and returns it as a hex string.
func SHA256(input string) string {
	h := sha256.Sum256([]byte(input))
	return hex.EncodeToString(h[:])
}

// Fingerprint returns a short, non-reversible reference to a secret such as
// a bearer token, suitable for correlating log lines.
func Fingerprint(secret string) string {
	if secret == "" {
		return ""
	}
	return SHA256(secret)[:fingerprintLen]
}
