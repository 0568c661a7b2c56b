package token

import "errors"

// Token verification errors. Every verification failure wraps exactly one of
// these two so callers can classify it with errors.Is.
var (
	// ErrTokenExpired indicates the token is past its expiry.
	ErrTokenExpired = errors.New("token has expired")

	// ErrTokenInvalid indicates a bad signature, structure or claim set.
	ErrTokenInvalid = errors.New("token is invalid")
)

// Reasons wrapped under ErrTokenInvalid.
var (
	errMalformed    = errors.New("malformed")
	errSignature    = errors.New("signature is invalid")
	errNotYetValid  = errors.New("not yet valid")
	errWrongKind    = errors.New("wrong token kind")
	errMissingClaim = errors.New("missing required claim")
)
