package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func (c *Codec) registered(subject string, ttl time.Duration) jwt.RegisteredClaims {
	now := c.now()
	return jwt.RegisteredClaims{
		Issuer:    c.config.Issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (c *Codec) sign(claims jwt.Claims, secret string) (string, error) {
	signed, err := jwt.NewWithClaims(c.method, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// parse verifies signature, algorithm and time claims into claims.
func (c *Codec) parse(tokenString string, claims jwt.Claims, secret string) error {
	opts := []jwt.ParserOption{
		jwt.WithLeeway(c.config.ClockSkew),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	}
	if c.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.config.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != c.method.Alg() {
			return nil, errSignature
		}
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return mapJWTError(err)
	}
	if !token.Valid {
		return invalid(errMalformed)
	}
	return nil
}

// mapJWTError maps JWT library errors to the two codec outcomes.
func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return invalid(errNotYetValid)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return invalid(errSignature)
	default:
		return invalid(errMalformed)
	}
}

func invalid(reason error) error {
	return fmt.Errorf("%w: %w", ErrTokenInvalid, reason)
}
