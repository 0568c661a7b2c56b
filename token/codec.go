// Package token issues and verifies the three token kinds used by authcore:
// access, refresh and password-reset tokens. All are HS256 JWTs. Refresh
// tokens are signed with their own secret so a leaked access key cannot
// forge long-lived credentials.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/instaflow/authcore/store"
)

// Default lifetimes.
const (
	DefaultAccessTTL  = 30 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
	DefaultResetTTL   = 2 * time.Hour
)

// Pair is the access/refresh token pair returned to clients.
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`

	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int64 `json:"expiresIn"`
}

// Config holds configuration for the codec.
type Config struct {
	// AccessSecret signs access and reset tokens.
	AccessSecret string

	// RefreshSecret signs refresh tokens. Must differ from AccessSecret.
	RefreshSecret string

	AccessTTL  time.Duration
	RefreshTTL time.Duration
	ResetTTL   time.Duration

	// ClockSkew allows for clock differences between servers.
	ClockSkew time.Duration

	// Issuer is written to and required in the iss claim when non-empty.
	Issuer string
}

// Codec signs and verifies tokens.
type Codec struct {
	config *Config
	method jwt.SigningMethod
	now    func() time.Time
}

// NewCodec creates a codec. Zero TTLs fall back to the defaults.
func NewCodec(cfg *Config) (*Codec, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("token: access and refresh secrets are required")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("token: access and refresh secrets must differ")
	}

	c := *cfg
	if c.AccessTTL <= 0 {
		c.AccessTTL = DefaultAccessTTL
	}
	if c.RefreshTTL <= 0 {
		c.RefreshTTL = DefaultRefreshTTL
	}
	if c.ResetTTL <= 0 {
		c.ResetTTL = DefaultResetTTL
	}

	return &Codec{
		config: &c,
		method: jwt.SigningMethodHS256,
		now:    time.Now,
	}, nil
}

// SetClock replaces the time source. Used in tests.
func (c *Codec) SetClock(now func() time.Time) {
	c.now = now
}

// AccessTTL returns the access token lifetime.
func (c *Codec) AccessTTL() time.Duration {
	return c.config.AccessTTL
}

// IssuePair issues an access token for the user and a refresh token bound
// to the user's current token version.
func (c *Codec) IssuePair(user *store.User) (*Pair, error) {
	access, err := c.IssueAccess(user)
	if err != nil {
		return nil, err
	}
	refresh, err := c.IssueRefresh(user.ID, user.TokenVersion)
	if err != nil {
		return nil, err
	}
	return &Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(c.config.AccessTTL.Seconds()),
	}, nil
}

// IssueAccess encodes the user's identity.
func (c *Codec) IssueAccess(user *store.User) (string, error) {
	claims := &AccessClaims{
		UserID:           user.ID,
		Email:            user.Email,
		Type:             user.Type,
		ParentUserID:     user.ParentUserID,
		RegisteredClaims: c.registered(user.ID, c.config.AccessTTL),
	}
	return c.sign(claims, c.config.AccessSecret)
}

// IssueRefresh encodes the user id and token version with the refresh secret.
func (c *Codec) IssueRefresh(userID string, tokenVersion int) (string, error) {
	claims := &RefreshClaims{
		UserID:           userID,
		TokenVersion:     tokenVersion,
		RegisteredClaims: c.registered(userID, c.config.RefreshTTL),
	}
	return c.sign(claims, c.config.RefreshSecret)
}

// IssueReset encodes a password-reset grant with the access secret.
func (c *Codec) IssueReset(userID, email string) (string, error) {
	claims := &ResetClaims{
		UserID:           userID,
		Email:            email,
		Purpose:          PurposeResetPassword,
		RegisteredClaims: c.registered(userID, c.config.ResetTTL),
	}
	return c.sign(claims, c.config.AccessSecret)
}

// VerifyAccess validates an access token. Tokens carrying a purpose or
// lacking the user type are rejected as ErrTokenInvalid.
func (c *Codec) VerifyAccess(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := c.parse(tokenString, claims, c.config.AccessSecret); err != nil {
		return nil, err
	}
	if claims.Purpose != "" {
		return nil, invalid(errWrongKind)
	}
	if claims.UserID == "" || claims.Type == "" {
		return nil, invalid(errMissingClaim)
	}
	return claims, nil
}

// VerifyRefresh validates a refresh token. The caller compares TokenVersion.
func (c *Codec) VerifyRefresh(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := c.parse(tokenString, claims, c.config.RefreshSecret); err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		return nil, invalid(errMissingClaim)
	}
	return claims, nil
}

// VerifyReset validates a reset token's signature and expiry. The caller
// checks Purpose.
func (c *Codec) VerifyReset(tokenString string) (*ResetClaims, error) {
	claims := &ResetClaims{}
	if err := c.parse(tokenString, claims, c.config.AccessSecret); err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		return nil, invalid(errMissingClaim)
	}
	return claims, nil
}
