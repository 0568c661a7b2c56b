package authcore

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/instaflow/authcore/password"
	"github.com/instaflow/authcore/store"
	"github.com/instaflow/authcore/token"
)

// Default configuration values.
const (
	DefaultAccessTokenTTL  = token.DefaultAccessTTL
	DefaultRefreshTokenTTL = token.DefaultRefreshTTL
	DefaultResetTokenTTL   = token.DefaultResetTTL
	DefaultBcryptCost      = password.DefaultBcryptCost

	// MinSecretLength is the minimum required length for each signing secret.
	MinSecretLength = 32
)

// Config holds all configuration for the auth service.
type Config struct {
	// AccessSecret signs access and password-reset tokens.
	AccessSecret string

	// RefreshSecret signs refresh tokens. Must differ from AccessSecret.
	RefreshSecret string

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	ResetTokenTTL   time.Duration

	// ClockSkew is the leeway applied to token time claims.
	ClockSkew time.Duration

	// Issuer is stamped into and required on every token when set.
	Issuer string

	// PasswordAlgorithm selects the hasher for new hashes (bcrypt or argon2id).
	PasswordAlgorithm password.Algorithm

	// BcryptCost is the bcrypt work factor.
	BcryptCost int

	// FrontendURL is the base of the reset-password link sent by email.
	FrontendURL string

	// SignUpTypes are the user types a caller may pick at sign-up.
	// STAFF is never accepted because it requires a parent.
	SignUpTypes []store.UserType

	// RevokeSessionsOnPasswordChange bumps the token version after a
	// password change or reset, revoking every outstanding refresh token.
	RevokeSessionsOnPasswordChange bool

	// Hasher overrides the hasher built from PasswordAlgorithm and BcryptCost.
	Hasher password.Hasher

	// Notifier delivers password-reset links. Defaults to a no-op.
	Notifier Notifier

	// Events receives flow outcomes, e.g. for metrics. Defaults to a no-op.
	Events EventRecorder

	// Logger defaults to a logger that discards everything.
	Logger logrus.FieldLogger

	// Clock defaults to time.Now.
	Clock func() time.Time
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		AccessTokenTTL:    DefaultAccessTokenTTL,
		RefreshTokenTTL:   DefaultRefreshTokenTTL,
		ResetTokenTTL:     DefaultResetTokenTTL,
		PasswordAlgorithm: password.AlgorithmBcrypt,
		BcryptCost:        DefaultBcryptCost,
		SignUpTypes:       []store.UserType{store.UserTypeOwner},
	}
}

// Validate checks if the configuration is valid. Missing secrets are fatal.
func (c *Config) Validate() error {
	if c.AccessSecret == "" {
		return fmt.Errorf("%w: access token secret is required", ErrConfigInvalid)
	}
	if c.RefreshSecret == "" {
		return fmt.Errorf("%w: refresh token secret is required", ErrConfigInvalid)
	}
	if len(c.AccessSecret) < MinSecretLength || len(c.RefreshSecret) < MinSecretLength {
		return fmt.Errorf("%w: secrets must be at least %d characters", ErrConfigInvalid, MinSecretLength)
	}
	if c.AccessSecret == c.RefreshSecret {
		return fmt.Errorf("%w: access and refresh secrets must differ", ErrConfigInvalid)
	}

	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 || c.ResetTokenTTL <= 0 {
		return fmt.Errorf("%w: token TTLs must be positive", ErrConfigInvalid)
	}
	if c.RefreshTokenTTL <= c.AccessTokenTTL {
		return fmt.Errorf("%w: refresh token TTL must be greater than access token TTL", ErrConfigInvalid)
	}
	if c.ClockSkew < 0 {
		return fmt.Errorf("%w: clock skew cannot be negative", ErrConfigInvalid)
	}

	if c.Hasher == nil && (c.BcryptCost < 4 || c.BcryptCost > 31) {
		return fmt.Errorf("%w: bcrypt cost must be between 4 and 31", ErrConfigInvalid)
	}

	u, err := url.Parse(c.FrontendURL)
	if c.FrontendURL == "" || err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: frontend URL must be an absolute URL", ErrConfigInvalid)
	}

	for _, t := range c.SignUpTypes {
		if !t.Valid() {
			return fmt.Errorf("%w: unknown sign-up type %q", ErrConfigInvalid, t)
		}
		if t == store.UserTypeStaff {
			return fmt.Errorf("%w: STAFF cannot be a sign-up type", ErrConfigInvalid)
		}
	}

	return nil
}

// resetLink builds the link sent in the reset email.
func (c *Config) resetLink(resetToken string) string {
	return strings.TrimRight(c.FrontendURL, "/") + "/reset-password?token=" + url.QueryEscape(resetToken)
}
