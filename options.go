package authcore

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/instaflow/authcore/password"
	"github.com/instaflow/authcore/store"
)

// Option is a function that modifies the configuration.
type Option func(*Config)

// WithSecrets sets the access and refresh signing secrets.
// Each must be at least 32 characters long and they must differ.
func WithSecrets(accessSecret, refreshSecret string) Option {
	return func(c *Config) {
		c.AccessSecret = accessSecret
		c.RefreshSecret = refreshSecret
	}
}

// WithAccessTokenTTL sets the access token time-to-live.
func WithAccessTokenTTL(ttl time.Duration) Option {
	return func(c *Config) {
		c.AccessTokenTTL = ttl
	}
}

// WithRefreshTokenTTL sets the refresh token time-to-live.
func WithRefreshTokenTTL(ttl time.Duration) Option {
	return func(c *Config) {
		c.RefreshTokenTTL = ttl
	}
}

// WithResetTokenTTL sets the password-reset token time-to-live.
func WithResetTokenTTL(ttl time.Duration) Option {
	return func(c *Config) {
		c.ResetTokenTTL = ttl
	}
}

// WithClockSkew sets the leeway for token time claims.
func WithClockSkew(d time.Duration) Option {
	return func(c *Config) {
		c.ClockSkew = d
	}
}

// WithIssuer sets the iss claim written to and required on tokens.
func WithIssuer(issuer string) Option {
	return func(c *Config) {
		c.Issuer = issuer
	}
}

// WithPasswordAlgorithm selects the hashing algorithm for new password hashes.
func WithPasswordAlgorithm(alg password.Algorithm) Option {
	return func(c *Config) {
		c.PasswordAlgorithm = alg
	}
}

// WithBcryptCost sets the bcrypt work factor.
func WithBcryptCost(cost int) Option {
	return func(c *Config) {
		c.BcryptCost = cost
	}
}

// WithPasswordHasher replaces the hasher entirely.
func WithPasswordHasher(h password.Hasher) Option {
	return func(c *Config) {
		c.Hasher = h
	}
}

// WithFrontendURL sets the base URL used in reset-password links.
func WithFrontendURL(u string) Option {
	return func(c *Config) {
		c.FrontendURL = u
	}
}

// WithSignUpTypes sets the user types accepted at sign-up.
func WithSignUpTypes(types ...store.UserType) Option {
	return func(c *Config) {
		c.SignUpTypes = types
	}
}

// WithSessionRevocationOnPasswordChange revokes refresh tokens whenever a
// password is changed or reset.
func WithSessionRevocationOnPasswordChange(enabled bool) Option {
	return func(c *Config) {
		c.RevokeSessionsOnPasswordChange = enabled
	}
}

// WithNotifier sets the reset-link notifier.
func WithNotifier(n Notifier) Option {
	return func(c *Config) {
		c.Notifier = n
	}
}

// WithEventRecorder sets the flow outcome recorder.
func WithEventRecorder(r EventRecorder) Option {
	return func(c *Config) {
		c.Events = r
	}
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Config) {
		c.Clock = now
	}
}
