// Package authcore implements authentication and the session lifecycle for
// the merchant dashboard: sign-up, login, token refresh with version-based
// revocation, logout, and the forgot/reset/change password flows.
//
// Basic usage:
//
//	svc, err := authcore.New(memory.New(),
//	    authcore.WithSecrets(accessSecret, refreshSecret),
//	    authcore.WithFrontendURL("https://dashboard.example.com"),
//	)
//
// Access tokens are stateless and valid until expiry. Refresh tokens embed
// the user's token version and die as soon as it changes; Logout is the
// revocation primitive.
package authcore

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/instaflow/authcore/password"
	"github.com/instaflow/authcore/store"
	"github.com/instaflow/authcore/token"
)

// Notifier delivers password-reset links. Implementations may deliver
// asynchronously; a returned error means the message was not accepted.
type Notifier interface {
	NotifyPasswordReset(ctx context.Context, email, resetLink string) error
}

// EventRecorder observes flow outcomes. outcome is "success" or an error code.
type EventRecorder interface {
	AuthEvent(flow, outcome string)
}

// Flow names passed to EventRecorder.
const (
	FlowSignUp         = "signup"
	FlowLogin          = "login"
	FlowRefresh        = "refresh"
	FlowForgotPassword = "forgot_password"
	FlowResetPassword  = "reset_password"
	FlowChangePassword = "change_password"
	FlowLogout         = "logout"
	FlowResetEmail     = "reset_email"

	OutcomeSuccess = "success"
)

// dummyPassword is hashed once and verified against when a login names an
// unknown email, so both failure paths cost one hash verification.
const dummyPassword = "timing-parity-Password1"

// Service orchestrates the auth flows over a credential store.
type Service struct {
	config   *Config
	store    store.Store
	codec    *token.Codec
	hasher   password.Hasher
	notifier Notifier
	events   EventRecorder
	log      logrus.FieldLogger
	now      func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// New creates a Service with the given store and options. The configuration
// is validated eagerly so a misconfigured process fails at startup.
func New(s store.Store, opts ...Option) (*Service, error) {
	cfg := NewConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrStoreRequired
	}

	hasher := cfg.Hasher
	if hasher == nil {
		var err error
		hasher, err = password.New(cfg.PasswordAlgorithm, cfg.BcryptCost)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfigInvalid, err)
		}
	}

	codec, err := token.NewCodec(&token.Config{
		AccessSecret:  cfg.AccessSecret,
		RefreshSecret: cfg.RefreshSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
		ResetTTL:      cfg.ResetTokenTTL,
		ClockSkew:     cfg.ClockSkew,
		Issuer:        cfg.Issuer,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigInvalid, err)
	}

	svc := &Service{
		config:   cfg,
		store:    s,
		codec:    codec,
		hasher:   hasher,
		notifier: cfg.Notifier,
		events:   cfg.Events,
		log:      cfg.Logger,
		now:      cfg.Clock,
	}
	if svc.notifier == nil {
		svc.notifier = nopNotifier{}
	}
	if svc.events == nil {
		svc.events = nopEvents{}
	}
	if svc.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		svc.log = l
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	codec.SetClock(svc.now)

	return svc, nil
}

// Config returns a copy of the configuration.
func (s *Service) Config() Config {
	return *s.config
}

// Store returns the credential store.
func (s *Service) Store() store.Store {
	return s.store
}

// Codec returns the token codec.
func (s *Service) Codec() *token.Codec {
	return s.codec
}

// Ping checks the credential store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Close releases the credential store.
func (s *Service) Close() error {
	return s.store.Close()
}

type nopNotifier struct{}

func (nopNotifier) NotifyPasswordReset(context.Context, string, string) error { return nil }

type nopEvents struct{}

func (nopEvents) AuthEvent(string, string) {}
