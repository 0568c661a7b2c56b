// Package app loads the process configuration and wires the auth server
// together.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/instaflow/authcore"
	"github.com/instaflow/authcore/handler"
	"github.com/instaflow/authcore/internal/metrics"
	"github.com/instaflow/authcore/mail"
	"github.com/instaflow/authcore/password"
	"github.com/instaflow/authcore/ratelimit"
	"github.com/instaflow/authcore/store"
	"github.com/instaflow/authcore/store/memory"
	"github.com/instaflow/authcore/store/postgres"
)

// App is the wired server.
type App struct {
	Config  *Config
	Log     *logrus.Logger
	Metrics *metrics.Metrics
	Store   store.Store
	Service *authcore.Service
	Handler http.Handler

	closers []func(context.Context) error
}

// NewLogger builds the process logger.
func NewLogger(cfg LogConfig) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetLevel(level)
	if cfg.Format == "text" {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
	return l, nil
}

// New wires the store, limiters, mail transport, service and router. On
// failure everything opened so far is closed.
func New(ctx context.Context, cfg *Config, log *logrus.Logger) (_ *App, err error) {
	a := &App{Config: cfg, Log: log, Metrics: metrics.New()}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	a.Store, err = OpenStore(ctx, cfg.DB, log)
	if err != nil {
		return nil, err
	}
	a.onClose(func(context.Context) error { return a.Store.Close() })

	authLimiter, forgotLimiter, err := a.openLimiters(ctx)
	if err != nil {
		return nil, err
	}

	sender, err := a.openMail()
	if err != nil {
		return nil, err
	}

	opts := []authcore.Option{
		authcore.WithSecrets(cfg.Auth.AccessSecret, cfg.Auth.RefreshSecret),
		authcore.WithFrontendURL(cfg.Auth.FrontendURL),
		authcore.WithPasswordAlgorithm(password.Algorithm(strings.ToLower(cfg.Auth.PasswordHasher))),
		authcore.WithSessionRevocationOnPasswordChange(cfg.Auth.RevokeSessionsOnPasswordChange),
		authcore.WithNotifier(mail.NewResetNotifier(sender)),
		authcore.WithEventRecorder(a.Metrics),
		authcore.WithLogger(log),
	}
	if cfg.Auth.AccessTokenTTL > 0 {
		opts = append(opts, authcore.WithAccessTokenTTL(cfg.Auth.AccessTokenTTL))
	}
	if cfg.Auth.RefreshTokenTTL > 0 {
		opts = append(opts, authcore.WithRefreshTokenTTL(cfg.Auth.RefreshTokenTTL))
	}
	if cfg.Auth.ResetTokenTTL > 0 {
		opts = append(opts, authcore.WithResetTokenTTL(cfg.Auth.ResetTokenTTL))
	}
	a.Service, err = authcore.New(a.Store, opts...)
	if err != nil {
		return nil, err
	}

	proxies, err := ratelimit.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		return nil, err
	}
	hcfg := handler.Config{
		Service:        a.Service,
		Permissions:    a.Store,
		AuthLimiter:    authLimiter,
		ForgotLimiter:  forgotLimiter,
		TrustedProxies: proxies,
		AllowedOrigins: cfg.Server.CORSOrigins,
		Logger:         log,
	}
	if cfg.Server.MetricsEnabled {
		hcfg.Metrics = a.Metrics
	}
	a.Handler, err = handler.New(hcfg)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// OpenStore connects the credential store named by cfg.
func OpenStore(ctx context.Context, cfg DBConfig, log logrus.FieldLogger) (store.Store, error) {
	if cfg.URL == "" {
		log.Warn("DATABASE_URL not set, using in-memory credential store")
		return memory.New(), nil
	}

	s, err := postgres.New(&postgres.Config{DSN: cfg.URL, MaxOpenConns: cfg.MaxOpenConns})
	if err != nil {
		return nil, err
	}
	if err := s.Ping(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	if cfg.AutoMigrate {
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
	}
	log.Info("connected to postgres credential store")
	return s, nil
}

func (a *App) openLimiters(ctx context.Context) (auth, forgot ratelimit.Limiter, err error) {
	if a.Config.Redis.URL == "" {
		auth = ratelimit.NewMemoryPolicyLimiter(ratelimit.AuthPolicy)
		forgot = ratelimit.NewMemoryPolicyLimiter(ratelimit.ForgotPasswordPolicy)
		a.onClose(func(context.Context) error { return errors.Join(auth.Close(), forgot.Close()) })
		return auth, forgot, nil
	}

	opts, err := redis.ParseURL(a.Config.Redis.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("redis: parse url: %w", err)
	}
	client := redis.NewClient(opts)
	a.onClose(func(context.Context) error { return client.Close() })
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, nil, fmt.Errorf("redis: ping: %w", err)
	}
	a.Log.Info("rate limits shared through redis")
	return ratelimit.NewRedisPolicyLimiter(client, ratelimit.AuthPolicy),
		ratelimit.NewRedisPolicyLimiter(client, ratelimit.ForgotPasswordPolicy), nil
}

func (a *App) openMail() (mail.Sender, error) {
	cfg := a.Config.Mail
	switch {
	case cfg.AMQPURL != "":
		q, err := mail.DialQueue(cfg.AMQPURL, cfg.Queue)
		if err != nil {
			return nil, err
		}
		a.onClose(func(context.Context) error { return q.Close() })
		a.Log.Info("reset emails published to rabbitmq")
		return a.dispatch(q), nil

	case cfg.SMTPHost != "":
		smtpSender, err := NewSMTPSender(cfg)
		if err != nil {
			return nil, err
		}
		return a.dispatch(smtpSender), nil

	default:
		a.Log.Warn("no mail transport configured, reset emails are only logged")
		return &mail.LogSender{Logger: a.Log}, nil
	}
}

// dispatch moves delivery through next onto background workers so the
// forgot-password request never waits on the broker or the SMTP server.
func (a *App) dispatch(next mail.Sender) *mail.Dispatcher {
	d := mail.NewDispatcher(next, mail.DispatcherConfig{
		Workers:       a.Config.Mail.Workers,
		RatePerSecond: a.Config.Mail.RatePerSecond,
		Logger:        a.Log,
		OnFailure: func(*mail.Message, error) {
			a.Metrics.MailFailure()
		},
	})
	a.onClose(d.Close)
	return d
}

// NewSMTPSender builds the SMTP sender from cfg.
func NewSMTPSender(cfg MailConfig) (*mail.SMTPSender, error) {
	return mail.NewSMTPSender(mail.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.Username,
		Password: cfg.Password,
		From:     cfg.From,
	})
}

func (a *App) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
