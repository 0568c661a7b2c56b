package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/instaflow/authcore/password"
	"github.com/instaflow/authcore/ratelimit"
)

// Config holds the process configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Auth   AuthConfig   `yaml:"auth"`
	DB     DBConfig     `yaml:"database"`
	Redis  RedisConfig  `yaml:"redis"`
	Mail   MailConfig   `yaml:"mail"`
	Log    LogConfig    `yaml:"log"`
	Seed   SeedConfig   `yaml:"seed"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	MetricsEnabled  bool          `yaml:"metrics_enabled"`

	// TrustedProxies lists the reverse proxies (IPs or CIDRs) whose
	// X-Forwarded-For header is believed. Empty keys clients by socket.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// AuthConfig holds token and password settings.
type AuthConfig struct {
	AccessSecret                   string        `yaml:"access_secret"`
	RefreshSecret                  string        `yaml:"refresh_secret"`
	AccessTokenTTL                 time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL                time.Duration `yaml:"refresh_token_ttl"`
	ResetTokenTTL                  time.Duration `yaml:"reset_token_ttl"`
	FrontendURL                    string        `yaml:"frontend_url"`
	PasswordHasher                 string        `yaml:"password_hasher"`
	RevokeSessionsOnPasswordChange bool          `yaml:"revoke_sessions_on_password_change"`
}

// DBConfig selects the credential store. An empty URL uses process memory.
type DBConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	AutoMigrate  bool   `yaml:"auto_migrate"`
}

// RedisConfig selects the limiter backend. An empty URL keeps counters in
// process memory.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// MailConfig selects the mail transport: the RabbitMQ queue when AMQPURL is
// set, SMTP when SMTPHost is set, otherwise the log.
type MailConfig struct {
	AMQPURL       string  `yaml:"amqp_url"`
	Queue         string  `yaml:"queue"`
	SMTPHost      string  `yaml:"smtp_host"`
	SMTPPort      int     `yaml:"smtp_port"`
	Username      string  `yaml:"username"`
	Password      string  `yaml:"password"`
	From          string  `yaml:"from"`
	Workers       int     `yaml:"workers"`
	RatePerSecond float64 `yaml:"rate_per_second"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SeedConfig holds the default administrator and an optional fixture file.
type SeedConfig struct {
	File          string `yaml:"file"`
	AdminEmail    string `yaml:"admin_email"`
	AdminPassword string `yaml:"admin_password"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "5000",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MetricsEnabled:  true,
		},
		Auth: AuthConfig{
			PasswordHasher: string(password.AlgorithmBcrypt),
		},
		DB: DBConfig{
			MaxOpenConns: 10,
			AutoMigrate:  true,
		},
		Mail: MailConfig{
			SMTPPort: 587,
			Workers:  2,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LookupFunc reads one environment variable.
type LookupFunc func(key string) (string, bool)

// Load reads the optional YAML file at path, applies environment overrides
// and validates the result.
func Load(path string) (*Config, error) {
	return LoadWith(path, os.LookupEnv)
}

// LoadWith is Load with an explicit environment.
func LoadWith(path string, lookup LookupFunc) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}

	str("PORT", &c.Server.Port)
	if v, ok := lookup("CORS_ORIGINS"); ok && v != "" {
		c.Server.CORSOrigins = splitList(v)
	}
	if v, ok := lookup("TRUSTED_PROXIES"); ok && v != "" {
		c.Server.TrustedProxies = splitList(v)
	}
	boolean("METRICS_ENABLED", &c.Server.MetricsEnabled)

	str("ACCESS_TOKEN_SECRET", &c.Auth.AccessSecret)
	str("REFRESH_TOKEN_SECRET", &c.Auth.RefreshSecret)
	str("FRONTEND_URL", &c.Auth.FrontendURL)
	str("PASSWORD_HASHER", &c.Auth.PasswordHasher)
	boolean("REVOKE_SESSIONS_ON_PASSWORD_CHANGE", &c.Auth.RevokeSessionsOnPasswordChange)

	str("DATABASE_URL", &c.DB.URL)
	boolean("DATABASE_AUTO_MIGRATE", &c.DB.AutoMigrate)
	str("REDIS_URL", &c.Redis.URL)

	str("AMQP_URL", &c.Mail.AMQPURL)
	str("MAIL_QUEUE", &c.Mail.Queue)
	str("SMTP_HOST", &c.Mail.SMTPHost)
	integer("SMTP_PORT", &c.Mail.SMTPPort)
	str("EMAIL_USER", &c.Mail.Username)
	str("EMAIL_PASS", &c.Mail.Password)
	str("EMAIL_FROM", &c.Mail.From)

	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	str("SEED_FILE", &c.Seed.File)
	str("SEED_ADMIN_EMAIL", &c.Seed.AdminEmail)
	str("SEED_ADMIN_PASSWORD", &c.Seed.AdminPassword)

	return errors.Join(errs...)
}

// Validate checks what the process needs before wiring anything. Secret
// strength and URL shape are checked again by authcore.Config.
func (c *Config) Validate() error {
	if c.Auth.AccessSecret == "" {
		return errors.New("ACCESS_TOKEN_SECRET is required")
	}
	if c.Auth.RefreshSecret == "" {
		return errors.New("REFRESH_TOKEN_SECRET is required")
	}
	if c.Auth.FrontendURL == "" {
		return errors.New("FRONTEND_URL is required")
	}
	if port, err := strconv.Atoi(c.Server.Port); err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("invalid port %q", c.Server.Port)
	}
	if _, err := ratelimit.ParseTrustedProxies(c.Server.TrustedProxies); err != nil {
		return err
	}
	switch password.Algorithm(strings.ToLower(c.Auth.PasswordHasher)) {
	case password.AlgorithmBcrypt, password.AlgorithmArgon2:
	default:
		return fmt.Errorf("unknown password hasher %q", c.Auth.PasswordHasher)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("log format must be json or text, got %q", c.Log.Format)
	}
	if c.Mail.SMTPHost != "" && c.Mail.From == "" && c.Mail.Username == "" {
		return errors.New("EMAIL_FROM or EMAIL_USER is required with SMTP_HOST")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	return nil
}

// Addr returns the listen address.
func (c *ServerConfig) Addr() string {
	return ":" + c.Port
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
