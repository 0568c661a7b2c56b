package app

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/instaflow/authcore/password"
	"github.com/instaflow/authcore/seed"
	"github.com/instaflow/authcore/store"
)

// ErrNothingToSeed is returned when neither a fixture file nor an admin
// account is configured.
var ErrNothingToSeed = errors.New("no seed fixture or admin account configured")

// Fixture builds the seed fixture from the configured file and admin
// environment. The admin environment wins over the file's admin.
func (c *SeedConfig) Fixture() (*seed.Fixture, error) {
	f := &seed.Fixture{Version: 1}
	if c.File != "" {
		var err error
		if f, err = seed.LoadFromFile(c.File); err != nil {
			return nil, err
		}
	}
	if c.AdminEmail != "" {
		f.Admin = &seed.Account{Email: c.AdminEmail, Password: c.AdminPassword, Name: seed.DefaultAdminName}
	}
	if f.Admin == nil && len(f.Owners) == 0 && len(f.Staff) == 0 {
		return nil, ErrNothingToSeed
	}
	return f, nil
}

// Seed applies the configured fixture to s with the configured hasher.
func Seed(ctx context.Context, cfg *Config, s store.Store, log logrus.FieldLogger) (*seed.Report, error) {
	f, err := cfg.Seed.Fixture()
	if err != nil {
		return nil, err
	}
	hasher, err := password.New(password.Algorithm(strings.ToLower(cfg.Auth.PasswordHasher)), password.DefaultBcryptCost)
	if err != nil {
		return nil, err
	}
	report, err := seed.New(s, hasher, log).Apply(ctx, f)
	if err != nil {
		return report, err
	}
	log.WithFields(logrus.Fields{
		"created":  len(report.Created),
		"existing": len(report.Existing),
	}).Info("seed applied")
	return report, nil
}
