// Command seed creates the default administrator and any fixture accounts.
// Accounts that already exist are left untouched.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/instaflow/authcore/internal/app"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	fixture := flag.String("fixture", "", "Path to a YAML or JSON seed fixture (overrides SEED_FILE)")
	timeout := flag.Duration("timeout", time.Minute, "Overall timeout")
	flag.Parse()

	if err := run(*configPath, *fixture, *timeout); err != nil {
		fmt.Fprintln(os.Stderr, "seed:", err)
		os.Exit(1)
	}
}

func run(configPath, fixture string, timeout time.Duration) error {
	cfg, err := app.Load(configPath)
	if err != nil {
		return err
	}
	if fixture != "" {
		cfg.Seed.File = fixture
	}
	log, err := app.NewLogger(cfg.Log)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s, err := app.OpenStore(ctx, cfg.DB, log)
	if err != nil {
		return err
	}
	defer s.Close()

	report, err := app.Seed(ctx, cfg, s, log)
	if err != nil {
		return err
	}
	for _, email := range report.Created {
		fmt.Println("created", email)
	}
	for _, email := range report.Existing {
		fmt.Println("exists ", email)
	}
	return nil
}
