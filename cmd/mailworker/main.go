// Command mailworker consumes queued reset emails from RabbitMQ and
// delivers them over SMTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/instaflow/authcore/internal/app"
	"github.com/instaflow/authcore/internal/metrics"
	"github.com/instaflow/authcore/mail"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	consumers := flag.Int("consumers", 1, "Number of concurrent queue consumers")
	metricsAddr := flag.String("metrics-addr", ":9091", "Listen address for /metrics, empty to disable")
	flag.Parse()

	if err := run(*configPath, *consumers, *metricsAddr); err != nil {
		fmt.Fprintln(os.Stderr, "mailworker:", err)
		os.Exit(1)
	}
}

func run(configPath string, consumers int, metricsAddr string) error {
	cfg, err := app.Load(configPath)
	if err != nil {
		return err
	}
	log, err := app.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	if cfg.Mail.AMQPURL == "" {
		return fmt.Errorf("AMQP_URL is required")
	}
	if cfg.Mail.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST is required")
	}

	smtpSender, err := app.NewSMTPSender(cfg.Mail)
	if err != nil {
		return err
	}
	m := metrics.New()
	sender := mail.SenderFunc(func(ctx context.Context, msg *mail.Message) error {
		err := smtpSender.Send(ctx, msg)
		if err != nil {
			m.MailFailure()
		}
		return err
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < max(consumers, 1); i++ {
		q, err := mail.DialQueue(cfg.Mail.AMQPURL, cfg.Mail.Queue)
		if err != nil {
			return err
		}
		defer q.Close()

		worker := log.WithField("consumer", i)
		g.Go(func() error {
			worker.Info("consuming email jobs")
			return q.Consume(gctx, sender, worker)
		})
	}

	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		srv := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("mail worker stopped")
	return nil
}
