package mail

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	// Workers is the number of delivery goroutines. Defaults to 2.
	Workers int

	// QueueSize bounds pending messages. Defaults to 100.
	QueueSize int

	// SendTimeout bounds one delivery attempt. Defaults to 30s.
	SendTimeout time.Duration

	// RatePerSecond caps deliveries across workers. Zero means unlimited.
	RatePerSecond float64

	// OnFailure is called after a delivery fails, e.g. for metrics.
	OnFailure func(msg *Message, err error)

	Logger logrus.FieldLogger
}

// Dispatcher delivers messages on background workers so request handlers
// never wait on the mail transport. Send only enqueues.
type Dispatcher struct {
	next    Sender
	cfg     DispatcherConfig
	log     logrus.FieldLogger
	limiter *rate.Limiter

	jobs chan *Message
	wg   sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher starts the workers.
func NewDispatcher(next Sender, cfg DispatcherConfig) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 30 * time.Second
	}

	d := &Dispatcher{
		next:    next,
		cfg:     cfg,
		log:     cfg.Logger,
		limiter: rate.NewLimiter(rate.Inf, 0),
		jobs:    make(chan *Message, cfg.QueueSize),
	}
	if d.log == nil {
		d.log = discard()
	}
	if cfg.RatePerSecond > 0 {
		d.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}

	for i := 0; i < cfg.Workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

// Send enqueues msg without blocking. It fails with ErrQueueFull when the
// backlog is full and ErrClosed after Close.
func (d *Dispatcher) Send(_ context.Context, msg *Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}

	select {
	case d.jobs <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting messages and waits for the backlog to drain or ctx
// to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for msg := range d.jobs {
		d.deliver(msg)
	}
}

func (d *Dispatcher) deliver(msg *Message) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.SendTimeout)
	defer cancel()

	err := d.limiter.Wait(ctx)
	if err == nil {
		err = d.next.Send(ctx, msg)
	}
	if err != nil {
		d.log.WithError(err).WithField("to", msg.To).Error("email delivery failed")
		if d.cfg.OnFailure != nil {
			d.cfg.OnFailure(msg, err)
		}
		return
	}
	d.log.WithField("to", msg.To).Debug("email delivered")
}
