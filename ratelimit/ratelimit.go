// Package ratelimit throttles sensitive endpoints with fixed-window counters
// kept in process memory or in Redis.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/instaflow/authcore"
)

// Policy is a named fixed-window limit with its rejection message.
type Policy struct {
	Name    string
	Rate    int
	Window  time.Duration
	Message string
}

// Policies applied to the auth endpoints.
var (
	// AuthPolicy guards login and sign-up.
	AuthPolicy = Policy{Name: "auth", Rate: 10, Window: 15 * time.Minute, Message: authcore.MsgRateLimitAuth}

	// ForgotPasswordPolicy guards forgot-password.
	ForgotPasswordPolicy = Policy{Name: "forgot_password", Rate: 3, Window: time.Hour, Message: authcore.MsgRateLimitForgot}
)

// Result describes the state of a key after one hit.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter defines the interface for rate limiters.
type Limiter interface {
	// Allow counts one hit for key and reports whether it fits the window.
	Allow(ctx context.Context, key string) (*Result, error)

	// Reset resets the rate limit for the given key.
	Reset(ctx context.Context, key string) error

	// Close releases any resources held by the limiter.
	Close() error
}

// entry represents a rate limit entry for a key.
type entry struct {
	count    int
	windowAt time.Time
}

// MemoryLimiter is an in-memory fixed window rate limiter. Counts are local
// to the process.
type MemoryLimiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	rate    int
	window  time.Duration
	now     func() time.Time
	done    chan struct{}
	once    sync.Once
}

// NewMemoryLimiter creates a new in-memory rate limiter.
func NewMemoryLimiter(rate int, window time.Duration) *MemoryLimiter {
	ml := &MemoryLimiter{
		entries: make(map[string]*entry),
		rate:    rate,
		window:  window,
		now:     time.Now,
		done:    make(chan struct{}),
	}

	go ml.cleanup()

	return ml
}

// NewMemoryPolicyLimiter creates an in-memory limiter for p.
func NewMemoryPolicyLimiter(p Policy) *MemoryLimiter {
	return NewMemoryLimiter(p.Rate, p.Window)
}

// SetClock replaces the time source. For tests.
func (m *MemoryLimiter) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Allow counts one hit for key.
func (m *MemoryLimiter) Allow(ctx context.Context, key string) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	e, exists := m.entries[key]
	if !exists || !now.Before(e.windowAt) {
		e = &entry{windowAt: now.Add(m.window)}
		m.entries[key] = e
	}
	e.count++

	return newResult(e.count, m.rate, e.windowAt), nil
}

// Reset resets the rate limit for the given key.
func (m *MemoryLimiter) Reset(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Close stops the cleanup goroutine and releases resources.
func (m *MemoryLimiter) Close() error {
	m.once.Do(func() { close(m.done) })
	return nil
}

// cleanup periodically removes expired entries.
func (m *MemoryLimiter) cleanup() {
	ticker := time.NewTicker(m.window)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.removeExpired()
		}
	}
}

// removeExpired removes all expired entries.
func (m *MemoryLimiter) removeExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, e := range m.entries {
		if !now.Before(e.windowAt) {
			delete(m.entries, key)
		}
	}
}

func newResult(count, rate int, resetAt time.Time) *Result {
	remaining := rate - count
	if remaining < 0 {
		remaining = 0
	}
	return &Result{
		Allowed:   count <= rate,
		Limit:     rate,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}

var _ Limiter = (*MemoryLimiter)(nil)
