package authcore

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/instaflow/authcore/store/memory"
)

const (
	testAccessSecret  = "access-secret-that-is-32-chars-long!"
	testRefreshSecret = "refresh-secret-that-is-32-chars-long"
	testFrontendURL   = "https://dashboard.example.com/"
	testPassword      = "Password123"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// captureNotifier records reset links instead of sending them.
type captureNotifier struct {
	mu    sync.Mutex
	sent  []sentLink
	fails error
}

type sentLink struct {
	email string
	link  string
}

func (n *captureNotifier) NotifyPasswordReset(_ context.Context, email, link string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fails != nil {
		return n.fails
	}
	n.sent = append(n.sent, sentLink{email: email, link: link})
	return nil
}

func (n *captureNotifier) lastToken(t *testing.T) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		t.Fatal("no reset link was sent")
	}
	u, err := url.Parse(n.sent[len(n.sent)-1].link)
	if err != nil {
		t.Fatalf("parse reset link: %v", err)
	}
	return u.Query().Get("token")
}

type recordedEvent struct {
	flow    string
	outcome string
}

type captureEvents struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *captureEvents) AuthEvent(flow, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{flow, outcome})
}

func (r *captureEvents) has(flow, outcome string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.flow == flow && e.outcome == outcome {
			return true
		}
	}
	return false
}

type testEnv struct {
	svc      *Service
	store    *memory.Store
	clock    *fakeClock
	notifier *captureNotifier
	events   *captureEvents
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	env := &testEnv{
		store:    memory.New(),
		clock:    newFakeClock(),
		notifier: &captureNotifier{},
		events:   &captureEvents{},
	}
	base := []Option{
		WithSecrets(testAccessSecret, testRefreshSecret),
		WithFrontendURL(testFrontendURL),
		WithBcryptCost(4),
		WithClock(env.clock.Now),
		WithNotifier(env.notifier),
		WithEventRecorder(env.events),
	}
	svc, err := New(env.store, append(base, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	env.svc = svc
	t.Cleanup(func() { _ = svc.Close() })
	return env
}

func (env *testEnv) signUp(t *testing.T, email string) *AuthResult {
	t.Helper()
	res, err := env.svc.SignUp(context.Background(), &SignUpRequest{
		Email:    email,
		Password: testPassword,
		Name:     "Test User",
	})
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	return res
}

func assertCode(t *testing.T, err error, code string, status int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil", code)
	}
	var ae *AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("expected *AuthError, got %T: %v", err, err)
	}
	if ae.Code != code {
		t.Errorf("code = %s, want %s", ae.Code, code)
	}
	if ae.Status != status {
		t.Errorf("status = %d, want %d", ae.Status, status)
	}
}
