package ratelimit

import (
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/instaflow/authcore"
	"github.com/instaflow/authcore/internal/httpx"
)

// Config holds rate limit middleware configuration.
type Config struct {
	// Message is the body message of a 429. Defaults to the auth policy message.
	Message string

	// OnLimited is called for every rejected request, e.g. for metrics.
	OnLimited func(r *http.Request)

	// Logger receives limiter failures. Defaults to discarding.
	Logger logrus.FieldLogger

	now func() time.Time
}

// PolicyConfig returns the middleware configuration for p.
func PolicyConfig(p Policy) *Config {
	return &Config{Message: p.Message}
}

// Middleware creates an HTTP middleware that applies rate limiting keyed on
// the request's RemoteAddr. Limiter failures let the request through.
func Middleware(limiter Limiter, cfg *Config) func(http.Handler) http.Handler {
	if cfg == nil {
		cfg = PolicyConfig(AuthPolicy)
	}

	message := cfg.Message
	if message == "" {
		message = AuthPolicy.Message
	}
	logger := cfg.Logger
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	now := cfg.now
	if now == nil {
		now = time.Now
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := GetClientIP(r)
			res, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.WithError(err).WithField("key", key).Error("rate limit check failed")
				next.ServeHTTP(w, r)
				return
			}

			resetIn := secondsUntil(now(), res.ResetAt)
			h := w.Header()
			h.Set("RateLimit-Limit", strconv.Itoa(res.Limit))
			h.Set("RateLimit-Remaining", strconv.Itoa(res.Remaining))
			h.Set("RateLimit-Reset", strconv.Itoa(resetIn))

			if !res.Allowed {
				if cfg.OnLimited != nil {
					cfg.OnLimited(r)
				}
				h.Set("Retry-After", strconv.Itoa(resetIn))
				httpx.WriteError(w, authcore.ErrRateLimitExceeded.WithMessage(message))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func secondsUntil(now, t time.Time) int {
	d := t.Sub(now).Seconds()
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d))
}
