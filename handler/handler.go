// Package handler exposes the auth service over HTTP/JSON on a chi router.
package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/instaflow/authcore"
	"github.com/instaflow/authcore/internal/httpx"
	"github.com/instaflow/authcore/internal/metrics"
	"github.com/instaflow/authcore/middleware"
	"github.com/instaflow/authcore/ratelimit"
	"github.com/instaflow/authcore/store"
	"github.com/instaflow/authcore/token"
)

// AuthService is the flow surface served by the router. *authcore.Service
// implements it.
type AuthService interface {
	SignUp(ctx context.Context, req *authcore.SignUpRequest) (*authcore.AuthResult, error)
	Login(ctx context.Context, req *authcore.LoginRequest) (*authcore.AuthResult, error)
	RefreshToken(ctx context.Context, req *authcore.RefreshTokenRequest) (*authcore.RefreshResult, error)
	ForgotPassword(ctx context.Context, req *authcore.ForgotPasswordRequest) (*authcore.MessageResult, error)
	ResetPassword(ctx context.Context, req *authcore.ResetPasswordRequest) (*authcore.MessageResult, error)
	ChangePassword(ctx context.Context, userID string, req *authcore.ChangePasswordRequest) (*authcore.MessageResult, error)
	Logout(ctx context.Context, userID string) (*authcore.MessageResult, error)
	GetMe(ctx context.Context, userID string) (*authcore.PublicUser, error)
	VerifyAccessToken(accessToken string) (*token.AccessClaims, error)
}

// Errors returned by New for an incomplete Config.
var (
	ErrServiceRequired = errors.New("handler: auth service is required")
	ErrLimiterRequired = errors.New("handler: auth and forgot-password limiters are required")
)

// Config wires the router.
type Config struct {
	Service AuthService

	// Permissions backs the page permission gate. Usually the credential store.
	Permissions middleware.PermissionLookup

	// AuthLimiter guards sign-up and login; ForgotLimiter guards
	// forgot-password. Both are required; the caller owns and closes them.
	AuthLimiter   ratelimit.Limiter
	ForgotLimiter ratelimit.Limiter

	// TrustedProxies are the peers whose forwarding headers name the client.
	// Empty keys every request on its socket address.
	TrustedProxies ratelimit.TrustedProxies

	// AllowedOrigins is the CORS allowlist. Empty allows every origin.
	AllowedOrigins []string

	// Metrics instruments requests and serves /metrics when set.
	Metrics *metrics.Metrics

	Logger logrus.FieldLogger
}

// Handler serves the auth endpoints.
type Handler struct {
	svc   AuthService
	log   logrus.FieldLogger
	pages map[store.Page]http.Handler
}

// New builds the router.
func New(cfg Config) (http.Handler, error) {
	if cfg.Service == nil {
		return nil, ErrServiceRequired
	}
	log := cfg.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	if cfg.AuthLimiter == nil || cfg.ForgotLimiter == nil {
		return nil, ErrLimiterRequired
	}

	h := &Handler{svc: cfg.Service, log: log}
	gates := &middleware.Config{ErrorHandler: h.gateError}

	if cfg.Permissions != nil {
		h.pages = make(map[store.Page]http.Handler, len(store.Pages))
		for _, p := range store.Pages {
			h.pages[p] = middleware.CanRead(cfg.Permissions, p, gates)(http.HandlerFunc(h.page))
		}
	}

	authLimit := ratelimit.Middleware(cfg.AuthLimiter, h.limitConfig(ratelimit.AuthPolicy, cfg.Metrics))
	forgotLimit := ratelimit.Middleware(cfg.ForgotLimiter, h.limitConfig(ratelimit.ForgotPasswordPolicy, cfg.Metrics))
	authenticate := middleware.Authenticate(cfg.Service, gates)

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(realIP(cfg.TrustedProxies))
	r.Use(accessLog(log))
	r.Use(recoverer(log))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Instrument)
	}
	r.Use(cors(cfg.AllowedOrigins))

	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)

	r.Get("/", health)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	r.Route("/auth", func(r chi.Router) {
		r.With(authLimit).Post("/signup", h.signUp)
		r.With(authLimit).Post("/login", h.login)
		r.Post("/refresh", h.refresh)
		r.With(forgotLimit).Post("/forgot-password", h.forgotPassword)
		r.Post("/reset-password", h.resetPassword)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/change-password", h.changePassword)
			r.Get("/me", h.me)
			r.Post("/logout", h.logout)
		})
	})

	r.Route("/dashboard", func(r chi.Router) {
		r.Use(authenticate, middleware.AttachOwnerID(gates))
		r.With(middleware.RequireAnyUser(gates)).Get("/", h.dashboard)
		r.With(middleware.RequireSuperAdmin(gates)).Get("/admin", h.dashboard)
		r.With(middleware.RequireMerchant(gates)).Get("/merchant", h.dashboard)
		if h.pages != nil {
			r.Get("/pages/{page}", h.pageGate)
		}
	})

	return r, nil
}

func (h *Handler) limitConfig(p ratelimit.Policy, m *metrics.Metrics) *ratelimit.Config {
	cfg := ratelimit.PolicyConfig(p)
	cfg.Logger = h.log
	cfg.OnLimited = func(r *http.Request) {
		h.log.WithFields(logrus.Fields{
			"policy":     p.Name,
			"path":       r.URL.Path,
			"request_id": RequestID(r.Context()),
		}).Warn("rate limit exceeded")
		if m != nil {
			m.AuthEvent(p.Name, authcore.CodeRateLimitExceeded)
		}
	}
	return cfg
}

// fail writes err as an envelope. Server-side failures are logged with the
// request id since their cause never reaches the client.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, _ := authcore.ErrorEnvelope(err)
	if status >= http.StatusInternalServerError {
		h.log.WithError(err).WithFields(logrus.Fields{
			"request_id": RequestID(r.Context()),
			"path":       r.URL.Path,
		}).Error("request failed")
	}
	httpx.WriteError(w, err)
}

func (h *Handler) gateError(w http.ResponseWriter, r *http.Request, err error) {
	h.fail(w, r, err)
}

func health(w http.ResponseWriter, _ *http.Request) {
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "Server is up"})
}

func notFound(w http.ResponseWriter, r *http.Request) {
	httpx.WriteError(w, authcore.ErrNotFound.WithMessage("Route "+r.Method+" "+r.URL.Path+" not found"))
}
