// Package middleware provides the HTTP request gates for authcore: bearer
// authentication, role gating, owner derivation and page permissions.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/instaflow/authcore"
	"github.com/instaflow/authcore/internal/httpx"
	"github.com/instaflow/authcore/store"
	"github.com/instaflow/authcore/token"
)

// contextKey is a type for context keys to avoid collisions.
type contextKey string

const (
	// ClaimsKey is the context key for the verified access claims.
	ClaimsKey contextKey = "authcore_claims"
	// OwnerIDKey is the context key for the derived merchant owner.
	OwnerIDKey contextKey = "authcore_owner_id"
)

// Gate messages.
const (
	MsgNoAuthHeader       = "No authorization header provided"
	MsgBadAuthHeader      = "Invalid authorization header format"
	MsgAuthRequired       = "Authentication required"
	MsgRoleDenied         = "You do not have permission to access this resource"
	MsgAccessDenied       = "Access denied"
	MsgPermissionCheckErr = "Failed to check permissions"
)

// ErrorHandler writes a gate failure.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Config holds middleware configuration.
type Config struct {
	// ErrorHandler writes failures. Defaults to the JSON envelope.
	ErrorHandler ErrorHandler
}

// DefaultConfig returns a default middleware configuration.
func DefaultConfig() *Config {
	return &Config{ErrorHandler: DefaultErrorHandler}
}

func (c *Config) orDefault() *Config {
	if c == nil {
		return DefaultConfig()
	}
	if c.ErrorHandler == nil {
		cp := *c
		cp.ErrorHandler = DefaultErrorHandler
		return &cp
	}
	return c
}

// DefaultErrorHandler writes the error as a response envelope.
func DefaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	httpx.WriteError(w, err)
}

// ExtractBearer returns the token from an "Authorization: Bearer <token>"
// header. ok is false when the header is present but malformed.
func ExtractBearer(r *http.Request) (tok string, present, ok bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false, false
	}
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", true, false
	}
	tok = strings.TrimSpace(header[len(prefix):])
	return tok, true, tok != ""
}

// SetClaims stores the verified identity in the context.
func SetClaims(ctx context.Context, claims *token.AccessClaims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}

// GetClaims retrieves the verified identity, or nil.
func GetClaims(ctx context.Context) *token.AccessClaims {
	claims, _ := ctx.Value(ClaimsKey).(*token.AccessClaims)
	return claims
}

// GetUserID retrieves the authenticated user id, or "".
func GetUserID(ctx context.Context) string {
	if claims := GetClaims(ctx); claims != nil {
		return claims.UserID
	}
	return ""
}

// GetUserType retrieves the authenticated user type, or "".
func GetUserType(ctx context.Context) store.UserType {
	if claims := GetClaims(ctx); claims != nil {
		return claims.Type
	}
	return ""
}

// SetOwnerID stores the derived owner id. nil means the caller has no owner.
func SetOwnerID(ctx context.Context, ownerID *string) context.Context {
	return context.WithValue(ctx, OwnerIDKey, ownerID)
}

// GetOwnerID retrieves the owner id set by AttachOwnerID. ok is false when
// AttachOwnerID did not run; a nil id with ok true is a SUPER_ADMIN.
func GetOwnerID(ctx context.Context) (ownerID *string, ok bool) {
	ownerID, ok = ctx.Value(OwnerIDKey).(*string)
	return ownerID, ok
}

func unauthorized(msg string) error {
	return authcore.ErrUnauthorized.WithMessage(msg)
}

func forbidden(msg string) error {
	return authcore.ErrForbidden.WithMessage(msg)
}
