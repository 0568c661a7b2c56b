package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/instaflow/authcore"
	"github.com/instaflow/authcore/store"
	"github.com/instaflow/authcore/token"
)

// TokenVerifier validates an access token. *authcore.Service implements it.
type TokenVerifier interface {
	VerifyAccessToken(accessToken string) (*token.AccessClaims, error)
}

// PermissionLookup loads a STAFF grant. store.Store implements it.
type PermissionLookup interface {
	GetPermission(ctx context.Context, userID string, page store.Page) (*store.Permission, error)
}

// Authenticate verifies the bearer access token and stores the identity in
// the request context. Every failure is a 401.
func Authenticate(verifier TokenVerifier, cfg *Config) func(http.Handler) http.Handler {
	cfg = cfg.orDefault()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, present, ok := ExtractBearer(r)
			if !present {
				cfg.ErrorHandler(w, r, unauthorized(MsgNoAuthHeader))
				return
			}
			if !ok {
				cfg.ErrorHandler(w, r, unauthorized(MsgBadAuthHeader))
				return
			}

			claims, err := verifier.VerifyAccessToken(tok)
			if err != nil {
				cfg.ErrorHandler(w, r, verifyError(err))
				return
			}

			next.ServeHTTP(w, r.WithContext(SetClaims(r.Context(), claims)))
		})
	}
}

// verifyError keeps the verifier's code and message but always answers 401.
func verifyError(err error) error {
	var ae *authcore.AuthError
	if errors.As(err, &ae) && ae.Status < http.StatusInternalServerError {
		return ae.WithStatus(http.StatusUnauthorized)
	}
	if errors.Is(err, token.ErrTokenExpired) {
		return authcore.ErrTokenExpired.Wrap(err)
	}
	return authcore.ErrInvalidToken.Wrap(err)
}

// RequireUserType lets through only identities whose type is in allowed.
func RequireUserType(cfg *Config, allowed ...store.UserType) func(http.Handler) http.Handler {
	cfg = cfg.orDefault()
	set := make(map[store.UserType]struct{}, len(allowed))
	for _, t := range allowed {
		set[t] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaims(r.Context())
			if claims == nil {
				cfg.ErrorHandler(w, r, unauthorized(MsgAuthRequired))
				return
			}
			if _, ok := set[claims.Type]; !ok {
				cfg.ErrorHandler(w, r, forbidden(MsgRoleDenied))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSuperAdmin admits platform administrators only.
func RequireSuperAdmin(cfg *Config) func(http.Handler) http.Handler {
	return RequireUserType(cfg, store.UserTypeSuperAdmin)
}

// RequireOwner admits merchant owners only.
func RequireOwner(cfg *Config) func(http.Handler) http.Handler {
	return RequireUserType(cfg, store.UserTypeOwner)
}

// RequireMerchant admits owners and their staff.
func RequireMerchant(cfg *Config) func(http.Handler) http.Handler {
	return RequireUserType(cfg, store.UserTypeOwner, store.UserTypeStaff)
}

// RequireAnyUser admits every known user type.
func RequireAnyUser(cfg *Config) func(http.Handler) http.Handler {
	return RequireUserType(cfg, store.UserTypeSuperAdmin, store.UserTypeOwner, store.UserTypeStaff)
}

// AttachOwnerID derives the merchant owner of the identity and stores it in
// the context for data scoping.
func AttachOwnerID(cfg *Config) func(http.Handler) http.Handler {
	cfg = cfg.orDefault()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaims(r.Context())
			if claims == nil {
				cfg.ErrorHandler(w, r, unauthorized(MsgAuthRequired))
				return
			}
			next.ServeHTTP(w, r.WithContext(SetOwnerID(r.Context(), claims.OwnerID())))
		})
	}
}

// RequirePermission gates a page action. SUPER_ADMIN and OWNER always pass;
// STAFF needs a stored grant with the action flag set; anything else is denied.
func RequirePermission(lookup PermissionLookup, page store.Page, action store.Action, cfg *Config) func(http.Handler) http.Handler {
	cfg = cfg.orDefault()
	denied := forbidden(fmt.Sprintf("You do not have %s permission for %s", action, page))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaims(r.Context())
			if claims == nil {
				cfg.ErrorHandler(w, r, unauthorized(MsgAuthRequired))
				return
			}

			switch claims.Type {
			case store.UserTypeSuperAdmin, store.UserTypeOwner:
				next.ServeHTTP(w, r)
				return
			case store.UserTypeStaff:
			default:
				cfg.ErrorHandler(w, r, forbidden(MsgAccessDenied))
				return
			}

			perm, err := lookup.GetPermission(r.Context(), claims.UserID, page)
			if errors.Is(err, store.ErrNotFound) {
				cfg.ErrorHandler(w, r, denied)
				return
			}
			if err != nil {
				cfg.ErrorHandler(w, r, authcore.ErrInternal.WithMessage(MsgPermissionCheckErr).Wrap(err))
				return
			}
			if !perm.Allows(action) {
				cfg.ErrorHandler(w, r, denied)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// CanRead gates read access to page.
func CanRead(lookup PermissionLookup, page store.Page, cfg *Config) func(http.Handler) http.Handler {
	return RequirePermission(lookup, page, store.ActionRead, cfg)
}

// CanCreate gates create access to page.
func CanCreate(lookup PermissionLookup, page store.Page, cfg *Config) func(http.Handler) http.Handler {
	return RequirePermission(lookup, page, store.ActionCreate, cfg)
}

// CanUpdate gates update access to page.
func CanUpdate(lookup PermissionLookup, page store.Page, cfg *Config) func(http.Handler) http.Handler {
	return RequirePermission(lookup, page, store.ActionUpdate, cfg)
}

// CanDelete gates delete access to page.
func CanDelete(lookup PermissionLookup, page store.Page, cfg *Config) func(http.Handler) http.Handler {
	return RequirePermission(lookup, page, store.ActionDelete, cfg)
}
