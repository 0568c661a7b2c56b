package token

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/instaflow/authcore/store"
)

// PurposeResetPassword is the only purpose a reset token may carry.
const PurposeResetPassword = "reset_password"

// AccessClaims identify the caller for the lifetime of an access token.
type AccessClaims struct {
	UserID       string         `json:"userId"`
	Email        string         `json:"email"`
	Type         store.UserType `json:"type"`
	ParentUserID *string        `json:"parentUserId"`

	// Purpose is never set on access tokens. It is decoded so that a reset
	// token presented as an access token can be rejected.
	Purpose string `json:"purpose,omitempty"`

	jwt.RegisteredClaims
}

// OwnerID derives the merchant owner of the identity.
func (c *AccessClaims) OwnerID() *string {
	return store.DeriveOwnerID(c.Type, c.UserID, c.ParentUserID)
}

// RefreshClaims carry the token version current at issuance.
type RefreshClaims struct {
	UserID       string `json:"userId"`
	TokenVersion int    `json:"tokenVersion"`
	jwt.RegisteredClaims
}

// ResetClaims authorize a single password reset. The codec does not check
// Purpose; the reset flow does.
type ResetClaims struct {
	UserID  string `json:"userId"`
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}
