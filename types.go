package authcore

import (
	"github.com/instaflow/authcore/store"
	"github.com/instaflow/authcore/token"
)

// SignUpRequest is the body of POST /auth/signup.
type SignUpRequest struct {
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Name     string         `json:"name"`
	Type     store.UserType `json:"type,omitempty"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshTokenRequest is the body of POST /auth/refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// ForgotPasswordRequest is the body of POST /auth/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest is the body of POST /auth/reset-password.
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// ChangePasswordRequest is the body of POST /auth/change-password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// PublicUser is the projection of a user that may leave the service.
type PublicUser struct {
	ID           string           `json:"id"`
	Email        string           `json:"email"`
	Name         string           `json:"name"`
	Type         store.UserType   `json:"type"`
	Status       store.UserStatus `json:"status"`
	ParentUserID *string          `json:"parentUserId"`
}

// NewPublicUser projects a stored user.
func NewPublicUser(u *store.User) *PublicUser {
	return &PublicUser{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		Type:         u.Type,
		Status:       u.Status,
		ParentUserID: u.ParentUserID,
	}
}

// AuthResult is returned by SignUp and Login.
type AuthResult struct {
	User    *PublicUser `json:"user"`
	Tokens  *token.Pair `json:"tokens"`
	Message string      `json:"message"`
}

// RefreshResult is returned by RefreshToken.
type RefreshResult struct {
	Tokens *token.Pair `json:"tokens"`
}

// MessageResult carries only a user-facing message.
type MessageResult struct {
	Message string `json:"message"`
}
