package authcore

import (
	"context"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/instaflow/authcore/internal/crypto"
	"github.com/instaflow/authcore/internal/hash"
	"github.com/instaflow/authcore/store"
	"github.com/instaflow/authcore/token"
)

// ForgotPassword starts a password reset. The response is the same whether
// or not the email belongs to an account, and whether or not the email was
// handed off successfully.
func (s *Service) ForgotPassword(ctx context.Context, req *ForgotPasswordRequest) (result *MessageResult, err error) {
	defer func() { s.record(FlowForgotPassword, err) }()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	sent := &MessageResult{Message: MsgPasswordResetEmailSent}

	user, err := s.store.FindUserByEmail(ctx, req.Email)
	if errors.Is(err, store.ErrNotFound) {
		// The token goes nowhere. Delivery on the known-email path is only
		// enqueued, so neither path waits on the mail transport.
		if _, err := crypto.ThrowawayToken(); err != nil {
			return nil, Internal(err)
		}
		return sent, nil
	}
	if err != nil {
		return nil, Internal(err)
	}

	resetToken, err := s.codec.IssueReset(user.ID, user.Email)
	if err != nil {
		return nil, Internal(err)
	}

	log := s.log.WithFields(logrus.Fields{
		"user_id": user.ID,
		"token":   hash.Fingerprint(resetToken),
	})
	if err := s.notifier.NotifyPasswordReset(ctx, user.Email, s.config.resetLink(resetToken)); err != nil {
		log.WithError(err).Error("password reset email not dispatched")
		s.events.AuthEvent(FlowResetEmail, CodeInternal)
		return sent, nil
	}
	s.events.AuthEvent(FlowResetEmail, OutcomeSuccess)
	log.Info("password reset requested")

	return sent, nil
}

// ResetPassword sets a new password using a reset token. Token failures are
// reported with status 400.
func (s *Service) ResetPassword(ctx context.Context, req *ResetPasswordRequest) (result *MessageResult, err error) {
	defer func() { s.record(FlowResetPassword, err) }()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	claims, err := s.codec.VerifyReset(req.Token)
	if err != nil {
		return nil, tokenError(err, http.StatusBadRequest)
	}
	if claims.Purpose != token.PurposeResetPassword {
		return nil, ErrInvalidToken.WithStatus(http.StatusBadRequest)
	}

	user, err := s.store.FindUserByID(ctx, claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidToken.WithStatus(http.StatusBadRequest)
	}
	if err != nil {
		return nil, Internal(err)
	}

	if err := s.setPassword(ctx, user, req.NewPassword); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id": user.ID,
		"token":   hash.Fingerprint(req.Token),
	}).Info("password reset")
	return &MessageResult{Message: MsgPasswordChanged}, nil
}

// ChangePassword replaces the password of an authenticated user after
// checking the current one.
func (s *Service) ChangePassword(ctx context.Context, userID string, req *ChangePasswordRequest) (result *MessageResult, err error) {
	defer func() { s.record(FlowChangePassword, err) }()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.store.FindUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, Internal(err)
	}

	ok, err := s.hasher.Verify(req.CurrentPassword, user.PasswordHash)
	if err != nil {
		return nil, Internal(err)
	}
	if !ok {
		return nil, ErrInvalidPassword.WithField(FieldCurrentPassword)
	}

	if err := s.setPassword(ctx, user, req.NewPassword); err != nil {
		return nil, err
	}

	s.log.WithField("user_id", user.ID).Info("password changed")
	return &MessageResult{Message: MsgPasswordChanged}, nil
}

// setPassword stores a new hash and, when configured, revokes every session.
func (s *Service) setPassword(ctx context.Context, user *store.User, plain string) error {
	hashed, err := s.hasher.Hash(plain)
	if err != nil {
		return Internal(err)
	}
	if err := s.store.UpdatePassword(ctx, user.ID, hashed); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return Internal(err)
	}
	user.PasswordHash = hashed

	if !s.config.RevokeSessionsOnPasswordChange {
		return nil
	}
	version, err := s.store.IncrementTokenVersion(ctx, user.ID)
	if err != nil {
		return Internal(err)
	}
	user.TokenVersion = version
	return nil
}
