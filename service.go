package authcore

import (
	"context"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/instaflow/authcore/store"
	"github.com/instaflow/authcore/token"
)

// SignUp registers a new account and opens its first session.
func (s *Service) SignUp(ctx context.Context, req *SignUpRequest) (result *AuthResult, err error) {
	defer func() { s.record(FlowSignUp, err) }()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Type == "" {
		req.Type = s.config.SignUpTypes[0]
	}
	if !s.config.allowedSignUpType(req.Type) {
		return nil, NewValidationError(FieldError{Field: FieldType, Message: MsgTypeInvalid})
	}

	if _, err := s.store.FindUserByEmail(ctx, req.Email); err == nil {
		return nil, ErrEmailAlreadyExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, Internal(err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, Internal(err)
	}

	user := &store.User{
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		Type:         req.Type,
		Status:       store.UserStatusActive,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, Internal(err)
	}

	pair, err := s.codec.IssuePair(user)
	if err != nil {
		return nil, Internal(err)
	}
	if err := s.touchLastLogin(ctx, user); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "type": user.Type}).Info("user signed up")
	return &AuthResult{User: NewPublicUser(user), Tokens: pair, Message: MsgSignUp}, nil
}

// Login authenticates by email and password. An unknown email and a wrong
// password fail identically and cost the same single hash verification.
func (s *Service) Login(ctx context.Context, req *LoginRequest) (result *AuthResult, err error) {
	defer func() { s.record(FlowLogin, err) }()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.store.FindUserByEmail(ctx, req.Email)
	if errors.Is(err, store.ErrNotFound) {
		_, _ = s.hasher.Verify(req.Password, s.dummy())
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, Internal(err)
	}

	ok, err := s.hasher.Verify(req.Password, user.PasswordHash)
	if err != nil {
		return nil, Internal(err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if err := statusError(user.Status); err != nil {
		return nil, err
	}

	pair, err := s.codec.IssuePair(user)
	if err != nil {
		return nil, Internal(err)
	}
	if err := s.touchLastLogin(ctx, user); err != nil {
		return nil, err
	}
	s.maybeRehash(ctx, user, req.Password)

	s.log.WithField("user_id", user.ID).Info("user logged in")
	return &AuthResult{User: NewPublicUser(user), Tokens: pair, Message: MsgLogin}, nil
}

// RefreshToken exchanges a refresh token for a new pair. The presented
// token must carry the user's current token version.
func (s *Service) RefreshToken(ctx context.Context, req *RefreshTokenRequest) (result *RefreshResult, err error) {
	defer func() { s.record(FlowRefresh, err) }()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	claims, err := s.codec.VerifyRefresh(req.RefreshToken)
	if err != nil {
		return nil, tokenError(err, http.StatusUnauthorized)
	}

	user, err := s.store.FindUserByID(ctx, claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound.WithStatus(http.StatusUnauthorized)
	}
	if err != nil {
		return nil, Internal(err)
	}

	if claims.TokenVersion != user.TokenVersion {
		return nil, ErrTokenRevoked
	}
	if !user.IsActive() {
		return nil, ErrUserInactive
	}

	pair, err := s.codec.IssuePair(user)
	if err != nil {
		return nil, Internal(err)
	}
	return &RefreshResult{Tokens: pair}, nil
}

// Logout revokes every refresh token of the user by bumping its token
// version. Access tokens already issued stay valid until they expire.
func (s *Service) Logout(ctx context.Context, userID string) (result *MessageResult, err error) {
	defer func() { s.record(FlowLogout, err) }()

	version, err := s.store.IncrementTokenVersion(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, Internal(err)
	}

	s.log.WithFields(logrus.Fields{"user_id": userID, "token_version": version}).Info("user logged out")
	return &MessageResult{Message: MsgLogout}, nil
}

// GetMe returns the public profile of the authenticated user.
func (s *Service) GetMe(ctx context.Context, userID string) (*PublicUser, error) {
	user, err := s.store.FindUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, Internal(err)
	}
	return NewPublicUser(user), nil
}

// VerifyAccessToken validates a bearer token and returns the caller's identity.
func (s *Service) VerifyAccessToken(accessToken string) (*token.AccessClaims, error) {
	claims, err := s.codec.VerifyAccess(accessToken)
	if err != nil {
		return nil, tokenError(err, http.StatusUnauthorized)
	}
	return claims, nil
}

// tokenError maps a codec failure to TOKEN_EXPIRED or INVALID_TOKEN with
// the given status.
func tokenError(err error, status int) *AuthError {
	if errors.Is(err, token.ErrTokenExpired) {
		return ErrTokenExpired.WithStatus(status).Wrap(err)
	}
	return ErrInvalidToken.WithStatus(status).Wrap(err)
}

func statusError(status store.UserStatus) error {
	switch status {
	case store.UserStatusActive:
		return nil
	case store.UserStatusSuspended:
		return ErrUserSuspended
	default:
		return ErrUserInactive
	}
}

func (s *Service) touchLastLogin(ctx context.Context, user *store.User) error {
	now := s.now()
	if err := s.store.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return Internal(err)
	}
	user.LastLoginAt = &now
	return nil
}

// maybeRehash upgrades a hash produced with outdated parameters. Failures
// only cost the upgrade.
func (s *Service) maybeRehash(ctx context.Context, user *store.User, plain string) {
	if !s.hasher.NeedsRehash(user.PasswordHash) {
		return
	}
	hash, err := s.hasher.Hash(plain)
	if err == nil {
		err = s.store.UpdatePassword(ctx, user.ID, hash)
	}
	if err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).Warn("password rehash failed")
		return
	}
	user.PasswordHash = hash
}

func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(dummyPassword)
		if err != nil {
			s.log.WithError(err).Error("hashing timing-parity password")
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

// record reports the flow outcome and logs unexpected failures.
func (s *Service) record(flow string, err error) {
	if err == nil {
		s.events.AuthEvent(flow, OutcomeSuccess)
		return
	}
	ae := AsAuthError(err)
	s.events.AuthEvent(flow, ae.Code)
	if ae.Status >= http.StatusInternalServerError {
		s.log.WithError(err).WithField("flow", flow).Error("auth flow failed")
	}
}
