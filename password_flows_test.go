package authcore

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestForgotPassword_UniformResponse(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t, "known@example.com")
	ctx := context.Background()

	known, err := env.svc.ForgotPassword(ctx, &ForgotPasswordRequest{Email: "Known@Example.com"})
	if err != nil {
		t.Fatalf("ForgotPassword(known) error = %v", err)
	}
	unknown, err := env.svc.ForgotPassword(ctx, &ForgotPasswordRequest{Email: "nobody@example.com"})
	if err != nil {
		t.Fatalf("ForgotPassword(unknown) error = %v", err)
	}

	if !reflect.DeepEqual(known, unknown) {
		t.Errorf("responses differ: %+v vs %+v", known, unknown)
	}
	if known.Message != MsgPasswordResetEmailSent {
		t.Errorf("message = %q", known.Message)
	}

	if len(env.notifier.sent) != 1 {
		t.Fatalf("expected exactly one reset email, got %d", len(env.notifier.sent))
	}
	sent := env.notifier.sent[0]
	if sent.email != "known@example.com" {
		t.Errorf("sent to %q", sent.email)
	}
	if !strings.HasPrefix(sent.link, "https://dashboard.example.com/reset-password?token=") {
		t.Errorf("unexpected link %q", sent.link)
	}
}

func TestForgotPassword_NotifierFailure(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t, "broken@example.com")
	env.notifier.fails = errors.New("smtp down")

	res, err := env.svc.ForgotPassword(context.Background(), &ForgotPasswordRequest{Email: "broken@example.com"})
	if err != nil {
		t.Fatalf("ForgotPassword() error = %v", err)
	}
	if res.Message != MsgPasswordResetEmailSent {
		t.Errorf("message = %q", res.Message)
	}
	if !env.events.has(FlowResetEmail, CodeInternal) {
		t.Error("expected the dispatch failure to be recorded")
	}
}

func TestForgotPassword_Validation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.ForgotPassword(context.Background(), &ForgotPasswordRequest{Email: "nope"})
	assertCode(t, err, CodeValidation, http.StatusBadRequest)
}

func TestResetPassword(t *testing.T) {
	env := newTestEnv(t)
	res := env.signUp(t, "reset@example.com")
	ctx := context.Background()

	if _, err := env.svc.ForgotPassword(ctx, &ForgotPasswordRequest{Email: "reset@example.com"}); err != nil {
		t.Fatal(err)
	}
	resetToken := env.notifier.lastToken(t)

	out, err := env.svc.ResetPassword(ctx, &ResetPasswordRequest{Token: resetToken, NewPassword: "NewPassword9"})
	if err != nil {
		t.Fatalf("ResetPassword() error = %v", err)
	}
	if out.Message != MsgPasswordChanged {
		t.Errorf("message = %q", out.Message)
	}

	if _, err := env.svc.Login(ctx, &LoginRequest{Email: "reset@example.com", Password: testPassword}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("old password still works: %v", err)
	}
	if _, err := env.svc.Login(ctx, &LoginRequest{Email: "reset@example.com", Password: "NewPassword9"}); err != nil {
		t.Errorf("Login() with new password error = %v", err)
	}

	// Sessions survive a reset unless revocation is enabled.
	if _, err := env.svc.RefreshToken(ctx, &RefreshTokenRequest{RefreshToken: res.Tokens.RefreshToken}); err != nil {
		t.Errorf("RefreshToken() after reset error = %v", err)
	}
}

func TestResetPassword_TokenFailures(t *testing.T) {
	env := newTestEnv(t)
	res := env.signUp(t, "tokens@example.com")
	ctx := context.Background()

	t.Run("access token replayed", func(t *testing.T) {
		_, err := env.svc.ResetPassword(ctx, &ResetPasswordRequest{Token: res.Tokens.AccessToken, NewPassword: "NewPassword9"})
		assertCode(t, err, CodeInvalidToken, http.StatusBadRequest)
	})

	t.Run("refresh token replayed", func(t *testing.T) {
		_, err := env.svc.ResetPassword(ctx, &ResetPasswordRequest{Token: res.Tokens.RefreshToken, NewPassword: "NewPassword9"})
		assertCode(t, err, CodeInvalidToken, http.StatusBadRequest)
	})

	t.Run("unknown user", func(t *testing.T) {
		orphan, err := env.svc.Codec().IssueReset("missing", "missing@example.com")
		if err != nil {
			t.Fatal(err)
		}
		_, err = env.svc.ResetPassword(ctx, &ResetPasswordRequest{Token: orphan, NewPassword: "NewPassword9"})
		assertCode(t, err, CodeInvalidToken, http.StatusBadRequest)
	})

	t.Run("weak password", func(t *testing.T) {
		_, err := env.svc.ResetPassword(ctx, &ResetPasswordRequest{Token: "x", NewPassword: "weak"})
		assertCode(t, err, CodeValidation, http.StatusBadRequest)
	})

	t.Run("expired", func(t *testing.T) {
		resetToken, err := env.svc.Codec().IssueReset(res.User.ID, res.User.Email)
		if err != nil {
			t.Fatal(err)
		}
		env.clock.Advance(DefaultResetTokenTTL + time.Second)
		_, err = env.svc.ResetPassword(ctx, &ResetPasswordRequest{Token: resetToken, NewPassword: "NewPassword9"})
		assertCode(t, err, CodeTokenExpired, http.StatusBadRequest)
	})
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	res := env.signUp(t, "change@example.com")
	ctx := context.Background()

	_, err := env.svc.ChangePassword(ctx, res.User.ID, &ChangePasswordRequest{CurrentPassword: "WrongPass1", NewPassword: "NewPassword9"})
	assertCode(t, err, CodeInvalidPassword, http.StatusBadRequest)

	out, err := env.svc.ChangePassword(ctx, res.User.ID, &ChangePasswordRequest{CurrentPassword: testPassword, NewPassword: "NewPassword9"})
	if err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}
	if out.Message != MsgPasswordChanged {
		t.Errorf("message = %q", out.Message)
	}
	if _, err := env.svc.Login(ctx, &LoginRequest{Email: "change@example.com", Password: "NewPassword9"}); err != nil {
		t.Errorf("Login() with new password error = %v", err)
	}

	_, err = env.svc.ChangePassword(ctx, "missing", &ChangePasswordRequest{CurrentPassword: testPassword, NewPassword: "NewPassword9"})
	assertCode(t, err, CodeUserNotFound, http.StatusNotFound)
}

func TestChangePassword_RevokesSessionsWhenEnabled(t *testing.T) {
	env := newTestEnv(t, WithSessionRevocationOnPasswordChange(true))
	res := env.signUp(t, "revoke@example.com")
	ctx := context.Background()

	if _, err := env.svc.ChangePassword(ctx, res.User.ID, &ChangePasswordRequest{CurrentPassword: testPassword, NewPassword: "NewPassword9"}); err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}

	_, err := env.svc.RefreshToken(ctx, &RefreshTokenRequest{RefreshToken: res.Tokens.RefreshToken})
	assertCode(t, err, CodeTokenRevoked, http.StatusUnauthorized)
}
