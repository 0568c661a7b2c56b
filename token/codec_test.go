package token

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/instaflow/authcore/store"
)

const (
	testAccessSecret  = "access-secret-that-is-32-chars-long!"
	testRefreshSecret = "refresh-secret-that-is-32-chars-long"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec(&Config{
		AccessSecret:  testAccessSecret,
		RefreshSecret: testRefreshSecret,
	})
	if err != nil {
		t.Fatalf("NewCodec() error = %v", err)
	}
	return c
}

func testUser() *store.User {
	parent := "owner-1"
	return &store.User{
		ID:           "staff-1",
		Email:        "staff@example.com",
		Type:         store.UserTypeStaff,
		Status:       store.UserStatusActive,
		ParentUserID: &parent,
		TokenVersion: 2,
	}
}

func TestNewCodec(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{AccessSecret: testAccessSecret, RefreshSecret: testRefreshSecret}, false},
		{"missing access", Config{RefreshSecret: testRefreshSecret}, true},
		{"missing refresh", Config{AccessSecret: testAccessSecret}, true},
		{"same secret", Config{AccessSecret: testAccessSecret, RefreshSecret: testAccessSecret}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCodec(&tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewCodec() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && c.AccessTTL() != DefaultAccessTTL {
				t.Errorf("expected default access TTL, got %v", c.AccessTTL())
			}
		})
	}
}

func TestIssuePair(t *testing.T) {
	c := newTestCodec(t)

	pair, err := c.IssuePair(testUser())
	if err != nil {
		t.Fatalf("IssuePair() error = %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected non-empty tokens")
	}
	if pair.ExpiresIn != 1800 {
		t.Errorf("expected expiresIn 1800, got %d", pair.ExpiresIn)
	}

	access, err := c.VerifyAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccess() error = %v", err)
	}
	if access.UserID != "staff-1" || access.Email != "staff@example.com" || access.Type != store.UserTypeStaff {
		t.Errorf("unexpected access claims: %+v", access)
	}
	if access.ParentUserID == nil || *access.ParentUserID != "owner-1" {
		t.Errorf("expected parentUserId owner-1, got %v", access.ParentUserID)
	}
	if owner := access.OwnerID(); owner == nil || *owner != "owner-1" {
		t.Errorf("expected owner id owner-1, got %v", owner)
	}

	refresh, err := c.VerifyRefresh(pair.RefreshToken)
	if err != nil {
		t.Fatalf("VerifyRefresh() error = %v", err)
	}
	if refresh.UserID != "staff-1" || refresh.TokenVersion != 2 {
		t.Errorf("unexpected refresh claims: %+v", refresh)
	}
}

func TestAccessTokenLifetime(t *testing.T) {
	c := newTestCodec(t)
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	c.SetClock(func() time.Time { return now })

	tok, err := c.IssueAccess(testUser())
	if err != nil {
		t.Fatal(err)
	}
	claims, err := c.VerifyAccess(tok)
	if err != nil {
		t.Fatal(err)
	}
	if got := claims.ExpiresAt.Time.Sub(claims.IssuedAt.Time); got != 30*time.Minute {
		t.Errorf("expected 30m lifetime, got %v", got)
	}
}

func TestVerify_Expired(t *testing.T) {
	c := newTestCodec(t)
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	c.SetClock(func() time.Time { return now })

	access, _ := c.IssueAccess(testUser())
	refresh, _ := c.IssueRefresh("u1", 0)
	reset, _ := c.IssueReset("u1", "a@b.com")

	tests := []struct {
		name   string
		after  time.Duration
		verify func() error
	}{
		{"access after 31m", 31 * time.Minute, func() error { _, err := c.VerifyAccess(access); return err }},
		{"refresh after 8d", 8 * 24 * time.Hour, func() error { _, err := c.VerifyRefresh(refresh); return err }},
		{"reset after 3h", 3 * time.Hour, func() error { _, err := c.VerifyReset(reset); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c.SetClock(func() time.Time { return now.Add(tt.after) })
			if err := tt.verify(); !errors.Is(err, ErrTokenExpired) {
				t.Errorf("expected ErrTokenExpired, got %v", err)
			}
		})
	}

	c.SetClock(func() time.Time { return now.Add(90 * time.Minute) })
	if _, err := c.VerifyReset(reset); err != nil {
		t.Errorf("reset token should still be valid after 90m, got %v", err)
	}
}

func TestVerify_Invalid(t *testing.T) {
	c := newTestCodec(t)
	access, _ := c.IssueAccess(testUser())
	refresh, _ := c.IssueRefresh("u1", 0)
	reset, _ := c.IssueReset("u1", "a@b.com")

	other, err := NewCodec(&Config{
		AccessSecret:  "another-access-secret-32-chars-long!",
		RefreshSecret: "another-refresh-secret-32-chars-long",
	})
	if err != nil {
		t.Fatal(err)
	}
	foreign, _ := other.IssueAccess(testUser())

	tests := []struct {
		name   string
		verify func() error
	}{
		{"garbage", func() error { _, err := c.VerifyAccess("not-a-jwt"); return err }},
		{"empty", func() error { _, err := c.VerifyAccess(""); return err }},
		{"foreign signature", func() error { _, err := c.VerifyAccess(foreign); return err }},
		{"tampered payload", func() error { _, err := c.VerifyAccess(tamper(access)); return err }},
		{"refresh as access", func() error { _, err := c.VerifyAccess(refresh); return err }},
		{"access as refresh", func() error { _, err := c.VerifyRefresh(access); return err }},
		{"reset as access", func() error { _, err := c.VerifyAccess(reset); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.verify()
			if !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("expected ErrTokenInvalid, got %v", err)
			}
			if errors.Is(err, ErrTokenExpired) {
				t.Error("invalid token must not classify as expired")
			}
		})
	}
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	c := newTestCodec(t)

	claims := &AccessClaims{
		UserID: "u1",
		Type:   store.UserTypeOwner,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testAccessSecret))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.VerifyAccess(tok); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid for HS512 token, got %v", err)
	}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.VerifyAccess(none); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid for alg none, got %v", err)
	}
}

func TestVerify_RequiresExpiry(t *testing.T) {
	c := newTestCodec(t)

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &AccessClaims{UserID: "u1", Type: store.UserTypeOwner}).
		SignedString([]byte(testAccessSecret))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.VerifyAccess(tok); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid without exp, got %v", err)
	}
}

func TestResetToken_PurposeIsNotEnforcedByCodec(t *testing.T) {
	c := newTestCodec(t)

	// An access token verifies as a reset token; the reset flow checks purpose.
	access, _ := c.IssueAccess(testUser())
	claims, err := c.VerifyReset(access)
	if err != nil {
		t.Fatalf("VerifyReset() error = %v", err)
	}
	if claims.Purpose == PurposeResetPassword {
		t.Error("access token must not carry the reset purpose")
	}

	reset, _ := c.IssueReset("u1", "a@b.com")
	claims, err = c.VerifyReset(reset)
	if err != nil {
		t.Fatalf("VerifyReset() error = %v", err)
	}
	if claims.Purpose != PurposeResetPassword || claims.Email != "a@b.com" {
		t.Errorf("unexpected reset claims: %+v", claims)
	}
}

func TestIssuer(t *testing.T) {
	c, err := NewCodec(&Config{AccessSecret: testAccessSecret, RefreshSecret: testRefreshSecret, Issuer: "authcore"})
	if err != nil {
		t.Fatal(err)
	}
	tok, _ := c.IssueAccess(testUser())
	if _, err := c.VerifyAccess(tok); err != nil {
		t.Fatalf("VerifyAccess() error = %v", err)
	}

	plain := newTestCodec(t)
	untagged, _ := plain.IssueAccess(testUser())
	if _, err := c.VerifyAccess(untagged); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid for missing issuer, got %v", err)
	}
}

// tamper flips a character in the payload segment.
func tamper(tok string) string {
	parts := strings.Split(tok, ".")
	p := []byte(parts[1])
	if p[len(p)/2] == 'A' {
		p[len(p)/2] = 'B'
	} else {
		p[len(p)/2] = 'A'
	}
	parts[1] = string(p)
	return strings.Join(parts, ".")
}
