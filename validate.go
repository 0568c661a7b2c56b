package authcore

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/instaflow/authcore/store"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate checks the sign-up body and normalizes email and name in place.
func (r *SignUpRequest) Validate() error {
	var v validator
	v.email(r.Email)
	v.password(FieldPassword, r.Password)
	v.name(r.Name)
	if r.Type != "" && !r.Type.Valid() {
		v.add(FieldType, MsgTypeInvalid)
	}
	if err := v.err(); err != nil {
		return err
	}
	r.Email = NormalizeEmail(r.Email)
	r.Name = strings.TrimSpace(r.Name)
	return nil
}

// Validate checks the login body. Password rules are not applied so that
// accounts created under older rules can still log in.
func (r *LoginRequest) Validate() error {
	var v validator
	v.email(r.Email)
	v.required(FieldPassword, r.Password, MsgPasswordRequired)
	if err := v.err(); err != nil {
		return err
	}
	r.Email = NormalizeEmail(r.Email)
	return nil
}

// Validate checks the refresh body.
func (r *RefreshTokenRequest) Validate() error {
	var v validator
	v.required(FieldRefreshToken, r.RefreshToken, MsgTokenRequired)
	return v.err()
}

// Validate checks the forgot-password body.
func (r *ForgotPasswordRequest) Validate() error {
	var v validator
	v.email(r.Email)
	if err := v.err(); err != nil {
		return err
	}
	r.Email = NormalizeEmail(r.Email)
	return nil
}

// Validate checks the reset-password body.
func (r *ResetPasswordRequest) Validate() error {
	var v validator
	v.required(FieldToken, r.Token, MsgTokenRequired)
	v.password(FieldNewPassword, r.NewPassword)
	return v.err()
}

// Validate checks the change-password body.
func (r *ChangePasswordRequest) Validate() error {
	var v validator
	v.required(FieldCurrentPassword, r.CurrentPassword, MsgPasswordRequired)
	v.password(FieldNewPassword, r.NewPassword)
	return v.err()
}

// validator collects at most one failure per field.
type validator struct {
	errs []FieldError
}

func (v *validator) add(field, msg string) {
	v.errs = append(v.errs, FieldError{Field: field, Message: msg})
}

func (v *validator) err() error {
	if len(v.errs) == 0 {
		return nil
	}
	return NewValidationError(v.errs...)
}

func (v *validator) required(field, value, msg string) bool {
	if value == "" {
		v.add(field, msg)
		return false
	}
	return true
}

func (v *validator) email(email string) {
	if !v.required(FieldEmail, strings.TrimSpace(email), MsgEmailRequired) {
		return
	}
	if !emailPattern.MatchString(strings.TrimSpace(email)) {
		v.add(FieldEmail, MsgEmailFormat)
	}
}

func (v *validator) password(field, pw string) {
	if !v.required(field, pw, MsgPasswordRequired) {
		return
	}
	n := utf8.RuneCountInString(pw)
	switch {
	case n < PasswordMinLength:
		v.add(field, MsgPasswordMinLength)
	case n > PasswordMaxLength:
		v.add(field, MsgPasswordMaxLength)
	case !passwordFormatOK(pw):
		v.add(field, MsgPasswordFormat)
	}
}

func (v *validator) name(name string) {
	trimmed := strings.TrimSpace(name)
	if !v.required(FieldName, trimmed, MsgNameRequired) {
		return
	}
	n := utf8.RuneCountInString(trimmed)
	switch {
	case n < NameMinLength:
		v.add(FieldName, MsgNameMinLength)
	case n > NameMaxLength:
		v.add(FieldName, MsgNameMaxLength)
	}
}

// passwordFormatOK requires ASCII letters and digits only, with at least one
// lowercase letter, one uppercase letter and one digit.
func passwordFormatOK(pw string) bool {
	var lower, upper, digit bool
	for _, r := range pw {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			return false
		}
	}
	return lower && upper && digit
}

// allowedSignUpType reports whether t may be chosen at sign-up.
func (c *Config) allowedSignUpType(t store.UserType) bool {
	for _, allowed := range c.SignUpTypes {
		if t == allowed {
			return true
		}
	}
	return false
}
