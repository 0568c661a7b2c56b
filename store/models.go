package store

import (
	"time"
)

// UserType is the tier a user belongs to in the three-level role model.
type UserType string

const (
	// UserTypeSuperAdmin is a platform-level administrator with no owner.
	UserTypeSuperAdmin UserType = "SUPER_ADMIN"

	// UserTypeOwner is a merchant account; it is its own owner.
	UserTypeOwner UserType = "OWNER"

	// UserTypeStaff belongs to exactly one OWNER through ParentUserID.
	UserTypeStaff UserType = "STAFF"
)

// Valid reports whether t is one of the known user types.
func (t UserType) Valid() bool {
	switch t {
	case UserTypeSuperAdmin, UserTypeOwner, UserTypeStaff:
		return true
	}
	return false
}

// UserStatus is the account state. Only ACTIVE users may authenticate.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusInactive  UserStatus = "INACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// Valid reports whether s is one of the known statuses.
func (s UserStatus) Valid() bool {
	switch s {
	case UserStatusActive, UserStatusInactive, UserStatusSuspended:
		return true
	}
	return false
}

// User is a credential record.
type User struct {
	// ID is the opaque unique identifier. Assigned by the store on create when empty.
	ID string `db:"id" json:"id"`

	// Email is unique across all users and always stored lowercased.
	Email string `db:"email" json:"email"`

	// PasswordHash is the one-way hash of the password. Never exposed.
	PasswordHash string `db:"password_hash" json:"-"`

	Name   string     `db:"name" json:"name"`
	Type   UserType   `db:"type" json:"type"`
	Status UserStatus `db:"status" json:"status"`

	// ParentUserID is set only for STAFF and references the owning OWNER.
	ParentUserID *string `db:"parent_user_id" json:"parent_user_id,omitempty"`

	// TokenVersion only ever increments. Refresh tokens embedding an older
	// value are revoked.
	TokenVersion int `db:"token_version" json:"token_version"`

	LastLoginAt *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// IsActive returns true if the user may authenticate.
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// OwnerID returns the merchant owner of the user: an OWNER owns itself,
// a STAFF member is owned by its parent and a SUPER_ADMIN has no owner.
func (u *User) OwnerID() *string {
	return DeriveOwnerID(u.Type, u.ID, u.ParentUserID)
}

// Validate checks the structural invariants of a user record before it is
// persisted.
func (u *User) Validate() error {
	if u.Email == "" {
		return invalidUser("email is required")
	}
	if !u.Type.Valid() {
		return invalidUser("unknown type " + string(u.Type))
	}
	if !u.Status.Valid() {
		return invalidUser("unknown status " + string(u.Status))
	}
	hasParent := u.ParentUserID != nil && *u.ParentUserID != ""
	if u.Type == UserTypeStaff && !hasParent {
		return invalidUser("staff user requires a parent user")
	}
	if u.Type != UserTypeStaff && hasParent {
		return invalidUser("only staff users may have a parent user")
	}
	if u.TokenVersion < 0 {
		return invalidUser("token version cannot be negative")
	}
	return nil
}

// DeriveOwnerID applies the ownership rule to an identity.
func DeriveOwnerID(t UserType, userID string, parentUserID *string) *string {
	switch t {
	case UserTypeOwner:
		id := userID
		return &id
	case UserTypeStaff:
		if parentUserID == nil {
			return nil
		}
		id := *parentUserID
		return &id
	default:
		return nil
	}
}

// Page identifies a dashboard area guarded by fine-grained permissions.
type Page string

const (
	PageIntegration  Page = "INTEGRATION"
	PageReceivers    Page = "RECEIVERS"
	PagePaymentLinks Page = "PAYMENT_LINKS"
	PageReview       Page = "REVIEW"
	PagePayments     Page = "PAYMENTS"
	PageCustomers    Page = "CUSTOMERS"
	PageUsers        Page = "USERS"
	PageSettings     Page = "SETTINGS"
	PageLogs         Page = "LOGS"
	PageDevices      Page = "DEVICES"
)

// Pages lists every known page.
var Pages = []Page{
	PageIntegration, PageReceivers, PagePaymentLinks, PageReview, PagePayments,
	PageCustomers, PageUsers, PageSettings, PageLogs, PageDevices,
}

// Valid reports whether p is a known page.
func (p Page) Valid() bool {
	for _, known := range Pages {
		if p == known {
			return true
		}
	}
	return false
}

// Action is an operation on a page.
type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionRead, ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// Permission is a per (user, page) grant. Only consulted for STAFF.
type Permission struct {
	UserID    string    `db:"user_id" json:"user_id"`
	Page      Page      `db:"page" json:"page"`
	CanRead   bool      `db:"can_read" json:"can_read"`
	CanCreate bool      `db:"can_create" json:"can_create"`
	CanUpdate bool      `db:"can_update" json:"can_update"`
	CanDelete bool      `db:"can_delete" json:"can_delete"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Allows returns true if the grant includes the action.
func (p *Permission) Allows(action Action) bool {
	switch action {
	case ActionRead:
		return p.CanRead
	case ActionCreate:
		return p.CanCreate
	case ActionUpdate:
		return p.CanUpdate
	case ActionDelete:
		return p.CanDelete
	default:
		return false
	}
}
