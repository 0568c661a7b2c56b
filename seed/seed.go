// Package seed loads account fixtures and applies them to a credential
// store. Applying a fixture is idempotent: accounts whose email already
// exists are reported and left untouched.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/instaflow/authcore"
	"github.com/instaflow/authcore/password"
	"github.com/instaflow/authcore/store"
)

// DefaultAdminName is used when the fixture leaves the admin name empty.
const DefaultAdminName = "Super Admin"

// Fixture declares the accounts to create.
type Fixture struct {
	Version int       `json:"version" yaml:"version"`
	Admin   *Account  `json:"admin,omitempty" yaml:"admin,omitempty"`
	Owners  []Account `json:"owners,omitempty" yaml:"owners,omitempty"`
	Staff   []Staff   `json:"staff,omitempty" yaml:"staff,omitempty"`
}

// Account is one user to create.
type Account struct {
	Email    string `json:"email" yaml:"email"`
	Password string `json:"password" yaml:"password"`
	Name     string `json:"name" yaml:"name"`
}

// Staff is a STAFF account under the owner with email Owner.
type Staff struct {
	Account `yaml:",inline"`
	Owner   string  `json:"owner" yaml:"owner"`
	Grants  []Grant `json:"grants,omitempty" yaml:"grants,omitempty"`
}

// Grant lists the actions a staff member may perform on a page.
type Grant struct {
	Page    store.Page     `json:"page" yaml:"page"`
	Actions []store.Action `json:"actions" yaml:"actions"`
}

// Validation errors.
var (
	ErrInvalidFixturePath = errors.New("invalid fixture file path")
	ErrInvalidAccount     = errors.New("invalid account")
	ErrUnknownOwner       = errors.New("staff references an undeclared owner")
	ErrInvalidGrant       = errors.New("invalid grant")
)

// LoadFromFile loads a fixture from a YAML or JSON file.
func LoadFromFile(path string) (*Fixture, error) {
	if err := validateFixturePath(path); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is validated above
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}

	return LoadFromBytes(data, filepath.Ext(path))
}

func validateFixturePath(path string) error {
	if path == "" {
		return fmt.Errorf("%w: path cannot be empty", ErrInvalidFixturePath)
	}
	clean := filepath.Clean(path)
	if strings.Contains(clean, "..") {
		return fmt.Errorf("%w: path contains directory traversal", ErrInvalidFixturePath)
	}
	ext := strings.ToLower(filepath.Ext(clean))
	if ext != ".yaml" && ext != ".yml" && ext != ".json" {
		return fmt.Errorf("%w: path must have .yaml, .yml, or .json extension", ErrInvalidFixturePath)
	}
	return nil
}

// LoadFromBytes parses a fixture. ext selects JSON for ".json" and YAML
// otherwise.
func LoadFromBytes(data []byte, ext string) (*Fixture, error) {
	var f Fixture
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse JSON fixture: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse YAML fixture: %w", err)
		}
	}
	return &f, nil
}

// Validate applies the sign-up rules to every account and checks that
// staff reference a declared owner and grants name known pages and actions.
// Emails are normalized in place.
func (f *Fixture) Validate() error {
	if f.Admin != nil {
		if f.Admin.Name == "" {
			f.Admin.Name = DefaultAdminName
		}
		if err := f.Admin.validate(); err != nil {
			return fmt.Errorf("admin: %w", err)
		}
	}

	owners := make(map[string]bool, len(f.Owners))
	for i := range f.Owners {
		if err := f.Owners[i].validate(); err != nil {
			return fmt.Errorf("owner %d: %w", i, err)
		}
		owners[f.Owners[i].Email] = true
	}

	for i := range f.Staff {
		s := &f.Staff[i]
		if err := s.validate(); err != nil {
			return fmt.Errorf("staff %d: %w", i, err)
		}
		s.Owner = authcore.NormalizeEmail(s.Owner)
		if !owners[s.Owner] {
			return fmt.Errorf("%w: %s", ErrUnknownOwner, s.Owner)
		}
		for _, g := range s.Grants {
			if !g.Page.Valid() {
				return fmt.Errorf("%w: unknown page %q", ErrInvalidGrant, g.Page)
			}
			for _, a := range g.Actions {
				if !a.Valid() {
					return fmt.Errorf("%w: unknown action %q", ErrInvalidGrant, a)
				}
			}
		}
	}
	return nil
}

func (a *Account) validate() error {
	req := authcore.SignUpRequest{Email: a.Email, Password: a.Password, Name: a.Name}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAccount, err)
	}
	a.Email, a.Name = req.Email, req.Name
	return nil
}

// Report lists the emails created and the ones that already existed.
type Report struct {
	Created  []string
	Existing []string
}

// Seeder applies fixtures.
type Seeder struct {
	store  store.Store
	hasher password.Hasher
	log    logrus.FieldLogger
}

// New creates a Seeder. A nil logger discards output.
func New(s store.Store, h password.Hasher, log logrus.FieldLogger) *Seeder {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Seeder{store: s, hasher: h, log: log}
}

// Apply validates f and creates its accounts in order: admin, owners, then
// staff with their grants. Grants are only written for staff created by
// this call.
func (s *Seeder) Apply(ctx context.Context, f *Fixture) (*Report, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	report := &Report{}

	if f.Admin != nil {
		if _, err := s.create(ctx, report, f.Admin, store.UserTypeSuperAdmin, nil); err != nil {
			return report, err
		}
	}

	for i := range f.Owners {
		if _, err := s.create(ctx, report, &f.Owners[i], store.UserTypeOwner, nil); err != nil {
			return report, err
		}
	}

	for i := range f.Staff {
		st := &f.Staff[i]
		owner, err := s.store.FindUserByEmail(ctx, st.Owner)
		if err != nil {
			return report, fmt.Errorf("find owner %s: %w", st.Owner, err)
		}
		if owner.Type != store.UserTypeOwner {
			return report, fmt.Errorf("%w: %s is %s", ErrUnknownOwner, st.Owner, owner.Type)
		}

		user, err := s.create(ctx, report, &st.Account, store.UserTypeStaff, &owner.ID)
		if err != nil {
			return report, err
		}
		if user == nil {
			continue
		}
		for _, g := range st.Grants {
			if err := s.store.SavePermission(ctx, g.permission(user.ID)); err != nil {
				return report, fmt.Errorf("save grant %s for %s: %w", g.Page, user.Email, err)
			}
		}
	}

	return report, nil
}

// create returns nil without error when the email already exists.
func (s *Seeder) create(ctx context.Context, report *Report, a *Account, t store.UserType, parent *string) (*store.User, error) {
	hash, err := s.hasher.Hash(a.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password for %s: %w", a.Email, err)
	}

	user := &store.User{
		Email:        a.Email,
		PasswordHash: hash,
		Name:         a.Name,
		Type:         t,
		Status:       store.UserStatusActive,
		ParentUserID: parent,
	}
	err = s.store.CreateUser(ctx, user)
	if errors.Is(err, store.ErrEmailTaken) {
		s.log.WithField("email", a.Email).Info("seed account already exists")
		report.Existing = append(report.Existing, a.Email)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", a.Email, err)
	}

	s.log.WithFields(logrus.Fields{"email": a.Email, "type": t, "user_id": user.ID}).Info("seed account created")
	report.Created = append(report.Created, a.Email)
	return user, nil
}

func (g Grant) permission(userID string) *store.Permission {
	p := &store.Permission{UserID: userID, Page: g.Page}
	for _, a := range g.Actions {
		switch a {
		case store.ActionRead:
			p.CanRead = true
		case store.ActionCreate:
			p.CanCreate = true
		case store.ActionUpdate:
			p.CanUpdate = true
		case store.ActionDelete:
			p.CanDelete = true
		}
	}
	return p
}
