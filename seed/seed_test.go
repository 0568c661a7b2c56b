package seed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/instaflow/authcore/password"
	"github.com/instaflow/authcore/store"
	"github.com/instaflow/authcore/store/memory"
)

const fixtureYAML = `
version: 1
admin:
  email: Admin@Example.com
  password: AdminPass1
owners:
  - email: owner@example.com
    password: OwnerPass1
    name: Shop Owner
staff:
  - email: clerk@example.com
    password: ClerkPass1
    name: Shop Clerk
    owner: OWNER@example.com
    grants:
      - page: PAYMENTS
        actions: [read, create]
      - page: LOGS
        actions: [read]
`

func newSeeder(t *testing.T) (*Seeder, *memory.Store) {
	t.Helper()
	s := memory.New()
	t.Cleanup(func() { _ = s.Close() })
	return New(s, password.NewBcryptHasher(&password.BcryptConfig{Cost: 4}), nil), s
}

func TestLoadFromBytes_YAML(t *testing.T) {
	f, err := LoadFromBytes([]byte(fixtureYAML), ".yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Admin == nil || f.Admin.Email != "Admin@Example.com" {
		t.Fatalf("admin = %+v", f.Admin)
	}
	if len(f.Staff) != 1 || f.Staff[0].Email != "clerk@example.com" || len(f.Staff[0].Grants) != 2 {
		t.Fatalf("staff = %+v", f.Staff)
	}
}

func TestLoadFromBytes_JSON(t *testing.T) {
	data := `{"version":1,"admin":{"email":"a@example.com","password":"AdminPass1"}}`
	f, err := LoadFromBytes([]byte(data), ".json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Admin.Email != "a@example.com" {
		t.Errorf("admin email = %q", f.Admin.Email)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.yaml")
	if err := os.WriteFile(path, []byte(fixtureYAML), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, bad := range []string{"", "../seed.yaml", filepath.Join(dir, "seed.txt")} {
		if _, err := LoadFromFile(bad); !errors.Is(err, ErrInvalidFixturePath) {
			t.Errorf("LoadFromFile(%q) error = %v, want ErrInvalidFixturePath", bad, err)
		}
	}
}

func TestFixture_Validate(t *testing.T) {
	tests := []struct {
		name    string
		fixture Fixture
		wantErr error
	}{
		{
			name:    "weak admin password",
			fixture: Fixture{Admin: &Account{Email: "a@example.com", Password: "short"}},
			wantErr: ErrInvalidAccount,
		},
		{
			name:    "bad owner email",
			fixture: Fixture{Owners: []Account{{Email: "nope", Password: "OwnerPass1", Name: "Owner"}}},
			wantErr: ErrInvalidAccount,
		},
		{
			name: "staff without declared owner",
			fixture: Fixture{Staff: []Staff{{
				Account: Account{Email: "s@example.com", Password: "StaffPass1", Name: "Staff"},
				Owner:   "ghost@example.com",
			}}},
			wantErr: ErrUnknownOwner,
		},
		{
			name: "unknown page",
			fixture: Fixture{
				Owners: []Account{{Email: "o@example.com", Password: "OwnerPass1", Name: "Owner"}},
				Staff: []Staff{{
					Account: Account{Email: "s@example.com", Password: "StaffPass1", Name: "Staff"},
					Owner:   "o@example.com",
					Grants:  []Grant{{Page: "BILLING", Actions: []store.Action{store.ActionRead}}},
				}},
			},
			wantErr: ErrInvalidGrant,
		},
		{
			name: "unknown action",
			fixture: Fixture{
				Owners: []Account{{Email: "o@example.com", Password: "OwnerPass1", Name: "Owner"}},
				Staff: []Staff{{
					Account: Account{Email: "s@example.com", Password: "StaffPass1", Name: "Staff"},
					Owner:   "o@example.com",
					Grants:  []Grant{{Page: store.PageLogs, Actions: []store.Action{"export"}}},
				}},
			},
			wantErr: ErrInvalidGrant,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fixture.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSeeder_Apply(t *testing.T) {
	seeder, s := newSeeder(t)
	ctx := context.Background()

	f, err := LoadFromBytes([]byte(fixtureYAML), ".yaml")
	if err != nil {
		t.Fatal(err)
	}
	report, err := seeder.Apply(ctx, f)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if len(report.Created) != 3 || len(report.Existing) != 0 {
		t.Fatalf("report = %+v", report)
	}

	admin, err := s.FindUserByEmail(ctx, "admin@example.com")
	if err != nil {
		t.Fatalf("admin not created: %v", err)
	}
	if admin.Type != store.UserTypeSuperAdmin || admin.Name != DefaultAdminName || !admin.IsActive() {
		t.Errorf("admin = %+v", admin)
	}

	owner, _ := s.FindUserByEmail(ctx, "owner@example.com")
	clerk, err := s.FindUserByEmail(ctx, "clerk@example.com")
	if err != nil {
		t.Fatalf("staff not created: %v", err)
	}
	if clerk.Type != store.UserTypeStaff || clerk.ParentUserID == nil || *clerk.ParentUserID != owner.ID {
		t.Errorf("staff = %+v, want parent %s", clerk, owner.ID)
	}

	perm, err := s.GetPermission(ctx, clerk.ID, store.PagePayments)
	if err != nil {
		t.Fatalf("grant missing: %v", err)
	}
	if !perm.CanRead || !perm.CanCreate || perm.CanUpdate || perm.CanDelete {
		t.Errorf("grant = %+v", perm)
	}
}

func TestSeeder_ApplyIsIdempotent(t *testing.T) {
	seeder, s := newSeeder(t)
	ctx := context.Background()

	load := func() *Fixture {
		f, err := LoadFromBytes([]byte(fixtureYAML), ".yaml")
		if err != nil {
			t.Fatal(err)
		}
		return f
	}

	if _, err := seeder.Apply(ctx, load()); err != nil {
		t.Fatal(err)
	}
	before, _ := s.FindUserByEmail(ctx, "admin@example.com")

	report, err := seeder.Apply(ctx, load())
	if err != nil {
		t.Fatalf("second Apply() error = %v", err)
	}
	if len(report.Created) != 0 || len(report.Existing) != 3 {
		t.Fatalf("report = %+v", report)
	}

	after, _ := s.FindUserByEmail(ctx, "admin@example.com")
	if after.PasswordHash != before.PasswordHash {
		t.Error("existing admin password was overwritten")
	}
}

func TestSeeder_OwnerMustBeOwner(t *testing.T) {
	seeder, _ := newSeeder(t)
	ctx := context.Background()

	// The staff's owner email belongs to an existing admin, not an owner.
	first := &Fixture{Admin: &Account{Email: "boss@example.com", Password: "AdminPass1"}}
	if _, err := seeder.Apply(ctx, first); err != nil {
		t.Fatal(err)
	}

	second := &Fixture{
		Owners: []Account{{Email: "boss@example.com", Password: "OwnerPass1", Name: "Boss"}},
		Staff: []Staff{{
			Account: Account{Email: "s@example.com", Password: "StaffPass1", Name: "Staff"},
			Owner:   "boss@example.com",
		}},
	}
	_, err := seeder.Apply(ctx, second)
	if !errors.Is(err, ErrUnknownOwner) {
		t.Errorf("Apply() error = %v, want ErrUnknownOwner", err)
	}
}
