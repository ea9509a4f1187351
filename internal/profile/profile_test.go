package profile

import (
	"context"
	"errors"
	"testing"

	"arventa.group/internal/rbac"
)

func TestResolveMissingProfileIsNilNil(t *testing.T) {
	resolver := NewResolver(NewMemoryStore())

	p, err := resolver.Resolve(context.Background(), "member-1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p != nil {
		t.Fatalf("profile = %+v, want nil for absent record", p)
	}
}

func TestSaveAndResolve(t *testing.T) {
	resolver := NewResolver(NewMemoryStore())
	ctx := context.Background()

	in := &Profile{
		IdentityID:   "member-1",
		DisplayName:  "Dana Serik",
		ContactPhone: "+77010001122",
		Role:         rbac.RoleManager,
	}
	if err := resolver.Save(ctx, in); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if in.CreatedAt.IsZero() || in.UpdatedAt.IsZero() {
		t.Fatal("Save must stamp timestamps")
	}

	p, err := resolver.Resolve(ctx, "member-1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p == nil || p.Role != rbac.RoleManager || p.ContactPhone != "+77010001122" {
		t.Fatalf("profile = %+v", p)
	}
}

func TestSaveRejectsInvalid(t *testing.T) {
	resolver := NewResolver(NewMemoryStore())
	ctx := context.Background()

	cases := []*Profile{
		nil,
		{DisplayName: "No Identity", Role: rbac.RoleManager},
		{IdentityID: "member-1", Role: rbac.RoleManager},
		{IdentityID: "member-1", DisplayName: "Bad Role", Role: rbac.Role("janitor")},
	}
	for _, p := range cases {
		if err := resolver.Save(ctx, p); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("Save(%+v) = %v, want ErrInvalidInput", p, err)
		}
	}
}

type failingStore struct{}

func (failingStore) Find(context.Context, string) (*Profile, error) {
	return nil, errors.New("connection refused")
}
func (failingStore) Upsert(context.Context, *Profile) error {
	return errors.New("connection refused")
}

func TestResolveBackendFailureIsUnavailable(t *testing.T) {
	resolver := NewResolver(failingStore{})

	_, err := resolver.Resolve(context.Background(), "member-1")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("error = %v, want ErrUnavailable", err)
	}
}
