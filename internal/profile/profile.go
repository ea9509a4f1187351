// Package profile resolves a member's back-office profile: display data, the
// contact phone used for second-factor delivery, and the member's role.
package profile

import (
	"context"
	"errors"
	"time"

	"arventa.group/internal/rbac"
)

var (
	// ErrUnavailable reports a transient backend failure. It is distinct
	// from "no profile": a caller may retry it, while an absent profile is
	// a terminal answer.
	ErrUnavailable = errors.New("profile: backend unavailable")
	// ErrInvalidInput reports a malformed profile write.
	ErrInvalidInput = errors.New("profile: invalid input")
)

// Profile is a member's back-office record. A member without one cannot pass
// the authorization gate.
type Profile struct {
	IdentityID   string    `json:"identity_id"`
	DisplayName  string    `json:"display_name"`
	ContactPhone string    `json:"contact_phone,omitempty"`
	Role         rbac.Role `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Store persists profiles. Find returns (nil, nil) when no profile exists:
// absence is a valid answer, not a failure.
type Store interface {
	Find(ctx context.Context, identityID string) (*Profile, error)
	Upsert(ctx context.Context, p *Profile) error
}

// Resolver fetches profiles and normalizes backend failures to
// ErrUnavailable so callers can tell "missing" from "unreachable".
type Resolver struct {
	store Store
}

// NewResolver wraps the store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the identity's profile, (nil, nil) when none exists, or
// ErrUnavailable when the backend cannot answer.
func (r *Resolver) Resolve(ctx context.Context, identityID string) (*Profile, error) {
	if identityID == "" {
		return nil, nil
	}
	p, err := r.store.Find(ctx, identityID)
	if err != nil {
		return nil, ErrUnavailable
	}
	return p, nil
}

// Save validates and persists a profile.
func (r *Resolver) Save(ctx context.Context, p *Profile) error {
	if p == nil || p.IdentityID == "" || p.DisplayName == "" {
		return ErrInvalidInput
	}
	if !p.Role.Valid() {
		return ErrInvalidInput
	}
	p.UpdatedAt = time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = p.UpdatedAt
	}
	return r.store.Upsert(ctx, p)
}
