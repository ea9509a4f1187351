package auth

import (
	"context"
	"time"
)

const (
	MemberStatusActive   = "active"
	MemberStatusDisabled = "disabled"
)

// Member is an account record held by the identity provider. The authorization
// core only ever sees the opaque identity id; credential fields stay behind the
// provider boundary.
type Member struct {
	ID           string
	Email        string
	PasswordHash string
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session is the server-side record for one authenticated principal. The
// step-up flag lives here rather than in the bearer token so that verifying a
// one-time code takes effect immediately, without re-issuing credentials.
type Session struct {
	ID             string    `json:"id"`
	IdentityID     string    `json:"identity_id"`
	StepUpVerified bool      `json:"step_up_verified"`
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// Snapshot is one consistent read of session state consumed by the gate.
// Settled=false means the state is still being established and no admission
// decision may be rendered from it.
type Snapshot struct {
	Settled        bool
	IdentityID     string
	SessionID      string
	StepUpVerified bool
}

// MemberStore manages identity provider accounts.
type MemberStore interface {
	Create(ctx context.Context, m *Member) error
	Find(ctx context.Context, id string) (*Member, error)
	FindByEmail(ctx context.Context, email string) (*Member, error)
}

// SessionStore persists session records. Find returns ErrSessionNotFound for
// unknown or expired sessions and ErrUnavailable for backend trouble; callers
// decide which of the two is an authentication failure.
type SessionStore interface {
	Create(ctx context.Context, s *Session) error
	Find(ctx context.Context, id string) (*Session, error)
	MarkStepUpVerified(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}
