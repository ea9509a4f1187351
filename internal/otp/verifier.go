package otp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"arventa.group/internal/obs"
	"arventa.group/internal/profile"
)

const (
	defaultTTL         = 10 * time.Minute
	defaultMaxAttempts = 5
)

// ProfileSource supplies the delivery destination for an identity.
type ProfileSource interface {
	Resolve(ctx context.Context, identityID string) (*profile.Profile, error)
}

// SessionConfirmer records a successful second-factor verification on the
// caller's session.
type SessionConfirmer interface {
	ConfirmStepUp(ctx context.Context, sessionID string) error
}

// Verifier issues one-time codes and checks candidates against them. At most
// one live code exists per identity: a new request supersedes the old code
// immediately, and a verified or exhausted code is removed so it cannot be
// replayed.
type Verifier struct {
	store    ChallengeStore
	profiles ProfileSource
	sessions SessionConfirmer
	channel  Channel

	ttl         time.Duration
	maxAttempts int
	now         func() time.Time
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithTTL sets the code validity window.
func WithTTL(ttl time.Duration) VerifierOption {
	return func(v *Verifier) {
		if ttl > 0 {
			v.ttl = ttl
		}
	}
}

// WithMaxAttempts sets the failed-attempt threshold that invalidates a code.
func WithMaxAttempts(n int) VerifierOption {
	return func(v *Verifier) {
		if n > 0 {
			v.maxAttempts = n
		}
	}
}

// WithVerifierClock overrides the time source (useful for tests).
func WithVerifierClock(fn func() time.Time) VerifierOption {
	return func(v *Verifier) {
		if fn != nil {
			v.now = fn
		}
	}
}

// NewVerifier wires the verifier to its challenge store, profile source,
// session confirmer, and delivery channel.
func NewVerifier(store ChallengeStore, profiles ProfileSource, sessions SessionConfirmer, channel Channel, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		store:       store,
		profiles:    profiles,
		sessions:    sessions,
		channel:     channel,
		ttl:         defaultTTL,
		maxAttempts: defaultMaxAttempts,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Request generates a fresh code for the identity, stores its hash, and sends
// it over the delivery channel. It returns the masked destination for display.
// A prior live code, if any, is superseded before delivery is attempted.
func (v *Verifier) Request(ctx context.Context, identityID string) (string, error) {
	p, err := v.profiles.Resolve(ctx, identityID)
	if err != nil {
		return "", ErrUnavailable
	}
	destination := normalizePhone(p)
	if destination == "" {
		return "", ErrMissingDestination
	}

	code, err := GenerateCode()
	if err != nil {
		return "", err
	}
	now := v.now().UTC()
	ch := Challenge{
		IdentityID: identityID,
		CodeHash:   HashCode(code),
		IssuedAt:   now,
		ExpiresAt:  now.Add(v.ttl),
	}
	if err := v.store.Put(ctx, &ch); err != nil {
		return "", ErrUnavailable
	}
	if err := v.channel.Send(ctx, destination, code); err != nil {
		// The code never reached the user; drop it so the next request
		// starts clean.
		_ = v.store.Delete(ctx, identityID)
		if errors.Is(err, ErrDelivery) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	obs.StepUpCodeIssued()
	return maskDestination(destination), nil
}

// Verify checks the candidate against the identity's live code. On success the
// challenge is consumed and the session's step-up flag is set; a code verifies
// at most once.
func (v *Verifier) Verify(ctx context.Context, sessionID, identityID, candidate string) error {
	ch, err := v.store.Find(ctx, identityID)
	if err != nil {
		obs.StepUpVerification("unavailable")
		return ErrUnavailable
	}
	if ch == nil {
		obs.StepUpVerification("invalid")
		return ErrNoActiveCode
	}
	if v.now().After(ch.ExpiresAt) {
		_ = v.store.Delete(ctx, identityID)
		obs.StepUpVerification("expired")
		return ErrExpired
	}
	if !CodeEqual(ch.CodeHash, candidate) {
		count, ferr := v.store.RecordFailure(ctx, identityID)
		if ferr != nil {
			obs.StepUpVerification("unavailable")
			return ErrUnavailable
		}
		if count >= v.maxAttempts {
			_ = v.store.Delete(ctx, identityID)
			obs.StepUpVerification("locked")
			return ErrTooManyAttempts
		}
		obs.StepUpVerification("invalid")
		return ErrInvalidCode
	}

	if err := v.store.Delete(ctx, identityID); err != nil {
		obs.StepUpVerification("unavailable")
		return ErrUnavailable
	}
	if err := v.sessions.ConfirmStepUp(ctx, sessionID); err != nil {
		obs.StepUpVerification("unavailable")
		return ErrUnavailable
	}
	obs.StepUpVerification("ok")
	return nil
}

// normalizePhone extracts a usable destination from the profile. Anything
// shorter than eight digits is treated as absent.
func normalizePhone(p *profile.Profile) string {
	if p == nil {
		return ""
	}
	var b strings.Builder
	for i, r := range p.ContactPhone {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')':
			// separator noise
		default:
			return ""
		}
	}
	digits := strings.TrimPrefix(b.String(), "+")
	if len(digits) < 8 {
		return ""
	}
	return b.String()
}

// maskDestination hides all but the last two digits of a phone number.
func maskDestination(destination string) string {
	if len(destination) <= 2 {
		return destination
	}
	visible := destination[len(destination)-2:]
	return strings.Repeat("*", len(destination)-2) + visible
}
