package auth

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"arventa.group/internal/ids"
	"arventa.group/internal/stream"
)

const defaultSessionTTL = 12 * time.Hour

// Service is the identity provider facade: primary credential sign-in,
// sign-out, and session state reads. Every protected request goes through
// Snapshot, so the method never blocks on a broken backend — a failed check
// settles to "not authenticated" instead of spinning (callers retry by
// re-evaluating).
type Service struct {
	members  MemberStore
	sessions SessionStore
	events   *stream.Stream

	// epoch increments on every identity change (sign-in, sign-out,
	// invalidation). In-flight reads started under an older epoch must be
	// discarded by their consumers.
	epoch atomic.Uint64

	now        func() time.Time
	sessionTTL time.Duration
	tokenTTL   time.Duration
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithSessionTTL configures session lifetime.
func WithSessionTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.sessionTTL = ttl
			s.tokenTTL = ttl
		}
	}
}

// NewService constructs the identity service.
func NewService(members MemberStore, sessions SessionStore, events *stream.Stream, opts ...ServiceOption) *Service {
	svc := &Service{
		members:    members,
		sessions:   sessions,
		events:     events,
		now:        time.Now,
		sessionTTL: defaultSessionTTL,
		tokenTTL:   defaultSessionTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// SignInResult carries the freshly created session and its bearer token.
type SignInResult struct {
	Token     string
	Session   Session
	ExpiresAt time.Time
}

// SignIn verifies primary credentials and creates a session. The step-up flag
// always starts false: a new primary login never inherits a previous
// second-factor confirmation.
func (s *Service) SignIn(ctx context.Context, email, password string) (SignInResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return SignInResult{}, ErrInvalidCredentials
	}
	member, err := s.members.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return SignInResult{}, ErrInvalidCredentials
		}
		return SignInResult{}, err
	}
	if member.Status != MemberStatusActive {
		return SignInResult{}, ErrAccountDisabled
	}
	if err := VerifyPassword(member.PasswordHash, password); err != nil {
		return SignInResult{}, ErrInvalidCredentials
	}

	now := s.now().UTC()
	sess := Session{
		ID:             ids.New(),
		IdentityID:     member.ID,
		StepUpVerified: false,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.sessionTTL),
	}
	if err := s.sessions.Create(ctx, &sess); err != nil {
		return SignInResult{}, err
	}

	token, err := GenerateToken(member.ID, sess.ID, s.tokenTTL)
	if err != nil {
		_ = s.sessions.Delete(ctx, sess.ID)
		return SignInResult{}, err
	}

	s.bump(stream.Event{Type: stream.EventSignedIn, IdentityID: member.ID, SessionID: sess.ID})
	return SignInResult{Token: token, Session: sess, ExpiresAt: sess.ExpiresAt}, nil
}

// CreateMember registers a new identity provider account.
func (s *Service) CreateMember(ctx context.Context, email, password string) (*Member, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidInput
	}
	if len(password) < 8 {
		return nil, ErrInvalidInput
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	member := Member{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: hash,
		Status:       MemberStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.members.Create(ctx, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

// SignOut destroys the session. Destroying an already absent session is not an
// error: the caller's goal state is reached either way.
func (s *Service) SignOut(ctx context.Context, sessionID string) error {
	sess, err := s.sessions.Find(ctx, sessionID)
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		return err
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	identityID := ""
	if sess != nil {
		identityID = sess.IdentityID
	}
	s.bump(stream.Event{Type: stream.EventSignedOut, IdentityID: identityID, SessionID: sessionID})
	return nil
}

// Invalidate removes a session after an external credential revocation.
func (s *Service) Invalidate(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	s.bump(stream.Event{Type: stream.EventInvalidated, SessionID: sessionID})
	return nil
}

// ConfirmStepUp flips the session's second-factor flag after a successful
// one-time code verification.
func (s *Service) ConfirmStepUp(ctx context.Context, sessionID string) error {
	if err := s.sessions.MarkStepUpVerified(ctx, sessionID); err != nil {
		return err
	}
	sess, err := s.sessions.Find(ctx, sessionID)
	identityID := ""
	if err == nil && sess != nil {
		identityID = sess.IdentityID
	}
	s.publish(stream.Event{Type: stream.EventStepUpVerified, IdentityID: identityID, SessionID: sessionID})
	return nil
}

// Snapshot resolves the session id to one consistent session state. A missing,
// expired, or unreadable session settles to unauthenticated; it never reports
// an unsettled state from here so callers cannot hang on backend trouble.
func (s *Service) Snapshot(ctx context.Context, sessionID string) Snapshot {
	if strings.TrimSpace(sessionID) == "" {
		return Snapshot{Settled: true}
	}
	sess, err := s.sessions.Find(ctx, sessionID)
	if err != nil || sess == nil {
		return Snapshot{Settled: true}
	}
	if !sess.ExpiresAt.IsZero() && s.now().After(sess.ExpiresAt) {
		_ = s.sessions.Delete(ctx, sess.ID)
		return Snapshot{Settled: true}
	}
	return Snapshot{
		Settled:        true,
		IdentityID:     sess.IdentityID,
		SessionID:      sess.ID,
		StepUpVerified: sess.StepUpVerified,
	}
}

// Session returns the full session record for handlers that need it.
func (s *Service) Session(ctx context.Context, sessionID string) (*Session, error) {
	return s.sessions.Find(ctx, sessionID)
}

// Epoch returns the current identity-change counter.
func (s *Service) Epoch() uint64 {
	return s.epoch.Load()
}

func (s *Service) bump(ev stream.Event) {
	s.epoch.Add(1)
	s.publish(ev)
}

func (s *Service) publish(ev stream.Event) {
	if s.events != nil {
		s.events.Publish(ev)
	}
}
