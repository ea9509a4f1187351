package auth

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryMemberStore is an in-process MemberStore for development and tests.
type MemoryMemberStore struct {
	mu      sync.RWMutex
	byID    map[string]Member
	byEmail map[string]string
}

// NewMemoryMemberStore returns an empty in-memory member store.
func NewMemoryMemberStore() *MemoryMemberStore {
	return &MemoryMemberStore{
		byID:    make(map[string]Member),
		byEmail: make(map[string]string),
	}
}

func (m *MemoryMemberStore) Create(_ context.Context, member *Member) error {
	if member == nil || member.ID == "" || member.Email == "" {
		return ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	email := strings.ToLower(member.Email)
	if _, dup := m.byEmail[email]; dup {
		return ErrInvalidInput
	}
	m.byID[member.ID] = *member
	m.byEmail[email] = member.ID
	return nil
}

func (m *MemoryMemberStore) Find(_ context.Context, id string) (*Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	member, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &member, nil
}

func (m *MemoryMemberStore) FindByEmail(_ context.Context, email string) (*Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	member := m.byID[id]
	return &member, nil
}

// List returns all members ordered by email, for admin listings.
func (m *MemoryMemberStore) List(_ context.Context) ([]Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Member, 0, len(m.byID))
	for _, member := range m.byID {
		out = append(out, member)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

// MemorySessionStore is an in-process SessionStore for development and tests.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	now      func() time.Time
}

// NewMemorySessionStore returns an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]Session),
		now:      time.Now,
	}
}

func (m *MemorySessionStore) Create(_ context.Context, sess *Session) error {
	if sess == nil || sess.ID == "" {
		return ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = *sess
	return nil
}

func (m *MemorySessionStore) Find(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &sess, nil
}

func (m *MemorySessionStore) MarkStepUpVerified(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	sess.StepUpVerified = true
	m.sessions[id] = sess
	return nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}
