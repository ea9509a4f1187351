package otp

import (
	"context"
	"sync"
	"time"
)

// Challenge is one live code issuance for an identity. At most one challenge
// per identity exists at a time: issuing a new code replaces the old one.
type Challenge struct {
	IdentityID string    `json:"identity_id"`
	CodeHash   string    `json:"code_hash"`
	IssuedAt   time.Time `json:"issued_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	Attempts   int       `json:"attempts"`
}

// ChallengeStore persists live challenges. Find returns (nil, nil) when no
// challenge exists. RecordFailure increments and returns the failed-attempt
// count so the verifier can enforce its threshold atomically enough for a
// single store.
type ChallengeStore interface {
	Put(ctx context.Context, ch *Challenge) error
	Find(ctx context.Context, identityID string) (*Challenge, error)
	RecordFailure(ctx context.Context, identityID string) (int, error)
	Delete(ctx context.Context, identityID string) error
}

// MemoryChallengeStore is an in-process ChallengeStore for development and
// tests.
type MemoryChallengeStore struct {
	mu         sync.Mutex
	challenges map[string]Challenge
}

// NewMemoryChallengeStore returns an empty in-memory challenge store.
func NewMemoryChallengeStore() *MemoryChallengeStore {
	return &MemoryChallengeStore{challenges: make(map[string]Challenge)}
}

func (m *MemoryChallengeStore) Put(_ context.Context, ch *Challenge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.challenges[ch.IdentityID] = *ch
	return nil
}

func (m *MemoryChallengeStore) Find(_ context.Context, identityID string) (*Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.challenges[identityID]
	if !ok {
		return nil, nil
	}
	return &ch, nil
}

func (m *MemoryChallengeStore) RecordFailure(_ context.Context, identityID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.challenges[identityID]
	if !ok {
		return 0, ErrNoActiveCode
	}
	ch.Attempts++
	m.challenges[identityID] = ch
	return ch.Attempts, nil
}

func (m *MemoryChallengeStore) Delete(_ context.Context, identityID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.challenges, identityID)
	return nil
}
