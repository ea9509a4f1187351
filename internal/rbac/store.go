package rbac

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var (
	// ErrUnknownPermission reports an assignment referencing a key absent
	// from the permission catalog.
	ErrUnknownPermission = errors.New("rbac: unknown permission")
	// ErrUnavailable reports a transient backend failure.
	ErrUnavailable = errors.New("rbac: backend unavailable")
)

// Store persists the permission catalog and role assignments.
type Store interface {
	EnsurePermissions(ctx context.Context, perms []Permission) error
	ListPermissions(ctx context.Context) ([]Permission, error)
	RolePermissions(ctx context.Context, role Role) ([]string, error)
	SetRolePermissions(ctx context.Context, role Role, keys []string) error
	AllRolePermissions(ctx context.Context) (map[Role][]string, error)
}

// MemoryStore is an in-process Store for development and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	perms  map[string]Permission
	grants map[Role]map[string]struct{}
}

// NewMemoryStore returns an empty in-memory RBAC store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		perms:  make(map[string]Permission),
		grants: make(map[Role]map[string]struct{}),
	}
}

func (m *MemoryStore) EnsurePermissions(_ context.Context, perms []Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range perms {
		if p.Key == "" {
			continue
		}
		m.perms[p.Key] = p
	}
	return nil
}

func (m *MemoryStore) ListPermissions(_ context.Context) ([]Permission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Permission, 0, len(m.perms))
	for _, p := range m.perms {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *MemoryStore) RolePermissions(_ context.Context, role Role) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedKeys(m.grants[role]), nil
}

func (m *MemoryStore) SetRolePermissions(_ context.Context, role Role, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if _, ok := m.perms[key]; !ok {
			return ErrUnknownPermission
		}
		next[key] = struct{}{}
	}
	m.grants[role] = next
	return nil
}

func (m *MemoryStore) AllRolePermissions(_ context.Context) (map[Role][]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[Role][]string, len(m.grants))
	for role, set := range m.grants {
		out[role] = sortedKeys(set)
	}
	return out, nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
