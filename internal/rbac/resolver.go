package rbac

import (
	"context"
	"sync"
)

// View is one role's authorization posture at a point in time. It stays valid
// after the resolver's cache moves on, so a single request sees one consistent
// permission set.
type View struct {
	Role     Role
	Elevated bool
	Settled  bool

	keys map[string]struct{}
}

// Allows reports whether the view grants the permission key. Elevated roles
// allow every key, including keys nobody has defined; the check happens before
// any set lookup so an elevated member is never blocked by an unloaded or
// empty permission set.
func (v View) Allows(key string) bool {
	if v.Elevated {
		return true
	}
	if !v.Settled {
		return false
	}
	_, ok := v.keys[key]
	return ok
}

// Keys returns the granted permission keys. Elevated views report nil: their
// grant is universal, not enumerable.
func (v View) Keys() []string {
	if v.Elevated || v.keys == nil {
		return nil
	}
	keys := make([]string, 0, len(v.keys))
	for key := range v.keys {
		keys = append(keys, key)
	}
	return keys
}

// Resolver answers "may this role do X" questions, caching per-role permission
// sets loaded from the store.
type Resolver struct {
	store    Store
	elevated map[Role]struct{}

	mu    sync.RWMutex
	cache map[Role]map[string]struct{}
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithElevatedRoles replaces the default elevated-role set.
func WithElevatedRoles(roles []Role) ResolverOption {
	return func(r *Resolver) {
		r.elevated = make(map[Role]struct{}, len(roles))
		for _, role := range roles {
			r.elevated[role] = struct{}{}
		}
	}
}

// NewResolver builds a Resolver over the store with DefaultElevatedRoles
// unless overridden.
func NewResolver(store Store, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		store: store,
		cache: make(map[Role]map[string]struct{}),
	}
	WithElevatedRoles(DefaultElevatedRoles)(r)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Elevated reports whether the role bypasses permission checks.
func (r *Resolver) Elevated(role Role) bool {
	_, ok := r.elevated[role]
	return ok
}

// View resolves the role's current permission set. Elevated roles settle
// immediately without touching the store. A store failure yields an unsettled
// view; callers decide how to wait it out.
func (r *Resolver) View(ctx context.Context, role Role) View {
	if r.Elevated(role) {
		return View{Role: role, Elevated: true, Settled: true}
	}

	r.mu.RLock()
	cached, ok := r.cache[role]
	r.mu.RUnlock()
	if ok {
		return View{Role: role, Settled: true, keys: cached}
	}

	keys, err := r.store.RolePermissions(ctx, role)
	if err != nil {
		return View{Role: role}
	}
	set := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		set[key] = struct{}{}
	}
	r.mu.Lock()
	r.cache[role] = set
	r.mu.Unlock()
	return View{Role: role, Settled: true, keys: set}
}

// Invalidate drops the cached set for a role after its grants change.
func (r *Resolver) Invalidate(role Role) {
	r.mu.Lock()
	delete(r.cache, role)
	r.mu.Unlock()
}

// SetRolePermissions writes the assignment and invalidates the cache in one
// step so the next View sees the new grants.
func (r *Resolver) SetRolePermissions(ctx context.Context, role Role, keys []string) error {
	if err := r.store.SetRolePermissions(ctx, role, keys); err != nil {
		return err
	}
	r.Invalidate(role)
	return nil
}

// Seed loads the builtin permission catalog and grants roles their default
// sets, without overwriting roles that already carry assignments.
func (r *Resolver) Seed(ctx context.Context) error {
	if err := r.store.EnsurePermissions(ctx, BuiltinPermissions); err != nil {
		return err
	}
	existing, err := r.store.AllRolePermissions(ctx)
	if err != nil {
		return err
	}
	for role, keys := range DefaultRoleGrants {
		if len(existing[role]) > 0 {
			continue
		}
		if err := r.store.SetRolePermissions(ctx, role, keys); err != nil {
			return err
		}
	}
	return nil
}
