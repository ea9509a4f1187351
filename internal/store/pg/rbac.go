package pg

import (
	"context"

	"arventa.group/internal/rbac"
)

const pgErrForeignKeyViolation = "23503"

// RBACStore persists the permission catalog and role assignments in Postgres.
type RBACStore struct {
	store *Store
}

var _ rbac.Store = (*RBACStore)(nil)

// NewRBACStore wraps the shared connection pool.
func NewRBACStore(store *Store) *RBACStore { return &RBACStore{store: store} }

func (r *RBACStore) EnsurePermissions(ctx context.Context, perms []rbac.Permission) error {
	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range perms {
		if p.Key == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			insert into permissions (key, description)
			values ($1, $2)
			on conflict (key) do update set description = excluded.description
		`, p.Key, p.Description); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *RBACStore) ListPermissions(ctx context.Context) ([]rbac.Permission, error) {
	rows, err := r.store.db.QueryContext(ctx, `
		select key, description from permissions order by key
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []rbac.Permission
	for rows.Next() {
		var p rbac.Permission
		if err := rows.Scan(&p.Key, &p.Description); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (r *RBACStore) RolePermissions(ctx context.Context, role rbac.Role) ([]string, error) {
	rows, err := r.store.db.QueryContext(ctx, `
		select permission_key from role_permissions where role = $1 order by permission_key
	`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (r *RBACStore) SetRolePermissions(ctx context.Context, role rbac.Role, keys []string) error {
	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `delete from role_permissions where role = $1`, role); err != nil {
		return err
	}
	for _, key := range keys {
		if _, err := tx.ExecContext(ctx, `
			insert into role_permissions (role, permission_key)
			values ($1, $2)
			on conflict do nothing
		`, role, key); err != nil {
			if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
				return rbac.ErrUnknownPermission
			}
			return err
		}
	}
	return tx.Commit()
}

func (r *RBACStore) AllRolePermissions(ctx context.Context) (map[rbac.Role][]string, error) {
	rows, err := r.store.db.QueryContext(ctx, `
		select role, permission_key from role_permissions order by role, permission_key
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[rbac.Role][]string)
	for rows.Next() {
		var role rbac.Role
		var key string
		if err := rows.Scan(&role, &key); err != nil {
			return nil, err
		}
		result[role] = append(result[role], key)
	}
	return result, rows.Err()
}
