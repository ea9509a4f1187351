package pg

import (
	"context"
	"database/sql"
	"errors"

	"arventa.group/internal/profile"
)

// ProfileStore persists member profiles in Postgres.
type ProfileStore struct {
	store *Store
}

var _ profile.Store = (*ProfileStore)(nil)

// NewProfileStore wraps the shared connection pool.
func NewProfileStore(store *Store) *ProfileStore { return &ProfileStore{store: store} }

func (p *ProfileStore) Find(ctx context.Context, identityID string) (*profile.Profile, error) {
	var rec profile.Profile
	err := p.store.db.QueryRowContext(ctx, `
		select identity_id, display_name, coalesce(contact_phone, ''), role, created_at, updated_at
		from profiles
		where identity_id = $1
	`, identityID).Scan(&rec.IdentityID, &rec.DisplayName, &rec.ContactPhone, &rec.Role, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		// Absence is an answer, not an error.
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (p *ProfileStore) Upsert(ctx context.Context, rec *profile.Profile) error {
	if rec == nil || rec.IdentityID == "" {
		return profile.ErrInvalidInput
	}
	_, err := p.store.db.ExecContext(ctx, `
		insert into profiles (identity_id, display_name, contact_phone, role)
		values ($1, $2, nullif($3, ''), $4)
		on conflict (identity_id) do update
		set display_name = excluded.display_name,
		    contact_phone = excluded.contact_phone,
		    role = excluded.role,
		    updated_at = now()
	`, rec.IdentityID, rec.DisplayName, rec.ContactPhone, rec.Role)
	return err
}
