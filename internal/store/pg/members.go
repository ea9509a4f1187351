package pg

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"arventa.group/internal/auth"
)

const (
	pgErrUniqueViolation = "23505"
)

// MemberStore persists identity provider accounts in Postgres.
type MemberStore struct {
	store *Store
}

var _ auth.MemberStore = (*MemberStore)(nil)

// NewMemberStore wraps the shared connection pool.
func NewMemberStore(store *Store) *MemberStore { return &MemberStore{store: store} }

func (m *MemberStore) Create(ctx context.Context, member *auth.Member) error {
	if member == nil || member.ID == "" || member.Email == "" {
		return auth.ErrInvalidInput
	}
	err := m.store.db.QueryRowContext(ctx, `
		insert into members (id, email, password_hash, status)
		values ($1, lower($2), $3, $4)
		returning created_at, updated_at
	`, member.ID, member.Email, member.PasswordHash, member.Status).Scan(&member.CreatedAt, &member.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return auth.ErrInvalidInput
		}
		return err
	}
	return nil
}

func (m *MemberStore) Find(ctx context.Context, id string) (*auth.Member, error) {
	return m.findBy(ctx, `id = $1`, id)
}

func (m *MemberStore) FindByEmail(ctx context.Context, email string) (*auth.Member, error) {
	return m.findBy(ctx, `email = lower($1)`, strings.TrimSpace(email))
}

func (m *MemberStore) findBy(ctx context.Context, where, arg string) (*auth.Member, error) {
	var member auth.Member
	err := m.store.db.QueryRowContext(ctx, `
		select id, email, password_hash, status, created_at, updated_at
		from members
		where `+where+`
	`, arg).Scan(&member.ID, &member.Email, &member.PasswordHash, &member.Status, &member.CreatedAt, &member.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// SetStatus enables or disables an account.
func (m *MemberStore) SetStatus(ctx context.Context, id, status string) error {
	res, err := m.store.db.ExecContext(ctx, `
		update members set status = $2, updated_at = now() where id = $1
	`, id, status)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}
