package pg

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"arventa.group/internal/auth"
	"arventa.group/internal/profile"
	"arventa.group/internal/rbac"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewWithDB(db), mock
}

func TestMemberStoreCreateAndFind(t *testing.T) {
	store, mock := newMockStore(t)
	members := NewMemberStore(store)
	now := time.Now().UTC()

	mock.ExpectQuery("insert into members").
		WithArgs("member-1", "dana@arventa.group", "hash", auth.MemberStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	member := auth.Member{
		ID:           "member-1",
		Email:        "dana@arventa.group",
		PasswordHash: "hash",
		Status:       auth.MemberStatusActive,
	}
	if err := members.Create(context.Background(), &member); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if member.CreatedAt.IsZero() {
		t.Fatal("Create must populate timestamps")
	}

	rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "status", "created_at", "updated_at"}).
		AddRow("member-1", "dana@arventa.group", "hash", auth.MemberStatusActive, now, now)
	mock.ExpectQuery("select id, email, password_hash, status, created_at, updated_at.*from members").
		WithArgs("dana@arventa.group").
		WillReturnRows(rows)

	got, err := members.FindByEmail(context.Background(), "dana@arventa.group")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if got.ID != "member-1" {
		t.Fatalf("id = %q, want member-1", got.ID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMemberStoreFindMissing(t *testing.T) {
	store, mock := newMockStore(t)
	members := NewMemberStore(store)

	mock.ExpectQuery("select id, email, password_hash, status, created_at, updated_at.*from members").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "status", "created_at", "updated_at"}))

	if _, err := members.Find(context.Background(), "ghost"); err != auth.ErrNotFound {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestProfileStoreFindMissingIsNilNil(t *testing.T) {
	store, mock := newMockStore(t)
	profiles := NewProfileStore(store)

	mock.ExpectQuery("select identity_id, display_name.*from profiles").
		WithArgs("member-1").
		WillReturnRows(sqlmock.NewRows([]string{"identity_id", "display_name", "contact_phone", "role", "created_at", "updated_at"}))

	p, err := profiles.Find(context.Background(), "member-1")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if p != nil {
		t.Fatalf("profile = %+v, want nil", p)
	}
}

func TestProfileStoreFind(t *testing.T) {
	store, mock := newMockStore(t)
	profiles := NewProfileStore(store)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"identity_id", "display_name", "contact_phone", "role", "created_at", "updated_at"}).
		AddRow("member-1", "Dana Serik", "+77010001122", "manager", now, now)
	mock.ExpectQuery("select identity_id, display_name.*from profiles").
		WithArgs("member-1").
		WillReturnRows(rows)

	p, err := profiles.Find(context.Background(), "member-1")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if p == nil || p.Role != rbac.RoleManager || p.ContactPhone != "+77010001122" {
		t.Fatalf("profile = %+v", p)
	}
}

func TestProfileStoreUpsert(t *testing.T) {
	store, mock := newMockStore(t)
	profiles := NewProfileStore(store)

	mock.ExpectExec("insert into profiles").
		WithArgs("member-1", "Dana Serik", "+77010001122", rbac.RoleManager).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := profiles.Upsert(context.Background(), &profile.Profile{
		IdentityID:   "member-1",
		DisplayName:  "Dana Serik",
		ContactPhone: "+77010001122",
		Role:         rbac.RoleManager,
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRBACStoreSetRolePermissions(t *testing.T) {
	store, mock := newMockStore(t)
	rbacStore := NewRBACStore(store)

	mock.ExpectBegin()
	mock.ExpectExec("delete from role_permissions").
		WithArgs(rbac.RoleManager).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("insert into role_permissions").
		WithArgs(rbac.RoleManager, rbac.PermCoursesView).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into role_permissions").
		WithArgs(rbac.RoleManager, rbac.PermReportsView).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := rbacStore.SetRolePermissions(context.Background(), rbac.RoleManager, []string{rbac.PermCoursesView, rbac.PermReportsView})
	if err != nil {
		t.Fatalf("SetRolePermissions: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRBACStoreRolePermissions(t *testing.T) {
	store, mock := newMockStore(t)
	rbacStore := NewRBACStore(store)

	rows := sqlmock.NewRows([]string{"permission_key"}).
		AddRow(rbac.PermCoursesView).
		AddRow(rbac.PermReportsView)
	mock.ExpectQuery("select permission_key from role_permissions").
		WithArgs(rbac.RoleManager).
		WillReturnRows(rows)

	keys, err := rbacStore.RolePermissions(context.Background(), rbac.RoleManager)
	if err != nil {
		t.Fatalf("RolePermissions: %v", err)
	}
	if len(keys) != 2 || keys[0] != rbac.PermCoursesView {
		t.Fatalf("keys = %v", keys)
	}
}
