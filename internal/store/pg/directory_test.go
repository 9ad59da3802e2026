package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"tessera.org/internal/authz"
)

func TestFindUserMapsNullColumns(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`select .+ from users`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "company_id", "system_edition_id", "active_user_role_id"}).
			AddRow("u1", nil, "E1", nil))

	user, err := store.FindUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("FindUser: %v", err)
	}
	if user.CompanyID != "" || user.ActiveRoleID != "" {
		t.Fatalf("null columns should map to empty strings: %+v", user)
	}
	if user.SystemEditionID != "E1" {
		t.Fatalf("edition not mapped: %+v", user)
	}
}

func TestFindUserNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`select .+ from users`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "company_id", "system_edition_id", "active_user_role_id"}))

	_, err := store.FindUser(context.Background(), "missing")
	if !errors.Is(err, authz.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListUsersAppliesFieldFilter(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`select .+ from users where system_edition_id = \$1`).
		WithArgs("E1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "company_id", "system_edition_id", "created_at"}).
			AddRow("u1", "u1@example.com", "C1", "E1", created))

	rows, err := store.ListUsers(context.Background(), authz.ByField{Name: authz.FieldSystemEditionID, Value: "E1"})
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(rows) != 1 || rows[0].SystemEditionID != "E1" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListCompaniesUnrestricted(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`select .+ from companies order by name asc`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "system_edition_id", "created_at"}).
			AddRow("C1", "Acme", "E1", created).
			AddRow("C2", "Globex", "E2", created))

	rows, err := store.ListCompanies(context.Background(), authz.NoFilter{})
	if err != nil {
		t.Fatalf("ListCompanies: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected both companies, got %d", len(rows))
	}
}
