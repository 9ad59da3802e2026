package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"tessera.org/internal/authz"
)

var delegateCols = []string{
	"id", "system_edition_id", "delegator_id", "delegate_id",
	"permissions", "is_active", "expiration_date", "created_at",
}

func TestFindActiveGrantDecodesPermissions(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`select .+ from delegate_grants`).
		WithArgs("helper", "owner").
		WillReturnRows(sqlmock.NewRows(delegateCols).
			AddRow("d1", "E1", "owner", "helper", []byte(`["user.read","company.read"]`), true, nil, created))

	grant, err := store.FindActiveGrant(context.Background(), "helper", "owner")
	if err != nil {
		t.Fatalf("FindActiveGrant: %v", err)
	}
	if len(grant.Permissions) != 2 || grant.Permissions[0] != authz.PermReadUser {
		t.Fatalf("permissions not decoded: %v", grant.Permissions)
	}
	if grant.ExpirationDate != nil {
		t.Fatalf("expected open-ended delegation")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFindActiveGrantAbsent(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`select .+ from delegate_grants`).
		WithArgs("helper", "owner").
		WillReturnRows(sqlmock.NewRows(delegateCols))

	_, err := store.FindActiveGrant(context.Background(), "helper", "owner")
	if !errors.Is(err, authz.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateDelegateGrantEncodesPermissions(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)

	mock.ExpectExec(`insert into delegate_grants`).
		WithArgs(sqlmock.AnyArg(), "E1", "owner", "helper", []byte(`["user.read"]`), true, sqlmock.AnyArg(), created).
		WillReturnResult(sqlmock.NewResult(1, 1))

	grant, err := store.Delegates().CreateGrant(context.Background(), authz.DelegateAccessGrant{
		SystemEditionID: "E1",
		DelegatorID:     "owner",
		DelegateID:      "helper",
		Permissions:     []authz.Permission{authz.PermReadUser},
		IsActive:        true,
		CreatedAt:       created,
	})
	if err != nil {
		t.Fatalf("CreateGrant: %v", err)
	}
	if grant.ID == "" {
		t.Fatalf("expected generated id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
