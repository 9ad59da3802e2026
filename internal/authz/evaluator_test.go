package authz

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestCheckPermissionMissingFromRole(t *testing.T) {
	calls := 0
	dir := &stubDirectory{findUserFn: func(context.Context, string) (UserRecord, error) {
		calls++
		return UserRecord{}, nil
	}}
	e := newTestEvaluator(dir, nil)

	dec, err := e.CheckPermission(context.Background(), PermDeleteCompany, PermissionContext{
		UserID: "u1", Role: RoleCompanyMember,
	})
	if err != nil {
		t.Fatalf("CheckPermission: %v", err)
	}
	if dec.Granted {
		t.Fatalf("expected denial")
	}
	if !strings.Contains(dec.Reason, "does not have permission") {
		t.Fatalf("unexpected reason: %s", dec.Reason)
	}
	if calls != 0 {
		t.Fatalf("directory must not be consulted when the base permission is missing")
	}
}

func TestCheckPermissionGlobalIgnoresTargets(t *testing.T) {
	e := newTestEvaluator(nil, nil)
	dec, err := e.CheckPermission(context.Background(), PermDeleteCompany, PermissionContext{
		UserID:                "u1",
		Role:                  RoleSuperAdmin,
		TargetUserID:          "someone-else",
		TargetCompanyID:       "c-far-away",
		TargetSystemEditionID: "e-far-away",
	})
	if err != nil || !dec.Granted {
		t.Fatalf("global scope should grant regardless of targets: %+v %v", dec, err)
	}
}

func TestCheckPermissionEditionScope(t *testing.T) {
	dir := &stubDirectory{
		findUserFn: func(_ context.Context, id string) (UserRecord, error) {
			switch id {
			case "admin":
				return UserRecord{ID: id, SystemEditionID: "E1"}, nil
			case "peer":
				return UserRecord{ID: id, SystemEditionID: "E1", CompanyID: "C1"}, nil
			case "stranger":
				return UserRecord{ID: id, SystemEditionID: "E2"}, nil
			case "unassigned":
				return UserRecord{ID: id}, nil
			}
			return UserRecord{}, ErrNotFound
		},
		findCompanyFn: func(_ context.Context, id string) (CompanyRecord, error) {
			if id == "C1" {
				return CompanyRecord{ID: id, SystemEditionID: "E1"}, nil
			}
			return CompanyRecord{ID: id, SystemEditionID: "E2"}, nil
		},
	}
	e := newTestEvaluator(dir, nil)
	ctx := context.Background()

	dec, err := e.CheckPermission(ctx, PermUpdateCompany, PermissionContext{
		UserID: "admin", Role: RoleEditionAdmin, TargetCompanyID: "C1",
	})
	if err != nil || !dec.Granted {
		t.Fatalf("same-edition company should be granted: %+v %v", dec, err)
	}

	dec, err = e.CheckPermission(ctx, PermUpdateCompany, PermissionContext{
		UserID: "admin", Role: RoleEditionAdmin, TargetCompanyID: "C2",
	})
	if err != nil {
		t.Fatalf("CheckPermission: %v", err)
	}
	if dec.Granted || !strings.Contains(dec.Reason, "not in assigned edition") {
		t.Fatalf("cross-edition company should deny with edition reason: %+v", dec)
	}

	dec, err = e.CheckPermission(ctx, PermReadUser, PermissionContext{
		UserID: "admin", Role: RoleEditionAdmin, TargetUserID: "stranger",
	})
	if err != nil || dec.Granted {
		t.Fatalf("cross-edition user should deny: %+v %v", dec, err)
	}

	dec, err = e.CheckPermission(ctx, PermReadUser, PermissionContext{
		UserID: "unassigned", Role: RoleEditionAdmin,
	})
	if err != nil {
		t.Fatalf("CheckPermission: %v", err)
	}
	if dec.Granted || !strings.Contains(dec.Reason, "no assigned edition") {
		t.Fatalf("user without edition must always deny: %+v", dec)
	}

	dec, err = e.CheckPermission(ctx, PermReadUser, PermissionContext{
		UserID: "admin", Role: RoleEditionAdmin, TargetSystemEditionID: "E2",
	})
	if err != nil || dec.Granted {
		t.Fatalf("foreign target edition should deny: %+v %v", dec, err)
	}
}

func TestCheckPermissionDeniesOnFirstFailingTarget(t *testing.T) {
	userLookups := 0
	dir := &stubDirectory{
		findUserFn: func(_ context.Context, id string) (UserRecord, error) {
			userLookups++
			return UserRecord{ID: id, SystemEditionID: "E1"}, nil
		},
		findCompanyFn: func(_ context.Context, id string) (CompanyRecord, error) {
			return CompanyRecord{ID: id, SystemEditionID: "E9"}, nil
		},
	}
	e := newTestEvaluator(dir, nil)

	dec, err := e.CheckPermission(context.Background(), PermReadUser, PermissionContext{
		UserID:          "admin",
		Role:            RoleEditionAdmin,
		TargetCompanyID: "C9",
		TargetUserID:    "other",
	})
	if err != nil || dec.Granted {
		t.Fatalf("expected denial: %+v %v", dec, err)
	}
	// Acting user lookup only; the failing company check stops evaluation
	// before the target user is resolved.
	if userLookups != 1 {
		t.Fatalf("expected 1 user lookup, got %d", userLookups)
	}
}

func TestCheckPermissionCompanyScope(t *testing.T) {
	dir := &stubDirectory{
		findUserFn: func(_ context.Context, id string) (UserRecord, error) {
			switch id {
			case "admin":
				return UserRecord{ID: id, CompanyID: "C1", SystemEditionID: "E1"}, nil
			case "colleague":
				return UserRecord{ID: id, CompanyID: "C1"}, nil
			case "outsider":
				return UserRecord{ID: id, CompanyID: "C2"}, nil
			case "homeless":
				return UserRecord{ID: id}, nil
			}
			return UserRecord{}, ErrNotFound
		},
	}
	e := newTestEvaluator(dir, nil)
	ctx := context.Background()

	dec, err := e.CheckPermission(ctx, PermReadUser, PermissionContext{
		UserID: "admin", Role: RoleCompanyAdmin, TargetUserID: "colleague",
	})
	if err != nil || !dec.Granted {
		t.Fatalf("same-company user should be granted: %+v %v", dec, err)
	}

	dec, err = e.CheckPermission(ctx, PermReadUser, PermissionContext{
		UserID: "admin", Role: RoleCompanyAdmin, TargetUserID: "outsider",
	})
	if err != nil || dec.Granted {
		t.Fatalf("cross-company user should deny: %+v %v", dec, err)
	}

	dec, err = e.CheckPermission(ctx, PermUpdateCompany, PermissionContext{
		UserID: "admin", Role: RoleCompanyAdmin, TargetCompanyID: "C1",
	})
	if err != nil || !dec.Granted {
		t.Fatalf("own company should be granted: %+v %v", dec, err)
	}

	dec, err = e.CheckPermission(ctx, PermUpdateCompany, PermissionContext{
		UserID: "admin", Role: RoleCompanyAdmin, TargetCompanyID: "C2",
	})
	if err != nil || dec.Granted {
		t.Fatalf("foreign company should deny: %+v %v", dec, err)
	}

	dec, err = e.CheckPermission(ctx, PermReadUser, PermissionContext{
		UserID: "homeless", Role: RoleCompanyAdmin,
	})
	if err != nil {
		t.Fatalf("CheckPermission: %v", err)
	}
	if dec.Granted || !strings.Contains(dec.Reason, "no assigned company") {
		t.Fatalf("user without company must deny: %+v", dec)
	}
}

func TestCheckPermissionSelfScope(t *testing.T) {
	e := newTestEvaluator(nil, nil)
	ctx := context.Background()

	dec, err := e.CheckPermission(ctx, PermReadProfile, PermissionContext{
		UserID: "u1", Role: RoleCompanyMember,
	})
	if err != nil || !dec.Granted {
		t.Fatalf("self scope without target should grant: %+v %v", dec, err)
	}

	dec, err = e.CheckPermission(ctx, PermReadProfile, PermissionContext{
		UserID: "u1", Role: RoleCompanyMember, TargetUserID: "u1",
	})
	if err != nil || !dec.Granted {
		t.Fatalf("self scope on own id should grant: %+v %v", dec, err)
	}

	dec, err = e.CheckPermission(ctx, PermReadProfile, PermissionContext{
		UserID: "u1", Role: RoleCompanyMember, TargetUserID: "u2",
	})
	if err != nil || dec.Granted {
		t.Fatalf("self scope on another user should deny: %+v %v", dec, err)
	}
}

func TestCheckPermissionIsIdempotent(t *testing.T) {
	dir := &stubDirectory{findUserFn: func(_ context.Context, id string) (UserRecord, error) {
		return UserRecord{ID: id, SystemEditionID: "E1"}, nil
	}}
	e := newTestEvaluator(dir, nil)
	pc := PermissionContext{UserID: "u1", Role: RoleEditionAdmin, TargetSystemEditionID: "E1"}

	first, err := e.CheckPermission(context.Background(), PermReadUser, pc)
	if err != nil {
		t.Fatalf("CheckPermission: %v", err)
	}
	second, err := e.CheckPermission(context.Background(), PermReadUser, pc)
	if err != nil {
		t.Fatalf("CheckPermission: %v", err)
	}
	if first != second {
		t.Fatalf("identical contexts produced different decisions: %+v vs %+v", first, second)
	}
}

func TestCheckPermissionUnknownRole(t *testing.T) {
	e := newTestEvaluator(nil, nil)
	_, err := e.CheckPermission(context.Background(), PermReadUser, PermissionContext{
		UserID: "u1", Role: Role("warlock"),
	})
	if !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
}

func TestCheckScopeAccessUnknownScope(t *testing.T) {
	e := newTestEvaluator(nil, nil)
	_, err := e.checkScopeAccess(context.Background(), AccessScope("continent"), PermissionContext{UserID: "u1"})
	if !errors.Is(err, ErrUnknownScope) {
		t.Fatalf("unknown scope must be an error, got %v", err)
	}
}

func TestCheckPermissionPropagatesDirectoryFailure(t *testing.T) {
	upstream := errors.New("pg: connection refused")
	dir := &stubDirectory{findUserFn: func(context.Context, string) (UserRecord, error) {
		return UserRecord{}, upstream
	}}
	e := newTestEvaluator(dir, nil)
	_, err := e.CheckPermission(context.Background(), PermReadUser, PermissionContext{
		UserID: "u1", Role: RoleEditionAdmin,
	})
	if !errors.Is(err, upstream) {
		t.Fatalf("upstream failure must propagate unchanged, got %v", err)
	}
}

func TestCheckDelegateAccess(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	grant := DelegateAccessGrant{
		ID:              "d1",
		SystemEditionID: "E1",
		DelegatorID:     "owner",
		DelegateID:      "helper",
		Permissions:     []Permission{PermReadUser, PermReadCompany},
		IsActive:        true,
	}
	delegates := &stubDelegateStore{findActiveFn: func(_ context.Context, delegateID, delegatorID string) (DelegateAccessGrant, error) {
		if delegateID == "helper" && delegatorID == "owner" {
			return grant, nil
		}
		return DelegateAccessGrant{}, ErrNotFound
	}}
	e := newTestEvaluator(nil, delegates)
	e.now = func() time.Time { return now }
	ctx := context.Background()

	dec, err := e.CheckDelegateAccess(ctx, "owner", "helper", PermReadUser)
	if err != nil || !dec.Granted {
		t.Fatalf("delegated permission should grant: %+v %v", dec, err)
	}

	dec, err = e.CheckDelegateAccess(ctx, "owner", "helper", PermUpdateUser)
	if err != nil {
		t.Fatalf("CheckDelegateAccess: %v", err)
	}
	if dec.Granted || !strings.Contains(dec.Reason, "does not include permission") {
		t.Fatalf("permission outside the subset must deny: %+v", dec)
	}

	dec, err = e.CheckDelegateAccess(ctx, "owner", "nobody", PermReadUser)
	if err != nil {
		t.Fatalf("CheckDelegateAccess: %v", err)
	}
	if dec.Granted || !strings.Contains(dec.Reason, "no active delegation") {
		t.Fatalf("absent grant must deny: %+v", dec)
	}
}

func TestCheckDelegateAccessExpired(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	yesterday := now.Add(-24 * time.Hour)
	delegates := &stubDelegateStore{findActiveFn: func(context.Context, string, string) (DelegateAccessGrant, error) {
		return DelegateAccessGrant{
			ID:             "d1",
			DelegatorID:    "owner",
			DelegateID:     "helper",
			Permissions:    []Permission{PermReadUser},
			IsActive:       true,
			ExpirationDate: timePtr(yesterday),
		}, nil
	}}
	e := newTestEvaluator(nil, delegates)
	e.now = func() time.Time { return now }

	dec, err := e.CheckDelegateAccess(context.Background(), "owner", "helper", PermReadUser)
	if err != nil {
		t.Fatalf("CheckDelegateAccess: %v", err)
	}
	if dec.Granted {
		t.Fatalf("expired delegation must deny even while is_active is true")
	}
	if !strings.Contains(dec.Reason, "expired") {
		t.Fatalf("expected an expiry reason, got %q", dec.Reason)
	}
}
