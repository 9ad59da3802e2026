package authz

import (
	"context"
	"time"
)

type stubDirectory struct {
	findUserFn    func(context.Context, string) (UserRecord, error)
	findCompanyFn func(context.Context, string) (CompanyRecord, error)
}

func (s *stubDirectory) FindUser(ctx context.Context, id string) (UserRecord, error) {
	if s.findUserFn != nil {
		return s.findUserFn(ctx, id)
	}
	return UserRecord{ID: id}, nil
}

func (s *stubDirectory) FindCompany(ctx context.Context, id string) (CompanyRecord, error) {
	if s.findCompanyFn != nil {
		return s.findCompanyFn(ctx, id)
	}
	return CompanyRecord{ID: id}, nil
}

type stubGrantStore struct {
	findGrantFn       func(context.Context, string) (RoleGrant, error)
	grantsByUserFn    func(context.Context, string) ([]RoleGrant, error)
	createGrantFn     func(context.Context, RoleGrant) (RoleGrant, error)
	revokeGrantFn     func(context.Context, string, string, time.Time) error
	reactivateGrantFn func(context.Context, string) error
	setActiveFn       func(context.Context, string, string) error
	clearActiveFn     func(context.Context, string) error
}

func (s *stubGrantStore) FindGrant(ctx context.Context, id string) (RoleGrant, error) {
	if s.findGrantFn != nil {
		return s.findGrantFn(ctx, id)
	}
	return RoleGrant{}, ErrNotFound
}

func (s *stubGrantStore) GrantsByUser(ctx context.Context, userID string) ([]RoleGrant, error) {
	if s.grantsByUserFn != nil {
		return s.grantsByUserFn(ctx, userID)
	}
	return nil, nil
}

func (s *stubGrantStore) CreateGrant(ctx context.Context, g RoleGrant) (RoleGrant, error) {
	if s.createGrantFn != nil {
		return s.createGrantFn(ctx, g)
	}
	g.ID = "grant-1"
	return g, nil
}

func (s *stubGrantStore) RevokeGrant(ctx context.Context, id, revokedBy string, at time.Time) error {
	if s.revokeGrantFn != nil {
		return s.revokeGrantFn(ctx, id, revokedBy, at)
	}
	return nil
}

func (s *stubGrantStore) ReactivateGrant(ctx context.Context, id string) error {
	if s.reactivateGrantFn != nil {
		return s.reactivateGrantFn(ctx, id)
	}
	return nil
}

func (s *stubGrantStore) SetActiveRole(ctx context.Context, userID, grantID string) error {
	if s.setActiveFn != nil {
		return s.setActiveFn(ctx, userID, grantID)
	}
	return nil
}

func (s *stubGrantStore) ClearActiveRole(ctx context.Context, userID string) error {
	if s.clearActiveFn != nil {
		return s.clearActiveFn(ctx, userID)
	}
	return nil
}

type stubDelegateStore struct {
	findActiveFn    func(context.Context, string, string) (DelegateAccessGrant, error)
	createGrantFn   func(context.Context, DelegateAccessGrant) (DelegateAccessGrant, error)
	revokeGrantFn   func(context.Context, string) error
	listByEditionFn func(context.Context, string) ([]DelegateAccessGrant, error)
}

func (s *stubDelegateStore) FindActiveGrant(ctx context.Context, delegateID, delegatorID string) (DelegateAccessGrant, error) {
	if s.findActiveFn != nil {
		return s.findActiveFn(ctx, delegateID, delegatorID)
	}
	return DelegateAccessGrant{}, ErrNotFound
}

func (s *stubDelegateStore) CreateGrant(ctx context.Context, g DelegateAccessGrant) (DelegateAccessGrant, error) {
	if s.createGrantFn != nil {
		return s.createGrantFn(ctx, g)
	}
	g.ID = "delegation-1"
	return g, nil
}

func (s *stubDelegateStore) RevokeGrant(ctx context.Context, id string) error {
	if s.revokeGrantFn != nil {
		return s.revokeGrantFn(ctx, id)
	}
	return nil
}

func (s *stubDelegateStore) ListByEdition(ctx context.Context, editionID string) ([]DelegateAccessGrant, error) {
	if s.listByEditionFn != nil {
		return s.listByEditionFn(ctx, editionID)
	}
	return nil, nil
}

func newTestEvaluator(dir *stubDirectory, delegates *stubDelegateStore) *Evaluator {
	if dir == nil {
		dir = &stubDirectory{}
	}
	if delegates == nil {
		delegates = &stubDelegateStore{}
	}
	e, err := NewEvaluator(dir, delegates)
	if err != nil {
		panic(err)
	}
	return e
}

func newTestSelector(dir *stubDirectory, grants *stubGrantStore) *Selector {
	if dir == nil {
		dir = &stubDirectory{}
	}
	if grants == nil {
		grants = &stubGrantStore{}
	}
	s, err := NewSelector(dir, grants)
	if err != nil {
		panic(err)
	}
	return s
}

func timePtr(t time.Time) *time.Time { return &t }
