package authz

import (
	"context"
	"time"
)

// UserRecord is the directory projection of a user needed for scope checks.
type UserRecord struct {
	ID              string
	CompanyID       string
	SystemEditionID string
	ActiveRoleID    string
}

// CompanyRecord is the directory projection of a company.
type CompanyRecord struct {
	ID              string
	SystemEditionID string
}

// Directory resolves users and companies by id. Implementations are point
// lookups against the host system's persistence.
type Directory interface {
	FindUser(ctx context.Context, id string) (UserRecord, error)
	FindCompany(ctx context.Context, id string) (CompanyRecord, error)
}

// GrantStore persists role grants and the per-user active-role pointer.
// SetActiveRole and ClearActiveRole must be single-row atomic updates;
// concurrent switches by the same user resolve last-write-wins.
type GrantStore interface {
	FindGrant(ctx context.Context, id string) (RoleGrant, error)
	GrantsByUser(ctx context.Context, userID string) ([]RoleGrant, error)
	CreateGrant(ctx context.Context, grant RoleGrant) (RoleGrant, error)
	RevokeGrant(ctx context.Context, id, revokedBy string, at time.Time) error
	ReactivateGrant(ctx context.Context, id string) error
	SetActiveRole(ctx context.Context, userID, grantID string) error
	ClearActiveRole(ctx context.Context, userID string) error
}

// DelegateStore persists delegate access grants.
type DelegateStore interface {
	FindActiveGrant(ctx context.Context, delegateID, delegatorID string) (DelegateAccessGrant, error)
	CreateGrant(ctx context.Context, grant DelegateAccessGrant) (DelegateAccessGrant, error)
	RevokeGrant(ctx context.Context, id string) error
	ListByEdition(ctx context.Context, editionID string) ([]DelegateAccessGrant, error)
}
