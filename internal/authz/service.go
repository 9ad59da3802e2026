package authz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Service implements the administrative lifecycle of role grants and
// delegate access grants. It validates the soft invariants storage does
// not enforce.
type Service struct {
	dir       Directory
	grants    GrantStore
	delegates DelegateStore
	now       func() time.Time
}

// NewService constructs the grant lifecycle service.
func NewService(dir Directory, grants GrantStore, delegates DelegateStore) (*Service, error) {
	if dir == nil {
		return nil, errors.New("authz: directory is required")
	}
	if grants == nil {
		return nil, errors.New("authz: grant store is required")
	}
	if delegates == nil {
		return nil, errors.New("authz: delegate store is required")
	}
	return &Service{dir: dir, grants: grants, delegates: delegates, now: time.Now}, nil
}

// AssignOptions carries the optional context of a role assignment.
type AssignOptions struct {
	SystemEditionID string
	CompanyID       string
	ChannelID       string
	GrantedBy       string
	ExpiresAt       *time.Time
}

// AssignRole creates a role grant for the user. A non-global role must be
// bound to at least one of edition, company or channel.
func (s *Service) AssignRole(ctx context.Context, userID string, role Role, opts AssignOptions) (RoleGrant, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return RoleGrant{}, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	def, err := LookupRole(role)
	if err != nil {
		return RoleGrant{}, err
	}
	opts.SystemEditionID = strings.TrimSpace(opts.SystemEditionID)
	opts.CompanyID = strings.TrimSpace(opts.CompanyID)
	opts.ChannelID = strings.TrimSpace(opts.ChannelID)
	if def.Scope != ScopeGlobal && opts.SystemEditionID == "" && opts.CompanyID == "" && opts.ChannelID == "" {
		return RoleGrant{}, fmt.Errorf("%w: role %s requires an edition, company or channel", ErrInvalidInput, role)
	}
	if opts.ExpiresAt != nil && !opts.ExpiresAt.After(s.now()) {
		return RoleGrant{}, fmt.Errorf("%w: expires_at must be in the future", ErrInvalidInput)
	}
	if _, err := s.dir.FindUser(ctx, userID); err != nil {
		return RoleGrant{}, err
	}
	grant := RoleGrant{
		UserID:          userID,
		Role:            role,
		SystemEditionID: opts.SystemEditionID,
		CompanyID:       opts.CompanyID,
		ChannelID:       opts.ChannelID,
		IsActive:        true,
		GrantedBy:       strings.TrimSpace(opts.GrantedBy),
		GrantedAt:       s.now().UTC(),
		ExpiresAt:       opts.ExpiresAt,
	}
	return s.grants.CreateGrant(ctx, grant)
}

// RevokeGrant marks the grant revoked. The active-role pointer of the
// affected user self-heals on the next ValidateActiveRole.
func (s *Service) RevokeGrant(ctx context.Context, grantID, revokedBy string) error {
	grantID = strings.TrimSpace(grantID)
	if grantID == "" {
		return fmt.Errorf("%w: grant_id is required", ErrInvalidInput)
	}
	grant, err := s.grants.FindGrant(ctx, grantID)
	if err != nil {
		return err
	}
	if grant.IsRevoked() {
		return fmt.Errorf("%w: grant %s is already revoked", ErrConflict, grantID)
	}
	return s.grants.RevokeGrant(ctx, grantID, strings.TrimSpace(revokedBy), s.now().UTC())
}

// ReactivateGrant clears a revocation and re-enables the grant. Expiry is
// untouched: reactivating an expired grant does not make it usable.
func (s *Service) ReactivateGrant(ctx context.Context, grantID string) error {
	grantID = strings.TrimSpace(grantID)
	if grantID == "" {
		return fmt.Errorf("%w: grant_id is required", ErrInvalidInput)
	}
	grant, err := s.grants.FindGrant(ctx, grantID)
	if err != nil {
		return err
	}
	if !grant.IsRevoked() && grant.IsActive {
		return fmt.Errorf("%w: grant %s is not revoked", ErrConflict, grantID)
	}
	return s.grants.ReactivateGrant(ctx, grantID)
}

// ListGrants returns every grant of the user, usable or not.
func (s *Service) ListGrants(ctx context.Context, userID string) ([]RoleGrant, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	return s.grants.GrantsByUser(ctx, userID)
}

// CreateDelegation creates a delegate access grant. The delegator and
// delegate must differ and every delegated permission must exist in the
// catalog; both are checked here, not by storage.
func (s *Service) CreateDelegation(ctx context.Context, editionID, delegatorID, delegateID string, perms []Permission, expires *time.Time) (DelegateAccessGrant, error) {
	editionID = strings.TrimSpace(editionID)
	delegatorID = strings.TrimSpace(delegatorID)
	delegateID = strings.TrimSpace(delegateID)
	if editionID == "" {
		return DelegateAccessGrant{}, fmt.Errorf("%w: system_edition_id is required", ErrInvalidInput)
	}
	if delegatorID == "" || delegateID == "" {
		return DelegateAccessGrant{}, fmt.Errorf("%w: delegator_id and delegate_id are required", ErrInvalidInput)
	}
	if delegatorID == delegateID {
		return DelegateAccessGrant{}, fmt.Errorf("%w: delegator and delegate must be different users", ErrInvalidInput)
	}
	deduped := dedupePermissions(perms)
	if len(deduped) == 0 {
		return DelegateAccessGrant{}, fmt.Errorf("%w: at least one permission is required", ErrInvalidInput)
	}
	for _, p := range deduped {
		if !p.Valid() {
			return DelegateAccessGrant{}, fmt.Errorf("%w: unknown permission %q", ErrInvalidInput, p)
		}
	}
	if expires != nil && !expires.After(s.now()) {
		return DelegateAccessGrant{}, fmt.Errorf("%w: expiration_date must be in the future", ErrInvalidInput)
	}
	if _, err := s.dir.FindUser(ctx, delegatorID); err != nil {
		return DelegateAccessGrant{}, err
	}
	if _, err := s.dir.FindUser(ctx, delegateID); err != nil {
		return DelegateAccessGrant{}, err
	}
	grant := DelegateAccessGrant{
		SystemEditionID: editionID,
		DelegatorID:     delegatorID,
		DelegateID:      delegateID,
		Permissions:     deduped,
		IsActive:        true,
		ExpirationDate:  expires,
		CreatedAt:       s.now().UTC(),
	}
	return s.delegates.CreateGrant(ctx, grant)
}

// RevokeDelegation deactivates a delegate access grant.
func (s *Service) RevokeDelegation(ctx context.Context, grantID string) error {
	grantID = strings.TrimSpace(grantID)
	if grantID == "" {
		return fmt.Errorf("%w: grant_id is required", ErrInvalidInput)
	}
	return s.delegates.RevokeGrant(ctx, grantID)
}

// ListDelegations returns all delegate grants within an edition.
func (s *Service) ListDelegations(ctx context.Context, editionID string) ([]DelegateAccessGrant, error) {
	editionID = strings.TrimSpace(editionID)
	if editionID == "" {
		return nil, fmt.Errorf("%w: system_edition_id is required", ErrInvalidInput)
	}
	return s.delegates.ListByEdition(ctx, editionID)
}

func dedupePermissions(perms []Permission) []Permission {
	if len(perms) == 0 {
		return nil
	}
	seen := make(map[Permission]struct{}, len(perms))
	var out []Permission
	for _, p := range perms {
		p = Permission(strings.TrimSpace(string(p)))
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
