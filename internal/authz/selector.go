package authz

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Selector manages the per-user active-role pointer. A user is either in
// NoActiveRole or ActiveRole(grant); the pointer is stored on the user row
// and validated against the referenced grant on every use.
type Selector struct {
	dir    Directory
	grants GrantStore
	now    func() time.Time
}

// NewSelector constructs a Selector over the given collaborators.
func NewSelector(dir Directory, grants GrantStore) (*Selector, error) {
	if dir == nil {
		return nil, errors.New("authz: directory is required")
	}
	if grants == nil {
		return nil, errors.New("authz: grant store is required")
	}
	return &Selector{dir: dir, grants: grants, now: time.Now}, nil
}

// SetActiveRole points the user at the grant after validating that the
// grant belongs to the user and is currently usable.
func (s *Selector) SetActiveRole(ctx context.Context, userID, grantID string) error {
	if userID == "" || grantID == "" {
		return fmt.Errorf("%w: user_id and grant_id are required", ErrInvalidInput)
	}
	grant, err := s.grants.FindGrant(ctx, grantID)
	if err != nil {
		return err
	}
	if grant.UserID != userID {
		return fmt.Errorf("%w: grant %s does not belong to user %s", ErrInvalidInput, grantID, userID)
	}
	if !grant.IsActive {
		return fmt.Errorf("%w: grant %s is inactive", ErrInvalidInput, grantID)
	}
	if grant.IsRevoked() {
		return fmt.Errorf("%w: grant %s has been revoked", ErrInvalidInput, grantID)
	}
	if grant.IsExpired(s.now()) {
		return fmt.Errorf("%w: grant %s has expired", ErrInvalidInput, grantID)
	}
	return s.grants.SetActiveRole(ctx, userID, grantID)
}

// ClearActiveRole unconditionally moves the user to NoActiveRole.
func (s *Selector) ClearActiveRole(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	return s.grants.ClearActiveRole(ctx, userID)
}

// ValidateActiveRole reports whether the user's active-role pointer still
// references a usable grant. A stale pointer (dangling, inactive, revoked
// or expired grant) is cleared before returning false, so permission
// decisions never run against it. Repeated calls on an already-cleared
// pointer return false without further writes.
func (s *Selector) ValidateActiveRole(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	user, err := s.dir.FindUser(ctx, userID)
	if err != nil {
		return false, err
	}
	if user.ActiveRoleID == "" {
		return false, nil
	}
	grant, err := s.grants.FindGrant(ctx, user.ActiveRoleID)
	if errors.Is(err, ErrNotFound) {
		// Dangling pointer: the grant row is gone. Heal rather than fail.
		if clearErr := s.grants.ClearActiveRole(ctx, userID); clearErr != nil {
			return false, clearErr
		}
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !grant.IsUsable(s.now()) {
		if clearErr := s.grants.ClearActiveRole(ctx, userID); clearErr != nil {
			return false, clearErr
		}
		return false, nil
	}
	return true, nil
}

// CurrentContext derives the role context from the user's active grant.
// In NoActiveRole the empty context is returned without error.
func (s *Selector) CurrentContext(ctx context.Context, userID string) (RoleContext, error) {
	if userID == "" {
		return RoleContext{}, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	user, err := s.dir.FindUser(ctx, userID)
	if err != nil {
		return RoleContext{}, err
	}
	if user.ActiveRoleID == "" {
		return RoleContext{}, nil
	}
	grant, err := s.grants.FindGrant(ctx, user.ActiveRoleID)
	if err != nil {
		return RoleContext{}, err
	}
	return RoleContext{
		GrantID:         grant.ID,
		Role:            grant.Role,
		SystemEditionID: grant.SystemEditionID,
		CompanyID:       grant.CompanyID,
		ChannelID:       grant.ChannelID,
	}, nil
}

// AvailableRoles lists the user's grants that could currently serve as the
// active role: active, not revoked and not expired.
func (s *Selector) AvailableRoles(ctx context.Context, userID string) ([]RoleGrant, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	grants, err := s.grants.GrantsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	available := make([]RoleGrant, 0, len(grants))
	for _, g := range grants {
		if g.IsUsable(now) {
			available = append(available, g)
		}
	}
	return available, nil
}

// SwitchRole activates grantID after verifying it is among the user's
// available roles.
func (s *Selector) SwitchRole(ctx context.Context, userID, grantID string) error {
	if userID == "" || grantID == "" {
		return fmt.Errorf("%w: user_id and grant_id are required", ErrInvalidInput)
	}
	available, err := s.AvailableRoles(ctx, userID)
	if err != nil {
		return err
	}
	for _, g := range available {
		if g.ID == grantID {
			return s.SetActiveRole(ctx, userID, grantID)
		}
	}
	return fmt.Errorf("%w: grant %s is not available to user %s", ErrInvalidInput, grantID, userID)
}
