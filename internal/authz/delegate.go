package authz

import "time"

// DelegateAccessGrant lets one user (the delegate) exercise a fixed
// permission subset on behalf of another (the delegator) within a system
// edition. Its lifecycle is independent of role grants: validity is decided
// purely by ExpirationDate, there is no pointer to clear.
type DelegateAccessGrant struct {
	ID              string       `json:"id"`
	SystemEditionID string       `json:"system_edition_id"`
	DelegatorID     string       `json:"delegator_id"`
	DelegateID      string       `json:"delegate_id"`
	Permissions     []Permission `json:"permissions"`
	IsActive        bool         `json:"is_active"`
	ExpirationDate  *time.Time   `json:"expiration_date,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
}

// IsExpired reports whether the grant's expiration date has passed.
func (g DelegateAccessGrant) IsExpired(now time.Time) bool {
	return g.ExpirationDate != nil && now.After(*g.ExpirationDate)
}

// Allows reports whether the permission is part of the delegated subset.
// Exact membership only; delegation never widens by scope hierarchy.
func (g DelegateAccessGrant) Allows(p Permission) bool {
	for _, granted := range g.Permissions {
		if granted == p {
			return true
		}
	}
	return false
}
