package authz

import "time"

// RoleGrant is a time-bounded assignment of a role to a user within an
// optional (edition, company, channel) context. The record is persisted by
// the store; validity semantics live here.
type RoleGrant struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	Role            Role       `json:"role"`
	SystemEditionID string     `json:"system_edition_id,omitempty"`
	CompanyID       string     `json:"company_id,omitempty"`
	ChannelID       string     `json:"channel_id,omitempty"`
	IsActive        bool       `json:"is_active"`
	GrantedBy       string     `json:"granted_by,omitempty"`
	GrantedAt       time.Time  `json:"granted_at"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	RevokedAt       *time.Time `json:"revoked_at,omitempty"`
	RevokedBy       string     `json:"revoked_by,omitempty"`
}

// IsRevoked reports whether the grant has been explicitly revoked.
func (g RoleGrant) IsRevoked() bool {
	return g.RevokedAt != nil
}

// IsExpired reports whether the grant's expiry has passed. A grant without
// an expiry never expires.
func (g RoleGrant) IsExpired(now time.Time) bool {
	return g.ExpiresAt != nil && now.After(*g.ExpiresAt)
}

// IsUsable reports whether the grant may serve as a user's active role:
// active, not revoked and not expired.
func (g RoleGrant) IsUsable(now time.Time) bool {
	return g.IsActive && !g.IsRevoked() && !g.IsExpired(now)
}

// PermissionContext carries the resolved acting role plus the request's
// target identifiers. Built fresh per request, never persisted.
type PermissionContext struct {
	UserID          string
	Role            Role
	CompanyID       string
	SystemEditionID string

	TargetUserID          string
	TargetCompanyID       string
	TargetSystemEditionID string
}

// RoleContext is the projection of a user's active grant handed to request
// handling. The zero value means no active role.
type RoleContext struct {
	GrantID         string `json:"grant_id,omitempty"`
	Role            Role   `json:"role,omitempty"`
	SystemEditionID string `json:"system_edition_id,omitempty"`
	CompanyID       string `json:"company_id,omitempty"`
	ChannelID       string `json:"channel_id,omitempty"`
}

// Empty reports whether the context carries no active role.
func (c RoleContext) Empty() bool {
	return c.GrantID == ""
}
