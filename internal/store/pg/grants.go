package pg

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tessera.org/internal/authz"
	"tessera.org/internal/ids"
)

const grantColumns = `id, user_id, role, system_edition_id, company_id, channel_id,
	is_active, granted_by, granted_at, expires_at, revoked_at, revoked_by`

// FindGrant loads a role grant by id.
func (s *Store) FindGrant(ctx context.Context, id string) (authz.RoleGrant, error) {
	row := s.db.QueryRowContext(ctx, `
		select `+grantColumns+`
		from user_roles
		where id = $1
	`, id)
	grant, err := scanGrant(row)
	if err != nil {
		return authz.RoleGrant{}, translateErr(err)
	}
	return grant, nil
}

// GrantsByUser returns all grants of a user, newest first.
func (s *Store) GrantsByUser(ctx context.Context, userID string) ([]authz.RoleGrant, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+grantColumns+`
		from user_roles
		where user_id = $1
		order by granted_at desc
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []authz.RoleGrant
	for rows.Next() {
		grant, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, grant)
	}
	return result, rows.Err()
}

// CreateGrant inserts a role grant, assigning an id when absent.
func (s *Store) CreateGrant(ctx context.Context, grant authz.RoleGrant) (authz.RoleGrant, error) {
	if grant.ID == "" {
		grant.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx, `
		insert into user_roles (id, user_id, role, system_edition_id, company_id, channel_id,
			is_active, granted_by, granted_at, expires_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		grant.ID, grant.UserID, string(grant.Role),
		nullIfEmpty(grant.SystemEditionID), nullIfEmpty(grant.CompanyID), nullIfEmpty(grant.ChannelID),
		grant.IsActive, nullIfEmpty(grant.GrantedBy), grant.GrantedAt, nullIfNilTime(grant.ExpiresAt),
	)
	if err != nil {
		return authz.RoleGrant{}, translateErr(err)
	}
	return grant, nil
}

// RevokeGrant marks the grant revoked and inactive in one write.
func (s *Store) RevokeGrant(ctx context.Context, id, revokedBy string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		update user_roles
		set is_active = false, revoked_at = $2, revoked_by = $3
		where id = $1
	`, id, at, nullIfEmpty(revokedBy))
	if err != nil {
		return translateErr(err)
	}
	return ensureGrantRow(res, id)
}

// ReactivateGrant clears revocation fields and re-enables the grant.
// The expiry column is deliberately untouched.
func (s *Store) ReactivateGrant(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		update user_roles
		set is_active = true, revoked_at = null, revoked_by = null
		where id = $1
	`, id)
	if err != nil {
		return translateErr(err)
	}
	return ensureGrantRow(res, id)
}

func ensureGrantRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: grant %s", authz.ErrNotFound, id)
	}
	return nil
}

func scanGrant(scanner interface{ Scan(dest ...any) error }) (authz.RoleGrant, error) {
	var (
		g         authz.RoleGrant
		role      string
		editionID sql.NullString
		companyID sql.NullString
		channelID sql.NullString
		grantedBy sql.NullString
		expiresAt sql.NullTime
		revokedAt sql.NullTime
		revokedBy sql.NullString
	)
	err := scanner.Scan(
		&g.ID, &g.UserID, &role, &editionID, &companyID, &channelID,
		&g.IsActive, &grantedBy, &g.GrantedAt, &expiresAt, &revokedAt, &revokedBy,
	)
	if err != nil {
		return authz.RoleGrant{}, err
	}
	g.Role = authz.Role(role)
	g.SystemEditionID = stringOrEmpty(editionID)
	g.CompanyID = stringOrEmpty(companyID)
	g.ChannelID = stringOrEmpty(channelID)
	g.GrantedBy = stringOrEmpty(grantedBy)
	g.ExpiresAt = timeOrNil(expiresAt)
	g.RevokedAt = timeOrNil(revokedAt)
	g.RevokedBy = stringOrEmpty(revokedBy)
	return g, nil
}
