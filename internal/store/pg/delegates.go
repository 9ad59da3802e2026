package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"tessera.org/internal/authz"
	"tessera.org/internal/ids"
)

const delegateColumns = `id, system_edition_id, delegator_id, delegate_id,
	permissions, is_active, expiration_date, created_at`

// FindActiveGrant loads the unique active delegation for the
// (delegate, delegator) pair. Expiry is the engine's call, not ours: an
// expired-but-active row is still returned.
func (s *Store) FindActiveGrant(ctx context.Context, delegateID, delegatorID string) (authz.DelegateAccessGrant, error) {
	row := s.db.QueryRowContext(ctx, `
		select `+delegateColumns+`
		from delegate_grants
		where delegate_id = $1 and delegator_id = $2 and is_active = true
	`, delegateID, delegatorID)
	grant, err := scanDelegate(row)
	if err != nil {
		return authz.DelegateAccessGrant{}, translateErr(err)
	}
	return grant, nil
}

// Delegates exposes the Store's delegate-grant methods under the
// authz.DelegateStore interface. The wrapper exists because
// authz.GrantStore and authz.DelegateStore both declare CreateGrant and
// RevokeGrant with different signatures, which one type cannot satisfy.
type Delegates struct {
	*Store
}

// Delegates returns the delegate-grant view of the store.
func (s *Store) Delegates() Delegates { return Delegates{s} }

// CreateGrant inserts a delegate access grant.
func (d Delegates) CreateGrant(ctx context.Context, grant authz.DelegateAccessGrant) (authz.DelegateAccessGrant, error) {
	s := d.Store
	if grant.ID == "" {
		grant.ID = ids.New()
	}
	perms, err := json.Marshal(grant.Permissions)
	if err != nil {
		return authz.DelegateAccessGrant{}, fmt.Errorf("marshal permissions: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		insert into delegate_grants (id, system_edition_id, delegator_id, delegate_id,
			permissions, is_active, expiration_date, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		grant.ID, grant.SystemEditionID, grant.DelegatorID, grant.DelegateID,
		perms, grant.IsActive, nullIfNilTime(grant.ExpirationDate), grant.CreatedAt,
	)
	if err != nil {
		return authz.DelegateAccessGrant{}, translateErr(err)
	}
	return grant, nil
}

// RevokeGrant deactivates a delegation.
func (d Delegates) RevokeGrant(ctx context.Context, id string) error {
	s := d.Store
	res, err := s.db.ExecContext(ctx, `
		update delegate_grants set is_active = false where id = $1
	`, id)
	if err != nil {
		return translateErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: delegation %s", authz.ErrNotFound, id)
	}
	return nil
}

// ListByEdition returns all delegations in an edition, newest first.
func (s *Store) ListByEdition(ctx context.Context, editionID string) ([]authz.DelegateAccessGrant, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+delegateColumns+`
		from delegate_grants
		where system_edition_id = $1
		order by created_at desc
	`, editionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []authz.DelegateAccessGrant
	for rows.Next() {
		grant, err := scanDelegate(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, grant)
	}
	return result, rows.Err()
}

// ListDelegations returns delegations restricted by a scope-derived
// filter, used by the list endpoint.
func (s *Store) ListDelegations(ctx context.Context, filter authz.FilterSpec) ([]authz.DelegateAccessGrant, error) {
	where, args, err := filterClause(filter, "id", 1)
	if err != nil {
		return nil, err
	}
	query := `select ` + delegateColumns + ` from delegate_grants`
	if where != "" {
		query += " where " + where
	}
	query += " order by created_at desc"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []authz.DelegateAccessGrant
	for rows.Next() {
		grant, err := scanDelegate(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, grant)
	}
	return result, rows.Err()
}

func scanDelegate(scanner interface{ Scan(dest ...any) error }) (authz.DelegateAccessGrant, error) {
	var (
		g       authz.DelegateAccessGrant
		perms   []byte
		expires sql.NullTime
	)
	err := scanner.Scan(
		&g.ID, &g.SystemEditionID, &g.DelegatorID, &g.DelegateID,
		&perms, &g.IsActive, &expires, &g.CreatedAt,
	)
	if err != nil {
		return authz.DelegateAccessGrant{}, err
	}
	if len(perms) > 0 {
		if err := json.Unmarshal(perms, &g.Permissions); err != nil {
			return authz.DelegateAccessGrant{}, fmt.Errorf("decode permissions: %w", err)
		}
	}
	g.ExpirationDate = timeOrNil(expires)
	return g, nil
}
