package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tessera.org/internal/authz"
)

// FindUser returns the directory projection used by scope checks.
func (s *Store) FindUser(ctx context.Context, id string) (authz.UserRecord, error) {
	var (
		u          authz.UserRecord
		companyID  sql.NullString
		editionID  sql.NullString
		activeRole sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		select id, company_id, system_edition_id, active_user_role_id
		from users
		where id = $1
	`, id).Scan(&u.ID, &companyID, &editionID, &activeRole)
	if err != nil {
		return authz.UserRecord{}, translateErr(err)
	}
	u.CompanyID = stringOrEmpty(companyID)
	u.SystemEditionID = stringOrEmpty(editionID)
	u.ActiveRoleID = stringOrEmpty(activeRole)
	return u, nil
}

// FindCompany returns a company's id and edition.
func (s *Store) FindCompany(ctx context.Context, id string) (authz.CompanyRecord, error) {
	var c authz.CompanyRecord
	err := s.db.QueryRowContext(ctx, `
		select id, system_edition_id
		from companies
		where id = $1
	`, id).Scan(&c.ID, &c.SystemEditionID)
	if err != nil {
		return authz.CompanyRecord{}, translateErr(err)
	}
	return c, nil
}

// Credentials is the login projection of a user row.
type Credentials struct {
	UserID       string
	Email        string
	PasswordHash string
}

// FindCredentialsByEmail resolves a user for password login.
func (s *Store) FindCredentialsByEmail(ctx context.Context, email string) (Credentials, error) {
	var c Credentials
	err := s.db.QueryRowContext(ctx, `
		select id, email, password_hash
		from users
		where email = $1
	`, email).Scan(&c.UserID, &c.Email, &c.PasswordHash)
	if err != nil {
		return Credentials{}, translateErr(err)
	}
	return c, nil
}

// UserRow is the listing projection of a user.
type UserRow struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	CompanyID       string    `json:"company_id,omitempty"`
	SystemEditionID string    `json:"system_edition_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// CompanyRow is the listing projection of a company.
type CompanyRow struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	SystemEditionID string    `json:"system_edition_id"`
	CreatedAt       time.Time `json:"created_at"`
}

// ListUsers returns users restricted by the scope-derived filter.
func (s *Store) ListUsers(ctx context.Context, filter authz.FilterSpec) ([]UserRow, error) {
	where, args, err := filterClause(filter, "id", 1)
	if err != nil {
		return nil, err
	}
	query := `select id, email, company_id, system_edition_id, created_at from users`
	if where != "" {
		query += " where " + where
	}
	query += " order by created_at asc"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []UserRow
	for rows.Next() {
		var (
			u         UserRow
			companyID sql.NullString
			editionID sql.NullString
		)
		if err := rows.Scan(&u.ID, &u.Email, &companyID, &editionID, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.CompanyID = stringOrEmpty(companyID)
		u.SystemEditionID = stringOrEmpty(editionID)
		result = append(result, u)
	}
	return result, rows.Err()
}

// ListCompanies returns companies restricted by the scope-derived filter.
func (s *Store) ListCompanies(ctx context.Context, filter authz.FilterSpec) ([]CompanyRow, error) {
	where, args, err := filterClause(filter, "id", 1)
	if err != nil {
		return nil, err
	}
	query := `select id, name, system_edition_id, created_at from companies`
	if where != "" {
		query += " where " + where
	}
	query += " order by name asc"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []CompanyRow
	for rows.Next() {
		var c CompanyRow
		if err := rows.Scan(&c.ID, &c.Name, &c.SystemEditionID, &c.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// SetActiveRole points the user's active-role column at the grant.
// Single-row update; concurrent switches resolve last-write-wins.
func (s *Store) SetActiveRole(ctx context.Context, userID, grantID string) error {
	res, err := s.db.ExecContext(ctx, `
		update users set active_user_role_id = $2, updated_at = now()
		where id = $1
	`, userID, grantID)
	if err != nil {
		return translateErr(err)
	}
	return ensureOneRow(res, userID)
}

// ClearActiveRole nulls the user's active-role column.
func (s *Store) ClearActiveRole(ctx context.Context, userID string) error {
	res, err := s.db.ExecContext(ctx, `
		update users set active_user_role_id = null, updated_at = now()
		where id = $1
	`, userID)
	if err != nil {
		return translateErr(err)
	}
	return ensureOneRow(res, userID)
}

func ensureOneRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: user %s", authz.ErrNotFound, id)
	}
	if n > 1 {
		return errors.New("pg: update touched more than one row")
	}
	return nil
}
