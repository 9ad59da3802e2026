package authz

import (
	"context"
	"errors"
	"fmt"
)

// ResourceType names the listable entity kinds a filter can be built for.
type ResourceType string

const (
	ResourceUser     ResourceType = "user"
	ResourceCompany  ResourceType = "company"
	ResourceEdition  ResourceType = "edition"
	ResourceTag      ResourceType = "tag"
	ResourceDelegate ResourceType = "delegate"
)

// Valid reports whether t is a known resource type.
func (t ResourceType) Valid() bool {
	switch t {
	case ResourceUser, ResourceCompany, ResourceEdition, ResourceTag, ResourceDelegate:
		return true
	}
	return false
}

// FilterSpec is a closed set of query restrictions derived from a role's
// scope. Callers switch on the concrete type instead of interpreting a
// loosely-typed filter object.
type FilterSpec interface {
	filterSpec()
}

// NoFilter imposes no restriction.
type NoFilter struct{}

// ByID restricts to the row whose primary id equals ID.
type ByID struct {
	ID string
}

// ByField restricts to rows whose named column equals Value. Field names
// are engine constants, never caller input.
type ByField struct {
	Name  string
	Value string
}

// AnyOf matches rows satisfying at least one of Specs.
type AnyOf struct {
	Specs []FilterSpec
}

func (NoFilter) filterSpec() {}
func (ByID) filterSpec()     {}
func (ByField) filterSpec()  {}
func (AnyOf) filterSpec()    {}

// Filter column names understood by the persistence layer.
const (
	FieldSystemEditionID = "system_edition_id"
	FieldCompanyID       = "company_id"
	FieldDelegatorID     = "delegator_id"
	FieldDelegateID      = "delegate_id"
)

// FilterBuilder derives list-query restrictions from a role's scope and
// the acting user's own edition/company membership.
type FilterBuilder struct {
	dir Directory
}

// NewFilterBuilder constructs a FilterBuilder.
func NewFilterBuilder(dir Directory) (*FilterBuilder, error) {
	if dir == nil {
		return nil, errors.New("authz: directory is required")
	}
	return &FilterBuilder{dir: dir}, nil
}

// ResourceFilter returns the restriction a list query over resource must
// apply for the given acting role. Failure to resolve the acting user is
// an error, not a denial.
func (b *FilterBuilder) ResourceFilter(ctx context.Context, role Role, userID string, resource ResourceType) (FilterSpec, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	if !resource.Valid() {
		return nil, fmt.Errorf("%w: unknown resource type %q", ErrInvalidInput, resource)
	}
	def, err := LookupRole(role)
	if err != nil {
		return nil, err
	}
	if def.Scope == ScopeGlobal {
		return NoFilter{}, nil
	}
	user, err := b.dir.FindUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	switch def.Scope {
	case ScopeEdition:
		return editionFilter(user, resource)
	case ScopeCompany:
		// Tags and delegations hang off the edition, not the company, so a
		// COMPANY-scoped role widens to edition-level for those resources.
		if resource == ResourceTag || resource == ResourceDelegate {
			return editionFilter(user, resource)
		}
		if user.CompanyID == "" {
			return nil, fmt.Errorf("%w: user %s has no assigned company", ErrInvalidInput, userID)
		}
		switch resource {
		case ResourceCompany:
			return ByID{ID: user.CompanyID}, nil
		case ResourceUser:
			return ByField{Name: FieldCompanyID, Value: user.CompanyID}, nil
		case ResourceEdition:
			if user.SystemEditionID == "" {
				return nil, fmt.Errorf("%w: user %s has no assigned edition", ErrInvalidInput, userID)
			}
			return ByID{ID: user.SystemEditionID}, nil
		}
	case ScopeSelf:
		switch resource {
		case ResourceUser:
			return ByID{ID: user.ID}, nil
		case ResourceCompany:
			if user.CompanyID == "" {
				return nil, fmt.Errorf("%w: user %s has no assigned company", ErrInvalidInput, userID)
			}
			return ByID{ID: user.CompanyID}, nil
		case ResourceEdition:
			if user.SystemEditionID == "" {
				return nil, fmt.Errorf("%w: user %s has no assigned edition", ErrInvalidInput, userID)
			}
			return ByID{ID: user.SystemEditionID}, nil
		case ResourceTag:
			if user.SystemEditionID == "" {
				return nil, fmt.Errorf("%w: user %s has no assigned edition", ErrInvalidInput, userID)
			}
			return ByField{Name: FieldSystemEditionID, Value: user.SystemEditionID}, nil
		case ResourceDelegate:
			return AnyOf{Specs: []FilterSpec{
				ByField{Name: FieldDelegatorID, Value: user.ID},
				ByField{Name: FieldDelegateID, Value: user.ID},
			}}, nil
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScope, def.Scope)
	}
	return nil, fmt.Errorf("%w: unknown resource type %q", ErrInvalidInput, resource)
}

func editionFilter(user UserRecord, resource ResourceType) (FilterSpec, error) {
	if user.SystemEditionID == "" {
		return nil, fmt.Errorf("%w: user %s has no assigned edition", ErrInvalidInput, user.ID)
	}
	if resource == ResourceEdition {
		return ByID{ID: user.SystemEditionID}, nil
	}
	return ByField{Name: FieldSystemEditionID, Value: user.SystemEditionID}, nil
}
