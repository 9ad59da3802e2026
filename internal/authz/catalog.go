package authz

import "fmt"

// Role names the built-in roles. The catalog is closed; free-form role
// strings are rejected by LookupRole.
type Role string

const (
	RoleSuperAdmin      Role = "super_admin"
	RolePlatformSupport Role = "platform_support"
	RoleEditionAdmin    Role = "edition_admin"
	RoleCompanyAdmin    Role = "company_admin"
	RoleCompanyMember   Role = "company_member"
)

// RoleDefinition binds a role to its permission set and access scope.
type RoleDefinition struct {
	Name        Role
	Scope       AccessScope
	Description string

	permissions map[Permission]struct{}
}

// HasPermission reports whether the role carries the permission.
func (d RoleDefinition) HasPermission(p Permission) bool {
	_, ok := d.permissions[p]
	return ok
}

// Permissions returns the role's permissions in catalog order.
func (d RoleDefinition) Permissions() []Permission {
	out := make([]Permission, 0, len(d.permissions))
	for _, p := range AllPermissions() {
		if _, ok := d.permissions[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

func define(name Role, scope AccessScope, description string, perms ...Permission) RoleDefinition {
	set := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		if !p.Valid() {
			panic(fmt.Sprintf("authz: role %s references unknown permission %s", name, p))
		}
		set[p] = struct{}{}
	}
	return RoleDefinition{Name: name, Scope: scope, Description: description, permissions: set}
}

// roleCatalog is process-wide and immutable after package init. Changing a
// role's permissions or scope requires a new deployment.
var roleCatalog = map[Role]RoleDefinition{
	RoleSuperAdmin: define(RoleSuperAdmin, ScopeGlobal,
		"Full platform administration across all editions",
		AllPermissions()...),
	RolePlatformSupport: define(RolePlatformSupport, ScopeGlobal,
		"Read-only platform support access",
		PermReadUser, PermReadCompany, PermReadEdition, PermReadTag,
		PermReadDelegate, PermReadProfile),
	RoleEditionAdmin: define(RoleEditionAdmin, ScopeEdition,
		"Administers a single system edition",
		PermCreateUser, PermReadUser, PermUpdateUser, PermDeleteUser,
		PermCreateCompany, PermReadCompany, PermUpdateCompany, PermDeleteCompany,
		PermReadEdition, PermUpdateEdition,
		PermManageRoles,
		PermReadTag, PermManageTag,
		PermUpdateSeatManagement,
		PermCreateDelegate, PermReadDelegate, PermRevokeDelegate,
		PermReadProfile, PermUpdateProfile),
	RoleCompanyAdmin: define(RoleCompanyAdmin, ScopeCompany,
		"Administers a single company",
		PermCreateUser, PermReadUser, PermUpdateUser, PermDeleteUser,
		PermReadCompany, PermUpdateCompany,
		PermUpdateSeatManagement,
		PermReadProfile, PermUpdateProfile),
	RoleCompanyMember: define(RoleCompanyMember, ScopeSelf,
		"Regular company member, limited to own records",
		PermReadUser, PermReadProfile, PermUpdateProfile),
}

// LookupRole returns the definition for a role name.
func LookupRole(role Role) (RoleDefinition, error) {
	def, ok := roleCatalog[role]
	if !ok {
		return RoleDefinition{}, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	return def, nil
}

// RoleHasPermission reports whether the role's definition carries the
// permission. Holding the permission is necessary but not sufficient;
// scope checks are applied by the Evaluator.
func RoleHasPermission(role Role, p Permission) (bool, error) {
	def, err := LookupRole(role)
	if err != nil {
		return false, err
	}
	return def.HasPermission(p), nil
}

// Roles lists every role definition in the catalog.
func Roles() []RoleDefinition {
	out := make([]RoleDefinition, 0, len(roleCatalog))
	for _, name := range []Role{RoleSuperAdmin, RolePlatformSupport, RoleEditionAdmin, RoleCompanyAdmin, RoleCompanyMember} {
		out = append(out, roleCatalog[name])
	}
	return out
}
