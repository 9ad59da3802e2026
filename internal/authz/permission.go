package authz

// Permission identifies a single guarded operation. The set is closed:
// adding a permission requires a new deployment.
type Permission string

const (
	PermCreateUser Permission = "user.create"
	PermReadUser   Permission = "user.read"
	PermUpdateUser Permission = "user.update"
	PermDeleteUser Permission = "user.delete"

	PermCreateCompany Permission = "company.create"
	PermReadCompany   Permission = "company.read"
	PermUpdateCompany Permission = "company.update"
	PermDeleteCompany Permission = "company.delete"

	PermCreateEdition Permission = "edition.create"
	PermReadEdition   Permission = "edition.read"
	PermUpdateEdition Permission = "edition.update"

	PermManageRoles Permission = "role.manage"

	PermReadTag   Permission = "tag.read"
	PermManageTag Permission = "tag.manage"

	PermUpdateSeatManagement Permission = "seat_management.update"

	PermCreateDelegate Permission = "delegate.create"
	PermReadDelegate   Permission = "delegate.read"
	PermRevokeDelegate Permission = "delegate.revoke"

	PermReadProfile   Permission = "profile.read"
	PermUpdateProfile Permission = "profile.update"
)

// PermissionInfo describes one catalog entry for listings and seeding.
type PermissionInfo struct {
	Key         Permission
	Description string
}

var BuiltinPermissions = []PermissionInfo{
	{Key: PermCreateUser, Description: "Create users"},
	{Key: PermReadUser, Description: "Read user records"},
	{Key: PermUpdateUser, Description: "Update user records"},
	{Key: PermDeleteUser, Description: "Delete users"},
	{Key: PermCreateCompany, Description: "Create companies"},
	{Key: PermReadCompany, Description: "Read company records"},
	{Key: PermUpdateCompany, Description: "Update company records"},
	{Key: PermDeleteCompany, Description: "Delete companies"},
	{Key: PermCreateEdition, Description: "Create system editions"},
	{Key: PermReadEdition, Description: "Read system editions"},
	{Key: PermUpdateEdition, Description: "Update system editions"},
	{Key: PermManageRoles, Description: "Assign, revoke and reactivate role grants"},
	{Key: PermReadTag, Description: "Read tags"},
	{Key: PermManageTag, Description: "Create, update and delete tags"},
	{Key: PermUpdateSeatManagement, Description: "Manage company seat allocation"},
	{Key: PermCreateDelegate, Description: "Create delegate access grants"},
	{Key: PermReadDelegate, Description: "Read delegate access grants"},
	{Key: PermRevokeDelegate, Description: "Revoke delegate access grants"},
	{Key: PermReadProfile, Description: "Read own profile"},
	{Key: PermUpdateProfile, Description: "Update own profile"},
}

var permissionSet = func() map[Permission]struct{} {
	set := make(map[Permission]struct{}, len(BuiltinPermissions))
	for _, p := range BuiltinPermissions {
		set[p.Key] = struct{}{}
	}
	return set
}()

// Valid reports whether p is part of the closed permission set.
func (p Permission) Valid() bool {
	_, ok := permissionSet[p]
	return ok
}

// AllPermissions returns every permission key in catalog order.
func AllPermissions() []Permission {
	out := make([]Permission, 0, len(BuiltinPermissions))
	for _, p := range BuiltinPermissions {
		out = append(out, p.Key)
	}
	return out
}
