// Package rbac maps member roles to permission keys and decides which roles
// bypass permission checks entirely.
package rbac

import "strings"

// Role identifies a member's function within the organization. A member holds
// exactly one role.
type Role string

const (
	RoleSuperAdmin  Role = "super_admin"
	RoleAdmin       Role = "admin"
	RoleDirector    Role = "director"
	RoleManager     Role = "manager"
	RoleStudent     Role = "student"
	RoleShareholder Role = "shareholder"
	RoleApplicant   Role = "applicant"
)

// Roles lists every known role in display order.
var Roles = []Role{
	RoleSuperAdmin,
	RoleAdmin,
	RoleDirector,
	RoleManager,
	RoleStudent,
	RoleShareholder,
	RoleApplicant,
}

// ParseRole normalizes raw input into a known Role.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	return role, role.Valid()
}

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

func (r Role) String() string { return string(r) }

// DefaultElevatedRoles are the roles that bypass permission checks. The set is
// configuration, not code: deployments can override it when constructing the
// Resolver.
var DefaultElevatedRoles = []Role{RoleSuperAdmin, RoleAdmin, RoleDirector}
