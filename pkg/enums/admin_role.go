package enums

import (
	"fmt"
	"strings"
)

// AdminRole represents a back-office permissions role.
type AdminRole string

const (
	AdminRoleAdmin      AdminRole = "admin"
	AdminRoleSuperadmin AdminRole = "superadmin"
)

var adminRoleRank = map[AdminRole]int{
	AdminRoleAdmin:      1,
	AdminRoleSuperadmin: 2,
}

// String implements fmt.Stringer.
func (r AdminRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known AdminRole.
func (r AdminRole) IsValid() bool {
	_, ok := adminRoleRank[r]
	return ok
}

// Satisfies reports whether r grants at least the privileges of required.
// superadmin satisfies admin; unknown roles satisfy nothing.
func (r AdminRole) Satisfies(required AdminRole) bool {
	have, ok := adminRoleRank[r]
	if !ok {
		return false
	}
	need, ok := adminRoleRank[required]
	if !ok {
		return false
	}
	return have >= need
}

// ParseAdminRole converts raw input into an AdminRole.
func ParseAdminRole(value string) (AdminRole, error) {
	role := AdminRole(strings.ToLower(strings.TrimSpace(value)))
	if role.IsValid() {
		return role, nil
	}
	return "", fmt.Errorf("invalid admin role %q", value)
}
