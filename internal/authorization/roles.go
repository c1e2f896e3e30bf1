package authorization

import (
	"strings"
)

type UserRole string

const (
	RoleAdmin      UserRole = "admin"
	RoleInstructor UserRole = "instructor"
	RoleLearner    UserRole = "learner"
)

var validRoles = map[UserRole]struct{}{
	RoleAdmin:      {},
	RoleInstructor: {},
	RoleLearner:    {},
}

func (r UserRole) String() string {
	return string(r)
}

func (r UserRole) IsValid() bool {
	_, ok := validRoles[r]
	return ok
}

type Permission string

const (
	PermissionManageCatalog Permission = "manage_catalog"
	PermissionGrantAccess   Permission = "grant_access"
	PermissionManageCache   Permission = "manage_cache"
)

var rolePermissions = map[UserRole]map[Permission]struct{}{
	RoleAdmin: {
		PermissionManageCatalog: {},
		PermissionGrantAccess:   {},
		PermissionManageCache:   {},
	},
	RoleInstructor: {
		PermissionManageCatalog: {},
	},
	RoleLearner: {},
}

func RoleHasPermission(role UserRole, permission Permission) bool {
	perms, ok := rolePermissions[role]
	if !ok {
		return false
	}
	_, ok = perms[permission]
	return ok
}

// ParseUserRole accepts the role forms found in token claims and gin contexts.
func ParseUserRole(value interface{}) (UserRole, bool) {
	switch v := value.(type) {
	case UserRole:
		if !v.IsValid() {
			return "", false
		}
		return v, true
	case string:
		role := UserRole(strings.ToLower(strings.TrimSpace(v)))
		if !role.IsValid() {
			return "", false
		}
		return role, true
	case []byte:
		role := UserRole(strings.ToLower(strings.TrimSpace(string(v))))
		if !role.IsValid() {
			return "", false
		}
		return role, true
	default:
		return "", false
	}
}
