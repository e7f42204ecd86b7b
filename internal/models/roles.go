package models

import "strings"

// Authority strings embedded in tokens and checked by route guards
const (
	AuthorityUserRead   = "user:read"
	AuthorityUserUpdate = "user:update"
	AuthorityUserCreate = "user:create"
	AuthorityUserDelete = "user:delete"
)

// Role names, stored on the user record
const (
	RoleUser       = "ROLE_USER"
	RoleHR         = "ROLE_HR"
	RoleManager    = "ROLE_MANAGER"
	RoleAdmin      = "ROLE_ADMIN"
	RoleSuperAdmin = "ROLE_SUPER_ADMIN"
)

var roleAuthorities = map[string][]string{
	RoleUser:       {AuthorityUserRead},
	RoleHR:         {AuthorityUserRead, AuthorityUserUpdate},
	RoleManager:    {AuthorityUserRead, AuthorityUserUpdate},
	RoleAdmin:      {AuthorityUserRead, AuthorityUserCreate, AuthorityUserUpdate},
	RoleSuperAdmin: {AuthorityUserRead, AuthorityUserCreate, AuthorityUserUpdate, AuthorityUserDelete},
}

// ParseRole normalizes a role name (case-insensitive, ROLE_ prefix optional)
func ParseRole(role string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(role))
	if normalized != "" && !strings.HasPrefix(normalized, "ROLE_") {
		normalized = "ROLE_" + normalized
	}
	if _, ok := roleAuthorities[normalized]; !ok {
		return "", ErrInvalidRole
	}
	return normalized, nil
}

// RoleAuthorities returns a copy of the authorities granted to role, or nil for unknown roles
func RoleAuthorities(role string) []string {
	authorities, ok := roleAuthorities[role]
	if !ok {
		return nil
	}
	out := make([]string, len(authorities))
	copy(out, authorities)
	return out
}
