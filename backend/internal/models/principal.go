package models

import (
	"strings"

	"github.com/gofrs/uuid"
)

type Role string

const (
	RoleManager        Role = "MANAGER"
	RoleOperator       Role = "OPERATOR"
	RoleProjectManager Role = "PROJECT_MANAGER"
)

// ParseRole accepts any casing and reports whether the value names a known role.
func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleManager, RoleOperator, RoleProjectManager:
		return r, true
	}
	return "", false
}

// IsManagement reports whether the role carries task-management capability.
// MANAGER and PROJECT_MANAGER are equivalent here; OPERATOR never is.
func IsManagement(role Role) bool {
	return role == RoleManager || role == RoleProjectManager
}

// Principal is the authenticated caller, rebuilt per request from a verified token.
type Principal struct {
	ID    uuid.UUID `json:"id"`
	Role  Role      `json:"role"`
	Email string    `json:"email"`
}

func (p Principal) IsManagement() bool {
	return IsManagement(p.Role)
}
