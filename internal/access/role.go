// Package access decides which identity may view, edit or delete which part of
// the dashboard. The role to module matrix is shared and persisted; the
// impersonation override lives with each session.
package access

import (
	"errors"
	"fmt"
	"strings"

	"github.com/minedor/minedor/internal/platform/httpx"
)

// Role is the permission tier of an identity.
type Role string

// Roles known to the dashboard.
const (
	RoleAdmin      Role = "admin"
	RoleSupervisor Role = "superviseur"
	RoleWorker     Role = "travailleur"
)

// NoRole is the "not impersonating" value.
const NoRole Role = ""

// AllRoles lists every role in display order.
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleSupervisor, RoleWorker}
}

// Valid reports whether r is one of the enumerated roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleSupervisor, RoleWorker:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	if r == NoRole {
		return "none"
	}
	return string(r)
}

// ParseRole converts a wire value into a Role.
func ParseRole(raw string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	if !r.Valid() {
		return NoRole, fmt.Errorf("%w: %q", ErrUnknownRole, raw)
	}
	return r, nil
}

// ParseImpersonation accepts a role or the empty/"none" sentinel.
func ParseImpersonation(raw string) (Role, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" || trimmed == "none" {
		return NoRole, nil
	}
	return ParseRole(trimmed)
}

var (
	// ErrUnknownRole is returned for tags outside the role enumeration.
	ErrUnknownRole = fmt.Errorf("access: unknown role: %w", httpx.ErrValidation)
	// ErrUnknownModule is returned for tags outside the module enumeration.
	ErrUnknownModule = fmt.Errorf("access: unknown module: %w", httpx.ErrValidation)
	// ErrNotAdmin rejects mutations from anyone whose true role is not admin.
	ErrNotAdmin = fmt.Errorf("access: administrator required: %w", httpx.ErrForbidden)
	// ErrAdminMatrixFixed rejects edits to the admin row of the matrix.
	ErrAdminMatrixFixed = fmt.Errorf("access: admin permissions cannot be changed: %w", httpx.ErrValidation)
	// ErrCorruptMatrix reports persisted matrix text that cannot be decoded.
	ErrCorruptMatrix = errors.New("access: corrupt permission matrix")
)
