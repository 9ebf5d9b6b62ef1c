package access

import (
	"context"
	"fmt"
)

// Control answers permission questions for one session. The true role is
// fixed at construction; the impersonated role is the only mutable state.
// A Control is not safe for concurrent use; each request builds its own.
type Control struct {
	policy       *Policy
	trueRole     Role
	impersonated Role
}

// NewControl binds a session identity to the shared policy.
func NewControl(policy *Policy, trueRole Role) *Control {
	return &Control{policy: policy, trueRole: trueRole}
}

// TrueRole returns the role assigned at session start.
func (c *Control) TrueRole() Role {
	return c.trueRole
}

// ImpersonatedRole returns the override, NoRole when not simulating.
func (c *Control) ImpersonatedRole() Role {
	return c.impersonated
}

// EffectiveRole is the impersonated role when set, the true role otherwise.
func (c *Control) EffectiveRole() Role {
	if c.impersonated != NoRole {
		return c.impersonated
	}
	return c.trueRole
}

// IsSimulating reports whether an impersonation override is active.
func (c *Control) IsSimulating() bool {
	return c.impersonated != NoRole
}

// CanAccess reports whether module may be opened. A non-simulating admin is
// always allowed regardless of the matrix.
func (c *Control) CanAccess(module Module) bool {
	if c.trueRole == RoleAdmin && !c.IsSimulating() {
		return true
	}
	if c.policy == nil {
		return false
	}
	return c.policy.Allows(c.EffectiveRole(), module)
}

// CanEdit is granted to the admin and supervisor tiers, whatever the module.
func (c *Control) CanEdit() bool {
	switch c.EffectiveRole() {
	case RoleAdmin, RoleSupervisor:
		return true
	default:
		return false
	}
}

// CanDelete is reserved to the admin tier.
func (c *Control) CanDelete() bool {
	return c.EffectiveRole() == RoleAdmin
}

// AccessibleModules lists the modules CanAccess allows, in navigation order.
func (c *Control) AccessibleModules() []Module {
	if c.trueRole == RoleAdmin && !c.IsSimulating() {
		return AllModules()
	}
	if c.policy == nil {
		return []Module{}
	}
	return c.policy.Modules(c.EffectiveRole()).Sorted()
}

// SetImpersonatedRole overwrites the override; NoRole leaves simulation.
// Only a true admin may change it.
func (c *Control) SetImpersonatedRole(role Role) error {
	if c.trueRole != RoleAdmin {
		return ErrNotAdmin
	}
	if role != NoRole && !role.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownRole, string(role))
	}
	c.impersonated = role
	return nil
}

// UpdatePermissions replaces the whole module set of role and persists it.
// Only a true admin may change the matrix.
func (c *Control) UpdatePermissions(ctx context.Context, role Role, modules ModuleSet) error {
	if c.trueRole != RoleAdmin {
		return ErrNotAdmin
	}
	return c.policy.Replace(ctx, role, modules)
}

// ResetPermissions restores the default matrix. Only a true admin may do it.
func (c *Control) ResetPermissions(ctx context.Context) error {
	if c.trueRole != RoleAdmin {
		return ErrNotAdmin
	}
	return c.policy.Reset(ctx)
}

// Snapshot summarises the decisions for the current session.
type Snapshot struct {
	TrueRole         Role     `json:"true_role"`
	EffectiveRole    Role     `json:"effective_role"`
	ImpersonatedRole Role     `json:"impersonated_role,omitempty"`
	Simulating       bool     `json:"simulating"`
	CanEdit          bool     `json:"can_edit"`
	CanDelete        bool     `json:"can_delete"`
	Modules          []Module `json:"modules"`
}

// Snapshot captures the current decisions.
func (c *Control) Snapshot() Snapshot {
	return Snapshot{
		TrueRole:         c.trueRole,
		EffectiveRole:    c.EffectiveRole(),
		ImpersonatedRole: c.impersonated,
		Simulating:       c.IsSimulating(),
		CanEdit:          c.CanEdit(),
		CanDelete:        c.CanDelete(),
		Modules:          c.AccessibleModules(),
	}
}
