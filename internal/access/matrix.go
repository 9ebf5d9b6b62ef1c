package access

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Matrix maps each role to the modules it may open.
type Matrix map[Role]ModuleSet

// DefaultMatrix returns the built-in permissions.
func DefaultMatrix() Matrix {
	return Matrix{
		RoleAdmin: NewModuleSet(AllModules()...),
		RoleSupervisor: NewModuleSet(
			ModuleDashboard,
			ModuleTimeTracking,
			ModuleProduction,
			ModulePersonnel,
			ModuleInventory,
			ModuleAnalytics,
			ModuleReports,
		),
		RoleWorker: NewModuleSet(
			ModuleDashboard,
			ModuleTimeTracking,
			ModuleProduction,
		),
	}
}

// Modules returns the set for role, empty when the role has no entry.
func (m Matrix) Modules(role Role) ModuleSet {
	if set, ok := m[role]; ok && set != nil {
		return set
	}
	return ModuleSet{}
}

// Clone deep-copies the matrix.
func (m Matrix) Clone() Matrix {
	out := make(Matrix, len(m))
	for role, set := range m {
		out[role] = set.Clone()
	}
	return out
}

// normalize guarantees an entry for every role.
func (m Matrix) normalize() Matrix {
	for _, role := range AllRoles() {
		if m[role] == nil {
			m[role] = ModuleSet{}
		}
	}
	return m
}

// EncodeMatrix serializes the matrix as a JSON object of role to module list.
func EncodeMatrix(m Matrix) ([]byte, error) {
	doc := make(map[string][]string, len(m))
	for _, role := range AllRoles() {
		doc[string(role)] = m.Modules(role).Strings()
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("access: encode matrix: %w", err)
	}
	return data, nil
}

// DecodeMatrix reads persisted text and merges it over the defaults.
// Roles missing from the text keep their default set, the admin row is always
// the default, unknown roles and modules are dropped and reported in skipped. Malformed text yields the
// defaults together with ErrCorruptMatrix.
func DecodeMatrix(data []byte) (matrix Matrix, skipped []string, err error) {
	matrix = DefaultMatrix()
	if len(bytes.TrimSpace(data)) == 0 {
		return matrix, nil, nil
	}
	var doc map[string][]string
	if err := json.Unmarshal(data, &doc); err != nil {
		return DefaultMatrix(), nil, fmt.Errorf("%w: %v", ErrCorruptMatrix, err)
	}
	for rawRole, rawModules := range doc {
		role, err := ParseRole(rawRole)
		if err != nil {
			skipped = append(skipped, "role:"+rawRole)
			continue
		}
		if role == RoleAdmin {
			continue
		}
		set := NewModuleSet()
		for _, rawModule := range rawModules {
			module, err := ParseModule(rawModule)
			if err != nil {
				skipped = append(skipped, "module:"+rawModule)
				continue
			}
			set[module] = struct{}{}
		}
		matrix[role] = set
	}
	return matrix.normalize(), skipped, nil
}
