package access

import (
	"fmt"
	"strings"
)

// Module identifies a navigable section of the dashboard.
type Module string

// Modules in navigation order.
const (
	ModuleDashboard    Module = "dashboard"
	ModuleTimeTracking Module = "pointage"
	ModuleProduction   Module = "production"
	ModulePersonnel    Module = "personnel"
	ModuleInventory    Module = "inventaire"
	ModuleAnalytics    Module = "analytiques"
	ModuleReports      Module = "rapports"
	ModulePurchasing   Module = "achats"
	ModuleExpenses     Module = "depenses"
	ModuleSettings     Module = "parametres"
	ModuleAdmin        Module = "admin"
)

var moduleOrder = []Module{
	ModuleDashboard,
	ModuleTimeTracking,
	ModuleProduction,
	ModulePersonnel,
	ModuleInventory,
	ModuleAnalytics,
	ModuleReports,
	ModulePurchasing,
	ModuleExpenses,
	ModuleSettings,
	ModuleAdmin,
}

// AllModules lists every module in navigation order.
func AllModules() []Module {
	out := make([]Module, len(moduleOrder))
	copy(out, moduleOrder)
	return out
}

// Valid reports whether m is one of the enumerated modules.
func (m Module) Valid() bool {
	return m.rank() >= 0
}

func (m Module) rank() int {
	for i, candidate := range moduleOrder {
		if candidate == m {
			return i
		}
	}
	return -1
}

// ParseModule converts a wire value into a Module.
func ParseModule(raw string) (Module, error) {
	m := Module(strings.ToLower(strings.TrimSpace(raw)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownModule, raw)
	}
	return m, nil
}

// ParseModules converts a list of wire values, failing on the first unknown tag.
func ParseModules(raw []string) (ModuleSet, error) {
	set := NewModuleSet()
	for _, r := range raw {
		m, err := ParseModule(r)
		if err != nil {
			return nil, err
		}
		set[m] = struct{}{}
	}
	return set, nil
}

// ModuleSet is an unordered set of modules.
type ModuleSet map[Module]struct{}

// NewModuleSet builds a set from the given modules.
func NewModuleSet(modules ...Module) ModuleSet {
	set := make(ModuleSet, len(modules))
	for _, m := range modules {
		set[m] = struct{}{}
	}
	return set
}

// Has reports membership. A nil set contains nothing.
func (s ModuleSet) Has(m Module) bool {
	_, ok := s[m]
	return ok
}

// Len returns the number of modules in the set.
func (s ModuleSet) Len() int {
	return len(s)
}

// Clone returns an independent copy.
func (s ModuleSet) Clone() ModuleSet {
	out := make(ModuleSet, len(s))
	for m := range s {
		out[m] = struct{}{}
	}
	return out
}

// Equal reports whether both sets hold the same modules.
func (s ModuleSet) Equal(other ModuleSet) bool {
	if len(s) != len(other) {
		return false
	}
	for m := range s {
		if !other.Has(m) {
			return false
		}
	}
	return true
}

// Sorted returns the members in navigation order.
func (s ModuleSet) Sorted() []Module {
	out := make([]Module, 0, len(s))
	for _, m := range moduleOrder {
		if s.Has(m) {
			out = append(out, m)
		}
	}
	return out
}

// Strings returns the wire values in navigation order.
func (s ModuleSet) Strings() []string {
	sorted := s.Sorted()
	out := make([]string, len(sorted))
	for i, m := range sorted {
		out[i] = string(m)
	}
	return out
}
