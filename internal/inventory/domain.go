package inventory

import (
	"fmt"
	"time"

	"github.com/minedor/minedor/internal/platform/httpx"
)

// Kind is the machine family of a piece of equipment.
type Kind string

const (
	KindDrill     Kind = "foreuse"
	KindCrusher   Kind = "concasseur"
	KindGenerator Kind = "generateur"
	KindPump      Kind = "pompe"
	KindVehicle   Kind = "vehicule"
)

// Kinds lists every equipment kind in display order.
func Kinds() []Kind {
	return []Kind{KindDrill, KindCrusher, KindGenerator, KindPump, KindVehicle}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds() {
		if k == known {
			return true
		}
	}
	return false
}

// Status is the operating state of a machine.
type Status string

const (
	StatusOperational Status = "operationnel"
	StatusMaintenance Status = "maintenance"
	StatusBroken      Status = "panne"
)

// Statuses lists every equipment status.
func Statuses() []Status {
	return []Status{StatusOperational, StatusMaintenance, StatusBroken}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusOperational, StatusMaintenance, StatusBroken:
		return true
	}
	return false
}

// ParseStatus converts a wire value into a Status.
func ParseStatus(value string) (Status, error) {
	s := Status(value)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, value)
	}
	return s, nil
}

// Equipment is one machine of the site fleet. Reason explains a maintenance
// or breakdown status and is empty while operational.
type Equipment struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Kind            Kind      `json:"type"`
	Status          Status    `json:"status"`
	TotalHours      int       `json:"total_hours"`
	Location        string    `json:"location"`
	NextMaintenance time.Time `json:"next_maintenance_date"`
	Reason          string    `json:"reason,omitempty"`
}

// NewEquipment carries the fields supplied when registering a machine.
type NewEquipment struct {
	Name       string
	Kind       Kind
	Location   string
	TotalHours int
}

// Update edits the state of one machine. A zero NextMaintenance keeps the
// current date.
type Update struct {
	Status          Status
	Reason          string
	NextMaintenance time.Time
}

// Filter narrows a listing. Search matches the name or kind, case-insensitively.
type Filter struct {
	Status Status
	Search string
}

// Summary counts the fleet by status.
type Summary struct {
	Total    int            `json:"total"`
	ByStatus map[Status]int `json:"by_status"`
	Overdue  []string       `json:"maintenance_overdue"`
}

var (
	// ErrNotFound indicates the equipment does not exist.
	ErrNotFound = fmt.Errorf("inventory: equipment not found: %w", httpx.ErrNotFound)
	// ErrUnknownStatus rejects status values outside the known set.
	ErrUnknownStatus = fmt.Errorf("inventory: unknown status: %w", httpx.ErrValidation)
	// ErrInvalidEquipment rejects incomplete or inconsistent input.
	ErrInvalidEquipment = fmt.Errorf("inventory: invalid equipment: %w", httpx.ErrValidation)
)
