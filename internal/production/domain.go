package production

import (
	"fmt"
	"time"

	"github.com/minedor/minedor/internal/platform/httpx"
)

// Team is the crew that produced an entry.
type Team string

const (
	TeamA Team = "A"
	TeamB Team = "B"
)

// Valid reports whether t is a known team.
func (t Team) Valid() bool {
	return t == TeamA || t == TeamB
}

// Shift is the working slot of an entry.
type Shift string

const (
	ShiftMorning Shift = "matin"
	ShiftDay     Shift = "jour"
	ShiftEvening Shift = "soir"
)

// Valid reports whether s is a known shift.
func (s Shift) Valid() bool {
	switch s {
	case ShiftMorning, ShiftDay, ShiftEvening:
		return true
	}
	return false
}

// Status tracks whether an entry counts towards production totals.
type Status string

const (
	StatusDraft     Status = "brouillon"
	StatusValid     Status = "valide"
	StatusCancelled Status = "annule"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusValid, StatusCancelled:
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

// Grade buckets a purity percentage.
type Grade string

const (
	GradeHigh   Grade = "bon"
	GradeMedium Grade = "moyen"
	GradeLow    Grade = "faible"
)

// GradeOf returns the grade of purity.
func GradeOf(purity float64) Grade {
	switch {
	case purity >= 90:
		return GradeHigh
	case purity >= 85:
		return GradeMedium
	default:
		return GradeLow
	}
}

// Entry is one recorded gold output. Quantity is in grams, Purity in percent.
type Entry struct {
	ID         string    `json:"id"`
	Date       time.Time `json:"date"`
	Team       Team      `json:"team"`
	Shift      Shift     `json:"shift"`
	Quantity   float64   `json:"quantity_grams"`
	Purity     float64   `json:"purity"`
	Grade      Grade     `json:"grade"`
	OperatorID string    `json:"operator_id,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewEntry carries the fields supplied when recording production. A nil
// Purity means it was not measured.
type NewEntry struct {
	Date       time.Time
	Team       Team
	Shift      Shift
	Quantity   float64
	Purity     *float64
	OperatorID string
	Notes      string
}

// Filter narrows a listing.
type Filter struct {
	Team   Team
	Status Status
}

// Summary aggregates validated entries.
type Summary struct {
	Entries       int              `json:"entries"`
	TotalGrams    float64          `json:"total_grams"`
	AveragePurity float64          `json:"average_purity"`
	ByTeam        map[Team]float64 `json:"by_team"`
	ByGrade       map[Grade]int    `json:"by_grade"`
}

var (
	// ErrNotFound indicates the entry does not exist.
	ErrNotFound = fmt.Errorf("production: entry not found: %w", httpx.ErrNotFound)
	// ErrUnknownStatus rejects status values outside the lifecycle.
	ErrUnknownStatus = fmt.Errorf("production: unknown status: %w", httpx.ErrValidation)
	// ErrInvalidEntry rejects incomplete or inconsistent input.
	ErrInvalidEntry = fmt.Errorf("production: invalid entry: %w", httpx.ErrValidation)
)
