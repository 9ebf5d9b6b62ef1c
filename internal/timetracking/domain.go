package timetracking

import (
	"fmt"
	"time"

	"github.com/minedor/minedor/internal/platform/httpx"
)

// Status is the attendance state of a clock-in session.
type Status string

const (
	StatusPresent  Status = "present"
	StatusLate     Status = "retard"
	StatusDeparted Status = "parti"
)

// Statuses lists every session status.
func Statuses() []Status {
	return []Status{StatusPresent, StatusLate, StatusDeparted}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusLate, StatusDeparted:
		return true
	}
	return false
}

// Session is one clock-in of a user. LeftAt is nil while the user is on site;
// Late records whether the arrival was after the shift start.
type Session struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	Day           string     `json:"date"`
	ArrivedAt     time.Time  `json:"arrived_at"`
	LeftAt        *time.Time `json:"left_at,omitempty"`
	Late          bool       `json:"late"`
	Status        Status     `json:"status"`
	WorkedMinutes int        `json:"worked_minutes"`
	Note          string     `json:"note,omitempty"`
}

// Open reports whether the user has not clocked out yet.
func (s Session) Open() bool {
	return s.LeftAt == nil
}

// Schedule places clock-ins on the site calendar. Arrivals later than
// LateAfter past local midnight are late.
type Schedule struct {
	Location  *time.Location
	LateAfter time.Duration
}

// DefaultSchedule starts the shift at 08:00 UTC.
func DefaultSchedule() Schedule {
	return Schedule{Location: time.UTC, LateAfter: 8 * time.Hour}
}

// Filter narrows a listing. Day is a YYYY-MM-DD date on the site calendar.
type Filter struct {
	Day    string
	UserID string
	Status Status
}

// Summary counts the sessions of one day.
type Summary struct {
	Day           string `json:"date"`
	Present       int    `json:"present"`
	Late          int    `json:"late"`
	Departed      int    `json:"departed"`
	WorkedMinutes int    `json:"worked_minutes"`
}

var (
	// ErrNotFound indicates the session does not exist.
	ErrNotFound = fmt.Errorf("timetracking: session not found: %w", httpx.ErrNotFound)
	// ErrNotClockedIn is returned when the user has no open session.
	ErrNotClockedIn = fmt.Errorf("timetracking: not clocked in: %w", httpx.ErrNotFound)
	// ErrAlreadyClockedIn rejects a second open session for the same user.
	ErrAlreadyClockedIn = fmt.Errorf("timetracking: already clocked in: %w", httpx.ErrDuplicate)
	// ErrUnknownStatus rejects status values outside the known set.
	ErrUnknownStatus = fmt.Errorf("timetracking: unknown status: %w", httpx.ErrValidation)
	// ErrInvalidDay rejects malformed dates.
	ErrInvalidDay = fmt.Errorf("timetracking: invalid date: %w", httpx.ErrValidation)
)
