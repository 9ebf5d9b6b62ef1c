package expenses

import (
	"fmt"
	"time"

	"github.com/minedor/minedor/internal/platform/httpx"
)

// Category classifies an expense.
type Category string

const (
	CategoryFuel      Category = "carburant"
	CategoryParts     Category = "pieces"
	CategoryMaterials Category = "materiaux"
	CategoryTransport Category = "transport"
	CategoryEquipment Category = "equipement"
	CategorySalaries  Category = "salaires"
	CategoryBonuses   Category = "primes"
	CategoryCatering  Category = "restauration"
	CategoryMedical   Category = "medical"
	CategoryTraining  Category = "formation"
	CategoryOther     Category = "autres"
)

var personnelCategories = map[Category]struct{}{
	CategorySalaries: {},
	CategoryBonuses:  {},
	CategoryCatering: {},
	CategoryMedical:  {},
	CategoryTraining: {},
}

// Categories lists every expense category.
func Categories() []Category {
	return []Category{
		CategoryFuel, CategoryParts, CategoryMaterials, CategoryTransport, CategoryEquipment,
		CategorySalaries, CategoryBonuses, CategoryCatering, CategoryMedical, CategoryTraining,
		CategoryOther,
	}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// Personnel reports whether c is a staff cost.
func (c Category) Personnel() bool {
	_, ok := personnelCategories[c]
	return ok
}

// Status is the approval state of an expense.
type Status string

const (
	StatusPending  Status = "en_attente"
	StatusApproved Status = "approuve"
	StatusRejected Status = "rejete"
)

// Statuses lists every approval status.
func Statuses() []Status {
	return []Status{StatusPending, StatusApproved, StatusRejected}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
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

// Expense is a recorded spend.
type Expense struct {
	ID          string    `json:"id"`
	Category    Category  `json:"category"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	SupplierID  string    `json:"supplier_id,omitempty"`
	Status      Status    `json:"status"`
}

// NewExpense carries the fields supplied when recording an expense.
type NewExpense struct {
	Category    Category
	Amount      float64
	Description string
	Date        time.Time
	SupplierID  string
	Status      Status
}

// Filter narrows a listing. Zero values match everything.
type Filter struct {
	Status        Status
	Category      Category
	PersonnelOnly bool
}

func (f Filter) match(e Expense) bool {
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	if f.PersonnelOnly && !e.Category.Personnel() {
		return false
	}
	return true
}

// Summary aggregates expenses for one filter.
type Summary struct {
	Count          int                  `json:"count"`
	Total          float64              `json:"total"`
	TotalFormatted string               `json:"total_formatted"`
	Approved       int                  `json:"approved"`
	Pending        int                  `json:"pending"`
	Rejected       int                  `json:"rejected"`
	ByCategory     map[Category]float64 `json:"by_category"`
}

var (
	// ErrNotFound indicates the expense does not exist.
	ErrNotFound = fmt.Errorf("expenses: expense not found: %w", httpx.ErrNotFound)
	// ErrUnknownStatus rejects status values outside the approval flow.
	ErrUnknownStatus = fmt.Errorf("expenses: unknown status: %w", httpx.ErrValidation)
	// ErrUnknownCategory rejects category values outside the catalogue.
	ErrUnknownCategory = fmt.Errorf("expenses: unknown category: %w", httpx.ErrValidation)
	// ErrInvalidExpense rejects incomplete input.
	ErrInvalidExpense = fmt.Errorf("expenses: invalid expense: %w", httpx.ErrValidation)
)
