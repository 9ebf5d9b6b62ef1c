package purchasing

import (
	"fmt"
	"time"

	"github.com/minedor/minedor/internal/platform/httpx"
)

// Category classifies a purchase.
type Category string

const (
	CategoryFuel      Category = "carburant"
	CategoryParts     Category = "pieces"
	CategoryMaterials Category = "materiaux"
	CategoryTransport Category = "transport"
	CategoryEquipment Category = "equipement"
	CategoryOther     Category = "autres"
)

// Categories lists every purchase category in display order.
func Categories() []Category {
	return []Category{CategoryFuel, CategoryParts, CategoryMaterials, CategoryTransport, CategoryEquipment, CategoryOther}
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

// Status tracks an order from placement to delivery.
type Status string

const (
	StatusOrdered    Status = "commande"
	StatusInProgress Status = "en_cours"
	StatusDelivered  Status = "livre"
)

// Statuses lists every purchase status in lifecycle order.
func Statuses() []Status {
	return []Status{StatusOrdered, StatusInProgress, StatusDelivered}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusOrdered, StatusInProgress, StatusDelivered:
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

// Purchase is a supplier order.
type Purchase struct {
	ID       string    `json:"id"`
	Item     string    `json:"item"`
	Supplier string    `json:"supplier"`
	Category Category  `json:"category"`
	Amount   float64   `json:"amount"`
	Date     time.Time `json:"date"`
	Status   Status    `json:"status"`
}

// NewPurchase carries the fields supplied when recording a purchase.
type NewPurchase struct {
	Item     string
	Supplier string
	Category Category
	Amount   float64
	Date     time.Time
	Status   Status
}

// Filter narrows a listing.
type Filter struct {
	Status Status
}

// Summary aggregates the purchase book.
type Summary struct {
	Count          int            `json:"count"`
	Total          float64        `json:"total"`
	TotalFormatted string         `json:"total_formatted"`
	ByStatus       map[Status]int `json:"by_status"`
	Pending        float64        `json:"pending_amount"`
}

var (
	// ErrNotFound indicates the purchase does not exist.
	ErrNotFound = fmt.Errorf("purchasing: purchase not found: %w", httpx.ErrNotFound)
	// ErrUnknownStatus rejects status values outside the lifecycle.
	ErrUnknownStatus = fmt.Errorf("purchasing: unknown status: %w", httpx.ErrValidation)
	// ErrInvalidPurchase rejects incomplete or inconsistent input.
	ErrInvalidPurchase = fmt.Errorf("purchasing: invalid purchase: %w", httpx.ErrValidation)
)
