package purchasing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/minedor/minedor/internal/shared"
)

// Service orchestrates the purchase book.
type Service struct {
	repo  Repository
	money shared.MoneyFormatter
	now   func() time.Time
	newID func() string
}

// NewService constructs the purchasing service.
func NewService(repo Repository, money shared.MoneyFormatter) *Service {
	return &Service{
		repo:  repo,
		money: money,
		now:   time.Now,
		newID: func() string { return "ach-" + uuid.NewString() },
	}
}

// List returns purchases, optionally restricted to one status.
func (s *Service) List(ctx context.Context, filter Filter) ([]Purchase, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, filter.Status)
	}
	return s.repo.List(ctx, filter)
}

// Get returns one purchase.
func (s *Service) Get(ctx context.Context, id string) (Purchase, error) {
	return s.repo.Get(ctx, id)
}

// Add records a purchase. Status defaults to ordered and the date to today.
func (s *Service) Add(ctx context.Context, input NewPurchase) (Purchase, error) {
	p := Purchase{
		ID:       s.newID(),
		Item:     strings.TrimSpace(input.Item),
		Supplier: strings.TrimSpace(input.Supplier),
		Category: input.Category,
		Amount:   input.Amount,
		Date:     input.Date,
		Status:   input.Status,
	}
	if p.Status == "" {
		p.Status = StatusOrdered
	}
	if p.Date.IsZero() {
		p.Date = s.now().UTC().Truncate(24 * time.Hour)
	}
	if err := validatePurchase(p); err != nil {
		return Purchase{}, err
	}
	if err := s.repo.Insert(ctx, p); err != nil {
		return Purchase{}, err
	}
	return p, nil
}

// UpdateStatus moves a purchase to status.
func (s *Service) UpdateStatus(ctx context.Context, id string, status Status) (Purchase, error) {
	if !status.Valid() {
		return Purchase{}, fmt.Errorf("%w: %q", ErrUnknownStatus, status)
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return Purchase{}, err
	}
	return s.repo.Get(ctx, id)
}

// Delete removes a purchase.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Summary totals every purchase. Pending covers orders not yet delivered.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	list, err := s.repo.List(ctx, Filter{})
	if err != nil {
		return Summary{}, err
	}
	sum := Summary{ByStatus: make(map[Status]int, len(Statuses()))}
	for _, st := range Statuses() {
		sum.ByStatus[st] = 0
	}
	for _, p := range list {
		sum.Count++
		sum.Total += p.Amount
		sum.ByStatus[p.Status]++
		if p.Status != StatusDelivered {
			sum.Pending += p.Amount
		}
	}
	sum.TotalFormatted = s.money.Format(sum.Total)
	return sum, nil
}

func validatePurchase(p Purchase) error {
	switch {
	case p.Item == "":
		return fmt.Errorf("%w: item is required", ErrInvalidPurchase)
	case p.Supplier == "":
		return fmt.Errorf("%w: supplier is required", ErrInvalidPurchase)
	case !p.Category.Valid():
		return fmt.Errorf("%w: unknown category %q", ErrInvalidPurchase, p.Category)
	case p.Amount <= 0:
		return fmt.Errorf("%w: amount must be positive", ErrInvalidPurchase)
	case !p.Status.Valid():
		return fmt.Errorf("%w: %q", ErrUnknownStatus, p.Status)
	}
	return nil
}
