package expenses

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/minedor/minedor/internal/shared"
)

// Service orchestrates the expense ledger.
type Service struct {
	repo  Repository
	money shared.MoneyFormatter
	now   func() time.Time
	newID func() string
}

// NewService constructs the expenses service.
func NewService(repo Repository, money shared.MoneyFormatter) *Service {
	return &Service{
		repo:  repo,
		money: money,
		now:   time.Now,
		newID: func() string { return "exp-" + uuid.NewString() },
	}
}

func validateFilter(filter Filter) error {
	if filter.Status != "" && !filter.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, filter.Status)
	}
	if filter.Category != "" && !filter.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, filter.Category)
	}
	return nil
}

// List returns expenses matching filter.
func (s *Service) List(ctx context.Context, filter Filter) ([]Expense, error) {
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, filter)
}

// Get returns one expense.
func (s *Service) Get(ctx context.Context, id string) (Expense, error) {
	return s.repo.Get(ctx, id)
}

// Add records an expense. New expenses wait for approval unless a status is given.
func (s *Service) Add(ctx context.Context, input NewExpense) (Expense, error) {
	e := Expense{
		ID:          s.newID(),
		Category:    input.Category,
		Amount:      input.Amount,
		Description: strings.TrimSpace(input.Description),
		Date:        input.Date,
		SupplierID:  strings.TrimSpace(input.SupplierID),
		Status:      input.Status,
	}
	if e.Status == "" {
		e.Status = StatusPending
	}
	if e.Date.IsZero() {
		e.Date = s.now().UTC().Truncate(24 * time.Hour)
	}
	switch {
	case e.Description == "":
		return Expense{}, fmt.Errorf("%w: description is required", ErrInvalidExpense)
	case e.Amount <= 0:
		return Expense{}, fmt.Errorf("%w: amount must be positive", ErrInvalidExpense)
	case !e.Category.Valid():
		return Expense{}, fmt.Errorf("%w: %q", ErrUnknownCategory, e.Category)
	case !e.Status.Valid():
		return Expense{}, fmt.Errorf("%w: %q", ErrUnknownStatus, e.Status)
	}
	if err := s.repo.Insert(ctx, e); err != nil {
		return Expense{}, err
	}
	return e, nil
}

// UpdateStatus approves, rejects or reopens an expense.
func (s *Service) UpdateStatus(ctx context.Context, id string, status Status) (Expense, error) {
	if !status.Valid() {
		return Expense{}, fmt.Errorf("%w: %q", ErrUnknownStatus, status)
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return Expense{}, err
	}
	return s.repo.Get(ctx, id)
}

// Delete removes an expense.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Summary aggregates the expenses matching filter.
func (s *Service) Summary(ctx context.Context, filter Filter) (Summary, error) {
	list, err := s.List(ctx, filter)
	if err != nil {
		return Summary{}, err
	}
	sum := Summary{ByCategory: make(map[Category]float64)}
	for _, e := range list {
		sum.Count++
		sum.Total += e.Amount
		sum.ByCategory[e.Category] += e.Amount
		switch e.Status {
		case StatusApproved:
			sum.Approved++
		case StatusPending:
			sum.Pending++
		case StatusRejected:
			sum.Rejected++
		}
	}
	sum.TotalFormatted = s.money.Format(sum.Total)
	return sum, nil
}
