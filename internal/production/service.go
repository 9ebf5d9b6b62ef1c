package production

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// defaultPurity is assumed when a batch was not assayed.
const defaultPurity = 90

// Service orchestrates the production log.
type Service struct {
	repo  Repository
	now   func() time.Time
	newID func() string
}

// NewService constructs the production service.
func NewService(repo Repository) *Service {
	return &Service{
		repo:  repo,
		now:   time.Now,
		newID: func() string { return "prod-" + uuid.NewString() },
	}
}

// List returns entries matching filter, newest first.
func (s *Service) List(ctx context.Context, filter Filter) ([]Entry, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, filter.Status)
	}
	if filter.Team != "" && !filter.Team.Valid() {
		return nil, fmt.Errorf("%w: unknown team %q", ErrInvalidEntry, filter.Team)
	}
	return s.repo.List(ctx, filter)
}

// Get returns one entry.
func (s *Service) Get(ctx context.Context, id string) (Entry, error) {
	return s.repo.Get(ctx, id)
}

// Record stores a validated entry. Purity defaults to 90 and is clamped to
// [0, 100]; the date defaults to today.
func (s *Service) Record(ctx context.Context, input NewEntry) (Entry, error) {
	now := s.now().UTC()
	purity := float64(defaultPurity)
	if input.Purity != nil {
		purity = math.Min(100, math.Max(0, *input.Purity))
	}
	e := Entry{
		ID:         s.newID(),
		Date:       input.Date,
		Team:       input.Team,
		Shift:      input.Shift,
		Quantity:   input.Quantity,
		Purity:     purity,
		Grade:      GradeOf(purity),
		OperatorID: strings.TrimSpace(input.OperatorID),
		Notes:      strings.TrimSpace(input.Notes),
		Status:     StatusValid,
		CreatedAt:  now,
	}
	if e.Date.IsZero() {
		e.Date = now.Truncate(24 * time.Hour)
	}
	switch {
	case !e.Team.Valid():
		return Entry{}, fmt.Errorf("%w: unknown team %q", ErrInvalidEntry, e.Team)
	case !e.Shift.Valid():
		return Entry{}, fmt.Errorf("%w: unknown shift %q", ErrInvalidEntry, e.Shift)
	case math.IsNaN(e.Quantity) || e.Quantity <= 0:
		return Entry{}, fmt.Errorf("%w: quantity must be positive", ErrInvalidEntry)
	}
	if err := s.repo.Insert(ctx, e); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// UpdateStatus moves an entry to status.
func (s *Service) UpdateStatus(ctx context.Context, id string, status Status) (Entry, error) {
	if !status.Valid() {
		return Entry{}, fmt.Errorf("%w: %q", ErrUnknownStatus, status)
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return Entry{}, err
	}
	return s.repo.Get(ctx, id)
}

// Delete removes an entry.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Summary totals validated entries. The average purity is weighted by
// quantity and rounded to one decimal.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	list, err := s.repo.List(ctx, Filter{Status: StatusValid})
	if err != nil {
		return Summary{}, err
	}
	sum := Summary{
		ByTeam:  map[Team]float64{TeamA: 0, TeamB: 0},
		ByGrade: map[Grade]int{GradeHigh: 0, GradeMedium: 0, GradeLow: 0},
	}
	var weighted float64
	for _, e := range list {
		sum.Entries++
		sum.TotalGrams += e.Quantity
		sum.ByTeam[e.Team] += e.Quantity
		sum.ByGrade[e.Grade]++
		weighted += e.Quantity * e.Purity
	}
	if sum.TotalGrams > 0 {
		sum.AveragePurity = math.Round(weighted/sum.TotalGrams*10) / 10
	}
	return sum, nil
}
