package inventory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultLocation    = "Non assigné"
	maintenanceHorizon = 30 * 24 * time.Hour
)

// Service orchestrates the equipment fleet.
type Service struct {
	repo  Repository
	now   func() time.Time
	newID func() string
}

// NewService constructs the inventory service.
func NewService(repo Repository) *Service {
	return &Service{
		repo:  repo,
		now:   time.Now,
		newID: func() string { return "eq-" + uuid.NewString() },
	}
}

func (s *Service) today() time.Time {
	return s.now().UTC().Truncate(24 * time.Hour)
}

// List returns equipment matching filter.
func (s *Service) List(ctx context.Context, filter Filter) ([]Equipment, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, filter.Status)
	}
	return s.repo.List(ctx, filter)
}

// Get returns one machine.
func (s *Service) Get(ctx context.Context, id string) (Equipment, error) {
	return s.repo.Get(ctx, id)
}

// Add registers an operational machine due for maintenance in thirty days.
func (s *Service) Add(ctx context.Context, input NewEquipment) (Equipment, error) {
	e := Equipment{
		ID:              s.newID(),
		Name:            strings.TrimSpace(input.Name),
		Kind:            input.Kind,
		Status:          StatusOperational,
		TotalHours:      input.TotalHours,
		Location:        strings.TrimSpace(input.Location),
		NextMaintenance: s.today().Add(maintenanceHorizon),
	}
	if e.Location == "" {
		e.Location = defaultLocation
	}
	switch {
	case e.Name == "":
		return Equipment{}, fmt.Errorf("%w: name is required", ErrInvalidEquipment)
	case !e.Kind.Valid():
		return Equipment{}, fmt.Errorf("%w: unknown type %q", ErrInvalidEquipment, e.Kind)
	case e.TotalHours < 0:
		return Equipment{}, fmt.Errorf("%w: hours must not be negative", ErrInvalidEquipment)
	}
	if err := s.repo.Insert(ctx, e); err != nil {
		return Equipment{}, err
	}
	return e, nil
}

// Update applies a status change to one machine. The reason is dropped once
// the machine is operational again.
func (s *Service) Update(ctx context.Context, id string, change Update) (Equipment, error) {
	if !change.Status.Valid() {
		return Equipment{}, fmt.Errorf("%w: %q", ErrUnknownStatus, change.Status)
	}
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return Equipment{}, err
	}
	e.Status = change.Status
	e.Reason = strings.TrimSpace(change.Reason)
	if e.Status == StatusOperational {
		e.Reason = ""
	}
	if !change.NextMaintenance.IsZero() {
		e.NextMaintenance = change.NextMaintenance
	}
	if err := s.repo.Update(ctx, e); err != nil {
		return Equipment{}, err
	}
	return e, nil
}

// SetStatus moves several machines to status at once and returns how many
// changed. Either all ids change or none do.
func (s *Service) SetStatus(ctx context.Context, ids []string, status Status) (int, error) {
	if !status.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrUnknownStatus, status)
	}
	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return 0, fmt.Errorf("%w: no equipment selected", ErrInvalidEquipment)
	}
	if err := s.repo.SetStatus(ctx, unique, status); err != nil {
		return 0, err
	}
	return len(unique), nil
}

// Delete removes a machine.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Summary counts the fleet by status and lists machines whose maintenance
// date has passed.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	list, err := s.repo.List(ctx, Filter{})
	if err != nil {
		return Summary{}, err
	}
	today := s.today()
	sum := Summary{ByStatus: make(map[Status]int, len(Statuses())), Overdue: []string{}}
	for _, st := range Statuses() {
		sum.ByStatus[st] = 0
	}
	for _, e := range list {
		sum.Total++
		sum.ByStatus[e.Status]++
		if e.NextMaintenance.Before(today) {
			sum.Overdue = append(sum.Overdue, e.ID)
		}
	}
	sort.Strings(sum.Overdue)
	return sum, nil
}
