package timetracking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/minedor/minedor/internal/platform/httpx"
)

// Service records arrivals and departures on site.
type Service struct {
	repo     Repository
	schedule Schedule
	now      func() time.Time
	newID    func() string
}

// NewService constructs the time tracking service.
func NewService(repo Repository, schedule Schedule) *Service {
	if schedule.Location == nil {
		schedule.Location = time.UTC
	}
	return &Service{
		repo:     repo,
		schedule: schedule,
		now:      time.Now,
		newID:    func() string { return "pt-" + uuid.NewString() },
	}
}

func (s *Service) localNow() time.Time {
	return s.now().In(s.schedule.Location)
}

// Today returns the current date on the site calendar.
func (s *Service) Today() string {
	return s.localNow().Format(time.DateOnly)
}

// ClockIn opens a session for userID. Arrivals after the shift start are
// marked late.
func (s *Service) ClockIn(ctx context.Context, userID, note string) (Session, error) {
	if userID == "" {
		return Session{}, fmt.Errorf("timetracking: clock in: %w", httpx.ErrUnauthorized)
	}
	now := s.localNow()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.schedule.Location)
	sess := Session{
		ID:        s.newID(),
		UserID:    userID,
		Day:       now.Format(time.DateOnly),
		ArrivedAt: now,
		Late:      now.Sub(midnight) > s.schedule.LateAfter,
		Status:    StatusPresent,
		Note:      strings.TrimSpace(note),
	}
	if sess.Late {
		sess.Status = StatusLate
	}
	if err := s.repo.Insert(ctx, sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// ClockOut closes the open session of userID and records the worked time.
func (s *Service) ClockOut(ctx context.Context, userID string) (Session, error) {
	sess, err := s.Current(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	left := s.localNow()
	worked := int(left.Sub(sess.ArrivedAt) / time.Minute)
	if worked < 0 {
		worked = 0
	}
	if err := s.repo.Close(ctx, sess.ID, left, worked); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrNotClockedIn
		}
		return Session{}, err
	}
	sess.LeftAt = &left
	sess.Status = StatusDeparted
	sess.WorkedMinutes = worked
	return sess, nil
}

// Current returns the open session of userID.
func (s *Service) Current(ctx context.Context, userID string) (Session, error) {
	sess, err := s.repo.Open(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return Session{}, ErrNotClockedIn
	}
	return sess, err
}

// Elapsed returns how long sess has lasted so far, or its worked time once
// closed.
func (s *Service) Elapsed(sess Session) time.Duration {
	if !sess.Open() {
		return time.Duration(sess.WorkedMinutes) * time.Minute
	}
	return s.localNow().Sub(sess.ArrivedAt)
}

// List returns sessions matching filter, latest arrival first.
func (s *Service) List(ctx context.Context, filter Filter) ([]Session, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, filter.Status)
	}
	if filter.Day != "" {
		if _, err := time.Parse(time.DateOnly, filter.Day); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDay, filter.Day)
		}
	}
	return s.repo.List(ctx, filter)
}

// Delete removes a session.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Summary counts the sessions of day, today when empty.
func (s *Service) Summary(ctx context.Context, day string) (Summary, error) {
	if day == "" {
		day = s.Today()
	}
	list, err := s.List(ctx, Filter{Day: day})
	if err != nil {
		return Summary{}, err
	}
	sum := Summary{Day: day}
	for _, sess := range list {
		switch sess.Status {
		case StatusPresent:
			sum.Present++
		case StatusLate:
			sum.Late++
		case StatusDeparted:
			sum.Departed++
		}
		sum.WorkedMinutes += sess.WorkedMinutes
	}
	return sum, nil
}
