// README: Availability service sweeps occupied periods into bookable slots.
package availability

import (
	"context"
	"time"

	"github.com/J-SURYA/cruizo-backend-sub000/internal/types"
)

type Store interface {
	OccupiedPeriods(ctx context.Context, carID types.ID, from, to, now time.Time) ([]Period, error)
	HasBlockingOverlap(ctx context.Context, carID types.ID, start, end time.Time, excludeBookingID types.ID) (bool, error)
	LastBlockingEnd(ctx context.Context, carID types.ID, after time.Time) (*time.Time, error)
}

type Service struct {
	store      Store
	horizon    time.Duration
	turnaround time.Duration
	minSlot    time.Duration
}

func NewService(store Store, horizonDays, turnaroundHours, minDurationHours int) *Service {
	return &Service{
		store:      store,
		horizon:    time.Duration(horizonDays) * 24 * time.Hour,
		turnaround: time.Duration(turnaroundHours) * time.Hour,
		minSlot:    time.Duration(minDurationHours) * time.Hour,
	}
}

// Slots lists bookable windows for a car within the search horizon. Each
// occupied period blocks until its end plus the turnaround gap; only gaps
// long enough for a minimum rental are emitted.
func (s *Service) Slots(ctx context.Context, carID types.ID, now time.Time) ([]Slot, error) {
	maxDate := now.Add(s.horizon)

	periods, err := s.store.OccupiedPeriods(ctx, carID, now, maxDate, now)
	if err != nil {
		return nil, err
	}
	for i := range periods {
		periods[i].End = periods[i].End.Add(s.turnaround)
	}

	slots := []Slot{}
	cur := now
	for _, p := range periods {
		if !p.End.After(cur) {
			continue
		}
		if cur.Before(p.Start) {
			slotEnd := p.Start
			if slotEnd.After(maxDate) {
				slotEnd = maxDate
			}
			if slotEnd.Sub(cur) >= s.minSlot {
				slots = append(slots, newSlot(cur, slotEnd))
			}
		}
		if p.End.After(cur) {
			cur = p.End
		}
		if !cur.Before(maxDate) {
			break
		}
	}
	if cur.Before(maxDate) && maxDate.Sub(cur) >= s.minSlot {
		slots = append(slots, newSlot(cur, maxDate))
	}
	return slots, nil
}

// IsAvailable reports whether no blocking booking overlaps [start, end).
// Freezes are deliberately not consulted here; the freeze manager does its
// own padded freeze-overlap check before this one.
func (s *Service) IsAvailable(ctx context.Context, carID types.ID, start, end time.Time, excludeBookingID types.ID) (bool, error) {
	overlap, err := s.store.HasBlockingOverlap(ctx, carID, start, end, excludeBookingID)
	if err != nil {
		return false, err
	}
	return !overlap, nil
}

// NextAvailableTime returns the end of the last blocking booking, the
// earliest instant a new rental could start after current commitments.
func (s *Service) NextAvailableTime(ctx context.Context, carID types.ID, now time.Time) (*time.Time, error) {
	return s.store.LastBlockingEnd(ctx, carID, now)
}
