// README: Freeze service; validates and holds a rental window before payment.
package freeze

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/J-SURYA/cruizo-backend-sub000/internal/geo"
	"github.com/J-SURYA/cruizo-backend-sub000/internal/modules/fleet"
	"github.com/J-SURYA/cruizo-backend-sub000/internal/modules/ledger"
	"github.com/J-SURYA/cruizo-backend-sub000/internal/modules/pricing"
	"github.com/J-SURYA/cruizo-backend-sub000/internal/types"
)

type Store interface {
	Create(ctx context.Context, f *Freeze) error
	Get(ctx context.Context, id types.ID) (*Freeze, error)
	CustomerLiveOverlap(ctx context.Context, customerID types.ID, start, end, now time.Time) (bool, error)
	CarLiveOverlap(ctx context.Context, carID types.ID, start, end, now time.Time) (bool, error)
	UpdateLocations(ctx context.Context, id types.ID, delivery, pickup types.Point) error
	Delete(ctx context.Context, id types.ID) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type Holds interface {
	TryAcquire(ctx context.Context, carID types.ID) (bool, error)
	Release(ctx context.Context, carID types.ID) error
}

type Cars interface {
	Get(ctx context.Context, id types.ID) (*fleet.Car, error)
}

type Customers interface {
	Get(ctx context.Context, id types.ID) (*ledger.Customer, error)
}

type Availability interface {
	IsAvailable(ctx context.Context, carID types.ID, start, end time.Time, excludeBookingID types.ID) (bool, error)
	NextAvailableTime(ctx context.Context, carID types.ID, now time.Time) (*time.Time, error)
}

// CustomerBookings checks the customer's own calendar for conflicts.
type CustomerBookings interface {
	HasBlockingOverlap(ctx context.Context, customerID types.ID, start, end time.Time) (bool, error)
}

// Eligibility is the profile/verification gate, owned by the auth system.
type Eligibility interface {
	Eligible(ctx context.Context, customerID types.ID) error
}

type Pricer interface {
	Quote(ctx context.Context, in pricing.QuoteInput) (*pricing.Quote, error)
}

type Deps struct {
	Store            Store
	Holds            Holds
	Cars             Cars
	Customers        Customers
	Availability     Availability
	CustomerBookings CustomerBookings
	Eligibility      Eligibility
	Pricer           Pricer

	Hub         types.Point
	TTL         time.Duration // freeze lifetime
	Turnaround  time.Duration // gap enforced around rentals
	MinDuration time.Duration
	HorizonDays int
}

type Service struct {
	Deps
	now func() time.Time
}

func NewService(d Deps) *Service {
	if d.TTL == 0 {
		d.TTL = 7 * time.Minute
	}
	if d.Turnaround == 0 {
		d.Turnaround = 4 * time.Hour
	}
	if d.MinDuration == 0 {
		d.MinDuration = 8 * time.Hour
	}
	if d.HorizonDays == 0 {
		d.HorizonDays = 15
	}
	return &Service{Deps: d, now: time.Now}
}

type CreateInput struct {
	CarID    types.ID
	Start    time.Time
	End      time.Time
	Delivery types.Point
	Pickup   types.Point
}

// Estimate is a freeze together with its car and current quote.
type Estimate struct {
	Freeze *Freeze
	Car    *fleet.Car
	Quote  *pricing.Quote
}

// Create validates the requested window end to end and, if everything
// holds, freezes the car for the freeze TTL. The returned quote is an
// estimate; the ledger is only debited when the freeze converts.
func (s *Service) Create(ctx context.Context, customerID types.ID, in CreateInput) (*Estimate, error) {
	now := s.now()

	if err := s.Eligibility.Eligible(ctx, customerID); err != nil {
		return nil, err
	}
	if err := s.validateTimes(now, in.Start, in.End); err != nil {
		return nil, err
	}

	padStart, padEnd := s.pad(in.Start, in.End)

	if err := s.checkCustomerOverlap(ctx, customerID, padStart, padEnd, now); err != nil {
		return nil, err
	}

	car, err := s.Cars.Get(ctx, in.CarID)
	if err != nil {
		return nil, err
	}
	if !car.Bookable() {
		return nil, types.Invalid("Car is not available for booking")
	}

	ok, err := s.Holds.TryAcquire(ctx, in.CarID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, types.Conflict("This time slot is currently being booked by another user")
	}
	defer s.Holds.Release(ctx, in.CarID)

	frozen, err := s.Store.CarLiveOverlap(ctx, in.CarID, padStart, padEnd, now)
	if err != nil {
		return nil, err
	}
	if frozen {
		return nil, types.Conflict("This time slot is currently being booked by another user")
	}

	available, err := s.Availability.IsAvailable(ctx, in.CarID, padStart, padEnd, "")
	if err != nil {
		return nil, err
	}
	if !available {
		next, err := s.Availability.NextAvailableTime(ctx, in.CarID, now)
		if err != nil {
			return nil, err
		}
		hint := "N/A"
		if next != nil {
			hint = next.Format("2006-01-02 15:04")
		}
		return nil, types.Invalid("Car is not available for the selected dates. Next available from: %s", hint)
	}

	customer, err := s.Customers.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}

	quote, err := s.quote(ctx, car, customer, in.Start, in.End, in.Delivery, in.Pickup)
	if err != nil {
		return nil, err
	}

	f := &Freeze{
		ID:         types.ID(uuid.NewString()),
		CarID:      in.CarID,
		CustomerID: customerID,
		Start:      in.Start,
		End:        in.End,
		Delivery:   in.Delivery,
		Pickup:     in.Pickup,
		ExpiresAt:  now.Add(s.TTL),
		IsActive:   true,
		CreatedAt:  now,
	}
	if err := s.Store.Create(ctx, f); err != nil {
		return nil, err
	}
	return &Estimate{Freeze: f, Car: car, Quote: quote}, nil
}

// Get returns a live freeze with a fresh quote, for the payment screen.
func (s *Service) Get(ctx context.Context, id, customerID types.ID) (*Estimate, error) {
	f, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if f.CustomerID != customerID {
		return nil, types.Forbidden("Cannot access another user's freeze")
	}
	if !f.IsActive {
		return nil, types.Forbidden("Freeze is not active")
	}
	if !f.Live(s.now()) {
		return nil, types.Forbidden("Freeze has expired")
	}

	car, err := s.Cars.Get(ctx, f.CarID)
	if err != nil {
		return nil, err
	}
	customer, err := s.Customers.Get(ctx, f.CustomerID)
	if err != nil {
		return nil, err
	}
	quote, err := s.quote(ctx, car, customer, f.Start, f.End, f.Delivery, f.Pickup)
	if err != nil {
		return nil, err
	}
	return &Estimate{Freeze: f, Car: car, Quote: quote}, nil
}

// UpdateLocations moves the delivery and pickup points of a live freeze and
// re-quotes against the new distances.
func (s *Service) UpdateLocations(ctx context.Context, id, customerID types.ID, delivery, pickup types.Point) (*Estimate, error) {
	f, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if f.CustomerID != customerID {
		return nil, types.Forbidden("Cannot update another user's freeze")
	}
	if !f.Live(s.now()) {
		return nil, types.Forbidden("Freeze is not active or has expired")
	}

	car, err := s.Cars.Get(ctx, f.CarID)
	if err != nil {
		return nil, err
	}
	customer, err := s.Customers.Get(ctx, f.CustomerID)
	if err != nil {
		return nil, err
	}

	quote, err := s.quote(ctx, car, customer, f.Start, f.End, delivery, pickup)
	if err != nil {
		return nil, err
	}
	if err := s.Store.UpdateLocations(ctx, id, delivery, pickup); err != nil {
		return nil, err
	}
	f.Delivery, f.Pickup = delivery, pickup
	return &Estimate{Freeze: f, Car: car, Quote: quote}, nil
}

// Cancel releases a freeze. The row is removed outright; an expired or
// already-inactive freeze may still be cancelled by its owner.
func (s *Service) Cancel(ctx context.Context, id, customerID types.ID) error {
	f, err := s.Store.Get(ctx, id)
	if err != nil {
		return err
	}
	if f.CustomerID != customerID {
		return types.Forbidden("Cannot cancel another user's freeze")
	}
	if err := s.Store.Delete(ctx, id); err != nil {
		return err
	}
	return s.Holds.Release(ctx, f.CarID)
}

// CleanupExpired purges expired and deactivated freezes.
func (s *Service) CleanupExpired(ctx context.Context) (int64, error) {
	return s.Store.DeleteExpired(ctx, s.now())
}

func (s *Service) pad(start, end time.Time) (time.Time, time.Time) {
	return start.Add(-s.Turnaround), end.Add(s.Turnaround)
}

func (s *Service) validateTimes(now, start, end time.Time) error {
	// Small grace so a client that quoted "2 hours from now" a moment ago
	// does not get rejected while submitting.
	minStart := now.Add(2*time.Hour - 5*time.Minute)
	if start.Before(minStart) {
		return types.Invalid("Start time must be at least 2 hours from now")
	}
	if end.Sub(start) < s.MinDuration {
		return types.Invalid("Booking duration must be at least 8 hours")
	}
	if int(start.Sub(now).Hours()/24) > s.HorizonDays {
		return types.Invalid("Start date cannot be more than 15 days from now")
	}
	if !halfHourAligned(start) || !halfHourAligned(end) {
		return types.Invalid("Booking times must be in :00 or :30 minute intervals")
	}
	return nil
}

func halfHourAligned(t time.Time) bool {
	return t.Minute() == 0 || t.Minute() == 30
}

func (s *Service) checkCustomerOverlap(ctx context.Context, customerID types.ID, padStart, padEnd, now time.Time) error {
	booked, err := s.CustomerBookings.HasBlockingOverlap(ctx, customerID, padStart, padEnd)
	if err != nil {
		return err
	}
	frozen, err := s.Store.CustomerLiveOverlap(ctx, customerID, padStart, padEnd, now)
	if err != nil {
		return err
	}
	if booked || frozen {
		return types.Invalid("You already have a booking or freeze that overlaps with this time period. " +
			"Please choose a different time slot with at least 4 hours gap between bookings.")
	}
	return nil
}

func (s *Service) quote(ctx context.Context, car *fleet.Car, customer *ledger.Customer, start, end time.Time, delivery, pickup types.Point) (*pricing.Quote, error) {
	hubToDelivery := geo.DistanceKm(s.Hub.Lat, s.Hub.Lng, delivery.Lat, delivery.Lng)
	hubToPickup := geo.DistanceKm(s.Hub.Lat, s.Hub.Lng, pickup.Lat, pickup.Lng)

	if total := hubToDelivery + hubToPickup; total > 60 {
		return nil, types.Invalid("Total distance (%.1f km) exceeds 60km limit", total)
	}

	var profile *pricing.CustomerProfile
	if customer != nil {
		profile = &pricing.CustomerProfile{
			Rookie:            customer.Tag == ledger.TagRookie,
			ReferralCount:     customer.ReferralCount,
			RookieBenefitUsed: customer.RookieBenefitUsed,
		}
	}
	return s.Pricer.Quote(ctx, pricing.QuoteInput{
		Car:             car,
		Start:           start,
		End:             end,
		HubToDeliveryKm: hubToDelivery,
		HubToPickupKm:   hubToPickup,
		Profile:         profile,
	})
}
