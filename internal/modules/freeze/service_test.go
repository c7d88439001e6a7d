package freeze

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/J-SURYA/cruizo-backend-sub000/internal/modules/fleet"
	"github.com/J-SURYA/cruizo-backend-sub000/internal/modules/ledger"
	"github.com/J-SURYA/cruizo-backend-sub000/internal/modules/pricing"
	"github.com/J-SURYA/cruizo-backend-sub000/internal/types"
)

type memStore struct {
	freezes map[types.ID]*Freeze
}

func newMemStore() *memStore {
	return &memStore{freezes: map[types.ID]*Freeze{}}
}

func (s *memStore) Create(ctx context.Context, f *Freeze) error {
	cp := *f
	s.freezes[f.ID] = &cp
	return nil
}

func (s *memStore) Get(ctx context.Context, id types.ID) (*Freeze, error) {
	f, ok := s.freezes[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (s *memStore) CustomerLiveOverlap(ctx context.Context, customerID types.ID, start, end, now time.Time) (bool, error) {
	for _, f := range s.freezes {
		if f.CustomerID == customerID && f.Live(now) && f.Start.Before(end) && f.End.After(start) {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) CarLiveOverlap(ctx context.Context, carID types.ID, start, end, now time.Time) (bool, error) {
	for _, f := range s.freezes {
		if f.CarID == carID && f.Live(now) && f.Start.Before(end) && f.End.After(start) {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) UpdateLocations(ctx context.Context, id types.ID, delivery, pickup types.Point) error {
	f, ok := s.freezes[id]
	if !ok {
		return ErrNotFound
	}
	f.Delivery, f.Pickup = delivery, pickup
	return nil
}

func (s *memStore) Delete(ctx context.Context, id types.ID) error {
	delete(s.freezes, id)
	return nil
}

func (s *memStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	for id, f := range s.freezes {
		if !f.Live(now) {
			delete(s.freezes, id)
			n++
		}
	}
	return n, nil
}

type fakeHolds struct {
	locked bool
}

func (h *fakeHolds) TryAcquire(ctx context.Context, carID types.ID) (bool, error) {
	return !h.locked, nil
}

func (h *fakeHolds) Release(ctx context.Context, carID types.ID) error { return nil }

type fakeCars struct {
	car *fleet.Car
}

func (f *fakeCars) Get(ctx context.Context, id types.ID) (*fleet.Car, error) {
	if f.car == nil {
		return nil, fleet.ErrNotFound
	}
	return f.car, nil
}

type fakeCustomers struct {
	customer *ledger.Customer
}

func (f *fakeCustomers) Get(ctx context.Context, id types.ID) (*ledger.Customer, error) {
	if f.customer == nil {
		return nil, ledger.ErrNotFound
	}
	return f.customer, nil
}

type fakeAvail struct {
	available bool
	next      *time.Time
}

func (f *fakeAvail) IsAvailable(ctx context.Context, carID types.ID, start, end time.Time, exclude types.ID) (bool, error) {
	return f.available, nil
}

func (f *fakeAvail) NextAvailableTime(ctx context.Context, carID types.ID, now time.Time) (*time.Time, error) {
	return f.next, nil
}

type fakeBookings struct {
	overlap bool
}

func (f *fakeBookings) HasBlockingOverlap(ctx context.Context, customerID types.ID, start, end time.Time) (bool, error) {
	return f.overlap, nil
}

type fakeEligibility struct {
	err error
}

func (f *fakeEligibility) Eligible(ctx context.Context, customerID types.ID) error {
	return f.err
}

var (
	testNow = time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	hub     = types.Point{Lat: 12.9716, Lng: 77.5946}
)

type testEnv struct {
	svc      *Service
	store    *memStore
	holds    *fakeHolds
	avail    *fakeAvail
	bookings *fakeBookings
	elig     *fakeEligibility
}

func newTestEnv() *testEnv {
	env := &testEnv{
		store:    newMemStore(),
		holds:    &fakeHolds{},
		avail:    &fakeAvail{available: true},
		bookings: &fakeBookings{},
		elig:     &fakeEligibility{},
	}
	car := &fleet.Car{
		ID:     "car-1",
		CarNo:  "KA01AB1234",
		Status: fleet.CarActive,
		Model: fleet.CarModel{
			Brand:               "Maruti",
			Model:               "Swift",
			DynamicRentalPrice:  decimal.NewFromInt(100),
			KilometerLimitPerHr: 10,
		},
	}
	customer := &ledger.Customer{ID: "cust-1", RookieBenefitUsed: true, Tag: ledger.TagTraveler}

	env.svc = NewService(Deps{
		Store:            env.store,
		Holds:            env.holds,
		Cars:             &fakeCars{car: car},
		Customers:        &fakeCustomers{customer: customer},
		Availability:     env.avail,
		CustomerBookings: env.bookings,
		Eligibility:      env.elig,
		Pricer:           pricing.NewService(nil),
		Hub:              hub,
	})
	env.svc.now = func() time.Time { return testNow }
	return env
}

func validInput() CreateInput {
	return CreateInput{
		CarID:    "car-1",
		Start:    testNow.Add(4 * time.Hour),
		End:      testNow.Add(28 * time.Hour),
		Delivery: hub,
		Pickup:   hub,
	}
}

func TestCreateFreeze(t *testing.T) {
	env := newTestEnv()

	est, err := env.svc.Create(context.Background(), "cust-1", validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if est.Freeze.ID == "" || !est.Freeze.IsActive {
		t.Fatalf("freeze not initialized: %+v", est.Freeze)
	}
	if !est.Freeze.ExpiresAt.Equal(testNow.Add(7 * time.Minute)) {
		t.Fatalf("expires at %v, want +7m", est.Freeze.ExpiresAt)
	}
	if est.Quote == nil || !est.Quote.TotalPayable.IsPositive() {
		t.Fatalf("missing quote")
	}
	if _, ok := env.store.freezes[est.Freeze.ID]; !ok {
		t.Fatalf("freeze not persisted")
	}
}

func TestCreateFreezeTimeRules(t *testing.T) {
	env := newTestEnv()

	cases := []struct {
		name string
		mod  func(*CreateInput)
		want string
	}{
		{"too soon", func(in *CreateInput) {
			in.Start = testNow.Add(90 * time.Minute)
		}, "at least 2 hours"},
		{"too short", func(in *CreateInput) {
			in.End = in.Start.Add(6 * time.Hour)
		}, "at least 8 hours"},
		{"too far out", func(in *CreateInput) {
			in.Start = testNow.Add(16 * 24 * time.Hour)
			in.End = in.Start.Add(24 * time.Hour)
		}, "more than 15 days"},
		{"misaligned", func(in *CreateInput) {
			in.Start = in.Start.Add(15 * time.Minute)
			in.End = in.End.Add(15 * time.Minute)
		}, ":00 or :30"},
	}
	for _, c := range cases {
		in := validInput()
		c.mod(&in)
		_, err := env.svc.Create(context.Background(), "cust-1", in)
		if err == nil || !strings.Contains(err.Error(), c.want) {
			t.Fatalf("%s: err = %v, want %q", c.name, err, c.want)
		}
	}
}

func TestCreateFreezeGraceWindow(t *testing.T) {
	env := newTestEnv()

	in := validInput()
	// 1h30m lead time is beyond the 5 minute submission grace.
	in.Start = time.Date(2026, 4, 1, 11, 30, 0, 0, time.UTC)
	in.End = in.Start.Add(24 * time.Hour)
	if _, err := env.svc.Create(context.Background(), "cust-1", in); err == nil {
		t.Fatalf("expected rejection at 1h30m lead time")
	}

	// Exactly 2h out passes.
	in.Start = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	in.End = in.Start.Add(24 * time.Hour)
	if _, err := env.svc.Create(context.Background(), "cust-1", in); err != nil {
		t.Fatalf("2h lead time rejected: %v", err)
	}
}

func TestCreateFreezeCustomerOverlap(t *testing.T) {
	env := newTestEnv()
	env.bookings.overlap = true

	_, err := env.svc.Create(context.Background(), "cust-1", validInput())
	if err == nil || !strings.Contains(err.Error(), "overlaps with this time period") {
		t.Fatalf("err = %v", err)
	}
}

func TestCreateFreezeCustomerFreezeOverlap(t *testing.T) {
	env := newTestEnv()
	in := validInput()

	// The same customer already holds a live freeze on another car.
	env.store.freezes["f-0"] = &Freeze{
		ID: "f-0", CarID: "car-2", CustomerID: "cust-1",
		Start: in.Start, End: in.End,
		ExpiresAt: testNow.Add(5 * time.Minute), IsActive: true,
	}

	_, err := env.svc.Create(context.Background(), "cust-1", in)
	if err == nil || !strings.Contains(err.Error(), "overlaps with this time period") {
		t.Fatalf("err = %v", err)
	}
}

func TestCreateFreezeCarAlreadyFrozen(t *testing.T) {
	env := newTestEnv()
	in := validInput()

	env.store.freezes["f-0"] = &Freeze{
		ID: "f-0", CarID: "car-1", CustomerID: "cust-2",
		Start: in.Start, End: in.End,
		ExpiresAt: testNow.Add(5 * time.Minute), IsActive: true,
	}

	_, err := env.svc.Create(context.Background(), "cust-1", in)
	if err == nil || !strings.Contains(err.Error(), "being booked by another user") {
		t.Fatalf("err = %v", err)
	}
}

func TestCreateFreezeExpiredFreezeIgnored(t *testing.T) {
	env := newTestEnv()
	in := validInput()

	env.store.freezes["f-0"] = &Freeze{
		ID: "f-0", CarID: "car-1", CustomerID: "cust-2",
		Start: in.Start, End: in.End,
		ExpiresAt: testNow.Add(-time.Minute), IsActive: true,
	}

	if _, err := env.svc.Create(context.Background(), "cust-1", in); err != nil {
		t.Fatalf("expired freeze must not block: %v", err)
	}
}

func TestCreateFreezeUnavailableWithHint(t *testing.T) {
	env := newTestEnv()
	env.avail.available = false
	next := time.Date(2026, 4, 3, 14, 0, 0, 0, time.UTC)
	env.avail.next = &next

	_, err := env.svc.Create(context.Background(), "cust-1", validInput())
	if err == nil || !strings.Contains(err.Error(), "Next available from: 2026-04-03 14:00") {
		t.Fatalf("err = %v", err)
	}
}

func TestCreateFreezeDeliveryRadius(t *testing.T) {
	env := newTestEnv()
	in := validInput()
	in.Delivery = types.Point{Lat: hub.Lat + 1, Lng: hub.Lng} // ~111 km north

	_, err := env.svc.Create(context.Background(), "cust-1", in)
	if err == nil || !strings.Contains(err.Error(), "exceeds 60km limit") {
		t.Fatalf("err = %v", err)
	}
}

func TestCreateFreezeHoldContention(t *testing.T) {
	env := newTestEnv()
	env.holds.locked = true

	_, err := env.svc.Create(context.Background(), "cust-1", validInput())
	if err == nil || !strings.Contains(err.Error(), "being booked by another user") {
		t.Fatalf("err = %v", err)
	}
}

func TestCreateFreezeIneligibleCustomer(t *testing.T) {
	env := newTestEnv()
	env.elig.err = types.Forbidden("Complete your profile to make bookings.")

	_, err := env.svc.Create(context.Background(), "cust-1", validInput())
	if err == nil || !strings.Contains(err.Error(), "Complete your profile") {
		t.Fatalf("err = %v", err)
	}
}

func TestGetFreeze(t *testing.T) {
	env := newTestEnv()

	est, err := env.svc.Create(context.Background(), "cust-1", validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := env.svc.Get(context.Background(), est.Freeze.ID, "cust-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Quote == nil {
		t.Fatalf("expected fresh quote")
	}

	if _, err := env.svc.Get(context.Background(), est.Freeze.ID, "cust-2"); err == nil ||
		!strings.Contains(err.Error(), "another user's freeze") {
		t.Fatalf("ownership: err = %v", err)
	}

	env.store.freezes[est.Freeze.ID].ExpiresAt = testNow.Add(-time.Minute)
	if _, err := env.svc.Get(context.Background(), est.Freeze.ID, "cust-1"); err == nil ||
		!strings.Contains(err.Error(), "expired") {
		t.Fatalf("expiry: err = %v", err)
	}
}

func TestUpdateLocationsRequote(t *testing.T) {
	env := newTestEnv()

	est, err := env.svc.Create(context.Background(), "cust-1", validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Move delivery ~33 km out; the round trip crosses the 30 km tier.
	far := types.Point{Lat: hub.Lat + 0.3, Lng: hub.Lng}
	got, err := env.svc.UpdateLocations(context.Background(), est.Freeze.ID, "cust-1", far, hub)
	if err != nil {
		t.Fatalf("UpdateLocations: %v", err)
	}
	if !got.Quote.DeliveryCharges.Equal(decimal.NewFromInt(2000)) {
		t.Fatalf("delivery = %s, want 2000 after move", got.Quote.DeliveryCharges)
	}
	if env.store.freezes[est.Freeze.ID].Delivery != far {
		t.Fatalf("coordinates not persisted")
	}

	// Beyond the radius the update is rejected and nothing is written.
	tooFar := types.Point{Lat: hub.Lat + 1, Lng: hub.Lng}
	if _, err := env.svc.UpdateLocations(context.Background(), est.Freeze.ID, "cust-1", tooFar, hub); err == nil {
		t.Fatalf("expected radius rejection")
	}
	if env.store.freezes[est.Freeze.ID].Delivery != far {
		t.Fatalf("rejected update must not persist")
	}
}

func TestCancelFreeze(t *testing.T) {
	env := newTestEnv()

	est, err := env.svc.Create(context.Background(), "cust-1", validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := env.svc.Cancel(context.Background(), est.Freeze.ID, "cust-2"); err == nil {
		t.Fatalf("expected ownership rejection")
	}
	if err := env.svc.Cancel(context.Background(), est.Freeze.ID, "cust-1"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, ok := env.store.freezes[est.Freeze.ID]; ok {
		t.Fatalf("freeze row not deleted")
	}
}

func TestCleanupExpired(t *testing.T) {
	env := newTestEnv()

	env.store.freezes["dead"] = &Freeze{ID: "dead", ExpiresAt: testNow.Add(-time.Hour), IsActive: true}
	env.store.freezes["inactive"] = &Freeze{ID: "inactive", ExpiresAt: testNow.Add(time.Hour), IsActive: false}
	env.store.freezes["live"] = &Freeze{ID: "live", ExpiresAt: testNow.Add(time.Hour), IsActive: true}

	n, err := env.svc.CleanupExpired(context.Background())
	if err != nil {
		t.Fatalf("CleanupExpired: %v", err)
	}
	if n != 2 {
		t.Fatalf("removed %d, want 2", n)
	}
	if _, ok := env.store.freezes["live"]; !ok {
		t.Fatalf("live freeze must survive cleanup")
	}
}
