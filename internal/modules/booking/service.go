// README: Booking service; drives the rental lifecycle state machine.
package booking

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/J-SURYA/cruizo-backend-sub000/internal/geo"
	"github.com/J-SURYA/cruizo-backend-sub000/internal/modules/fleet"
	"github.com/J-SURYA/cruizo-backend-sub000/internal/modules/freeze"
	"github.com/J-SURYA/cruizo-backend-sub000/internal/modules/ledger"
	"github.com/J-SURYA/cruizo-backend-sub000/internal/modules/notify"
	"github.com/J-SURYA/cruizo-backend-sub000/internal/modules/payment"
	"github.com/J-SURYA/cruizo-backend-sub000/internal/modules/pricing"
	"github.com/J-SURYA/cruizo-backend-sub000/internal/modules/settlement"
	"github.com/J-SURYA/cruizo-backend-sub000/internal/types"
)

type Store interface {
	GetOrCreateLocation(ctx context.Context, p types.Point) (types.ID, error)
	GetLocation(ctx context.Context, id types.ID) (*Location, error)
	SetLocationAddress(ctx context.Context, id types.ID, address string) error
	Create(ctx context.Context, b *Booking) error
	Get(ctx context.Context, id types.ID) (*Booking, error)
	UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, paymentStatus *payment.Status) (bool, error)
	SetPaymentStatus(ctx context.Context, id types.ID, ps payment.Status) error
	UpdateSummary(ctx context.Context, id types.ID, summary PaymentSummary) error
	SetDelivery(ctx context.Context, id types.ID, videoURL string, startKm int, otp string, at time.Time) error
	MarkDeliveryVerified(ctx context.Context, id types.ID, at time.Time) error
	SetReturnRequested(ctx context.Context, id types.ID, at time.Time) error
	SetReturn(ctx context.Context, id types.ID, videoURL string, endKm int) error
	SetPickupOTP(ctx context.Context, id types.ID, otp string, at time.Time) error
	MarkPickupVerified(ctx context.Context, id types.ID, at time.Time) error
	SetCancellation(ctx context.Context, id, by types.ID, reason string, at time.Time) error
	ListByCustomer(ctx context.Context, customerID types.ID, status Status, limit, offset int) ([]*Booking, int, error)
	List(ctx context.Context, status Status, limit, offset int) ([]*Booking, int, error)
	CreateReview(ctx context.Context, r *Review) error
	HasReview(ctx context.Context, bookingID types.ID) (bool, error)
}

type Freezes interface {
	Get(ctx context.Context, id types.ID) (*freeze.Freeze, error)
	Deactivate(ctx context.Context, id types.ID) error
}

type Cars interface {
	Get(ctx context.Context, id types.ID) (*fleet.Car, error)
}

type Ledger interface {
	Get(ctx context.Context, id types.ID) (*ledger.Customer, error)
	AddReferralCredits(ctx context.Context, id types.ID, delta int) error
	SetRookieBenefitUsed(ctx context.Context, id types.ID, used bool) error
	SetTag(ctx context.Context, id types.ID, t ledger.Tag) error
}

type Availability interface {
	IsAvailable(ctx context.Context, carID types.ID, start, end time.Time, excludeBookingID types.ID) (bool, error)
}

type Pricer interface {
	Quote(ctx context.Context, in pricing.QuoteInput) (*pricing.Quote, error)
}

type Payments interface {
	Create(ctx context.Context, p *payment.Payment) error
	Get(ctx context.Context, id types.ID) (*payment.Payment, error)
	ListByBooking(ctx context.Context, bookingID types.ID) ([]*payment.Payment, error)
	UpdateStatus(ctx context.Context, id types.ID, from, to payment.Status, in payment.ConfirmInput) error
}

type Notifier interface {
	Notify(ctx context.Context, userID types.ID, subject, body string, kind notify.Kind) error
	NotifyAdmins(ctx context.Context, subject, body string, kind notify.Kind) error
}

// Blobs answers whether an uploaded object actually exists in storage.
type Blobs interface {
	Exists(ctx context.Context, url string) (bool, error)
}

// Geocoder resolves coordinates into a human-readable address.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, p types.Point) (string, error)
}

type Deps struct {
	Store        Store
	Freezes      Freezes
	Cars         Cars
	Ledger       Ledger
	Availability Availability
	Pricer       Pricer
	Payments     Payments
	Notifier     Notifier
	Blobs        Blobs
	Geocoder     Geocoder

	Hub        types.Point
	Turnaround time.Duration
}

type Service struct {
	Deps
	now func() time.Time
}

func NewService(d Deps) *Service {
	if d.Turnaround == 0 {
		d.Turnaround = 4 * time.Hour
	}
	return &Service{Deps: d, now: time.Now}
}

func newID() types.ID {
	return types.ID(uuid.NewString())
}

func newOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// notifyQuietly sends a notification without failing the operation that
// triggered it.
func (s *Service) notifyQuietly(ctx context.Context, userID types.ID, subject, body string, kind notify.Kind) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.Notify(ctx, userID, subject, body, kind); err != nil {
		log.Printf("booking: notify %s failed: %v", userID, err)
	}
}

func (s *Service) notifyAdminsQuietly(ctx context.Context, subject, body string, kind notify.Kind) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.NotifyAdmins(ctx, subject, body, kind); err != nil {
		log.Printf("booking: notify admins failed: %v", err)
	}
}

func (s *Service) transition(ctx context.Context, b *Booking, to Status, ps *payment.Status) error {
	if !CanTransition(b.Status, to) {
		return types.Invalid("Cannot move booking from %s to %s", b.Status, to)
	}
	ok, err := s.Store.UpdateStatus(ctx, b.ID, b.Status, to, b.StatusVersion, ps)
	if err != nil {
		return err
	}
	if !ok {
		return types.Conflict("Booking was modified concurrently, please retry")
	}
	b.Status = to
	b.StatusVersion++
	if ps != nil {
		b.PaymentStatus = *ps
	}
	return nil
}

// CreateFromFreeze converts a live freeze into a confirmed booking. The
// availability re-check here is the authoritative one; the freeze-time
// check only reduced contention. Incentives are applied against a freshly
// loaded customer: an unused rookie benefit is consumed first, otherwise
// three referral credits buy the delivery waiver.
func (s *Service) CreateFromFreeze(ctx context.Context, customerID, freezeID types.ID, remarks string) (*Booking, error) {
	now := s.now()

	f, err := s.Freezes.Get(ctx, freezeID)
	if err != nil {
		return nil, err
	}
	if f.CustomerID != customerID {
		return nil, types.Forbidden("Cannot access another user's freeze")
	}
	if !f.Live(now) {
		return nil, types.Invalid("Freeze has expired")
	}

	car, err := s.Cars.Get(ctx, f.CarID)
	if err != nil {
		return nil, err
	}
	if !car.Bookable() {
		return nil, types.Invalid("Car is not available for booking")
	}

	available, err := s.Availability.IsAvailable(ctx, f.CarID, f.Start.Add(-s.Turnaround), f.End.Add(s.Turnaround), "")
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, types.Conflict("Car is no longer available for the selected dates")
	}

	hubToDelivery := geo.DistanceKm(s.Hub.Lat, s.Hub.Lng, f.Delivery.Lat, f.Delivery.Lng)
	hubToPickup := geo.DistanceKm(s.Hub.Lat, s.Hub.Lng, f.Pickup.Lat, f.Pickup.Lng)
	if total := hubToDelivery + hubToPickup; total > 60 {
		return nil, types.Invalid("Total distance (%.1f km) exceeds 60km limit", total)
	}

	// Re-fetch immediately before applying incentives so the quote and the
	// ledger mutation see the same state.
	customer, err := s.Ledger.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}

	quote, err := s.Pricer.Quote(ctx, pricing.QuoteInput{
		Car:             car,
		Start:           f.Start,
		End:             f.End,
		HubToDeliveryKm: hubToDelivery,
		HubToPickupKm:   hubToPickup,
		Profile: &pricing.CustomerProfile{
			Rookie:            customer.Tag == ledger.TagRookie,
			ReferralCount:     customer.ReferralCount,
			RookieBenefitUsed: customer.RookieBenefitUsed,
		},
	})
	if err != nil {
		return nil, err
	}

	referralBenefit := false
	if customer.Tag == ledger.TagRookie && !customer.RookieBenefitUsed {
		if err := s.Ledger.SetRookieBenefitUsed(ctx, customerID, true); err != nil {
			return nil, err
		}
	} else if customer.ReferralCount >= 3 {
		if err := s.Ledger.AddReferralCredits(ctx, customerID, -3); err != nil {
			return nil, err
		}
		referralBenefit = true
	}

	deliveryID, err := s.Store.GetOrCreateLocation(ctx, f.Delivery)
	if err != nil {
		return nil, err
	}
	pickupID, err := s.Store.GetOrCreateLocation(ctx, f.Pickup)
	if err != nil {
		return nil, err
	}

	b := &Booking{
		ID:              newID(),
		CarID:           f.CarID,
		CustomerID:      customerID,
		Start:           f.Start,
		End:             f.End,
		DeliveryID:      deliveryID,
		PickupID:        pickupID,
		Status:          StatusBooked,
		PaymentStatus:   payment.StatusPaid,
		Remarks:         remarks,
		Summary:         SummaryFromQuote(quote),
		ReferralBenefit: referralBenefit,
		CreatedAt:       now,
	}
	if err := s.Store.Create(ctx, b); err != nil {
		return nil, err
	}

	if err := s.Freezes.Deactivate(ctx, f.ID); err != nil {
		log.Printf("booking: deactivate freeze %s failed: %v", f.ID, err)
	}

	if err := s.Payments.Create(ctx, &payment.Payment{
		ID:            newID(),
		BookingID:     b.ID,
		CustomerID:    customerID,
		Amount:        quote.TotalPayable,
		Type:          payment.TypePayment,
		Status:        payment.StatusPaid,
		TransactionID: fmt.Sprintf("TXN-%s-%d", b.ID, now.Unix()),
		CreatedAt:     now,
	}); err != nil {
		return nil, err
	}

	s.notifyQuietly(ctx, customerID,
		fmt.Sprintf("Booking %s Created", b.ID),
		"Your booking has been created successfully.",
		notify.KindBooking)
	return b, nil
}

func (s *Service) Get(ctx context.Context, id, customerID types.ID) (*Booking, error) {
	b, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.CustomerID != customerID {
		return nil, types.Forbidden("Cannot access another user's booking")
	}
	return b, nil
}

// GetAdmin skips the ownership check.
func (s *Service) GetAdmin(ctx context.Context, id types.ID) (*Booking, error) {
	return s.Store.Get(ctx, id)
}

func (s *Service) ListMine(ctx context.Context, customerID types.ID, status Status, limit, offset int) ([]*Booking, int, error) {
	return s.Store.ListByCustomer(ctx, customerID, status, limit, offset)
}

func (s *Service) ListAll(ctx context.Context, status Status, limit, offset int) ([]*Booking, int, error) {
	return s.Store.List(ctx, status, limit, offset)
}

// Locations returns the delivery and pickup locations of a booking,
// resolving missing addresses through the geocoder once and caching them
// on the location rows.
func (s *Service) Locations(ctx context.Context, id, customerID types.ID) (delivery, pickup *Location, err error) {
	b, err := s.Get(ctx, id, customerID)
	if err != nil {
		return nil, nil, err
	}
	delivery, err = s.location(ctx, b.DeliveryID)
	if err != nil {
		return nil, nil, err
	}
	pickup, err = s.location(ctx, b.PickupID)
	if err != nil {
		return nil, nil, err
	}
	return delivery, pickup, nil
}

func (s *Service) location(ctx context.Context, id types.ID) (*Location, error) {
	l, err := s.Store.GetLocation(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.Address == "" && s.Geocoder != nil {
		addr, err := s.Geocoder.ReverseGeocode(ctx, l.Point)
		if err != nil {
			log.Printf("booking: reverse geocode %s failed: %v", id, err)
			return l, nil
		}
		l.Address = addr
		if err := s.Store.SetLocationAddress(ctx, id, addr); err != nil {
			return nil, err
		}
	}
	return l, nil
}

type ProcessDeliveryInput struct {
	VideoURL        string
	StartKilometers int
}

// ProcessDelivery is the admin step before handover: record the walkaround
// video and odometer, and mint the delivery OTP for the customer.
func (s *Service) ProcessDelivery(ctx context.Context, id types.ID, in ProcessDeliveryInput) error {
	b, err := s.Store.Get(ctx, id)
	if err != nil {
		return err
	}
	if b.Status != StatusBooked {
		return types.Invalid("Booking must be in BOOKED status to process delivery")
	}
	if b.DeliveryVideoURL != "" {
		return types.Invalid("Delivery already processed")
	}

	exists, err := s.Blobs.Exists(ctx, in.VideoURL)
	if err != nil {
		return err
	}
	if !exists {
		return types.Invalid("Video blob not found in storage. Please ensure the video was uploaded successfully.")
	}

	otp, err := newOTP()
	if err != nil {
		return err
	}
	now := s.now()
	if err := s.Store.SetDelivery(ctx, id, in.VideoURL, in.StartKilometers, otp, now); err != nil {
		return err
	}

	startKm := in.StartKilometers
	dv := b.Summary.deliveryVerification()
	dv.AdminVideoURL = in.VideoURL
	dv.StartKilometers = &startKm
	dv.VideoUploadedAt = now.Format(time.RFC3339)
	dv.DeliveryOTPGeneratedAt = now.Format(time.RFC3339)
	if err := s.Store.UpdateSummary(ctx, id, b.Summary); err != nil {
		return err
	}

	s.notifyQuietly(ctx, b.CustomerID,
		fmt.Sprintf("Delivery OTP for Booking %s", id),
		fmt.Sprintf("Your delivery OTP is: %s. Share this with the admin for verification.", otp),
		notify.KindBooking)
	return nil
}

// DeliveryOTP lets the customer read their delivery OTP.
func (s *Service) DeliveryOTP(ctx context.Context, id, customerID types.ID) (string, *time.Time, error) {
	b, err := s.Store.Get(ctx, id)
	if err != nil {
		return "", nil, err
	}
	if b.CustomerID != customerID {
		return "", nil, types.Forbidden("Cannot access OTP for another user's booking")
	}
	if b.DeliveryVideoURL == "" {
		return "", nil, types.Invalid("Admin has not uploaded delivery video yet")
	}
	if b.DeliveryOTP == "" {
		return "", nil, types.Invalid("Delivery OTP not generated yet")
	}
	return b.DeliveryOTP, b.DeliveryOTPGeneratedAt, nil
}

// VerifyDeliveryOTP is the admin-side handover confirmation; the booking
// becomes DELIVERED.
func (s *Service) VerifyDeliveryOTP(ctx context.Context, id types.ID, otp string) (*Booking, error) {
	b, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status != StatusBooked {
		return nil, types.Invalid("Booking must be in BOOKED status for delivery")
	}
	if b.DeliveryVideoURL == "" {
		return nil, types.Invalid("Delivery must be processed first")
	}
	if b.StartKilometers == nil {
		return nil, types.Invalid("Start kilometers not recorded")
	}
	if b.DeliveryOTP == "" {
		return nil, types.Invalid("Delivery OTP not generated yet")
	}
	if b.DeliveryOTP != otp {
		return nil, types.Invalid("Invalid delivery OTP provided by customer")
	}
	if b.DeliveryOTPVerified {
		return nil, types.Invalid("Delivery OTP already verified")
	}

	now := s.now()
	if err := s.transition(ctx, b, StatusDelivered, nil); err != nil {
		return nil, err
	}
	if err := s.Store.MarkDeliveryVerified(ctx, id, now); err != nil {
		return nil, err
	}
	b.DeliveryOTPVerified = true
	b.DeliveryOTPVerifiedAt = &now

	dv := b.Summary.deliveryVerification()
	dv.DeliveryOTPVerified = true
	dv.DeliveryOTPVerifiedAt = now.Format(time.RFC3339)
	dv.DeliveredAt = now.Format(time.RFC3339)
	dv.AdminVerified = true
	if err := s.Store.UpdateSummary(ctx, id, b.Summary); err != nil {
		return nil, err
	}

	s.notifyQuietly(ctx, b.CustomerID,
		fmt.Sprintf("Booking %s Delivered", id),
		"Your car has been delivered successfully.",
		notify.KindBooking)
	return b, nil
}

// RequestReturn moves a delivered booking to RETURNING ahead of the
// physical handback.
func (s *Service) RequestReturn(ctx context.Context, id, customerID types.ID, expectedReturn time.Time, remarks string) (*Booking, error) {
	b, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.CustomerID != customerID {
		return nil, types.Forbidden("Cannot request return for another user's booking")
	}
	if b.Status != StatusDelivered {
		return nil, types.Invalid("Booking must be in DELIVERED status to request return")
	}

	now := s.now()
	if expectedReturn.Before(now) {
		return nil, types.Invalid("Expected return time cannot be in the past")
	}
	if err := validateReturnTime(b.Start, expectedReturn); err != nil {
		return nil, err
	}

	if err := s.transition(ctx, b, StatusReturning, nil); err != nil {
		return nil, err
	}
	if err := s.Store.SetReturnRequested(ctx, id, now); err != nil {
		return nil, err
	}
	b.ReturnRequestedAt = &now

	b.Summary.ReturnRequest = &ReturnRequest{
		RequestedAt:        now.Format(time.RFC3339),
		ExpectedReturnTime: expectedReturn.Format(time.RFC3339),
		Remarks:            remarks,
	}
	if err := s.Store.UpdateSummary(ctx, id, b.Summary); err != nil {
		return nil, err
	}

	when := expectedReturn.Format("2006-01-02 15:04")
	s.notifyAdminsQuietly(ctx,
		fmt.Sprintf("Return Request: Booking %s", id),
		fmt.Sprintf("Customer has requested return at %s. Check pickup location in booking details.", when),
		notify.KindBooking)
	s.notifyQuietly(ctx, customerID,
		fmt.Sprintf("Return Request Received: Booking %s", id),
		fmt.Sprintf("Your return request has been received. Admin will meet you at the pickup location at %s.", when),
		notify.KindBooking)
	return b, nil
}

func validateReturnTime(start, ret time.Time) error {
	if !ret.After(start) {
		return types.Invalid("Return time must be strictly after the booking start time")
	}
	if (ret.Minute() != 0 && ret.Minute() != 30) || ret.Second() != 0 {
		return types.Invalid("Return time must be in 30-minute intervals (e.g., 2:00, 2:30)")
	}
	return nil
}

type ProcessReturnInput struct {
	VideoURL          string
	EndKilometers     int
	ReturnedAt        time.Time
	ExtraCharges      []ExtraChargeItem
	SettlementRemarks string
}

// ProcessReturn settles the rental: extra kilometres and lateness are
// priced on the tiered curves, ad hoc charges added, and the net against
// the deposit decides whether money moves back, forward, or not at all.
func (s *Service) ProcessReturn(ctx context.Context, id types.ID, in ProcessReturnInput) (*Booking, error) {
	b, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status != StatusReturning {
		return nil, types.Invalid("Booking must be in RETURNING status for return processing. Customer must request return first.")
	}
	if b.PickupVideoURL != "" {
		return nil, types.Invalid("Pickup video already uploaded")
	}

	exists, err := s.Blobs.Exists(ctx, in.VideoURL)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, types.Invalid("Pickup video blob not found in storage. Please ensure the video was uploaded successfully.")
	}
	if b.StartKilometers == nil {
		return nil, types.Invalid("Start kilometers not recorded")
	}
	if err := validateReturnTime(b.Start, in.ReturnedAt); err != nil {
		return nil, err
	}

	freeKm := 0
	if b.Summary.KilometerAllowance != nil {
		freeKm = b.Summary.KilometerAllowance.FreeKilometers
	}
	actualKm := in.EndKilometers - *b.StartKilometers
	extraKm := max(0, actualKm-freeKm)
	extraKmCharges := settlement.ExtraKilometerCharge(extraKm)

	lateCharges, lateHours, lateDetails := settlement.LateReturnCharge(b.End, in.ReturnedAt)

	adhoc := decimal.Zero
	damage := decimal.Zero
	for _, c := range in.ExtraCharges {
		amount := decimal.NewFromFloat(c.Amount)
		adhoc = adhoc.Add(amount)
		if c.Type == "damage_charges" || c.Type == "damage" {
			damage = damage.Add(amount)
		}
	}
	totalExtra := extraKmCharges.Add(lateCharges).Add(adhoc)

	deposit := decimal.Zero
	baseRental := decimal.Zero
	if b.Summary.ChargesBreakdown != nil {
		deposit = decimal.NewFromFloat(b.Summary.ChargesBreakdown.SecurityDeposit)
		baseRental = decimal.NewFromFloat(b.Summary.ChargesBreakdown.BaseRental)
	}
	outcome := settlement.Classify(deposit, totalExtra)

	now := s.now()
	if err := s.Store.SetReturn(ctx, id, in.VideoURL, in.EndKilometers); err != nil {
		return nil, err
	}
	b.PickupVideoURL = in.VideoURL
	b.EndKilometers = &in.EndKilometers

	var newPaymentStatus payment.Status
	var pickupOTP string
	switch outcome.Scenario {
	case settlement.ScenarioSettled:
		newPaymentStatus = payment.StatusSettled
	case settlement.ScenarioRefunding:
		newPaymentStatus = payment.StatusRefunding
	case settlement.ScenarioInitiated:
		newPaymentStatus = payment.StatusInitiated
	}

	// The pickup OTP only exists once nothing is owed.
	if outcome.Scenario != settlement.ScenarioInitiated {
		pickupOTP, err = newOTP()
		if err != nil {
			return nil, err
		}
		if err := s.Store.SetPickupOTP(ctx, id, pickupOTP, now); err != nil {
			return nil, err
		}
		b.PickupOTP = pickupOTP
		b.PickupOTPGeneratedAt = &now
		s.notifyQuietly(ctx, b.CustomerID,
			fmt.Sprintf("Pickup OTP for Booking %s", id),
			fmt.Sprintf("Your pickup OTP is: %s. Share this with the admin for verification.", pickupOTP),
			notify.KindBooking)
	}

	endKm := in.EndKilometers
	rv := b.Summary.returnVerification()
	rv.AdminVideoURL = in.VideoURL
	rv.EndKilometers = &endKm
	rv.ReturnedAt = in.ReturnedAt.Format(time.RFC3339)
	rv.ExpectedReturnTime = b.End.Format(time.RFC3339)
	rv.ActualReturnTime = in.ReturnedAt.Format(time.RFC3339)
	rv.LateHours = lateHours
	if pickupOTP != "" {
		rv.PickupOTPGeneratedAt = now.Format(time.RFC3339)
	}

	items := []ExtraChargeItem{{
		Type:               "extra_kilometers",
		Amount:             extraKmCharges.InexactFloat64(),
		Specification:      fmt.Sprintf("%d km beyond free limit", extraKm),
		CalculationDetails: "Exponential calculation",
	}}
	if lateCharges.IsPositive() {
		items = append(items, ExtraChargeItem{
			Type:               "late_return_charges",
			Amount:             lateCharges.InexactFloat64(),
			Specification:      fmt.Sprintf("%d hour(s) late (30 min grace period applied)", lateHours),
			CalculationDetails: lateDetails,
		})
	}
	items = append(items, in.ExtraCharges...)

	b.Summary.ExtraChargesCalculation = &ExtraChargesCalculation{
		ExtraKilometers:   extraKm,
		ExtraKmCharges:    extraKmCharges.InexactFloat64(),
		LateReturnCharges: lateCharges.InexactFloat64(),
		DamageCharges:     damage.InexactFloat64(),
		OtherCharges:      adhoc.Sub(damage).InexactFloat64(),
		ChargesBreakdown:  items,
		TotalExtraCharges: totalExtra.InexactFloat64(),
		CalculatedAt:      now.Format(time.RFC3339),
	}

	st := b.Summary.settlement()
	st.Scenario = string(outcome.Scenario)
	st.BaseRentalPayable = baseRental.InexactFloat64()
	st.SecurityDeposit = deposit.InexactFloat64()
	st.TotalExtraCharges = totalExtra.InexactFloat64()
	st.SettlementStatus = string(newPaymentStatus)
	st.SettlementRemarks = in.SettlementRemarks
	st.AdditionalAmountDue = 0
	st.RefundAmount = 0
	switch outcome.Scenario {
	case settlement.ScenarioInitiated:
		st.AdditionalAmountDue = outcome.Amount.InexactFloat64()
	case settlement.ScenarioRefunding:
		st.RefundAmount = outcome.Amount.InexactFloat64()
	}

	if err := s.Store.UpdateSummary(ctx, id, b.Summary); err != nil {
		return nil, err
	}
	if err := s.transition(ctx, b, StatusReturned, &newPaymentStatus); err != nil {
		return nil, err
	}

	switch outcome.Scenario {
	case settlement.ScenarioInitiated:
		err = s.Payments.Create(ctx, &payment.Payment{
			ID:         newID(),
			BookingID:  id,
			CustomerID: b.CustomerID,
			Amount:     outcome.Amount,
			Type:       payment.TypeAddPayment,
			Status:     payment.StatusInitiated,
			Remarks:    fmt.Sprintf("Additional settlement charges: Extra km (₹%s) + other charges", extraKmCharges.StringFixed(2)),
			CreatedAt:  now,
		})
	case settlement.ScenarioRefunding:
		err = s.Payments.Create(ctx, &payment.Payment{
			ID:         newID(),
			BookingID:  id,
			CustomerID: b.CustomerID,
			Amount:     outcome.Amount,
			Type:       payment.TypeRefund,
			Status:     payment.StatusRefunding,
			Remarks:    fmt.Sprintf("Refund due: Security deposit (%s) - Extra charges (%s)", deposit, totalExtra),
			CreatedAt:  now,
		})
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// PickupOTP lets the customer read their pickup OTP. When the settlement
// left an amount owed, the OTP stays locked until the additional payment
// is confirmed.
func (s *Service) PickupOTP(ctx context.Context, id, customerID types.ID) (string, *time.Time, error) {
	b, err := s.Store.Get(ctx, id)
	if err != nil {
		return "", nil, err
	}
	if b.CustomerID != customerID {
		return "", nil, types.Forbidden("Cannot access OTP for another user's booking")
	}
	if b.Status != StatusReturned {
		return "", nil, types.Invalid("Booking must be in RETURNED status")
	}
	if b.PickupVideoURL == "" {
		return "", nil, types.Invalid("Admin has not uploaded pickup video yet")
	}

	switch b.PaymentStatus {
	case payment.StatusRefunded, payment.StatusRefunding, payment.StatusSettled:
		// fine
	case payment.StatusInitiated, payment.StatusCharged:
		confirmed, err := s.additionalPaymentCharged(ctx, id)
		if err != nil {
			return "", nil, err
		}
		if !confirmed {
			return "", nil, types.Invalid("Additional payment not confirmed yet. You must confirm payment first.")
		}
	default:
		return "", nil, types.Invalid("Pickup OTP not available for current payment status")
	}

	if b.PickupOTP == "" {
		return "", nil, types.Invalid("Pickup OTP not generated yet")
	}
	return b.PickupOTP, b.PickupOTPGeneratedAt, nil
}

func (s *Service) additionalPaymentCharged(ctx context.Context, bookingID types.ID) (bool, error) {
	payments, err := s.Payments.ListByBooking(ctx, bookingID)
	if err != nil {
		return false, err
	}
	for _, p := range payments {
		if p.Type == payment.TypeAddPayment {
			return p.Status == payment.StatusCharged, nil
		}
	}
	return false, nil
}

// VerifyPickupOTP closes the physical handback; the booking is COMPLETED.
func (s *Service) VerifyPickupOTP(ctx context.Context, id types.ID, otp string) (*Booking, error) {
	b, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status != StatusReturned {
		return nil, types.Invalid("Booking must be in RETURNED status")
	}
	if b.PickupVideoURL == "" {
		return nil, types.Invalid("Pickup video must be uploaded first")
	}
	if b.PickupOTP == "" {
		return nil, types.Invalid("Pickup OTP not generated yet")
	}
	if b.PickupOTP != otp {
		return nil, types.Invalid("Invalid pickup OTP provided by customer")
	}
	if b.PickupOTPVerified {
		return nil, types.Invalid("Pickup OTP already verified")
	}

	now := s.now()
	if err := s.transition(ctx, b, StatusCompleted, nil); err != nil {
		return nil, err
	}
	if err := s.Store.MarkPickupVerified(ctx, id, now); err != nil {
		return nil, err
	}
	b.PickupOTPVerified = true
	b.PickupOTPVerifiedAt = &now

	rv := b.Summary.returnVerification()
	rv.PickupOTPVerified = true
	rv.PickupOTPVerifiedAt = now.Format(time.RFC3339)
	b.Summary.settlement().SettledAt = now.Format(time.RFC3339)
	if err := s.Store.UpdateSummary(ctx, id, b.Summary); err != nil {
		return nil, err
	}

	s.notifyQuietly(ctx, b.CustomerID,
		fmt.Sprintf("Booking %s Completed", id),
		"Pickup verified successfully. Booking completed.",
		notify.KindBooking)
	return b, nil
}

// ConfirmPayment marks an owed settlement payment as charged and unlocks
// the pickup OTP.
func (s *Service) ConfirmPayment(ctx context.Context, paymentID, customerID types.ID, in payment.ConfirmInput) error {
	p, err := s.Payments.Get(ctx, paymentID)
	if err != nil {
		return err
	}
	if p.CustomerID != customerID {
		return types.Forbidden("Cannot confirm another user's payment")
	}
	if p.Status != payment.StatusInitiated {
		return types.Invalid("Payment is not in INITIATED status")
	}
	if p.Type != payment.TypeAddPayment {
		return types.Invalid("Only additional settlement payments can be confirmed")
	}

	b, err := s.Store.Get(ctx, p.BookingID)
	if err != nil {
		return err
	}
	if b.Status != StatusReturned {
		return types.Invalid("Booking must be in RETURNED status")
	}
	if b.PaymentStatus != payment.StatusInitiated {
		return types.Invalid("Booking is not awaiting an additional payment")
	}

	if err := s.Payments.UpdateStatus(ctx, paymentID, payment.StatusInitiated, payment.StatusCharged, in); err != nil {
		return err
	}
	if err := s.Store.SetPaymentStatus(ctx, p.BookingID, payment.StatusCharged); err != nil {
		return err
	}

	otp, err := newOTP()
	if err != nil {
		return err
	}
	now := s.now()
	if err := s.Store.SetPickupOTP(ctx, p.BookingID, otp, now); err != nil {
		return err
	}

	b.Summary.returnVerification().PickupOTPGeneratedAt = now.Format(time.RFC3339)
	st := b.Summary.settlement()
	st.SettlementStatus = string(payment.StatusCharged)
	st.AdditionalPaymentConfirmed = true
	st.AdditionalPaymentConfirmedAt = now.Format(time.RFC3339)
	if err := s.Store.UpdateSummary(ctx, p.BookingID, b.Summary); err != nil {
		return err
	}

	s.notifyQuietly(ctx, customerID,
		fmt.Sprintf("Booking %s Payment Confirmed", p.BookingID),
		"Additional payment confirmed successfully. Pickup OTP generated.",
		notify.KindPayment)
	return nil
}

// ConfirmRefund is the admin acknowledgement that a pending refund was
// paid out.
func (s *Service) ConfirmRefund(ctx context.Context, paymentID types.ID, in payment.ConfirmInput) error {
	p, err := s.Payments.Get(ctx, paymentID)
	if err != nil {
		return err
	}
	b, err := s.Store.Get(ctx, p.BookingID)
	if err != nil {
		return err
	}
	if b.PaymentStatus != payment.StatusRefunding {
		return types.Invalid("Booking is not in refunding status")
	}
	if p.Status != payment.StatusRefunding {
		return types.Invalid("Payment is not in refunding status")
	}

	if err := s.Payments.UpdateStatus(ctx, paymentID, payment.StatusRefunding, payment.StatusRefunded, in); err != nil {
		return err
	}
	if err := s.Store.SetPaymentStatus(ctx, p.BookingID, payment.StatusRefunded); err != nil {
		return err
	}

	now := s.now()
	st := b.Summary.settlement()
	st.SettlementStatus = string(payment.StatusRefunded)
	st.RefundProcessed = true
	st.RefundProcessedAt = now.Format(time.RFC3339)
	if err := s.Store.UpdateSummary(ctx, p.BookingID, b.Summary); err != nil {
		return err
	}

	s.notifyQuietly(ctx, b.CustomerID,
		fmt.Sprintf("Booking %s Refund Confirmed", p.BookingID),
		fmt.Sprintf("Refund of ₹%s has been processed successfully.", p.Amount.StringFixed(2)),
		notify.KindPayment)
	return nil
}

// Cancel is the customer cancellation. The deposit always comes back in
// full; half the base rental comes back when cancelling more than two
// hours before the start. Consumed incentives are returned.
func (s *Service) Cancel(ctx context.Context, id, customerID types.ID, reason string) (string, error) {
	b, err := s.Store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if b.CustomerID != customerID {
		return "", types.Forbidden("Cannot cancel another user's booking")
	}
	if b.Status != StatusBooked {
		return "", types.Invalid("You are not allowed to cancel this booking")
	}

	now := s.now()
	baseRental := decimal.Zero
	deposit := decimal.Zero
	if b.Summary.ChargesBreakdown != nil {
		baseRental = decimal.NewFromFloat(b.Summary.ChargesBreakdown.BaseRental)
		deposit = decimal.NewFromFloat(b.Summary.ChargesBreakdown.SecurityDeposit)
	}

	hoursToStart := b.Start.Sub(now).Hours()
	baseRefund := decimal.Zero
	basePct := 0
	if hoursToStart > 2 {
		baseRefund = baseRental.Mul(decimal.NewFromFloat(0.5))
		basePct = 50
	}
	totalRefund := deposit.Add(baseRefund)

	// The CAS runs before any refund write; a concurrent cancel that loses
	// the race leaves no ledger or payment side effects behind.
	refunding := payment.StatusRefunding
	if err := s.transition(ctx, b, StatusCancelled, &refunding); err != nil {
		return "", err
	}
	if err := s.refundIncentives(ctx, b); err != nil {
		return "", err
	}

	if totalRefund.IsPositive() {
		if err := s.Payments.Create(ctx, &payment.Payment{
			ID:         newID(),
			BookingID:  id,
			CustomerID: customerID,
			Amount:     totalRefund,
			Type:       payment.TypeCancellationRefund,
			Status:     payment.StatusRefunding,
			Remarks:    "Customer cancellation: " + reason,
			CreatedAt:  now,
		}); err != nil {
			return "", err
		}
	}

	b.Summary.CancellationDetails = &CancellationDetails{
		Cancelled:                   true,
		CancelledAt:                 now.Format(time.RFC3339),
		CancelledBy:                 string(customerID),
		CancellationReason:          reason,
		RefundEligible:              hoursToStart > 2,
		BaseRentalRefundPercentage:  basePct,
		BaseRentalRefundAmount:      baseRefund.InexactFloat64(),
		SecurityDepositRefundAmount: deposit.InexactFloat64(),
		TotalRefundAmount:           totalRefund.InexactFloat64(),
		CancellationCharges:         baseRental.Sub(baseRefund).InexactFloat64(),
	}
	st := b.Summary.settlement()
	st.RefundAmount = totalRefund.InexactFloat64()
	st.SettlementStatus = string(payment.TypeCancellationRefund)
	if err := s.Store.UpdateSummary(ctx, id, b.Summary); err != nil {
		return "", err
	}
	if err := s.Store.SetCancellation(ctx, id, customerID, reason, now); err != nil {
		return "", err
	}

	message := "Booking cancelled. "
	if baseRefund.IsPositive() {
		message += fmt.Sprintf("Base rental eligible for %d%% refund: ₹%s. ", basePct, baseRefund.StringFixed(2))
	}
	message += fmt.Sprintf("Security deposit fully refundable: ₹%s", deposit.StringFixed(2))

	s.notifyQuietly(ctx, customerID,
		fmt.Sprintf("Booking %s Cancelled", id), message, notify.KindBooking)
	return message, nil
}

// AdminCancel rejects a booking before delivery. Only the deposit comes
// back; consumed incentives are returned.
func (s *Service) AdminCancel(ctx context.Context, id, adminID types.ID, reason, adminNotes string) (string, error) {
	b, err := s.Store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if b.Status != StatusBooked {
		return "", types.Invalid("Booking is not eligible for rejection")
	}

	now := s.now()
	baseRental := decimal.Zero
	deposit := decimal.Zero
	if b.Summary.ChargesBreakdown != nil {
		baseRental = decimal.NewFromFloat(b.Summary.ChargesBreakdown.BaseRental)
		deposit = decimal.NewFromFloat(b.Summary.ChargesBreakdown.SecurityDeposit)
	}

	// Same fencing as customer cancellation: transition first, refund after.
	refunding := payment.StatusRefunding
	if err := s.transition(ctx, b, StatusRejected, &refunding); err != nil {
		return "", err
	}
	if err := s.refundIncentives(ctx, b); err != nil {
		return "", err
	}

	if deposit.IsPositive() {
		if err := s.Payments.Create(ctx, &payment.Payment{
			ID:         newID(),
			BookingID:  id,
			CustomerID: b.CustomerID,
			Amount:     deposit,
			Type:       payment.TypeRejectionRefund,
			Status:     payment.StatusRefunding,
			Remarks:    "Admin rejection: Security deposit refund",
			CreatedAt:  now,
		}); err != nil {
			return "", err
		}
	}

	b.Summary.CancellationDetails = &CancellationDetails{
		Cancelled:                   true,
		CancelledAt:                 now.Format(time.RFC3339),
		CancelledBy:                 string(adminID),
		CancellationReason:          reason,
		AdminNotes:                  adminNotes,
		RefundEligible:              true,
		BaseRentalRefundPercentage:  0,
		BaseRentalRefundAmount:      0,
		SecurityDepositRefundAmount: deposit.InexactFloat64(),
		TotalRefundAmount:           deposit.InexactFloat64(),
		CancellationCharges:         baseRental.InexactFloat64(),
	}
	st := b.Summary.settlement()
	st.RefundAmount = deposit.InexactFloat64()
	st.SettlementStatus = string(payment.TypeRejectionRefund)
	if err := s.Store.UpdateSummary(ctx, id, b.Summary); err != nil {
		return "", err
	}
	if err := s.Store.SetCancellation(ctx, id, adminID, reason, now); err != nil {
		return "", err
	}

	message := fmt.Sprintf(
		"Booking rejected by admin. Security deposit fully refundable: ₹%s. Base rental not refundable. Reason: %s",
		deposit.StringFixed(2), reason)
	s.notifyQuietly(ctx, b.CustomerID,
		fmt.Sprintf("Booking %s Rejected by Admin", id), message, notify.KindBooking)
	return message, nil
}

func (s *Service) refundIncentives(ctx context.Context, b *Booking) error {
	if b.ReferralBenefit {
		if err := s.Ledger.AddReferralCredits(ctx, b.CustomerID, 3); err != nil {
			return err
		}
	}
	if b.Summary.ChargesBreakdown != nil && b.Summary.ChargesBreakdown.RookieDiscountApplied != nil {
		if err := s.Ledger.SetRookieBenefitUsed(ctx, b.CustomerID, false); err != nil {
			return err
		}
	}
	return nil
}

// CompleteWithReview records the customer review on a completed booking.
// A rookie's first completed rental promotes them to TRAVELER and credits
// their referrer.
func (s *Service) CompleteWithReview(ctx context.Context, id, customerID types.ID, rating int, remarks string) (*Booking, error) {
	b, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.CustomerID != customerID {
		return nil, types.Forbidden("Can only complete your own booking")
	}
	if b.Status != StatusCompleted {
		return nil, types.Invalid("Booking must be COMPLETED to submit review")
	}
	exists, err := s.Store.HasReview(ctx, id)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, types.Invalid("Review already submitted")
	}

	if err := s.Store.CreateReview(ctx, &Review{
		ID:        newID(),
		BookingID: id,
		CarID:     b.CarID,
		Rating:    rating,
		Remarks:   remarks,
		CreatedBy: customerID,
		CreatedAt: s.now(),
	}); err != nil {
		return nil, err
	}

	customer, err := s.Ledger.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if customer.Tag == ledger.TagRookie {
		if customer.ReferredBy != "" {
			if err := s.Ledger.AddReferralCredits(ctx, customer.ReferredBy, 1); err != nil {
				return nil, err
			}
		}
		if err := s.Ledger.SetTag(ctx, customerID, ledger.TagTraveler); err != nil {
			return nil, err
		}
	}
	return b, nil
}
