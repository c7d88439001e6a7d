// README: Pricing service computes rental quotes with incentive and offer discounts.
package pricing

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/J-SURYA/cruizo-backend-sub000/internal/modules/fleet"
	"github.com/J-SURYA/cruizo-backend-sub000/internal/types"
)

var (
	maintenanceCharges = decimal.NewFromInt(500)
	platformFee        = decimal.NewFromInt(100)
	depositMultiplier  = decimal.NewFromInt(10)
	deliveryNearCharge = decimal.NewFromInt(1000)
	deliveryFarCharge  = decimal.NewFromInt(2000)
)

// Offers looks up the currently running promotional discount, if any.
type Offers interface {
	BestActiveOffer(ctx context.Context) (*Offer, error)
}

type Service struct {
	offers Offers
}

func NewService(offers Offers) *Service {
	return &Service{offers: offers}
}

// DeliveryCharge prices the doorstep delivery for the combined hub round
// trip distance. Beyond 60 km the car is not deliverable at all.
func DeliveryCharge(totalDistanceKm float64) (decimal.Decimal, error) {
	switch {
	case totalDistanceKm <= 30:
		return deliveryNearCharge, nil
	case totalDistanceKm <= 60:
		return deliveryFarCharge, nil
	default:
		return decimal.Zero, types.Invalid("Total distance exceeds 60km limit")
	}
}

type QuoteInput struct {
	Car             *fleet.Car
	Start           time.Time
	End             time.Time
	HubToDeliveryKm float64
	HubToPickupKm   float64
	Profile         *CustomerProfile // nil for anonymous quotes
}

// Quote computes the full charge calculation for one rental window.
// Discount precedence: an unused rookie benefit waives delivery; otherwise
// three or more referral credits waive delivery. A running offer discounts
// the base rental independently of either. Quote never mutates incentive
// state; the booking conversion debits the ledger.
func (s *Service) Quote(ctx context.Context, in QuoteInput) (*Quote, error) {
	totalDistance := in.HubToDeliveryKm + in.HubToPickupKm

	deliveryCharges, err := DeliveryCharge(totalDistance)
	if err != nil {
		return nil, err
	}

	durationHours := decimal.NewFromFloat(in.End.Sub(in.Start).Hours())
	baseRental := durationHours.Mul(in.Car.Model.DynamicRentalPrice)
	securityDeposit := depositMultiplier.Mul(in.Car.Model.DynamicRentalPrice)

	rookie := in.Profile != nil && in.Profile.Rookie && !in.Profile.RookieBenefitUsed

	deliveryDiscount := decimal.Zero
	rookieDiscount := decimal.Zero
	if rookie {
		rookieDiscount = deliveryCharges
		deliveryDiscount = deliveryCharges
	}

	offerAmount := decimal.Zero
	var offer *Offer
	if s.offers != nil {
		offer, err = s.offers.BestActiveOffer(ctx)
		if err != nil {
			log.Printf("pricing: offer lookup failed: %v", err)
			offer = nil
		}
	}
	if offer != nil && offer.DiscountPct.IsPositive() {
		offerAmount = baseRental.Mul(offer.DiscountPct).Div(decimal.NewFromInt(100))
	}

	referralAmount := decimal.Zero
	if in.Profile != nil && in.Profile.ReferralCount >= 3 && !rookie {
		referralAmount = deliveryCharges
		deliveryDiscount = referralAmount
	}

	subtotal := baseRental.
		Add(deliveryCharges).
		Add(maintenanceCharges).
		Add(securityDeposit).
		Add(platformFee)
	totalPayable := subtotal.Sub(offerAmount).Sub(deliveryDiscount)

	freeKm := int(durationHours.Mul(decimal.NewFromInt(int64(in.Car.Model.KilometerLimitPerHr))).IntPart())

	q := &Quote{
		BaseRental:      baseRental,
		DeliveryCharges: deliveryCharges,
		SecurityDeposit: securityDeposit,
		Subtotal:        subtotal,
		TotalPayable:    totalPayable,
		FreeKilometers:  freeKm,
		RookieApplied:   rookie && rookieDiscount.IsPositive(),
		ReferralApplied: referralAmount.IsPositive(),
	}

	q.BookingDetails = BookingDetails{
		DurationHours: durationHours.InexactFloat64(),
		StartDate:     in.Start.Format(time.RFC3339),
		EndDate:       in.End.Format(time.RFC3339),
		CarModel:      fmt.Sprintf("%s %s", in.Car.Model.Brand, in.Car.Model.Model),
		Color:         in.Car.Color,
		CarNo:         in.Car.CarNo,
	}

	tier := "≤30 km"
	if totalDistance > 30 {
		tier = "31-60 km"
	}
	q.DistanceCalculation = DistanceCalculation{
		HubToDeliveryKm:    in.HubToDeliveryKm,
		HubToPickupKm:      in.HubToPickupKm,
		TotalDistanceKm:    totalDistance,
		DeliveryChargeTier: tier,
	}

	b := ChargesBreakdown{
		BaseRental:         baseRental.InexactFloat64(),
		DeliveryCharges:    deliveryCharges.InexactFloat64(),
		MaintenanceCharges: maintenanceCharges.InexactFloat64(),
		SecurityDeposit:    securityDeposit.InexactFloat64(),
		PlatformFee:        platformFee.InexactFloat64(),
		Subtotal:           subtotal.InexactFloat64(),
		TotalPayable:       totalPayable.InexactFloat64(),
	}
	if q.RookieApplied {
		b.RookieDiscountApplied = floatPtr(rookieDiscount)
		b.RookieDiscountDescription = "100% delivery charges waived for first booking"
	}
	if offerAmount.IsPositive() {
		b.OfferDiscountApplied = floatPtr(offerAmount)
		b.OfferDiscountPercentage = floatPtr(offer.DiscountPct)
		b.OfferTitle = offer.Title
	}
	if q.ReferralApplied {
		b.ReferralBenefitApplied = floatPtr(referralAmount)
		b.ReferralBenefitDescription = "Delivery charges waived via referral benefit"
	}
	q.ChargesBreakdown = b

	q.KilometerAllowance = KilometerAllowance{
		FreeKilometers: freeKm,
		LimitPerHour:   in.Car.Model.KilometerLimitPerHr,
	}
	return q, nil
}

func floatPtr(d decimal.Decimal) *float64 {
	f := d.InexactFloat64()
	return &f
}
