// README: Quote model and payment-summary sections produced by the pricing engine.
package pricing

import (
	"github.com/shopspring/decimal"
)

// Offer is the best currently-valid promotional discount on the homepage.
type Offer struct {
	Title       string
	DiscountPct decimal.Decimal
}

// CustomerProfile carries the incentive state the quote engine looks at.
// A nil profile means no discounts apply.
type CustomerProfile struct {
	Rookie            bool // customer still carries the ROOKIE tag
	ReferralCount     int
	RookieBenefitUsed bool
}

type BookingDetails struct {
	DurationHours float64 `json:"duration_hours"`
	StartDate     string  `json:"start_date"`
	EndDate       string  `json:"end_date"`
	CarModel      string  `json:"car_model"`
	Color         string  `json:"color"`
	CarNo         string  `json:"car_no"`
}

type DistanceCalculation struct {
	HubToDeliveryKm   float64 `json:"hub_to_delivery_km"`
	HubToPickupKm     float64 `json:"hub_to_pickup_km"`
	TotalDistanceKm   float64 `json:"total_distance_km"`
	DeliveryChargeTier string `json:"delivery_charge_tier"`
}

type ChargesBreakdown struct {
	BaseRental         float64 `json:"base_rental"`
	DeliveryCharges    float64 `json:"delivery_charges"`
	MaintenanceCharges float64 `json:"maintenance_charges"`
	SecurityDeposit    float64 `json:"security_deposit"`
	PlatformFee        float64 `json:"platform_fee"`
	Subtotal           float64 `json:"subtotal"`
	TotalPayable       float64 `json:"total_payable"`

	RookieDiscountApplied      *float64 `json:"rookie_discount_applied,omitempty"`
	RookieDiscountDescription  string   `json:"rookie_discount_description,omitempty"`
	OfferDiscountApplied       *float64 `json:"offer_discount_applied,omitempty"`
	OfferDiscountPercentage    *float64 `json:"offer_discount_percentage,omitempty"`
	OfferTitle                 string   `json:"offer_title,omitempty"`
	ReferralBenefitApplied     *float64 `json:"referral_benefit_applied,omitempty"`
	ReferralBenefitDescription string   `json:"referral_benefit_description,omitempty"`
}

type KilometerAllowance struct {
	FreeKilometers int     `json:"free_kilometers"`
	LimitPerHour   int     `json:"limit_per_hour"`
	ExtraKilometers int    `json:"extra_kilometers"`
	ExtraKmCharges float64 `json:"extra_km_charges"`
}

// Quote is a full price calculation for one rental window. The decimal
// fields feed downstream settlement math; the section structs are what gets
// persisted on the booking's payment summary.
type Quote struct {
	BaseRental      decimal.Decimal
	DeliveryCharges decimal.Decimal
	SecurityDeposit decimal.Decimal
	Subtotal        decimal.Decimal
	TotalPayable    decimal.Decimal
	FreeKilometers  int

	RookieApplied   bool
	ReferralApplied bool

	BookingDetails      BookingDetails
	DistanceCalculation DistanceCalculation
	ChargesBreakdown    ChargesBreakdown
	KilometerAllowance  KilometerAllowance
}
