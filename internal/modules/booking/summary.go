// README: Typed payment summary stored as JSONB on the booking row.
//
// Each lifecycle step owns a section; a step loads the summary, fills or
// amends its section, and writes the whole document back. Absent sections
// stay absent.
package booking

import (
	"github.com/J-SURYA/cruizo-backend-sub000/internal/modules/pricing"
)

type PaymentSummary struct {
	BookingDetails          *pricing.BookingDetails      `json:"booking_details,omitempty"`
	DistanceCalculation     *pricing.DistanceCalculation `json:"distance_calculation,omitempty"`
	ChargesBreakdown        *pricing.ChargesBreakdown    `json:"charges_breakdown,omitempty"`
	KilometerAllowance      *pricing.KilometerAllowance  `json:"kilometer_allowance,omitempty"`
	DeliveryVerification    *DeliveryVerification        `json:"delivery_verification,omitempty"`
	ReturnRequest           *ReturnRequest               `json:"return_request,omitempty"`
	ReturnVerification      *ReturnVerification          `json:"return_verification,omitempty"`
	ExtraChargesCalculation *ExtraChargesCalculation     `json:"extra_charges_calculation,omitempty"`
	Settlement              *Settlement                  `json:"settlement,omitempty"`
	CancellationDetails     *CancellationDetails         `json:"cancellation_details,omitempty"`
}

// SummaryFromQuote seeds a summary with the four quote-time sections.
func SummaryFromQuote(q *pricing.Quote) PaymentSummary {
	bd := q.BookingDetails
	dc := q.DistanceCalculation
	cb := q.ChargesBreakdown
	ka := q.KilometerAllowance
	return PaymentSummary{
		BookingDetails:      &bd,
		DistanceCalculation: &dc,
		ChargesBreakdown:    &cb,
		KilometerAllowance:  &ka,
	}
}

// Timestamps inside sections are RFC3339 strings, matching how the summary
// is served to clients.
type DeliveryVerification struct {
	AdminVideoURL          string `json:"admin_video_url,omitempty"`
	StartKilometers        *int   `json:"start_kilometers,omitempty"`
	VideoUploadedAt        string `json:"video_uploaded_at,omitempty"`
	DeliveryOTPGeneratedAt string `json:"delivery_otp_generated_at,omitempty"`
	DeliveryOTPVerified    bool   `json:"delivery_otp_verified,omitempty"`
	DeliveryOTPVerifiedAt  string `json:"delivery_otp_verified_at,omitempty"`
	DeliveredAt            string `json:"delivered_at,omitempty"`
	AdminVerified          bool   `json:"admin_verified,omitempty"`
}

type ReturnRequest struct {
	RequestedAt        string `json:"requested_at"`
	ExpectedReturnTime string `json:"expected_return_time"`
	Remarks            string `json:"remarks,omitempty"`
}

type ReturnVerification struct {
	AdminVideoURL        string `json:"admin_video_url,omitempty"`
	EndKilometers        *int   `json:"end_kilometers,omitempty"`
	ReturnedAt           string `json:"returned_at,omitempty"`
	ExpectedReturnTime   string `json:"expected_return_time,omitempty"`
	ActualReturnTime     string `json:"actual_return_time,omitempty"`
	LateHours            int    `json:"late_hours"`
	PickupOTPGeneratedAt string `json:"pickup_otp_generated_at,omitempty"`
	PickupOTPVerified    bool   `json:"pickup_otp_verified,omitempty"`
	PickupOTPVerifiedAt  string `json:"pickup_otp_verified_at,omitempty"`
}

type ExtraChargeItem struct {
	Type               string  `json:"type"`
	Amount             float64 `json:"amount"`
	Specification      string  `json:"specification,omitempty"`
	CalculationDetails string  `json:"calculation_details,omitempty"`
}

type ExtraChargesCalculation struct {
	ExtraKilometers   int               `json:"extra_kilometers"`
	ExtraKmCharges    float64           `json:"extra_km_charges"`
	LateReturnCharges float64           `json:"late_return_charges"`
	DamageCharges     float64           `json:"damage_charges"`
	OtherCharges      float64           `json:"other_charges"`
	ChargesBreakdown  []ExtraChargeItem `json:"charges_breakdown"`
	TotalExtraCharges float64           `json:"total_extra_charges"`
	CalculatedAt      string            `json:"calculated_at"`
}

type Settlement struct {
	Scenario                     string  `json:"scenario,omitempty"`
	AdditionalAmountDue          float64 `json:"additional_amount_due"`
	RefundAmount                 float64 `json:"refund_amount"`
	BaseRentalPayable            float64 `json:"base_rental_payable,omitempty"`
	SecurityDeposit              float64 `json:"security_deposit,omitempty"`
	TotalExtraCharges            float64 `json:"total_extra_charges,omitempty"`
	SettlementStatus             string  `json:"settlement_status,omitempty"`
	SettlementRemarks            string  `json:"settlement_remarks,omitempty"`
	SettledAt                    string  `json:"settled_at,omitempty"`
	AdditionalPaymentConfirmed   bool    `json:"additional_payment_confirmed,omitempty"`
	AdditionalPaymentConfirmedAt string  `json:"additional_payment_confirmed_at,omitempty"`
	RefundProcessed              bool    `json:"refund_processed,omitempty"`
	RefundProcessedAt            string  `json:"refund_processed_at,omitempty"`
}

type CancellationDetails struct {
	Cancelled                   bool    `json:"cancelled"`
	CancelledAt                 string  `json:"cancelled_at"`
	CancelledBy                 string  `json:"cancelled_by"`
	CancellationReason          string  `json:"cancellation_reason,omitempty"`
	AdminNotes                  string  `json:"admin_notes,omitempty"`
	RefundEligible              bool    `json:"refund_eligible"`
	BaseRentalRefundPercentage  int     `json:"base_rental_refund_percentage"`
	BaseRentalRefundAmount      float64 `json:"base_rental_refund_amount"`
	SecurityDepositRefundAmount float64 `json:"security_deposit_refund_amount"`
	TotalRefundAmount           float64 `json:"total_refund_amount"`
	CancellationCharges         float64 `json:"cancellation_charges"`
}

func (s *PaymentSummary) settlement() *Settlement {
	if s.Settlement == nil {
		s.Settlement = &Settlement{}
	}
	return s.Settlement
}

func (s *PaymentSummary) returnVerification() *ReturnVerification {
	if s.ReturnVerification == nil {
		s.ReturnVerification = &ReturnVerification{}
	}
	return s.ReturnVerification
}

func (s *PaymentSummary) deliveryVerification() *DeliveryVerification {
	if s.DeliveryVerification == nil {
		s.DeliveryVerification = &DeliveryVerification{}
	}
	return s.DeliveryVerification
}
