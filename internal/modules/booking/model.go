// README: Booking aggregate and status definitions.
package booking

import (
	"time"

	"github.com/J-SURYA/cruizo-backend-sub000/internal/modules/payment"
	"github.com/J-SURYA/cruizo-backend-sub000/internal/types"
)

type Status string

const (
	StatusBooked    Status = "BOOKED"
	StatusDelivered Status = "DELIVERED"
	StatusReturning Status = "RETURNING"
	StatusReturned  Status = "RETURNED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
	StatusRejected  Status = "REJECTED"
)

// AllowedTransitions represents the booking state flow (diagram) as code.
var AllowedTransitions = map[Status][]Status{
	StatusBooked:    {StatusDelivered, StatusCancelled, StatusRejected},
	StatusDelivered: {StatusReturning},
	StatusReturning: {StatusReturned},
	StatusReturned:  {StatusCompleted},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

type Booking struct {
	ID            types.ID
	CarID         types.ID
	CustomerID    types.ID
	Start         time.Time
	End           time.Time
	DeliveryID    types.ID
	PickupID      types.ID
	Status        Status
	StatusVersion int
	PaymentStatus payment.Status
	Remarks       string
	Summary       PaymentSummary

	DeliveryVideoURL       string
	DeliveryOTP            string
	DeliveryOTPGeneratedAt *time.Time
	DeliveryOTPVerified    bool
	DeliveryOTPVerifiedAt  *time.Time
	StartKilometers        *int

	PickupVideoURL       string
	PickupOTP            string
	PickupOTPGeneratedAt *time.Time
	PickupOTPVerified    bool
	PickupOTPVerifiedAt  *time.Time
	EndKilometers        *int

	ReturnRequestedAt  *time.Time
	CancelledAt        *time.Time
	CancelledBy        types.ID
	CancellationReason string

	// ReferralBenefit records that three referral credits were debited at
	// creation, so a cancellation knows to give them back.
	ReferralBenefit bool

	CreatedAt time.Time
}

// Location is a saved delivery or pickup point, deduplicated by coordinates.
type Location struct {
	ID      types.ID
	Point   types.Point
	Address string
}

type Review struct {
	ID        types.ID
	BookingID types.ID
	CarID     types.ID
	Rating    int
	Remarks   string
	CreatedBy types.ID
	CreatedAt time.Time
}
