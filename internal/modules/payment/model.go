// README: Payment row model; one row per money movement on a booking.
package payment

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/J-SURYA/cruizo-backend-sub000/internal/types"
)

type Type string

const (
	// TypePayment is the initial booking payment.
	TypePayment Type = "PAYMENT"
	// TypeAddPayment is an extra charge owed after settlement.
	TypeAddPayment Type = "ADD_PAYMENT"
	// TypeRefund returns part of the deposit after settlement.
	TypeRefund Type = "REFUND"
	// TypeCancellationRefund returns money after a customer cancellation.
	TypeCancellationRefund Type = "CANCELLATION_REFUND"
	// TypeRejectionRefund returns money after an admin rejection.
	TypeRejectionRefund Type = "REJECTION_REFUND"
)

type Status string

const (
	StatusInitiated Status = "INITIATED"
	StatusCharged   Status = "CHARGED"
	StatusRefunding Status = "REFUNDING"
	StatusRefunded  Status = "REFUNDED"
	StatusPaid      Status = "PAID"
	StatusSettled   Status = "SETTLED"
)

type Payment struct {
	ID            types.ID
	BookingID     types.ID
	CustomerID    types.ID
	Amount        decimal.Decimal
	Type          Type
	Status        Status
	Method        string
	TransactionID string
	Remarks       string
	CreatedAt     time.Time
}

// ConfirmInput carries the gateway details supplied when a payment or
// refund is confirmed.
type ConfirmInput struct {
	Method        string
	TransactionID string
	Remarks       string
}
