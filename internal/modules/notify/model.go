// README: System notifications persisted per user.
package notify

import (
	"time"

	"github.com/J-SURYA/cruizo-backend-sub000/internal/types"
)

type Kind string

const (
	KindBooking Kind = "BOOKING"
	KindPayment Kind = "PAYMENT"
	KindSystem  Kind = "SYSTEM"
)

type Notification struct {
	ID        types.ID
	UserID    types.ID
	Subject   string
	Body      string
	Kind      Kind
	Read      bool
	CreatedAt time.Time
}
