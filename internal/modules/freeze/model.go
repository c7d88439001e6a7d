// README: Booking freeze model; a short-lived hold on a car for one rental window.
package freeze

import (
	"time"

	"github.com/J-SURYA/cruizo-backend-sub000/internal/types"
)

type Freeze struct {
	ID         types.ID
	CarID      types.ID
	CustomerID types.ID
	Start      time.Time
	End        time.Time
	Delivery   types.Point
	Pickup     types.Point
	ExpiresAt  time.Time
	IsActive   bool
	CreatedAt  time.Time
}

// Live is the single liveness predicate for freezes. A freeze only counts
// while it is still active and its TTL has not elapsed.
func (f *Freeze) Live(now time.Time) bool {
	return f.IsActive && f.ExpiresAt.After(now)
}
