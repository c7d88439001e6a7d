// README: Availability slots and occupied periods for a car.
package availability

import "time"

// Period is a half-open occupied interval [Start, End).
type Period struct {
	Start time.Time
	End   time.Time
}

// Slot is a bookable window within the search horizon.
type Slot struct {
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	DurationHours float64   `json:"duration_hours"`
}

func newSlot(start, end time.Time) Slot {
	return Slot{Start: start, End: end, DurationHours: end.Sub(start).Hours()}
}
