// README: Car and car-model read models for the booking engine.
package fleet

import (
	"github.com/shopspring/decimal"

	"github.com/J-SURYA/cruizo-backend-sub000/internal/types"
)

type CarStatus string

const (
	CarActive   CarStatus = "ACTIVE"
	CarInactive CarStatus = "INACTIVE"
)

type CarModel struct {
	ID                 types.ID
	Brand              string
	Model              string
	DynamicRentalPrice decimal.Decimal // rupees per hour
	KilometerLimitPerHr int
	Category           string
	FuelType           string
	SeatingCapacity    int
}

type Car struct {
	ID        types.ID
	CarNo     string
	Status    CarStatus
	Color     string
	ImageURLs []string
	Model     CarModel
}

// Bookable reports whether the car can accept new freezes and bookings.
func (c *Car) Bookable() bool {
	return c.Status == CarActive
}
