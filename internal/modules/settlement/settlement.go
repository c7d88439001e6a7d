// README: Settlement engine; tiered-exponential fee curves and deposit netting.
package settlement

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Scenario classifies the net of security deposit vs extra charges at return.
type Scenario string

const (
	// ScenarioSettled: charges exactly consumed the deposit; nothing moves.
	ScenarioSettled Scenario = "SETTLED"
	// ScenarioRefunding: part of the deposit goes back to the customer.
	ScenarioRefunding Scenario = "REFUNDING"
	// ScenarioInitiated: the customer owes more than the deposit covered.
	ScenarioInitiated Scenario = "INITIATED"
)

// Outcome is the deterministic result of netting deposit against charges.
type Outcome struct {
	Scenario Scenario
	Amount   decimal.Decimal // refund due (REFUNDING) or amount owed (INITIATED)
}

// Classify nets the security deposit against total extra charges.
func Classify(securityDeposit, totalExtra decimal.Decimal) Outcome {
	net := securityDeposit.Sub(totalExtra)
	switch {
	case net.IsZero():
		return Outcome{Scenario: ScenarioSettled, Amount: decimal.Zero}
	case net.IsPositive():
		return Outcome{Scenario: ScenarioRefunding, Amount: net}
	default:
		return Outcome{Scenario: ScenarioInitiated, Amount: net.Abs()}
	}
}

const (
	kmBaseRate   = 10.0
	lateBaseRate = 100.0

	// GraceMinutes is the late-return grace period.
	GraceMinutes = 30
)

// ExtraKilometerCharge prices kilometres driven beyond the free allowance.
// First 50 km are flat, 51-100 km scale with exponent 1.5, anything beyond
// 100 km with exponent 2.0; the base rate multiplies every tier. Quantized
// to two decimal places once, at the end.
func ExtraKilometerCharge(extraKm int) decimal.Decimal {
	if extraKm <= 0 {
		return decimal.Zero.Round(2)
	}
	charge := float64(min(extraKm, 50)) * kmBaseRate
	if extraKm > 50 {
		tier2 := float64(min(extraKm, 100) - 50)
		charge += math.Pow(tier2, 1.5) * kmBaseRate
	}
	if extraKm > 100 {
		tier3 := float64(extraKm - 100)
		charge += math.Pow(tier3, 2.0) * kmBaseRate
	}
	return decimal.NewFromFloat(charge).Round(2)
}

// LateReturnCharge prices a late return. Delay up to GraceMinutes is free;
// beyond it any started hour counts as a full chargeable hour. Hours 1-3 are
// flat, 4-6 scale with exponent 1.3, beyond 6 with exponent 1.8. Returns the
// charge, the chargeable hours, and a human-readable calculation trail.
func LateReturnCharge(expectedEnd, actualReturn time.Time) (decimal.Decimal, int, string) {
	delayMinutes := actualReturn.Sub(expectedEnd).Minutes()
	if delayMinutes <= GraceMinutes {
		return decimal.Zero.Round(2), 0, "Within grace period (30 minutes)"
	}

	chargeableMinutes := delayMinutes - GraceMinutes
	hours := int(chargeableMinutes / 60)
	if chargeableMinutes-float64(hours*60) > 0 {
		hours++
	}
	if hours == 0 {
		return decimal.Zero.Round(2), 0, "Within grace period (30 minutes)"
	}

	var charge float64
	var details string
	switch {
	case hours <= 3:
		charge = float64(hours) * lateBaseRate
		details = fmt.Sprintf("%d hour(s) × ₹%.0f = ₹%.2f", hours, lateBaseRate, charge)
	case hours <= 6:
		tier1 := 3 * lateBaseRate
		tier2 := math.Pow(float64(hours-3), 1.3) * lateBaseRate
		charge = tier1 + tier2
		details = fmt.Sprintf("First 3 hrs: ₹%.2f, Next %d hr(s): ₹%.2f", tier1, hours-3, tier2)
	default:
		tier1 := 3 * lateBaseRate
		tier2 := math.Pow(3, 1.3) * lateBaseRate
		tier3 := math.Pow(float64(hours-6), 1.8) * lateBaseRate
		charge = tier1 + tier2 + tier3
		details = fmt.Sprintf("First 3 hrs: ₹%.2f, Next 3 hrs: ₹%.2f, Next %d hr(s): ₹%.2f",
			tier1, tier2, hours-6, tier3)
	}
	return decimal.NewFromFloat(charge).Round(2), hours, details
}
