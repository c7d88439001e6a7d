package settlement

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestExtraKilometerChargeFlatTier(t *testing.T) {
	cases := []struct {
		km   int
		want string
	}{
		{0, "0"},
		{-5, "0"},
		{1, "10"},
		{30, "300"},
		{50, "500"},
	}
	for _, c := range cases {
		got := ExtraKilometerCharge(c.km)
		if !got.Equal(decimal.RequireFromString(c.want)) {
			t.Fatalf("ExtraKilometerCharge(%d) = %s, want %s", c.km, got, c.want)
		}
	}
}

func TestExtraKilometerChargeTieredCurve(t *testing.T) {
	// 51 km: 500 flat + 1^1.5 * 10
	if got := ExtraKilometerCharge(51); !got.Equal(decimal.RequireFromString("510")) {
		t.Fatalf("ExtraKilometerCharge(51) = %s, want 510", got)
	}

	// 120 km: 500 + 50^1.5*10 + 20^2*10 = 500 + 3535.53 + 4000
	if got := ExtraKilometerCharge(120); !got.Equal(decimal.RequireFromString("8035.53")) {
		t.Fatalf("ExtraKilometerCharge(120) = %s, want 8035.53", got)
	}
}

func TestExtraKilometerChargeMonotonic(t *testing.T) {
	prev := decimal.Zero
	for km := 1; km <= 200; km++ {
		got := ExtraKilometerCharge(km)
		if got.LessThan(prev) {
			t.Fatalf("charge decreased at %d km: %s < %s", km, got, prev)
		}
		prev = got
	}
}

func TestLateReturnChargeGrace(t *testing.T) {
	end := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)

	for _, delay := range []time.Duration{0, 10 * time.Minute, 30 * time.Minute} {
		charge, hours, _ := LateReturnCharge(end, end.Add(delay))
		if !charge.IsZero() || hours != 0 {
			t.Fatalf("delay %v: charge = %s hours = %d, want free", delay, charge, hours)
		}
	}
}

func TestLateReturnChargeHourRounding(t *testing.T) {
	end := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)

	// 31 minutes late: one chargeable minute rounds up to a full hour.
	charge, hours, _ := LateReturnCharge(end, end.Add(31*time.Minute))
	if hours != 1 || !charge.Equal(decimal.RequireFromString("100")) {
		t.Fatalf("31m: hours = %d charge = %s, want 1 / 100", hours, charge)
	}

	// 90 minutes late: exactly 60 chargeable minutes, no round-up.
	charge, hours, _ = LateReturnCharge(end, end.Add(90*time.Minute))
	if hours != 1 || !charge.Equal(decimal.RequireFromString("100")) {
		t.Fatalf("90m: hours = %d charge = %s, want 1 / 100", hours, charge)
	}

	charge, hours, _ = LateReturnCharge(end, end.Add(2*time.Hour))
	if hours != 2 || !charge.Equal(decimal.RequireFromString("200")) {
		t.Fatalf("2h: hours = %d charge = %s, want 2 / 200", hours, charge)
	}
}

func TestLateReturnChargeUpperTiers(t *testing.T) {
	end := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)

	// 5 chargeable hours: 300 + 2^1.3 * 100.
	charge, hours, _ := LateReturnCharge(end, end.Add(5*time.Hour+30*time.Minute))
	want := decimal.NewFromFloat(300 + math.Pow(2, 1.3)*100).Round(2)
	if hours != 5 || !charge.Equal(want) {
		t.Fatalf("5h: hours = %d charge = %s, want 5 / %s", hours, charge, want)
	}

	// 8 chargeable hours: 300 + 3^1.3*100 + 2^1.8*100.
	charge, hours, _ = LateReturnCharge(end, end.Add(8*time.Hour+30*time.Minute))
	want = decimal.NewFromFloat(300 + math.Pow(3, 1.3)*100 + math.Pow(2, 1.8)*100).Round(2)
	if hours != 8 || !charge.Equal(want) {
		t.Fatalf("8h: hours = %d charge = %s, want 8 / %s", hours, charge, want)
	}
}

func TestClassify(t *testing.T) {
	deposit := decimal.RequireFromString("5000")

	out := Classify(deposit, decimal.RequireFromString("5000"))
	if out.Scenario != ScenarioSettled || !out.Amount.IsZero() {
		t.Fatalf("exact: got %s / %s", out.Scenario, out.Amount)
	}

	out = Classify(deposit, decimal.RequireFromString("3000"))
	if out.Scenario != ScenarioRefunding || !out.Amount.Equal(decimal.RequireFromString("2000")) {
		t.Fatalf("refund: got %s / %s", out.Scenario, out.Amount)
	}

	out = Classify(deposit, decimal.RequireFromString("7000"))
	if out.Scenario != ScenarioInitiated || !out.Amount.Equal(decimal.RequireFromString("2000")) {
		t.Fatalf("owed: got %s / %s", out.Scenario, out.Amount)
	}
}
