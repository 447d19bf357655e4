package hedge

import (
	"testing"

	"github.com/calebmsmith/vrpdesk/models"
)

func TestSizeHedge(t *testing.T) {
	tests := []struct {
		name         string
		deltaDollars float64
		multiplier   float64
		spot         float64
		want         int
	}{
		// -1250 against a 25000 notional contract: 0.05 rounds to nothing.
		{name: "small exposure rounds to zero", deltaDollars: -1250, multiplier: 5, spot: 5000, want: 0},
		// -130000 / 25000 = 5.2: buy five to offset the short delta.
		{name: "short book buys futures", deltaDollars: -130000, multiplier: 5, spot: 5000, want: 5},
		{name: "long book sells futures", deltaDollars: 130000, multiplier: 5, spot: 5000, want: -5},
		// 0.5 contracts rounds away from zero, not down.
		{name: "half contract rounds up", deltaDollars: -12500, multiplier: 5, spot: 5000, want: 1},
		{name: "negative half contract keeps sign", deltaDollars: 12500, multiplier: 5, spot: 5000, want: -1},
		// Just under half a contract stays flat.
		{name: "under half contract stays flat", deltaDollars: -12499, multiplier: 5, spot: 5000, want: 0},
		{name: "already flat book", deltaDollars: 0.5, multiplier: 5, spot: 5000, want: 0},
		{name: "exact multiple", deltaDollars: -125000, multiplier: 5, spot: 5000, want: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SizeHedge(tt.deltaDollars, tt.multiplier, tt.spot, 1)
			if err != nil {
				t.Fatalf("SizeHedge() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("SizeHedge(%g, %g, %g) = %d, want %d",
					tt.deltaDollars, tt.multiplier, tt.spot, got, tt.want)
			}
		})
	}
}

func TestSizeHedgeOpposesExposure(t *testing.T) {
	for delta := -500000.0; delta <= 500000; delta += 13777 {
		got, err := SizeHedge(delta, 5, 5000, 1)
		if err != nil {
			t.Fatalf("SizeHedge(%g) error = %v", delta, err)
		}
		if delta > 0 && got > 0 {
			t.Errorf("SizeHedge(%g) = %d, positive exposure must not be bought into", delta, got)
		}
		if delta < 0 && got < 0 {
			t.Errorf("SizeHedge(%g) = %d, negative exposure must not be sold into", delta, got)
		}
	}
}

func TestSizeHedgeRejectsBadInputs(t *testing.T) {
	if _, err := SizeHedge(-130000, 0, 5000, 1); err == nil {
		t.Error("SizeHedge with zero multiplier expected error")
	}
	if _, err := SizeHedge(-130000, 5, -1, 1); err == nil {
		t.Error("SizeHedge with negative spot expected error")
	}
}

func TestAggregateDeltaDollars(t *testing.T) {
	positions := []models.Position{
		// Signed quantity times per-unit delta: 10 short calls at 0.45.
		{SecType: "OPT", Quantity: -10, Delta: 0.45, Multiplier: 100},
		{SecType: "OPT", Quantity: 5, Delta: -0.30, Multiplier: 100},
		// Multiplier unreported: falls back to the configured default.
		{SecType: "OPT", Quantity: 2, Delta: 0.10},
		// Futures and stock do not contribute.
		{SecType: "FUT", Quantity: 3, Delta: 1, Multiplier: 5},
		{SecType: "STK", Quantity: 100, Delta: 1, Multiplier: 1},
	}

	got := AggregateDeltaDollars(positions, 100)
	want := -10*0.45*100 + 5*-0.30*100 + 2*0.10*100
	if got != want {
		t.Errorf("AggregateDeltaDollars() = %g, want %g", got, want)
	}
}

func TestAggregateDeltaDollarsEmptyBook(t *testing.T) {
	if got := AggregateDeltaDollars(nil, 100); got != 0 {
		t.Errorf("AggregateDeltaDollars(nil) = %g, want 0", got)
	}
}
