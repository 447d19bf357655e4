// Package hedge flattens the option book's aggregate dollar-delta with
// a smaller notional futures contract.
package hedge

import (
	"fmt"
	"math"

	"github.com/calebmsmith/vrpdesk/models"
)

// AggregateDeltaDollars sums the dollar-delta of every open option
// position: per-unit delta times position quantity times the contract
// multiplier. Positions without a reported multiplier fall back to
// defaultMultiplier. Non-option positions do not contribute; the hedge
// futures themselves are what this number is being offset with.
func AggregateDeltaDollars(positions []models.Position, defaultMultiplier float64) float64 {
	var total float64
	for _, p := range positions {
		if p.SecType != "OPT" {
			continue
		}
		mult := p.Multiplier
		if mult == 0 {
			mult = defaultMultiplier
		}
		total += p.Delta * p.Quantity * mult
	}
	return total
}

// SizeHedge converts an aggregate dollar-delta into a signed futures
// quantity that offsets it. The sign opposes the exposure; the
// magnitude is the delta divided by the per-contract hedge notional
// (multiplier times spot), rounded half away from zero. A book within
// flatThreshold dollars of flat, or an offset that rounds below half a
// contract, yields zero: no order, not an error.
func SizeHedge(deltaDollars, hedgeMultiplier, spot, flatThreshold float64) (int, error) {
	if hedgeMultiplier <= 0 {
		return 0, fmt.Errorf("non-positive hedge multiplier %g", hedgeMultiplier)
	}
	if spot <= 0 {
		return 0, fmt.Errorf("non-positive reference spot %g", spot)
	}

	if math.Abs(deltaDollars) < flatThreshold {
		return 0, nil
	}

	raw := -deltaDollars / (hedgeMultiplier * spot)
	return int(math.Copysign(math.Floor(math.Abs(raw)+0.5), raw)), nil
}
