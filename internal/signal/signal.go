// Package signal implements the volatility risk premium entry signal:
// implied move from the ATM straddle versus realized move from the
// underlying series, gated by VIX term-structure dislocation.
package signal

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/calebmsmith/vrpdesk/internal/config"
	"github.com/calebmsmith/vrpdesk/models"
)

// SnapshotData holds all store rows the engine consumes, read in a
// single pass before computation so one invocation sees one consistent
// snapshot.
type SnapshotData struct {
	Options    []models.OptionQuote     // one day's chain for the target expiry
	Underlying []models.UnderlyingPrice // ascending by timestamp
	Vix        []models.VixQuote        // ascending by timestamp
}

// Engine computes SignalRecords from snapshot data.
type Engine struct {
	cfg    config.SignalConfig
	logger zerolog.Logger
}

// NewEngine creates a signal engine with the given tuning parameters.
func NewEngine(cfg config.SignalConfig) *Engine {
	return &Engine{
		cfg:    cfg,
		logger: log.With().Str("component", "signal").Logger(),
	}
}

// Compute derives the entry signal from one store snapshot. It returns
// models.ErrInsufficientData when the stored history cannot support the
// statistics and models.ErrQuoteUnavailable when the ATM strikes have no
// usable market; in both cases no record is produced.
func (e *Engine) Compute(data SnapshotData, now time.Time) (models.SignalRecord, error) {
	spot, err := latestSpot(data.Underlying)
	if err != nil {
		return models.SignalRecord{}, err
	}

	dte, err := daysToExpiry(data.Options, now)
	if err != nil {
		return models.SignalRecord{}, err
	}

	implied, err := impliedMove(data.Options, spot, dte)
	if err != nil {
		return models.SignalRecord{}, err
	}

	realized, err := realizedMove(data.Underlying, e.cfg.RealizedWindow)
	if err != nil {
		return models.SignalRecord{}, err
	}
	if realized == 0 {
		// A flat 20-day window means the ratio is undefined, not that
		// implied vol is infinitely rich.
		return models.SignalRecord{}, fmt.Errorf("realized move is zero over %d returns: %w",
			e.cfg.RealizedWindow, models.ErrInsufficientData)
	}

	front, median, err := vixDislocation(data.Vix, e.cfg)
	if err != nil {
		return models.SignalRecord{}, err
	}

	enter := implied/realized > 1+e.cfg.StdMultiplier && front > median

	rec := models.SignalRecord{
		Timestamp:    now.UTC(),
		ImpliedMove:  implied,
		RealizedMove: realized,
		VixFront:     front,
		VixMedian:    median,
		DTE:          dte,
		EnterTrade:   enter,
	}

	e.logger.Info().
		Float64("implied_move", implied).
		Float64("realized_move", realized).
		Float64("ratio", implied/realized).
		Float64("vix_front", front).
		Float64("vix_median", median).
		Int("dte", dte).
		Bool("enter_trade", enter).
		Msg("Signal computed")

	return rec, nil
}

func latestSpot(series []models.UnderlyingPrice) (float64, error) {
	if len(series) == 0 {
		return 0, fmt.Errorf("empty underlying series: %w", models.ErrInsufficientData)
	}
	spot := series[len(series)-1].Price
	if spot <= 0 {
		return 0, fmt.Errorf("non-positive spot %g in underlying series: %w", spot, models.ErrInsufficientData)
	}
	return spot, nil
}

func daysToExpiry(chain []models.OptionQuote, now time.Time) (int, error) {
	if len(chain) == 0 {
		return 0, fmt.Errorf("empty options snapshot: %w", models.ErrInsufficientData)
	}
	dte := int(chain[0].Expiry.Sub(now).Hours() / 24)
	if dte <= 0 {
		return 0, fmt.Errorf("snapshot expiry %s is not in the future: %w",
			chain[0].Expiry.Format("2006-01-02"), models.ErrInsufficientData)
	}
	return dte, nil
}

// impliedMove prices the ATM straddle from the snapshot and annualizes
// it: (call mid + put mid) / spot * sqrt(365/dte). The strike nearest
// spot is used on each side; every row at that strike must be quoted.
func impliedMove(chain []models.OptionQuote, spot float64, dte int) (float64, error) {
	callMid, err := atmMid(chain, models.RightCall, spot)
	if err != nil {
		return 0, err
	}
	putMid, err := atmMid(chain, models.RightPut, spot)
	if err != nil {
		return 0, err
	}

	straddle := callMid + putMid
	return straddle / spot * math.Sqrt(365/float64(dte)), nil
}

func atmMid(chain []models.OptionQuote, right models.OptionRight, spot float64) (float64, error) {
	atmStrike := math.NaN()
	for _, q := range chain {
		if q.Right != right {
			continue
		}
		if math.IsNaN(atmStrike) || math.Abs(q.Strike-spot) < math.Abs(atmStrike-spot) {
			atmStrike = q.Strike
		}
	}
	if math.IsNaN(atmStrike) {
		return 0, fmt.Errorf("no %s rows in options snapshot: %w", right, models.ErrInsufficientData)
	}

	var sum float64
	var n int
	for _, q := range chain {
		if q.Right != right || q.Strike != atmStrike {
			continue
		}
		if !q.Quoted() {
			return 0, fmt.Errorf("%s %g has no two-sided market (bid=%g ask=%g): %w",
				right, q.Strike, q.Bid, q.Ask, models.ErrQuoteUnavailable)
		}
		sum += q.Mid()
		n++
	}
	return sum / float64(n), nil
}

// realizedMove is the sample standard deviation of the last `window`
// day-over-day returns, annualized by sqrt(365/window). The series must
// supply at least window+1 prices.
func realizedMove(series []models.UnderlyingPrice, window int) (float64, error) {
	if len(series) < window+1 {
		return 0, fmt.Errorf("need %d underlying prices for %d returns, have %d: %w",
			window+1, window, len(series), models.ErrInsufficientData)
	}

	returns := make([]float64, 0, window)
	for i := len(series) - window; i < len(series); i++ {
		prev := series[i-1].Price
		if prev <= 0 {
			return 0, fmt.Errorf("non-positive price %g at %s: %w",
				prev, series[i-1].Timestamp.Format("2006-01-02"), models.ErrInsufficientData)
		}
		returns = append(returns, series[i].Price/prev-1)
	}

	sigma := stdDev(returns)
	return sigma * math.Sqrt(365/float64(window)), nil
}

// vixDislocation returns the front-month price and the rolling median of
// the curve series. Shorter history than the configured window is used
// as-is down to the configured minimum.
func vixDislocation(curve []models.VixQuote, cfg config.SignalConfig) (front, median float64, err error) {
	front = math.NaN()
	for i := len(curve) - 1; i >= 0; i-- {
		if curve[i].Contract == cfg.FrontContract {
			front = curve[i].Price
			break
		}
	}
	if math.IsNaN(front) {
		return 0, 0, fmt.Errorf("no %s contract in vix curve: %w", cfg.FrontContract, models.ErrInsufficientData)
	}

	window := cfg.VixMedianWindow
	if len(curve) < window {
		window = len(curve)
	}
	if window < cfg.VixMinHistory {
		return 0, 0, fmt.Errorf("vix history %d below minimum %d: %w",
			len(curve), cfg.VixMinHistory, models.ErrInsufficientData)
	}

	prices := make([]float64, 0, window)
	for _, v := range curve[len(curve)-window:] {
		prices = append(prices, v.Price)
	}
	return front, medianOf(prices), nil
}

// stdDev is the sample standard deviation (n-1 divisor).
func stdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	var variance float64
	for _, x := range xs {
		variance += (x - mean) * (x - mean)
	}
	return math.Sqrt(variance / float64(len(xs)-1))
}

func medianOf(xs []float64) float64 {
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
