// Package sizing turns a firing entry signal into a sized, fully priced
// short-strangle bracket, capped by account risk capacity.
package sizing

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/calebmsmith/vrpdesk/internal/config"
	"github.com/calebmsmith/vrpdesk/models"
)

// StrikeSelector picks the call and put strikes for a given spot. The
// default is a fixed percentage OTM, a stand-in for a real delta solve;
// swapping in a model only touches this function.
type StrikeSelector func(spot float64) (callStrike, putStrike float64)

// MarginModel estimates the margin consumed per contract leg. The
// default is a flat multiplier of spot, a deliberately rough heuristic.
type MarginModel func(spot float64) float64

// QuoteFunc fetches the current market for one strike.
type QuoteFunc func(strike float64, right models.OptionRight) (models.OptionQuote, error)

// Engine sizes and prices strangle entries.
type Engine struct {
	cfg     config.SizingConfig
	symbol  string
	strikes StrikeSelector
	margin  MarginModel
	logger  zerolog.Logger
}

// NewEngine creates a sizing engine with the default strike and margin
// heuristics from cfg.
func NewEngine(symbol string, cfg config.SizingConfig) *Engine {
	e := &Engine{
		cfg:    cfg,
		symbol: symbol,
		logger: log.With().Str("component", "sizing").Logger(),
	}
	e.strikes = func(spot float64) (float64, float64) {
		return roundTo(spot*(1+cfg.StrikeOffsetPct), cfg.StrikeRound),
			roundTo(spot*(1-cfg.StrikeOffsetPct), cfg.StrikeRound)
	}
	e.margin = func(spot float64) float64 {
		return cfg.MarginMultiplier * spot
	}
	return e
}

// WithStrikeSelector replaces the default OTM-percentage strike picker.
func (e *Engine) WithStrikeSelector(fn StrikeSelector) *Engine {
	e.strikes = fn
	return e
}

// WithMarginModel replaces the default flat margin heuristic.
func (e *Engine) WithMarginModel(fn MarginModel) *Engine {
	e.margin = fn
	return e
}

// InEntryWindow reports whether now falls inside the configured weekday
// and time-of-day entry window.
func (e *Engine) InEntryWindow(now time.Time) bool {
	if now.Weekday() != time.Weekday(e.cfg.EntryWeekday) {
		return false
	}
	start, end := e.cfg.EntryWindow()
	minute := now.Hour()*60 + now.Minute()
	return minute >= start && minute <= end
}

// Contracts returns the position size for the given account value:
// risk capacity divided by the per-leg margin estimate, floored, never
// below one contract. Accuracy is only as good as the margin heuristic.
func (e *Engine) Contracts(netLiquidation, spot float64) (int, error) {
	if netLiquidation <= 0 {
		return 0, fmt.Errorf("non-positive net liquidation %g", netLiquidation)
	}
	if spot <= 0 {
		return 0, fmt.Errorf("non-positive spot %g", spot)
	}

	riskCap := netLiquidation * e.cfg.MaxMarginPct
	marginPerLeg := e.margin(spot)
	if marginPerLeg <= 0 {
		return 0, fmt.Errorf("margin model returned %g for spot %g", marginPerLeg, spot)
	}

	contracts := int(math.Floor(riskCap / marginPerLeg))
	if contracts < 1 {
		contracts = 1
	}
	return contracts, nil
}

// Plan builds the full order plan: strikes, size, credit and the bracket
// exit prices. quote is called once per leg; a one-sided or empty market
// aborts with models.ErrQuoteUnavailable rather than pricing off a
// fabricated mid.
func (e *Engine) Plan(sig models.SignalRecord, acct models.AccountSummary, spot float64, expiry time.Time, quote QuoteFunc) (*models.OrderPlan, error) {
	contracts, err := e.Contracts(acct.NetLiquidation, spot)
	if err != nil {
		return nil, err
	}

	callStrike, putStrike := e.strikes(spot)

	callQ, err := quote(callStrike, models.RightCall)
	if err != nil {
		return nil, err
	}
	putQ, err := quote(putStrike, models.RightPut)
	if err != nil {
		return nil, err
	}
	if !callQ.Quoted() {
		return nil, fmt.Errorf("call %g has no two-sided market (bid=%g ask=%g): %w",
			callStrike, callQ.Bid, callQ.Ask, models.ErrQuoteUnavailable)
	}
	if !putQ.Quoted() {
		return nil, fmt.Errorf("put %g has no two-sided market (bid=%g ask=%g): %w",
			putStrike, putQ.Bid, putQ.Ask, models.ErrQuoteUnavailable)
	}

	credit := roundTo(callQ.Mid()+putQ.Mid(), e.cfg.Tick)
	if credit <= 0 {
		return nil, fmt.Errorf("combined mid credit %g is not positive: %w", credit, models.ErrQuoteUnavailable)
	}

	// The take-profit must stay strictly below the parent credit after
	// tick rounding; a credit of a single tick leaves no room for one.
	takeProfit := roundTo(credit*0.50, e.cfg.Tick)
	if takeProfit >= credit {
		takeProfit -= e.cfg.Tick
	}
	if takeProfit <= 0 {
		return nil, fmt.Errorf("credit %g cannot be bracketed at tick %g: %w",
			credit, e.cfg.Tick, models.ErrQuoteUnavailable)
	}

	plan := &models.OrderPlan{
		Symbol:     e.symbol,
		Expiry:     expiry,
		CallStrike: callStrike,
		PutStrike:  putStrike,
		Contracts:  contracts,
		Credit:     credit,
		TakeProfit: takeProfit,
		StopLoss:   roundTo(credit*2.00, e.cfg.Tick),
	}

	e.logger.Info().
		Float64("spot", spot).
		Float64("call_strike", callStrike).
		Float64("put_strike", putStrike).
		Int("contracts", contracts).
		Float64("credit", credit).
		Float64("tp", plan.TakeProfit).
		Float64("sl", plan.StopLoss).
		Int("dte", sig.DTE).
		Msg("Order plan built")

	return plan, nil
}

// TargetExpiry returns the nominal expiry date targetDTE days from now.
// The gateway resolves it to the nearest listed expiration.
func TargetExpiry(now time.Time, targetDTE int) time.Time {
	d := now.UTC().AddDate(0, 0, targetDTE)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

func roundTo(x, step float64) float64 {
	return math.Round(x/step) * step
}
