package sizing

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/calebmsmith/vrpdesk/internal/config"
	"github.com/calebmsmith/vrpdesk/models"
)

func testConfig() config.SizingConfig {
	return config.SizingConfig{
		MaxMarginPct:     0.10,
		MarginMultiplier: 50,
		StrikeOffsetPct:  0.10,
		StrikeRound:      10,
		Tick:             0.05,
		TargetDTE:        30,
		EntryWeekday:     int(time.Monday),
		EntryWindowStart: "09:45",
		EntryWindowEnd:   "10:15",
	}
}

func stubQuote(callBid, callAsk, putBid, putAsk float64) QuoteFunc {
	return func(strike float64, right models.OptionRight) (models.OptionQuote, error) {
		q := models.OptionQuote{Strike: strike, Right: right}
		if right == models.RightCall {
			q.Bid, q.Ask = callBid, callAsk
		} else {
			q.Bid, q.Ask = putBid, putAsk
		}
		return q, nil
	}
}

func TestContracts(t *testing.T) {
	tests := []struct {
		name string
		nlv  float64
		spot float64
		want int
	}{
		// riskCap = 4000, marginPerLeg = 250000: floors to zero, held at one.
		{name: "small account floors to one contract", nlv: 40000, spot: 5000, want: 1},
		// riskCap = 1000000, marginPerLeg = 250000.
		{name: "large account sizes up", nlv: 10000000, spot: 5000, want: 4},
		// riskCap = 600000, marginPerLeg = 250000: 2.4 floors to 2.
		{name: "fractional capacity floors down", nlv: 6000000, spot: 5000, want: 2},
	}

	engine := NewEngine("SPX", testConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.Contracts(tt.nlv, tt.spot)
			if err != nil {
				t.Fatalf("Contracts() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Contracts(%g, %g) = %d, want %d", tt.nlv, tt.spot, got, tt.want)
			}
		})
	}
}

func TestContractsNeverBelowOne(t *testing.T) {
	engine := NewEngine("SPX", testConfig())
	for _, nlv := range []float64{1, 100, 40000, 249999} {
		got, err := engine.Contracts(nlv, 5000)
		if err != nil {
			t.Fatalf("Contracts(%g, 5000) error = %v", nlv, err)
		}
		if got < 1 {
			t.Errorf("Contracts(%g, 5000) = %d, want >= 1", nlv, got)
		}
	}
}

func TestContractsRejectsBadInputs(t *testing.T) {
	engine := NewEngine("SPX", testConfig())
	if _, err := engine.Contracts(0, 5000); err == nil {
		t.Error("Contracts(0, 5000) expected error")
	}
	if _, err := engine.Contracts(40000, 0); err == nil {
		t.Error("Contracts(40000, 0) expected error")
	}
}

func TestPlanBuildsBracket(t *testing.T) {
	engine := NewEngine("SPX", testConfig())
	acct := models.AccountSummary{NetLiquidation: 40000}
	expiry := time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC)

	plan, err := engine.Plan(models.SignalRecord{EnterTrade: true, DTE: 30}, acct, 5000, expiry,
		stubQuote(140, 160, 130, 150))
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	if plan.CallStrike != 5500 {
		t.Errorf("call strike = %g, want 5500", plan.CallStrike)
	}
	if plan.PutStrike != 4500 {
		t.Errorf("put strike = %g, want 4500", plan.PutStrike)
	}
	if plan.Contracts != 1 {
		t.Errorf("contracts = %d, want 1", plan.Contracts)
	}
	if plan.Credit != 290 {
		t.Errorf("credit = %g, want 290", plan.Credit)
	}
	if plan.TakeProfit != 145 {
		t.Errorf("take profit = %g, want 145", plan.TakeProfit)
	}
	if plan.StopLoss != 580 {
		t.Errorf("stop loss = %g, want 580", plan.StopLoss)
	}
}

func TestPlanBracketOrdering(t *testing.T) {
	engine := NewEngine("SPX", testConfig())
	acct := models.AccountSummary{NetLiquidation: 40000}
	expiry := time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC)

	quotes := [][4]float64{
		{140, 160, 130, 150},
		{10.10, 10.14, 5.19, 5.23},
		{0.40, 0.60, 0.30, 0.50},
		{33.33, 33.37, 21.21, 21.25},
		// Two-tick credit: the smallest market that still brackets.
		{0.04, 0.06, 0.04, 0.06},
		// Three-tick credit: the halved take-profit sits between ticks
		// and rounds up toward the credit.
		{0.05, 0.15, 0.01, 0.09},
	}
	for _, q := range quotes {
		plan, err := engine.Plan(models.SignalRecord{EnterTrade: true}, acct, 5000, expiry,
			stubQuote(q[0], q[1], q[2], q[3]))
		if err != nil {
			t.Fatalf("Plan(%v) error = %v", q, err)
		}
		if !(plan.TakeProfit < plan.Credit && plan.Credit < plan.StopLoss) {
			t.Errorf("bracket ordering violated for %v: tp=%g credit=%g sl=%g",
				q, plan.TakeProfit, plan.Credit, plan.StopLoss)
		}
	}
}

func TestPlanRejectsSingleTickCredit(t *testing.T) {
	engine := NewEngine("SPX", testConfig())
	acct := models.AccountSummary{NetLiquidation: 40000}
	expiry := time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC)

	// Penny quotes on both legs: mids of 0.025 each, a 0.05 credit.
	// Halving and rounding lands the take-profit on the credit itself,
	// so no valid bracket exists.
	_, err := engine.Plan(models.SignalRecord{EnterTrade: true}, acct, 5000, expiry,
		stubQuote(0.01, 0.04, 0.01, 0.04))
	if !errors.Is(err, models.ErrQuoteUnavailable) {
		t.Errorf("Plan() error = %v, want ErrQuoteUnavailable for a one-tick credit", err)
	}
}

func TestPlanRoundsToTick(t *testing.T) {
	engine := NewEngine("SPX", testConfig())
	acct := models.AccountSummary{NetLiquidation: 40000}
	expiry := time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC)

	// Mids 10.12 and 5.21 sum to 15.33, which is off-tick.
	plan, err := engine.Plan(models.SignalRecord{EnterTrade: true}, acct, 5000, expiry,
		stubQuote(10.10, 10.14, 5.19, 5.23))
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	for name, price := range map[string]float64{
		"credit": plan.Credit, "take_profit": plan.TakeProfit, "stop_loss": plan.StopLoss,
	} {
		steps := price / 0.05
		if math.Abs(steps-math.Round(steps)) > 1e-9 {
			t.Errorf("%s = %g is not on a 0.05 tick", name, price)
		}
	}
	if math.Abs(plan.Credit-15.35) > 1e-9 {
		t.Errorf("credit = %g, want 15.35", plan.Credit)
	}
}

func TestPlanQuoteUnavailable(t *testing.T) {
	engine := NewEngine("SPX", testConfig())
	acct := models.AccountSummary{NetLiquidation: 40000}
	expiry := time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		quote QuoteFunc
	}{
		{name: "no call bid", quote: stubQuote(0, 160, 130, 150)},
		{name: "no put ask", quote: stubQuote(140, 160, 130, 0)},
		{name: "crossed put market", quote: stubQuote(140, 160, 150, 130)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Plan(models.SignalRecord{EnterTrade: true}, acct, 5000, expiry, tt.quote)
			if !errors.Is(err, models.ErrQuoteUnavailable) {
				t.Errorf("Plan() error = %v, want ErrQuoteUnavailable", err)
			}
		})
	}
}

func TestInEntryWindow(t *testing.T) {
	engine := NewEngine("SPX", testConfig())

	day := func(weekday time.Weekday, hour, minute int) time.Time {
		// 2025-06-02 is a Monday.
		base := time.Date(2025, 6, 2, hour, minute, 0, 0, time.UTC)
		return base.AddDate(0, 0, int(weekday-time.Monday))
	}

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{name: "monday window open", now: day(time.Monday, 9, 45), want: true},
		{name: "monday mid window", now: day(time.Monday, 10, 0), want: true},
		{name: "monday window close", now: day(time.Monday, 10, 15), want: true},
		{name: "monday before window", now: day(time.Monday, 9, 44), want: false},
		{name: "monday after window", now: day(time.Monday, 10, 16), want: false},
		{name: "tuesday in window hours", now: day(time.Tuesday, 10, 0), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := engine.InEntryWindow(tt.now); got != tt.want {
				t.Errorf("InEntryWindow(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestWithStrikeSelector(t *testing.T) {
	engine := NewEngine("SPX", testConfig()).WithStrikeSelector(func(spot float64) (float64, float64) {
		return spot + 100, spot - 100
	})
	acct := models.AccountSummary{NetLiquidation: 40000}
	expiry := time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC)

	plan, err := engine.Plan(models.SignalRecord{EnterTrade: true}, acct, 5000, expiry,
		stubQuote(140, 160, 130, 150))
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if plan.CallStrike != 5100 || plan.PutStrike != 4900 {
		t.Errorf("strikes = %g/%g, want 5100/4900 from the injected selector", plan.CallStrike, plan.PutStrike)
	}
}

func TestLegsLinkage(t *testing.T) {
	plan := models.OrderPlan{Contracts: 2, Credit: 290, TakeProfit: 145, StopLoss: 580}
	legs := plan.Legs()

	if legs[0].Action != models.ActionSell || legs[0].LimitPrice != 290 {
		t.Errorf("parent leg = %+v, want SELL at 290", legs[0])
	}
	if legs[1].Action != models.ActionBuy || legs[1].LimitPrice != 145 {
		t.Errorf("take-profit leg = %+v, want BUY at 145", legs[1])
	}
	if legs[2].Action != models.ActionBuy || legs[2].LimitPrice != 580 {
		t.Errorf("stop-loss leg = %+v, want BUY at 580", legs[2])
	}
	// Only the final leg releases the group.
	if legs[0].Transmit || legs[1].Transmit || !legs[2].Transmit {
		t.Errorf("transmit flags = %v/%v/%v, want false/false/true",
			legs[0].Transmit, legs[1].Transmit, legs[2].Transmit)
	}
	for i, leg := range legs {
		if leg.Quantity != 2 {
			t.Errorf("leg %d quantity = %d, want 2", i, leg.Quantity)
		}
	}
}
