package models

import (
	"time"
)

// OptionRight distinguishes calls from puts in snapshot rows.
type OptionRight string

const (
	RightCall OptionRight = "C"
	RightPut  OptionRight = "P"
)

// OptionQuote is a single options-chain snapshot row as stored by the
// market data collector.
type OptionQuote struct {
	Symbol     string      `json:"symbol"`
	Expiry     time.Time   `json:"expiry"`
	Strike     float64     `json:"strike"`
	Right      OptionRight `json:"right"`
	Bid        float64     `json:"bid"`
	Ask        float64     `json:"ask"`
	CapturedAt time.Time   `json:"captured_at"`
}

// Quoted reports whether the row carries a usable two-sided market.
// The collector stores zero for a missing side.
func (q OptionQuote) Quoted() bool {
	return q.Bid > 0 && q.Ask > 0 && q.Bid <= q.Ask
}

// Mid returns the bid/ask midpoint. Only meaningful when Quoted.
func (q OptionQuote) Mid() float64 {
	return (q.Bid + q.Ask) / 2
}

// UnderlyingPrice is one point of the underlying price series,
// ordered by timestamp.
type UnderlyingPrice struct {
	Timestamp time.Time `json:"timestamp"`
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
}

// VixQuote is one VIX futures curve observation.
type VixQuote struct {
	Timestamp time.Time `json:"timestamp"`
	Contract  string    `json:"contract"`
	Price     float64   `json:"price"`
	Expiry    time.Time `json:"expiry"`
}

// SignalRecord is the single-slot handoff between the signal job and the
// trade job. It is overwritten on every signal run, not appended.
type SignalRecord struct {
	Timestamp    time.Time `json:"timestamp"`
	ImpliedMove  float64   `json:"implied_move"`
	RealizedMove float64   `json:"realized_move"`
	VixFront     float64   `json:"vix_front"`
	VixMedian    float64   `json:"vix_median"`
	DTE          int       `json:"dte"`
	EnterTrade   bool      `json:"enter_trade"`
}

// AccountSummary holds the account metrics returned by the broker gateway.
type AccountSummary struct {
	NetLiquidation float64 `json:"net_liquidation"`
	RealizedPnL    float64 `json:"realized_pnl"`
	UnrealizedPnL  float64 `json:"unrealized_pnl"`
}

// Position is one open position as reported by the broker gateway.
// Delta is the per-unit model delta and is only populated for options.
type Position struct {
	Symbol     string  `json:"symbol"`
	SecType    string  `json:"sec_type"` // "OPT", "FUT", "STK"
	Quantity   float64 `json:"quantity"`
	Multiplier float64 `json:"multiplier"`
	Delta      float64 `json:"delta"`
}

// OrderAction is the side of an order leg.
type OrderAction string

const (
	ActionBuy  OrderAction = "BUY"
	ActionSell OrderAction = "SELL"
)

// OrderLeg is one leg of a bracket. Transmit mirrors the venue convention
// where only the last leg of a linked group releases the whole group.
type OrderLeg struct {
	Action     OrderAction `json:"action"`
	Quantity   int         `json:"quantity"`
	LimitPrice float64     `json:"limit_price"`
	Transmit   bool        `json:"transmit"`
}

// OrderPlan is a fully priced short-strangle bracket: a credit-seeking
// parent plus take-profit and stop-loss children. The children are linked
// to the parent at the venue so at most one of them fills.
type OrderPlan struct {
	Symbol     string    `json:"symbol"`
	Expiry     time.Time `json:"expiry"`
	CallStrike float64   `json:"call_strike"`
	PutStrike  float64   `json:"put_strike"`
	Contracts  int       `json:"contracts"`
	Credit     float64   `json:"credit"`
	TakeProfit float64   `json:"take_profit"`
	StopLoss   float64   `json:"stop_loss"`
}

// Legs expands the plan into the three linked orders submitted to the
// gateway: SELL parent at the credit, BUY children at the exit prices.
func (p OrderPlan) Legs() [3]OrderLeg {
	return [3]OrderLeg{
		{Action: ActionSell, Quantity: p.Contracts, LimitPrice: p.Credit},
		{Action: ActionBuy, Quantity: p.Contracts, LimitPrice: p.TakeProfit},
		{Action: ActionBuy, Quantity: p.Contracts, LimitPrice: p.StopLoss, Transmit: true},
	}
}

// TradeRecord is the append-only trade log row written after a successful
// bracket submission.
type TradeRecord struct {
	Timestamp  time.Time `json:"timestamp"`
	CallStrike float64   `json:"call_strike"`
	PutStrike  float64   `json:"put_strike"`
	Quantity   int       `json:"quantity"`
	Credit     float64   `json:"credit"`
	TakeProfit float64   `json:"take_profit"`
	StopLoss   float64   `json:"stop_loss"`
	OrderIDs   string    `json:"order_ids"`
	Status     string    `json:"status"`
}

// HedgeRecord logs one delta-hedge execution.
type HedgeRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Symbol    string    `json:"symbol"`
	Quantity  int       `json:"quantity"`
	DeltaUSD  float64   `json:"delta_usd"`
}

// EquityRecord is one daily account equity snapshot.
type EquityRecord struct {
	Timestamp      time.Time `json:"timestamp"`
	NetLiquidation float64   `json:"nlv"`
	Realized       float64   `json:"realized"`
	Unrealized     float64   `json:"unrealized"`
}
