package models

import (
	"context"
	"time"
)

// SnapshotStore reads the market snapshots written by the data collector.
type SnapshotStore interface {
	OptionsChain(symbol string, day time.Time) ([]OptionQuote, error)
	UnderlyingSeries(symbol string, limit int) ([]UnderlyingPrice, error)
	VixCurve(limit int) ([]VixQuote, error)
}

// TradeLog appends decision records. Rows are only written after the
// corresponding broker call has succeeded.
type TradeLog interface {
	InsertSignal(rec SignalRecord) error
	InsertTrade(rec TradeRecord) error
	InsertHedge(rec HedgeRecord) error
	InsertEquity(rec EquityRecord) error
	RecentEquity(n int) ([]EquityRecord, error)
}

// BrokerGateway is the external trading-venue bridge. Every call is
// synchronous; an error aborts the current invocation.
type BrokerGateway interface {
	AccountSummary(ctx context.Context) (AccountSummary, error)
	Positions(ctx context.Context) ([]Position, error)
	SpotPrice(ctx context.Context, symbol string) (float64, error)
	OptionQuote(ctx context.Context, symbol string, expiry time.Time, strike float64, right OptionRight) (OptionQuote, error)
	PlaceBracket(ctx context.Context, plan OrderPlan) ([]int64, error)
	PlaceMarketOrder(ctx context.Context, symbol string, quantity int) (int64, error)
}

// Notifier delivers best-effort plaintext summaries. Implementations
// without configured credentials are no-ops, not failures.
type Notifier interface {
	Send(ctx context.Context, text string) error
}
