package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/calebmsmith/vrpdesk/internal/config"
	"github.com/calebmsmith/vrpdesk/models"
)

// DB represents a database connection
type DB struct {
	*sql.DB
}

// New creates a new database connection
func New(params config.DatabaseConfig) (*DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		params.Host, params.Port, params.User, params.Password, params.DBName, params.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	if err := createTables(db); err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

// createTables creates the necessary tables if they don't exist. The
// snapshot tables are normally populated by the collector; creating them
// here keeps a fresh database usable for paper runs.
func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS options_snapshot (
			id BIGSERIAL PRIMARY KEY,
			symbol TEXT NOT NULL,
			expiry DATE NOT NULL,
			strike DOUBLE PRECISION NOT NULL,
			put_call TEXT NOT NULL,
			bid DOUBLE PRECISION NOT NULL DEFAULT 0,
			ask DOUBLE PRECISION NOT NULL DEFAULT 0,
			captured_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS underlyings (
			id BIGSERIAL PRIMARY KEY,
			ts TIMESTAMPTZ NOT NULL,
			symbol TEXT NOT NULL,
			price DOUBLE PRECISION NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS vix_curve (
			id BIGSERIAL PRIMARY KEY,
			ts TIMESTAMPTZ NOT NULL,
			contract TEXT NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			expiry DATE
		)`,
		`CREATE TABLE IF NOT EXISTS signals (
			ts TIMESTAMPTZ NOT NULL,
			implied_move DOUBLE PRECISION NOT NULL,
			realized_move DOUBLE PRECISION NOT NULL,
			vix_front DOUBLE PRECISION NOT NULL,
			vix_median DOUBLE PRECISION NOT NULL,
			dte INTEGER NOT NULL,
			enter_trade BOOLEAN NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS trades (
			ts TIMESTAMPTZ NOT NULL,
			strike_c DOUBLE PRECISION NOT NULL,
			strike_p DOUBLE PRECISION NOT NULL,
			qty INTEGER NOT NULL,
			credit DOUBLE PRECISION NOT NULL,
			tp DOUBLE PRECISION NOT NULL,
			sl DOUBLE PRECISION NOT NULL,
			order_ids TEXT,
			status TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS hedges (
			ts TIMESTAMPTZ NOT NULL,
			symbol TEXT NOT NULL,
			qty INTEGER NOT NULL,
			delta_usd DOUBLE PRECISION NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS daily_equity (
			ts TIMESTAMPTZ NOT NULL,
			nlv DOUBLE PRECISION NOT NULL,
			realized DOUBLE PRECISION NOT NULL,
			unrealized DOUBLE PRECISION NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("creating tables: %w", err)
		}
	}
	return nil
}

// OptionsChain returns the options snapshot rows captured on the given
// day for one symbol, ordered by strike.
func (db *DB) OptionsChain(symbol string, day time.Time) ([]models.OptionQuote, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)

	rows, err := db.Query(`
		SELECT symbol, expiry, strike, put_call, bid, ask, captured_at
		FROM options_snapshot
		WHERE symbol = $1 AND captured_at >= $2 AND captured_at < $3
		ORDER BY strike, put_call
	`, symbol, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("querying options snapshot: %w", err)
	}
	defer rows.Close()

	var chain []models.OptionQuote
	for rows.Next() {
		var q models.OptionQuote
		var right string
		if err := rows.Scan(&q.Symbol, &q.Expiry, &q.Strike, &right, &q.Bid, &q.Ask, &q.CapturedAt); err != nil {
			return nil, fmt.Errorf("scanning options row: %w", err)
		}
		q.Right = models.OptionRight(right)
		chain = append(chain, q)
	}
	return chain, rows.Err()
}

// UnderlyingSeries returns the most recent limit points of the underlying
// price series in ascending timestamp order.
func (db *DB) UnderlyingSeries(symbol string, limit int) ([]models.UnderlyingPrice, error) {
	rows, err := db.Query(`
		SELECT ts, symbol, price FROM (
			SELECT ts, symbol, price
			FROM underlyings
			WHERE symbol = $1
			ORDER BY ts DESC
			LIMIT $2
		) recent
		ORDER BY ts ASC
	`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("querying underlyings: %w", err)
	}
	defer rows.Close()

	var series []models.UnderlyingPrice
	for rows.Next() {
		var p models.UnderlyingPrice
		if err := rows.Scan(&p.Timestamp, &p.Symbol, &p.Price); err != nil {
			return nil, fmt.Errorf("scanning underlying row: %w", err)
		}
		series = append(series, p)
	}
	return series, rows.Err()
}

// VixCurve returns the most recent limit VIX curve observations in
// ascending timestamp order.
func (db *DB) VixCurve(limit int) ([]models.VixQuote, error) {
	rows, err := db.Query(`
		SELECT ts, contract, price, COALESCE(expiry, '0001-01-01') FROM (
			SELECT ts, contract, price, expiry
			FROM vix_curve
			ORDER BY ts DESC
			LIMIT $1
		) recent
		ORDER BY ts ASC
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying vix curve: %w", err)
	}
	defer rows.Close()

	var curve []models.VixQuote
	for rows.Next() {
		var v models.VixQuote
		if err := rows.Scan(&v.Timestamp, &v.Contract, &v.Price, &v.Expiry); err != nil {
			return nil, fmt.Errorf("scanning vix row: %w", err)
		}
		curve = append(curve, v)
	}
	return curve, rows.Err()
}

// InsertSignal appends a signal record to the history table.
func (db *DB) InsertSignal(rec models.SignalRecord) error {
	_, err := db.Exec(`
		INSERT INTO signals (ts, implied_move, realized_move, vix_front, vix_median, dte, enter_trade)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rec.Timestamp, rec.ImpliedMove, rec.RealizedMove, rec.VixFront, rec.VixMedian, rec.DTE, rec.EnterTrade)
	return err
}

// InsertTrade appends a trade log row.
func (db *DB) InsertTrade(rec models.TradeRecord) error {
	_, err := db.Exec(`
		INSERT INTO trades (ts, strike_c, strike_p, qty, credit, tp, sl, order_ids, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, rec.Timestamp, rec.CallStrike, rec.PutStrike, rec.Quantity, rec.Credit,
		rec.TakeProfit, rec.StopLoss, rec.OrderIDs, rec.Status)
	return err
}

// InsertHedge appends a hedge log row.
func (db *DB) InsertHedge(rec models.HedgeRecord) error {
	_, err := db.Exec(`
		INSERT INTO hedges (ts, symbol, qty, delta_usd)
		VALUES ($1, $2, $3, $4)
	`, rec.Timestamp, rec.Symbol, rec.Quantity, rec.DeltaUSD)
	return err
}

// InsertEquity appends a daily equity row.
func (db *DB) InsertEquity(rec models.EquityRecord) error {
	_, err := db.Exec(`
		INSERT INTO daily_equity (ts, nlv, realized, unrealized)
		VALUES ($1, $2, $3, $4)
	`, rec.Timestamp, rec.NetLiquidation, rec.Realized, rec.Unrealized)
	return err
}

// RecentEquity returns the last n equity rows in ascending order.
func (db *DB) RecentEquity(n int) ([]models.EquityRecord, error) {
	rows, err := db.Query(`
		SELECT ts, nlv, realized, unrealized FROM (
			SELECT ts, nlv, realized, unrealized
			FROM daily_equity
			ORDER BY ts DESC
			LIMIT $1
		) recent
		ORDER BY ts ASC
	`, n)
	if err != nil {
		return nil, fmt.Errorf("querying daily equity: %w", err)
	}
	defer rows.Close()

	var recs []models.EquityRecord
	for rows.Next() {
		var r models.EquityRecord
		if err := rows.Scan(&r.Timestamp, &r.NetLiquidation, &r.Realized, &r.Unrealized); err != nil {
			return nil, fmt.Errorf("scanning equity row: %w", err)
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}
