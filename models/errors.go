package models

import "errors"

// Local decision failures. These mean "no signal" or "no trade" for the
// current invocation; they are reported but do not fail the process.
var (
	// ErrInsufficientData means there is not enough stored history to
	// compute a statistic honestly.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrQuoteUnavailable means a required strike has no usable bid/ask.
	ErrQuoteUnavailable = errors.New("quote unavailable")

	// ErrStaleSignal means the latest signal record is older than the
	// configured maximum age and must not be acted on.
	ErrStaleSignal = errors.New("stale signal")
)
