package engine

import "errors"

// Error taxonomy surfaced to callers of the engine.
var (
	// ErrInvalidConfig indicates malformed paytable or reel data. Raised at
	// load time so a misconfigured game never reaches the spin path.
	ErrInvalidConfig = errors.New("invalid game configuration")

	// ErrInvalidRequest indicates a bet or line selection outside the
	// configured bounds. Never silently corrected.
	ErrInvalidRequest = errors.New("invalid spin request")

	// ErrRetryExhausted indicates the outcome loop hit its iteration cap
	// without satisfying the acceptance predicate. The degraded result is
	// still returned alongside this error; the caller decides whether to
	// accept it.
	ErrRetryExhausted = errors.New("outcome retry limit exhausted")

	// ErrBankExhausted indicates a drawn win category was withheld because
	// the bank ceiling was zero. The zero-payout outcome is still returned
	// alongside this error; the spin stands, the anomaly gets recorded.
	ErrBankExhausted = errors.New("bank cannot cover any win category")
)
