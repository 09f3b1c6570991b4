package engine

import "math"

// WinCategory is the payout class the controller targets for one spin.
type WinCategory string

const (
	CategoryNone  WinCategory = "none"
	CategoryWin   WinCategory = "win"
	CategoryBonus WinCategory = "bonus"
)

// RTPState is the persisted hold-control state for one shop/game pair.
// StatIn and StatOut are lifetime totals in denomination units and only
// ever grow; ControlDebt and PendingLimit drive the control regimes.
type RTPState struct {
	StatIn       int64 `json:"statIn"`
	StatOut      int64 `json:"statOut"`
	ControlDebt  int64 `json:"controlDebt"`
	PendingLimit int64 `json:"pendingLimit"`
}

// Percent returns the realized return-to-player percentage, 0 before any
// stake has been recorded.
func (s RTPState) Percent() float64 {
	if s.StatIn <= 0 {
		return 0
	}
	return float64(s.StatOut) / float64(s.StatIn) * 100
}

// ControlInput carries the per-spin facts the controller decides on.
// Monetary fields are in denomination units except Bank, which is the shop
// bank in currency cents.
type ControlInput struct {
	TotalBet    int64
	Lines       int
	Bank        int64
	Balance     int64
	MinBet      int64
	ShopPercent float64
	AllowBonus  bool
}

// Decision is the controller's verdict for one spin: the category the
// orchestrator must realize and the payout ceiling it must respect.
// BankStarved marks a drawn payout category that was withheld because the
// bank ceiling was zero.
type Decision struct {
	Category    WinCategory
	WinLimit    int64
	SpinChance  int64
	BonusChance int64
	Boosted     bool
	BankStarved bool
}

// Control regime tunables. The realized percentage chases the configured
// target through three regimes: steady (debt zero), repayment (negative
// debt after a boost window closes) and cooldown (positive debt counting
// down at base odds).
const (
	pendingFactorMin = 25
	pendingFactorMax = 50
	debtFloor        = -3000
	cooldownSpins    = 1500
	steadyBandWidth  = 2.0
	lowBalanceChance = 10
	lowBalanceFactor = 2
)

// Controller steers the realized return toward the configured percentage.
// It holds no state of its own; callers pass the persisted RTPState in and
// store the returned copy, so concurrent shops never share control data.
type Controller struct {
	rand Source
}

// NewController creates a hold controller backed by the given random source.
func NewController(rand Source) *Controller {
	return &Controller{rand: rand}
}

// Decide picks the payout category and ceiling for one spin and advances
// the control state machine. It never fails the spin: when the bank cannot
// cover any payout the decision degrades to CategoryNone with BankStarved
// set, so the orchestrator can surface ErrBankExhausted alongside the
// zero outcome.
func (c *Controller) Decide(cfg *GameConfig, state RTPState, in ControlInput) (Decision, RTPState, error) {
	percent := state.Percent()
	spinChance, bonusChance := cfg.Chances(in.Lines, percent)
	dec := Decision{Category: CategoryNone}

	if state.ControlDebt > 0 {
		// Cooldown: pay at base odds until the window expires.
		state.ControlDebt--
		state.PendingLimit = 0
	} else {
		jitter, err := c.rand.GenerateIntRange(1, 2)
		if err != nil {
			return dec, state, err
		}
		if state.PendingLimit == 0 && in.ShopPercent+float64(jitter) < percent {
			// Running hot: open a boost window capped at a random
			// multiple of the stake.
			factor, err := c.rand.GenerateIntRange(pendingFactorMin, pendingFactorMax)
			if err != nil {
				return dec, state, err
			}
			state.PendingLimit = in.TotalBet * factor
		}
		if state.PendingLimit > 0 {
			spinChance, bonusChance = BoostedSpinChance, BoostedBonusChance
			dec.Boosted = true
			if percent < in.ShopPercent-float64(jitter) {
				// Paid back under target; close the window and
				// start repaying the boost debt.
				state.PendingLimit = 0
				state.ControlDebt--
			}
		}
		if state.ControlDebt < 0 {
			state.ControlDebt--
			if state.ControlDebt <= debtFloor &&
				math.Abs(percent-in.ShopPercent) <= steadyBandWidth {
				state.ControlDebt = cooldownSpins
				state.PendingLimit = 0
			}
		}
	}

	dec.SpinChance, dec.BonusChance = spinChance, bonusChance

	// The bank ceiling is what the shop can actually pay out, expressed in
	// denomination units.
	bankLimit := in.Bank / cfg.Denomination

	if in.AllowBonus && bonusChance > 0 {
		draw, err := c.rand.GenerateIntRange(1, bonusChance)
		if err != nil {
			return dec, state, err
		}
		// A feature the bank cannot fund at its expected payout is
		// vetoed rather than truncated mid-bonus.
		if draw == 1 && bankLimit >= cfg.AvgBonusPayout*in.TotalBet {
			dec.Category = CategoryBonus
			dec.WinLimit = bankLimit
		}
	}

	if dec.Category == CategoryNone && spinChance > 0 {
		draw, err := c.rand.GenerateIntRange(1, spinChance)
		if err != nil {
			return dec, state, err
		}
		if draw == 1 {
			dec.Category = CategoryWin
			dec.WinLimit = bankLimit
		}
	}

	// A player about to bust gets an extra 1-in-10 shot at a payout. This
	// is a retention rule, not a fairness one, and stays within the bank
	// ceiling like everything else.
	if dec.Category == CategoryNone && in.Balance > 0 && in.Balance <= lowBalanceFactor*in.MinBet {
		push, err := c.rand.GenerateIntRange(1, lowBalanceChance)
		if err != nil {
			return dec, state, err
		}
		if push == 1 {
			dec.Category = CategoryWin
			dec.WinLimit = bankLimit
		}
	}

	if dec.Category == CategoryWin && state.PendingLimit > 0 && state.PendingLimit < dec.WinLimit {
		dec.WinLimit = state.PendingLimit
	}
	if dec.WinLimit < 0 {
		dec.WinLimit = 0
	}
	if dec.Category != CategoryNone && dec.WinLimit == 0 {
		dec.Category = CategoryNone
		dec.BankStarved = true
	}
	return dec, state, nil
}

// Settle folds a finished spin into the control state. Paid spins add the
// stake to StatIn; every payout adds to StatOut, so the lifetime counters
// are monotonic. A win delivered during a boost window consumes that much
// of the pending limit.
func Settle(state RTPState, bet, win int64, paid bool) RTPState {
	if paid {
		state.StatIn += bet
	}
	state.StatOut += win
	if state.PendingLimit > 0 && win > 0 {
		state.PendingLimit -= win
		if state.PendingLimit < 0 {
			state.PendingLimit = 0
		}
	}
	return state
}
