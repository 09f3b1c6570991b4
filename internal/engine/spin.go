package engine

import "fmt"

// Event distinguishes a paid spin from a free-game continuation.
type Event string

const (
	EventBet      Event = "bet"
	EventFreeSpin Event = "freespin"
)

// Request carries one spin invocation. Monetary fields are in denomination
// units except Bank, which is the shop bank in currency cents.
type Request struct {
	Event       Event
	BetPerLine  int64
	Lines       int
	Bank        int64
	Balance     int64
	ShopPercent float64

	// Bonus is the feature state carried over from the previous spin,
	// nil when no feature is in flight.
	Bonus *BonusState
}

// Result is one settled spin outcome.
type Result struct {
	Grid     Grid      `json:"grid"`
	Stops    []int     `json:"stops"`
	Wins     []WinLine `json:"wins"`
	TotalBet int64     `json:"totalBet"`
	TotalWin int64     `json:"totalWin"`

	Category         WinCategory `json:"category"`
	Scatters         int         `json:"scatters"`
	FreeSpinsAwarded int         `json:"freeSpinsAwarded"`
	Boosted          bool        `json:"boosted"`
	Iterations       int         `json:"iterations"`

	// Bonus is the feature state after this spin; nil when no feature is
	// in flight. State is the advanced control state to persist.
	Bonus *BonusState `json:"bonus,omitempty"`
	State RTPState    `json:"state"`
}

// Spinner runs the full outcome pipeline for one game: category decision,
// stop selection, evaluation and the bounded acceptance loop. It is
// stateless across spins; control and feature state travel through
// Request/Result.
type Spinner struct {
	cfg        *GameConfig
	selector   *Selector
	controller *Controller
}

// NewSpinner creates the outcome pipeline for one game configuration.
func NewSpinner(cfg *GameConfig, rand Source) *Spinner {
	return &Spinner{
		cfg:        cfg,
		selector:   NewSelector(rand),
		controller: NewController(rand),
	}
}

// Config returns the game configuration the spinner was built with.
func (s *Spinner) Config() *GameConfig {
	return s.cfg
}

// Spin produces one settled outcome. The loop draws candidate grids until
// one satisfies the decided category, the payout ceiling and the max-win
// cap; when the retry cap is exhausted a safe zero-payout outcome is
// returned together with ErrRetryExhausted so the caller can record the
// anomaly without voiding the spin. A drawn payout withheld because the
// bank ceiling was zero is reported the same way via ErrBankExhausted.
func (s *Spinner) Spin(state RTPState, req Request) (*Result, error) {
	cfg := s.cfg

	betPerLine, lines := req.BetPerLine, req.Lines
	multiplier := int64(1)
	paid := req.Event == EventBet

	switch req.Event {
	case EventBet:
		if !cfg.ValidBet(betPerLine) {
			return nil, fmt.Errorf("%w: bet %d not a configured level", ErrInvalidRequest, betPerLine)
		}
		if lines < 1 || (cfg.Mode == ModeLines && lines > len(cfg.Lines)) {
			return nil, fmt.Errorf("%w: %d lines", ErrInvalidRequest, lines)
		}
	case EventFreeSpin:
		if !req.Bonus.Active() {
			return nil, fmt.Errorf("%w: no free games in flight", ErrInvalidRequest)
		}
		// Free games replay the triggering stake without deduction.
		betPerLine = req.Bonus.TriggerBet
		lines = req.Bonus.TriggerLines
		multiplier = req.Bonus.Multiplier
	default:
		return nil, fmt.Errorf("%w: unknown event %q", ErrInvalidRequest, req.Event)
	}

	totalBet := betPerLine * int64(lines)
	bonusMode := req.Event == EventFreeSpin

	dec, state, err := s.controller.Decide(cfg, state, ControlInput{
		TotalBet:    totalBet,
		Lines:       lines,
		Bank:        req.Bank,
		Balance:     req.Balance,
		MinBet:      cfg.BetLevels[0] * int64(lines),
		ShopPercent: req.ShopPercent,
		AllowBonus:  cfg.Scatter != "" && len(cfg.FreeSpins) > 0,
	})
	if err != nil {
		return nil, err
	}

	res := &Result{
		TotalBet: totalBet,
		Category: dec.Category,
		Boosted:  dec.Boosted,
	}

	var fallback *Result
	accepted := false
	for i := 1; i <= cfg.RetryCap; i++ {
		stops, err := s.selector.Stops(cfg, dec.Category, bonusMode)
		if err != nil {
			return nil, err
		}
		grid := BuildGrid(cfg, stops, bonusMode)
		wins, total := Evaluate(cfg, grid, betPerLine, lines, multiplier)
		scatters, _ := ScatterCount(cfg, grid)
		award := FreeSpinAward(cfg, scatters)

		res.Grid, res.Stops, res.Wins = grid, stops, wins
		res.TotalWin = total
		res.Scatters = scatters
		res.FreeSpinsAwarded = award
		res.Iterations = i

		if s.accept(dec, total, totalBet, award) {
			accepted = true
			break
		}

		// Remember the first harmless outcome as the degraded answer
		// should the loop run dry.
		if fallback == nil && total == 0 && award == 0 {
			clone := *res
			clone.Category = CategoryNone
			fallback = &clone
		}
	}

	var degraded error
	if !accepted {
		degraded = fmt.Errorf("%w: %d iterations for category %s",
			ErrRetryExhausted, cfg.RetryCap, dec.Category)
		if fallback != nil {
			iterations := res.Iterations
			res = fallback
			res.Iterations = iterations
		}
	}
	if degraded == nil && dec.BankStarved {
		degraded = fmt.Errorf("%w: drawn payout withheld at zero bank ceiling",
			ErrBankExhausted)
	}

	res.State = Settle(state, totalBet, res.TotalWin, paid)
	res.Bonus = s.advanceBonus(req, res, betPerLine, lines)
	return res, degraded
}

// accept is the outcome acceptance predicate: the candidate grid must pay
// exactly what the decided category allows, feature triggers only appear
// under the bonus category, boosted wins must be worth at least half the
// stake, and nothing may pierce the payout ceiling or the max-win cap.
func (s *Spinner) accept(dec Decision, total, totalBet int64, award int) bool {
	if s.cfg.MaxWin > 0 && total*s.cfg.Denomination > s.cfg.MaxWin {
		return false
	}
	trigger := award > 0

	switch dec.Category {
	case CategoryNone:
		return total == 0 && !trigger
	case CategoryWin:
		if trigger || total == 0 || total > dec.WinLimit {
			return false
		}
		if dec.Boosted && total*2 < totalBet {
			return false
		}
		return true
	case CategoryBonus:
		return trigger && total <= dec.WinLimit
	}
	return false
}

// advanceBonus applies the spin outcome to the feature state machine:
// consume one free game on continuations, open or extend the feature on a
// trigger.
func (s *Spinner) advanceBonus(req Request, res *Result, betPerLine int64, lines int) *BonusState {
	bonus := req.Bonus
	if req.Event == EventFreeSpin {
		bonus.Consume(res.TotalWin)
	}
	if res.FreeSpinsAwarded > 0 {
		if bonus == nil {
			bonus = &BonusState{}
		}
		bonus.Trigger(s.cfg, res.FreeSpinsAwarded, betPerLine, lines)
	}
	return bonus
}
