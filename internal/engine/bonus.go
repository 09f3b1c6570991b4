package engine

import "encoding/json"

// BonusState tracks an in-flight free-game feature for one session. It is
// persisted between spins as JSON, so a session can resume a feature after
// a disconnect with nothing lost.
type BonusState struct {
	FreeSpinsLeft  int   `json:"freeSpinsLeft"`
	FreeSpinsTotal int   `json:"freeSpinsTotal"`
	Multiplier     int64 `json:"multiplier"`
	AccumulatedWin int64 `json:"accumulatedWin"`

	// TriggerBet and TriggerLines freeze the stake of the triggering
	// spin; free games replay it without deduction.
	TriggerBet   int64 `json:"triggerBet"`
	TriggerLines int   `json:"triggerLines"`

	// Feature carries game-specific sub-state (picked items, sticky
	// positions) opaque to the engine core.
	Feature json.RawMessage `json:"feature,omitempty"`
}

// Active reports whether free games remain to be played.
func (b *BonusState) Active() bool {
	return b != nil && b.FreeSpinsLeft > 0
}

// Trigger opens a feature, or extends a running one on a retrigger.
func (b *BonusState) Trigger(cfg *GameConfig, spins int, betPerLine int64, lines int) {
	if b.FreeSpinsTotal == 0 {
		b.Multiplier = cfg.FreeSpinMultiplier
		b.TriggerBet = betPerLine
		b.TriggerLines = lines
	}
	b.FreeSpinsLeft += spins
	b.FreeSpinsTotal += spins
}

// Consume spends one free game and accumulates its payout.
func (b *BonusState) Consume(win int64) {
	if b.FreeSpinsLeft > 0 {
		b.FreeSpinsLeft--
	}
	b.AccumulatedWin += win
}

// Marshal encodes the state for persistence.
func (b *BonusState) Marshal() ([]byte, error) {
	return json.Marshal(b)
}

// UnmarshalBonusState decodes a persisted feature state. Empty input yields
// nil, meaning no feature in flight.
func UnmarshalBonusState(data []byte) (*BonusState, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var state BonusState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}
