package engine

import (
	"reflect"
	"testing"
)

func TestBonusState(t *testing.T) {
	cfg := testConfig(t)

	t.Run("TriggerFreezesStake", func(t *testing.T) {
		var state BonusState
		state.Trigger(cfg, 10, 5, 10)

		if state.FreeSpinsLeft != 10 || state.FreeSpinsTotal != 10 {
			t.Errorf("Expected 10/10 free games, got %d/%d",
				state.FreeSpinsLeft, state.FreeSpinsTotal)
		}
		if state.TriggerBet != 5 || state.TriggerLines != 10 {
			t.Errorf("Expected frozen stake 5/10, got %d/%d",
				state.TriggerBet, state.TriggerLines)
		}
		if state.Multiplier != cfg.FreeSpinMultiplier {
			t.Errorf("Expected multiplier %d, got %d", cfg.FreeSpinMultiplier, state.Multiplier)
		}
	})

	t.Run("RetriggerExtendsWithoutRefreezing", func(t *testing.T) {
		var state BonusState
		state.Trigger(cfg, 10, 5, 10)
		state.Consume(100)
		state.Trigger(cfg, 15, 20, 1)

		if state.FreeSpinsLeft != 24 || state.FreeSpinsTotal != 25 {
			t.Errorf("Expected 24/25 free games after retrigger, got %d/%d",
				state.FreeSpinsLeft, state.FreeSpinsTotal)
		}
		if state.TriggerBet != 5 || state.TriggerLines != 10 {
			t.Errorf("Retrigger must keep the original stake, got %d/%d",
				state.TriggerBet, state.TriggerLines)
		}
	})

	t.Run("ConsumeAccumulates", func(t *testing.T) {
		var state BonusState
		state.Trigger(cfg, 2, 1, 1)
		state.Consume(30)
		state.Consume(70)

		if state.FreeSpinsLeft != 0 {
			t.Errorf("Expected 0 free games left, got %d", state.FreeSpinsLeft)
		}
		if state.Active() {
			t.Error("Feature must be inactive after the last free game")
		}
		if state.AccumulatedWin != 100 {
			t.Errorf("Expected accumulated win 100, got %d", state.AccumulatedWin)
		}
	})

	t.Run("NilIsInactive", func(t *testing.T) {
		var state *BonusState
		if state.Active() {
			t.Error("Nil feature state must be inactive")
		}
	})
}

func TestBonusStateRoundTrip(t *testing.T) {
	original := &BonusState{
		FreeSpinsLeft:  7,
		FreeSpinsTotal: 15,
		Multiplier:     3,
		AccumulatedWin: 1234,
		TriggerBet:     5,
		TriggerLines:   20,
		Feature:        []byte(`{"sticky":[1,4]}`),
	}

	data, err := original.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	restored, err := UnmarshalBonusState(data)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !reflect.DeepEqual(original, restored) {
		t.Errorf("Round trip changed the state:\n%+v\n%+v", original, restored)
	}

	empty, err := UnmarshalBonusState(nil)
	if err != nil {
		t.Fatalf("Unmarshal of empty input failed: %v", err)
	}
	if empty != nil {
		t.Errorf("Empty input must yield no feature, got %+v", empty)
	}
}
