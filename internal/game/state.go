package game

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/adowning/netgame-sub000/internal/domain"
	"github.com/adowning/netgame-sub000/internal/engine"
)

// shopForPlayer resolves the venue a player belongs to. Every spin draws
// its prize bank and target return percentage from here.
func (e *Engine) shopForPlayer(ctx context.Context, playerID string) (*domain.Shop, error) {
	var shop domain.Shop
	var bankAmount int64
	var bankCurrency string

	err := e.db.QueryRowContext(ctx, `
		SELECT s.id, s.name, s.bank_amount, s.bank_currency, s.percent, s.created_at, s.updated_at
		FROM shops s JOIN players p ON p.shop_id = s.id
		WHERE p.id = $1
	`, playerID).Scan(&shop.ID, &shop.Name, &bankAmount, &bankCurrency, &shop.Percent,
		&shop.CreatedAt, &shop.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShopNotFound
		}
		return nil, fmt.Errorf("failed to load shop: %w", err)
	}

	shop.Bank = domain.Money{Amount: bankAmount, Currency: bankCurrency}
	shop.Currency = bankCurrency
	if shop.Percent <= 0 {
		shop.Percent = e.opts.DefaultShopPercent
	}
	return &shop, nil
}

// adjustShopBank moves the shop prize bank by the signed delta in cents.
// Stakes flow in, wins flow out; the bank is what future payouts draw on.
func (e *Engine) adjustShopBank(ctx context.Context, shopID string, delta int64) error {
	_, err := e.db.ExecContext(ctx, `
		UPDATE shops SET bank_amount = bank_amount + $1, updated_at = $2 WHERE id = $3
	`, delta, time.Now().UTC(), shopID)
	if err != nil {
		return fmt.Errorf("failed to adjust shop bank: %w", err)
	}
	return nil
}

// loadRTPState reads the hold-control state for one shop/game pair. A pair
// never played before starts from a zero state.
func (e *Engine) loadRTPState(ctx context.Context, shopID, gameID string) (*engine.RTPState, error) {
	var state engine.RTPState
	err := e.db.QueryRowContext(ctx, `
		SELECT stat_in, stat_out, control_debt, pending_limit
		FROM rtp_states WHERE shop_id = $1 AND game_id = $2
	`, shopID, gameID).Scan(&state.StatIn, &state.StatOut, &state.ControlDebt, &state.PendingLimit)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &engine.RTPState{}, nil
		}
		return nil, fmt.Errorf("failed to load hold-control state: %w", err)
	}
	return &state, nil
}

// saveRTPState writes back the hold-control state after a settled round.
func (e *Engine) saveRTPState(ctx context.Context, shopID, gameID string, state *engine.RTPState) error {
	_, err := e.db.ExecContext(ctx, `
		INSERT INTO rtp_states (shop_id, game_id, stat_in, stat_out, control_debt, pending_limit, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (shop_id, game_id) DO UPDATE SET
			stat_in = EXCLUDED.stat_in,
			stat_out = EXCLUDED.stat_out,
			control_debt = EXCLUDED.control_debt,
			pending_limit = EXCLUDED.pending_limit,
			updated_at = EXCLUDED.updated_at
	`, shopID, gameID, state.StatIn, state.StatOut, state.ControlDebt, state.PendingLimit, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save hold-control state: %w", err)
	}
	return nil
}

// loadFeature reads the in-flight feature state for a game session. A
// session with no stored state gets a fresh inactive one.
func (e *Engine) loadFeature(ctx context.Context, sessionID string) (*engine.BonusState, error) {
	var raw []byte
	err := e.db.QueryRowContext(ctx, `
		SELECT state FROM game_states WHERE session_id = $1
	`, sessionID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &engine.BonusState{}, nil
		}
		return nil, fmt.Errorf("failed to load feature state: %w", err)
	}

	state, err := engine.UnmarshalBonusState(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode feature state: %w", err)
	}
	if state == nil {
		state = &engine.BonusState{}
	}
	return state, nil
}

// saveFeature persists the feature state, or clears the row once the
// feature has played out so finished sessions leave nothing behind.
func (e *Engine) saveFeature(ctx context.Context, sessionID, gameID string, state *engine.BonusState) error {
	if state == nil || !state.Active() {
		_, err := e.db.ExecContext(ctx, `DELETE FROM game_states WHERE session_id = $1`, sessionID)
		if err != nil {
			return fmt.Errorf("failed to clear feature state: %w", err)
		}
		return nil
	}

	raw, err := state.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode feature state: %w", err)
	}
	_, err = e.db.ExecContext(ctx, `
		INSERT INTO game_states (session_id, game_id, state, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id) DO UPDATE SET
			state = EXCLUDED.state,
			updated_at = EXCLUDED.updated_at
	`, sessionID, gameID, raw, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save feature state: %w", err)
	}
	return nil
}
