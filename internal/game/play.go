package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/adowning/netgame-sub000/internal/audit"
	"github.com/adowning/netgame-sub000/internal/domain"
	"github.com/adowning/netgame-sub000/internal/engine"
	"github.com/adowning/netgame-sub000/internal/wallet"
	"github.com/google/uuid"
)

// conflictRetries bounds how often a wallet write is retried when a
// concurrent update bumped the balance version first.
const conflictRetries = 3

// PlayRequest is a single spin request. BetPerLine is in denomination
// units; during free games the stored triggering stake is replayed and
// the submitted values are ignored.
type PlayRequest struct {
	SessionID  string `json:"session_id"`
	BetPerLine int64  `json:"bet_per_line"`
	Lines      int    `json:"lines"`
}

// PlayResult is the settled outcome of one spin round.
type PlayResult struct {
	Cycle         *domain.GameCycle `json:"cycle"`
	Outcome       *engine.Result    `json:"outcome"`
	Balance       domain.Money      `json:"balance"`
	FreeGame      bool              `json:"free_game"`
	FreeSpinsLeft int               `json:"free_spins_left"`
}

// Play executes one complete spin round: stake deduction, outcome
// generation, win credit and round persistence (GLI-19 §4.3.3). The whole
// sequence runs under the session lock, so each game session settles one
// round at a time.
func (e *Engine) Play(ctx context.Context, req *PlayRequest) (*PlayResult, error) {
	lock := e.sessionLock(req.SessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := e.GetSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != domain.GameSessionActive {
		return nil, ErrSessionNotActive
	}

	spinner, ok := e.spinners[session.GameID]
	if !ok {
		return nil, ErrGameNotFound
	}
	cfg := spinner.Config()

	shop, err := e.shopForPlayer(ctx, session.PlayerID)
	if err != nil {
		return nil, err
	}
	feature, err := e.loadFeature(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	event := engine.EventBet
	if feature.Active() {
		event = engine.EventFreeSpin
	}

	betPerLine, lines := req.BetPerLine, req.Lines
	wager := domain.Money{Amount: 0, Currency: e.opts.Currency}
	if event == engine.EventBet {
		if betPerLine <= 0 || lines <= 0 {
			return nil, ErrInvalidWager
		}
		wager.Amount = betPerLine * int64(lines) * cfg.Denomination
	}

	cycleID := uuid.New().String()
	startedAt := time.Now().UTC()

	balanceBefore, err := e.wallet.GetBalance(ctx, session.PlayerID)
	if err != nil {
		return nil, err
	}

	if wager.Amount > 0 {
		if _, err := e.placeWager(ctx, session.PlayerID, wager, session.GameID, cycleID); err != nil {
			if errors.Is(err, wallet.ErrInsufficientFunds) {
				return nil, ErrInsufficientBalance
			}
			return nil, err
		}
	}

	rtpState, err := e.loadRTPState(ctx, shop.ID, session.GameID)
	if err != nil {
		e.refund(ctx, session.PlayerID, wager, session.GameID, cycleID)
		return nil, err
	}

	var carried *engine.BonusState
	if feature.Active() {
		carried = feature
	}
	fallbacksBefore := stripFallbacks(cfg)

	res, spinErr := spinner.Spin(*rtpState, engine.Request{
		Event:       event,
		BetPerLine:  betPerLine,
		Lines:       lines,
		Bank:        shop.Bank.Amount,
		Balance:     balanceBefore.Available.Amount / cfg.Denomination,
		ShopPercent: shop.Percent,
		Bonus:       carried,
	})
	if spinErr != nil && !errors.Is(spinErr, engine.ErrRetryExhausted) &&
		!errors.Is(spinErr, engine.ErrBankExhausted) {
		e.refund(ctx, session.PlayerID, wager, session.GameID, cycleID)
		e.audit.Log(ctx, audit.EventSystemError, domain.SeverityError,
			fmt.Sprintf("Spin failed: %v", spinErr),
			map[string]string{"cycle_id": cycleID, "game_id": session.GameID},
			audit.WithPlayer(session.PlayerID), audit.WithSession(req.SessionID))
		return nil, spinErr
	}
	if errors.Is(spinErr, engine.ErrBankExhausted) {
		// The spin stands at zero payout; an empty shop bank is an operator
		// funding problem, not a player-facing failure.
		e.audit.Log(ctx, audit.EventBankExhausted, domain.SeverityWarning,
			"Drawn payout withheld: shop bank cannot cover any win",
			map[string]string{"cycle_id": cycleID, "game_id": session.GameID},
			audit.WithPlayer(session.PlayerID), audit.WithSession(req.SessionID))
	} else if spinErr != nil {
		// Degraded zero-payout outcome: playable, but the acceptance loop
		// ran dry, which means math model and configuration disagree.
		e.audit.Log(ctx, audit.EventRetryExhausted, domain.SeverityWarning,
			fmt.Sprintf("Outcome acceptance exhausted after %d iterations", res.Iterations),
			map[string]interface{}{
				"cycle_id": cycleID,
				"game_id":  session.GameID,
				"category": res.Category,
			},
			audit.WithPlayer(session.PlayerID), audit.WithSession(req.SessionID))
	}
	if delta := stripFallbacks(cfg) - fallbacksBefore; delta > 0 {
		e.audit.Log(ctx, audit.EventReelFallback, domain.SeverityWarning,
			fmt.Sprintf("Reel window served %d fallback symbols", delta),
			map[string]string{"game_id": session.GameID},
			audit.WithSession(req.SessionID))
	}

	win := domain.Money{Amount: res.TotalWin * cfg.Denomination, Currency: e.opts.Currency}
	if win.Amount > 0 {
		if _, err := e.creditWin(ctx, session.PlayerID, win, session.GameID, cycleID); err != nil {
			// The outcome is already drawn; a failed credit is a voided
			// round with the stake returned.
			e.refund(ctx, session.PlayerID, wager, session.GameID, cycleID)
			e.recordVoidedCycle(ctx, session, cycleID, startedAt, wager, balanceBefore.Available)
			return nil, err
		}
	}

	if err := e.saveRTPState(ctx, shop.ID, session.GameID, &res.State); err != nil {
		return nil, err
	}
	if err := e.saveFeature(ctx, req.SessionID, session.GameID, res.Bonus); err != nil {
		return nil, err
	}
	if err := e.adjustShopBank(ctx, shop.ID, wager.Amount-win.Amount); err != nil {
		return nil, err
	}

	balanceAfter, err := e.wallet.GetBalance(ctx, session.PlayerID)
	if err != nil {
		return nil, err
	}

	completedAt := time.Now().UTC()
	outcome, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("failed to encode outcome: %w", err)
	}

	cycle := &domain.GameCycle{
		ID:            cycleID,
		SessionID:     session.ID,
		PlayerID:      session.PlayerID,
		GameID:        session.GameID,
		StartedAt:     startedAt,
		CompletedAt:   &completedAt,
		WagerAmount:   wager,
		WinAmount:     win,
		BalanceBefore: balanceBefore.Available,
		BalanceAfter:  balanceAfter.Available,
		Outcome:       outcome,
		FreeGame:      event == engine.EventFreeSpin,
		Status:        domain.CycleStatusCompleted,
	}

	_, err = e.db.ExecContext(ctx, `
		INSERT INTO game_cycles (id, session_id, player_id, game_id, started_at, completed_at,
			wager_amount, win_amount, balance_before, balance_after, outcome, free_game, status, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, cycle.ID, cycle.SessionID, cycle.PlayerID, cycle.GameID, cycle.StartedAt, cycle.CompletedAt,
		cycle.WagerAmount.Amount, cycle.WinAmount.Amount, cycle.BalanceBefore.Amount,
		cycle.BalanceAfter.Amount, string(outcome), cycle.FreeGame, cycle.Status, e.opts.Currency)
	if err != nil {
		return nil, fmt.Errorf("failed to record game cycle: %w", err)
	}

	_, err = e.db.ExecContext(ctx, `
		UPDATE game_sessions SET games_played = games_played + 1,
			total_wagered = total_wagered + $1, total_won = total_won + $2,
			current_balance = $3, last_activity_at = $4
		WHERE id = $5
	`, wager.Amount, win.Amount, balanceAfter.Available.Amount, completedAt, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update game session: %w", err)
	}

	if res.FreeSpinsAwarded > 0 {
		e.audit.Log(ctx, audit.EventBonusTriggered, domain.SeverityInfo,
			fmt.Sprintf("%d free games awarded", res.FreeSpinsAwarded),
			map[string]interface{}{
				"cycle_id":   cycleID,
				"game_id":    session.GameID,
				"free_spins": res.FreeSpinsAwarded,
			},
			audit.WithPlayer(session.PlayerID), audit.WithSession(req.SessionID))
	}
	if e.opts.LargeWinThreshold > 0 && win.Amount >= e.opts.LargeWinThreshold {
		e.audit.Log(ctx, audit.EventLargeWin, domain.SeverityWarning,
			fmt.Sprintf("Large win of %.2f %s", win.Float64(), win.Currency),
			map[string]interface{}{
				"cycle_id": cycleID,
				"game_id":  session.GameID,
				"amount":   win.Float64(),
			},
			audit.WithPlayer(session.PlayerID), audit.WithSession(req.SessionID))
	}

	result := &PlayResult{
		Cycle:    cycle,
		Outcome:  res,
		Balance:  balanceAfter.Available,
		FreeGame: cycle.FreeGame,
	}
	if res.Bonus != nil {
		result.FreeSpinsLeft = res.Bonus.FreeSpinsLeft
	}
	return result, nil
}

// placeWager deducts the stake, retrying when a concurrent balance write
// invalidated the read.
func (e *Engine) placeWager(ctx context.Context, playerID string, amount domain.Money, gameID, cycleID string) (*domain.Transaction, error) {
	var tx *domain.Transaction
	var err error
	for i := 0; i < conflictRetries; i++ {
		tx, err = e.wallet.PlaceWager(ctx, playerID, amount, gameID, cycleID)
		if !errors.Is(err, wallet.ErrConflict) {
			return tx, err
		}
	}
	return nil, err
}

// creditWin credits winnings with the same conflict retry as the stake.
func (e *Engine) creditWin(ctx context.Context, playerID string, amount domain.Money, gameID, cycleID string) (*domain.Transaction, error) {
	var tx *domain.Transaction
	var err error
	for i := 0; i < conflictRetries; i++ {
		tx, err = e.wallet.CreditWin(ctx, playerID, amount, gameID, cycleID)
		if !errors.Is(err, wallet.ErrConflict) {
			return tx, err
		}
	}
	return nil, err
}

// refund returns a held stake after a failed round. Zero wagers (free
// games) are a no-op; a refund that itself fails is recorded for manual
// reconciliation rather than retried forever.
func (e *Engine) refund(ctx context.Context, playerID string, amount domain.Money, gameID, cycleID string) {
	if amount.Amount <= 0 {
		return
	}
	var err error
	for i := 0; i < conflictRetries; i++ {
		_, err = e.wallet.RefundWager(ctx, playerID, amount, gameID, cycleID)
		if !errors.Is(err, wallet.ErrConflict) {
			break
		}
	}
	if err != nil {
		e.audit.Log(ctx, audit.EventSystemError, domain.SeverityCritical,
			fmt.Sprintf("Refund failed for cycle %s: %v", cycleID, err),
			map[string]string{"cycle_id": cycleID, "game_id": gameID},
			audit.WithPlayer(playerID))
	}
}

// recordVoidedCycle preserves the audit trail for a round that was undone
// after the stake had already been taken (GLI-19 §4.16).
func (e *Engine) recordVoidedCycle(ctx context.Context, session *domain.GameSession, cycleID string, startedAt time.Time, wager, balanceBefore domain.Money) {
	now := time.Now().UTC()
	_, err := e.db.ExecContext(ctx, `
		INSERT INTO game_cycles (id, session_id, player_id, game_id, started_at, completed_at,
			wager_amount, win_amount, balance_before, balance_after, free_game, status, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $8, FALSE, $9, $10)
	`, cycleID, session.ID, session.PlayerID, session.GameID, startedAt, now,
		wager.Amount, balanceBefore.Amount, domain.CycleStatusVoided, e.opts.Currency)
	if err != nil {
		e.audit.Log(ctx, audit.EventSystemError, domain.SeverityCritical,
			fmt.Sprintf("Failed to record voided cycle %s: %v", cycleID, err), nil,
			audit.WithPlayer(session.PlayerID), audit.WithSession(session.ID))
		return
	}
	e.audit.Log(ctx, audit.EventGameVoided, domain.SeverityWarning,
		"Game cycle voided and stake refunded",
		map[string]string{"cycle_id": cycleID, "game_id": session.GameID},
		audit.WithPlayer(session.PlayerID), audit.WithSession(session.ID))
}

// stripFallbacks sums the fallback-symbol counters across a game's reel
// sets.
func stripFallbacks(cfg *engine.GameConfig) int64 {
	base := cfg.Strips(false)
	total := base.Fallbacks()
	if bonus := cfg.Strips(true); bonus != base {
		total += bonus.Fallbacks()
	}
	return total
}
