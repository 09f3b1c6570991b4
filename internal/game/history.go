package game

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/adowning/netgame-sub000/internal/audit"
	"github.com/adowning/netgame-sub000/internal/domain"
	"github.com/adowning/netgame-sub000/internal/engine"
)

// GetHistory returns the most recent completed rounds for a player,
// newest first, with the full stored outcome for each (GLI-19 §4.14).
func (e *Engine) GetHistory(ctx context.Context, playerID string, limit int) ([]*domain.GameRecall, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := e.db.QueryContext(ctx, `
		SELECT id, game_id, started_at, wager_amount, win_amount,
		       balance_before, balance_after, outcome, free_game, currency
		FROM game_cycles
		WHERE player_id = $1 AND status = $2
		ORDER BY started_at DESC LIMIT $3
	`, playerID, domain.CycleStatusCompleted, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recalls []*domain.GameRecall
	for rows.Next() {
		var recall domain.GameRecall
		var wager, win, balBefore, balAfter int64
		var outcome sql.NullString
		var currency string

		err := rows.Scan(&recall.CycleID, &recall.GameID, &recall.PlayedAt,
			&wager, &win, &balBefore, &balAfter, &outcome, &recall.FreeGame, &currency)
		if err != nil {
			return nil, err
		}

		recall.WagerAmount = domain.Money{Amount: wager, Currency: currency}
		recall.WinAmount = domain.Money{Amount: win, Currency: currency}
		recall.BalanceBefore = domain.Money{Amount: balBefore, Currency: currency}
		recall.BalanceAfter = domain.Money{Amount: balAfter, Currency: currency}
		if outcome.Valid {
			recall.Outcome = json.RawMessage(outcome.String)
		}

		recalls = append(recalls, &recall)
	}

	return recalls, rows.Err()
}

// ResumeState describes what a reconnecting client needs to pick a session
// back up: the session itself and any feature still in flight.
type ResumeState struct {
	Session       *domain.GameSession `json:"session"`
	Feature       *engine.BonusState  `json:"feature,omitempty"`
	FreeSpinsLeft int                 `json:"free_spins_left"`
}

// Resume reopens an interrupted session so its feature can play out
// (GLI-19 §4.16).
func (e *Engine) Resume(ctx context.Context, sessionID string) (*ResumeState, error) {
	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := e.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	feature, err := e.loadFeature(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.Status == domain.GameSessionInterrupted {
		_, err = e.db.ExecContext(ctx, `
			UPDATE game_sessions SET status = $1, ended_at = NULL, last_activity_at = $2
			WHERE id = $3
		`, domain.GameSessionActive, time.Now().UTC(), sessionID)
		if err != nil {
			return nil, err
		}
		session.Status = domain.GameSessionActive
		session.EndedAt = nil
	}

	state := &ResumeState{Session: session}
	if feature.Active() {
		state.Feature = feature
		state.FreeSpinsLeft = feature.FreeSpinsLeft
	}
	return state, nil
}

// VoidFeature discards an in-flight feature that cannot be resumed, for
// example after the game it belongs to was pulled from the catalog. Free
// games hold no stake, so nothing is refunded; the event is recorded for
// the dispute trail.
func (e *Engine) VoidFeature(ctx context.Context, sessionID, reason string) error {
	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := e.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	feature, err := e.loadFeature(ctx, sessionID)
	if err != nil {
		return err
	}
	if !feature.Active() {
		return nil
	}

	if err := e.saveFeature(ctx, sessionID, session.GameID, nil); err != nil {
		return err
	}

	return e.audit.Log(ctx, audit.EventGameVoided, domain.SeverityWarning,
		"In-flight feature voided: "+reason,
		map[string]interface{}{
			"game_id":         session.GameID,
			"free_spins_left": feature.FreeSpinsLeft,
		},
		audit.WithPlayer(session.PlayerID), audit.WithSession(sessionID))
}
