// Package game provides session orchestration over the spin engine
// Compliant with GLI-19 Chapter 4: Game Requirements
package game

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/adowning/netgame-sub000/internal/audit"
	"github.com/adowning/netgame-sub000/internal/domain"
	"github.com/adowning/netgame-sub000/internal/engine"
	"github.com/adowning/netgame-sub000/internal/wallet"
	"github.com/google/uuid"
)

var (
	ErrGameNotFound        = errors.New("game not found")
	ErrGameDisabled        = errors.New("game is disabled")
	ErrSessionNotFound     = errors.New("game session not found")
	ErrSessionNotActive    = errors.New("game session is not active")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidWager        = errors.New("invalid wager amount")
	ErrShopNotFound        = errors.New("shop not found")
)

// Options tunes engine-wide behavior.
type Options struct {
	Currency string

	// RetryCapOverride replaces every game's outcome retry cap when
	// positive.
	RetryCapOverride int

	// LargeWinThreshold triggers a significant-event record, in cents.
	LargeWinThreshold int64

	// DefaultShopPercent is the target return for shops created without
	// an explicit percentage.
	DefaultShopPercent float64
}

// Engine drives spin rounds end to end: wallet movement, outcome
// generation, hold-control state and round persistence
// GLI-19 §4.1: Game Requirements
type Engine struct {
	db     *sql.DB
	wallet *wallet.Service
	audit  *audit.Service
	opts   Options

	spinners map[string]*engine.Spinner
	catalog  map[string]*domain.Game

	// One in-flight spin per game session. The lock is held across the
	// whole deduct-spin-credit sequence, so a double-click or a reconnect
	// race can never run two rounds against the same session state.
	sessionLocks sync.Map // session id -> *sync.Mutex
}

// New creates a game engine from the per-game definition files in dataDir.
// Every definition is validated at load; a malformed game refuses startup
// rather than surfacing mid-session (GLI-19 §4.2.2).
func New(db *sql.DB, rand engine.Source, walletSvc *wallet.Service, auditSvc *audit.Service, dataDir string, opts Options) (*Engine, error) {
	configs, err := engine.LoadGameConfigs(dataDir)
	if err != nil {
		return nil, err
	}
	if len(configs) == 0 {
		return nil, fmt.Errorf("%w: no game definitions in %s", engine.ErrInvalidConfig, dataDir)
	}

	e := &Engine{
		db:       db,
		wallet:   walletSvc,
		audit:    auditSvc,
		opts:     opts,
		spinners: make(map[string]*engine.Spinner),
		catalog:  make(map[string]*domain.Game),
	}
	for name, cfg := range configs {
		if opts.RetryCapOverride > 0 {
			cfg.RetryCap = opts.RetryCapOverride
		}
		e.spinners[name] = engine.NewSpinner(cfg, rand)
		e.catalog[name] = catalogEntry(cfg, opts.Currency)
	}
	return e, nil
}

// catalogEntry derives the lobby-facing record from a game definition.
func catalogEntry(cfg *engine.GameConfig, currency string) *domain.Game {
	maxLines := len(cfg.Lines)
	if cfg.Mode == engine.ModeWays {
		maxLines = 1
	}
	minLevel := cfg.BetLevels[0]
	maxLevel := cfg.BetLevels[len(cfg.BetLevels)-1]

	return &domain.Game{
		ID:       cfg.Name,
		Name:     cfg.Name,
		Type:     cfg.Mode,
		MinBet:   domain.Money{Amount: minLevel * cfg.Denomination, Currency: currency},
		MaxBet:   domain.Money{Amount: maxLevel * int64(maxLines) * cfg.Denomination, Currency: currency},
		MaxLines: maxLines,
		Enabled:  true,
	}
}

// GetGames returns all available games
func (e *Engine) GetGames() []*domain.Game {
	games := make([]*domain.Game, 0, len(e.catalog))
	for _, g := range e.catalog {
		games = append(games, g)
	}
	return games
}

// GetGame returns a game by ID
func (e *Engine) GetGame(gameID string) (*domain.Game, error) {
	game, ok := e.catalog[gameID]
	if !ok {
		return nil, ErrGameNotFound
	}
	return game, nil
}

// GetConfig returns the full math definition for a game.
func (e *Engine) GetConfig(gameID string) (*engine.GameConfig, error) {
	spinner, ok := e.spinners[gameID]
	if !ok {
		return nil, ErrGameNotFound
	}
	return spinner.Config(), nil
}

// sessionLock returns the serialization lock for one game session.
func (e *Engine) sessionLock(sessionID string) *sync.Mutex {
	lock, _ := e.sessionLocks.LoadOrStore(sessionID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// StartSession creates a new game session (GLI-19 §4.3)
func (e *Engine) StartSession(ctx context.Context, playerID, gameID string) (*domain.GameSession, error) {
	game, err := e.GetGame(gameID)
	if err != nil {
		return nil, err
	}
	if !game.Enabled {
		return nil, ErrGameDisabled
	}

	balance, err := e.wallet.GetBalance(ctx, playerID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	session := &domain.GameSession{
		ID:             uuid.New().String(),
		PlayerID:       playerID,
		GameID:         gameID,
		StartedAt:      now,
		LastActivityAt: now,
		Status:         domain.GameSessionActive,
		OpeningBalance: balance.Available,
		CurrentBalance: balance.Available,
		TotalWagered:   domain.Money{Amount: 0, Currency: e.opts.Currency},
		TotalWon:       domain.Money{Amount: 0, Currency: e.opts.Currency},
		GamesPlayed:    0,
	}

	_, err = e.db.ExecContext(ctx, `
		INSERT INTO game_sessions (id, player_id, game_id, started_at, last_activity_at, status, opening_balance, current_balance, total_wagered, total_won, games_played, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, session.ID, session.PlayerID, session.GameID, session.StartedAt, session.LastActivityAt,
		session.Status, session.OpeningBalance.Amount, session.CurrentBalance.Amount,
		session.TotalWagered.Amount, session.TotalWon.Amount, session.GamesPlayed, e.opts.Currency)
	if err != nil {
		return nil, fmt.Errorf("failed to create game session: %w", err)
	}

	e.audit.Log(ctx, audit.EventGameSessionStart, domain.SeverityInfo,
		fmt.Sprintf("Game session started: %s", game.Name),
		map[string]string{"session_id": session.ID, "game_id": gameID},
		audit.WithPlayer(playerID), audit.WithSession(session.ID))

	return session, nil
}

// GetSession retrieves a game session
func (e *Engine) GetSession(ctx context.Context, sessionID string) (*domain.GameSession, error) {
	var session domain.GameSession
	var endedAt sql.NullTime
	var openingBal, currentBal, wagered, won int64
	var currency string

	err := e.db.QueryRowContext(ctx, `
		SELECT id, player_id, game_id, started_at, ended_at, last_activity_at, status,
		       opening_balance, current_balance, total_wagered, total_won, games_played, currency
		FROM game_sessions WHERE id = $1
	`, sessionID).Scan(
		&session.ID, &session.PlayerID, &session.GameID, &session.StartedAt, &endedAt,
		&session.LastActivityAt, &session.Status, &openingBal, &currentBal, &wagered, &won,
		&session.GamesPlayed, &currency)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	if endedAt.Valid {
		session.EndedAt = &endedAt.Time
	}
	session.OpeningBalance = domain.Money{Amount: openingBal, Currency: currency}
	session.CurrentBalance = domain.Money{Amount: currentBal, Currency: currency}
	session.TotalWagered = domain.Money{Amount: wagered, Currency: currency}
	session.TotalWon = domain.Money{Amount: won, Currency: currency}

	return &session, nil
}

// EndSession closes a game session (GLI-19 §4.3). A session with free
// games still in flight stays resumable through the stored feature state.
func (e *Engine) EndSession(ctx context.Context, sessionID string) (*domain.GameSession, error) {
	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := e.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	session.EndedAt = &now
	session.Status = domain.GameSessionCompleted

	feature, err := e.loadFeature(ctx, sessionID)
	if err == nil && feature.Active() {
		session.Status = domain.GameSessionInterrupted
	}

	_, err = e.db.ExecContext(ctx, `
		UPDATE game_sessions SET ended_at = $1, status = $2 WHERE id = $3
	`, now, session.Status, sessionID)
	if err != nil {
		return nil, err
	}

	e.audit.Log(ctx, audit.EventGameSessionEnd, domain.SeverityInfo,
		fmt.Sprintf("Game session ended: %d games played", session.GamesPlayed),
		map[string]interface{}{
			"session_id":    session.ID,
			"games_played":  session.GamesPlayed,
			"total_wagered": session.TotalWagered.Float64(),
			"total_won":     session.TotalWon.Float64(),
		},
		audit.WithPlayer(session.PlayerID), audit.WithSession(sessionID))

	return session, nil
}
