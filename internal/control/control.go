// Package control provides gaming system control functionality
// Compliant with GLI-19 §2.4: Gaming Management
//
// Key Requirements:
//   - Operator must be able to disable all gaming on demand
//   - Individual games can be disabled
//   - Player accounts can be disabled
//   - All state changes must be logged
package control

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/adowning/netgame-sub000/internal/audit"
	"github.com/adowning/netgame-sub000/internal/domain"
)

var (
	ErrGamingDisabled = errors.New("gaming is currently disabled")
	ErrGameDisabled   = errors.New("game is currently disabled")
	ErrPlayerDisabled = errors.New("player account is disabled")
)

// Service is the operator kill-switch. The spin path consults it before
// every paid round; flipping it stops wagering without restarting the
// process (GLI-19 §2.4).
type Service struct {
	db    *sql.DB
	audit *audit.Service

	mu             sync.RWMutex
	gamingEnabled  bool
	disabledGames  map[string]bool
	disabledAt     *time.Time
	disabledBy     string
	disabledReason string
}

// New creates a new control service
func New(db *sql.DB, auditSvc *audit.Service) *Service {
	return &Service{
		db:            db,
		audit:         auditSvc,
		gamingEnabled: true,
		disabledGames: make(map[string]bool),
	}
}

// setGamingEnabled flips the system-wide switch in memory and persists it.
func (s *Service) setGamingEnabled(ctx context.Context, enabled bool, reason, authorizedBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	s.gamingEnabled = enabled
	if enabled {
		s.disabledAt = nil
		s.disabledBy = ""
		s.disabledReason = ""
	} else {
		s.disabledAt = &now
		s.disabledBy = authorizedBy
		s.disabledReason = reason
	}

	value := "true"
	if !enabled {
		value = "false"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO system_state (key, value, updated_at, updated_by)
		VALUES ('gaming_enabled', $1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = $1, updated_at = $2, updated_by = $3
	`, value, now, authorizedBy)
	if err != nil {
		return fmt.Errorf("failed to persist gaming state: %w", err)
	}
	return nil
}

// DisableAllGaming stops all gaming activity
// GLI-19 §2.4.1 - Gaming Management: Ability to disable on demand
func (s *Service) DisableAllGaming(ctx context.Context, reason, authorizedBy string) error {
	if err := s.setGamingEnabled(ctx, false, reason, authorizedBy); err != nil {
		return err
	}

	s.audit.Log(ctx, "gaming_disabled", domain.SeverityCritical,
		fmt.Sprintf("All gaming disabled: %s", reason),
		map[string]interface{}{
			"authorized_by": authorizedBy,
			"reason":        reason,
		},
		audit.WithComponent("control"))

	return nil
}

// EnableAllGaming resumes gaming operations
// GLI-19 §2.4.1 - Gaming Management
func (s *Service) EnableAllGaming(ctx context.Context, authorizedBy string) error {
	if err := s.setGamingEnabled(ctx, true, "", authorizedBy); err != nil {
		return err
	}

	s.audit.Log(ctx, "gaming_enabled", domain.SeverityInfo,
		"All gaming enabled",
		map[string]interface{}{"authorized_by": authorizedBy},
		audit.WithComponent("control"))

	return nil
}

// DisableGame disables a specific game
// GLI-19 §2.4 - Gaming Management
func (s *Service) DisableGame(ctx context.Context, gameID, reason, authorizedBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.disabledGames[gameID] = true

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO disabled_games (game_id, reason, disabled_at, disabled_by)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (game_id) DO UPDATE SET reason = $2, disabled_at = $3, disabled_by = $4
	`, gameID, reason, now, authorizedBy)
	if err != nil {
		return fmt.Errorf("failed to persist game state: %w", err)
	}

	s.audit.Log(ctx, "game_disabled", domain.SeverityWarning,
		fmt.Sprintf("Game disabled: %s - %s", gameID, reason),
		map[string]interface{}{
			"game_id":       gameID,
			"reason":        reason,
			"authorized_by": authorizedBy,
		},
		audit.WithComponent("control"))

	return nil
}

// EnableGame enables a specific game
// GLI-19 §2.4 - Gaming Management
func (s *Service) EnableGame(ctx context.Context, gameID, authorizedBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.disabledGames, gameID)

	_, err := s.db.ExecContext(ctx, `DELETE FROM disabled_games WHERE game_id = $1`, gameID)
	if err != nil {
		return fmt.Errorf("failed to persist game state: %w", err)
	}

	s.audit.Log(ctx, "game_enabled", domain.SeverityInfo,
		fmt.Sprintf("Game enabled: %s", gameID),
		map[string]interface{}{
			"game_id":       gameID,
			"authorized_by": authorizedBy,
		},
		audit.WithComponent("control"))

	return nil
}

// setPlayerStatus changes an account status and records the change.
func (s *Service) setPlayerStatus(ctx context.Context, playerID string, status domain.PlayerStatus) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE players SET status = $1, updated_at = $2 WHERE id = $3
	`, status, time.Now().UTC(), playerID)
	return err
}

// DisablePlayer disables a player's account and ends their sessions
// GLI-19 §2.4 - Gaming Management: Ability to disable player accounts
func (s *Service) DisablePlayer(ctx context.Context, playerID, reason, authorizedBy string) error {
	if err := s.setPlayerStatus(ctx, playerID, domain.PlayerStatusSuspended); err != nil {
		return fmt.Errorf("failed to disable player: %w", err)
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET status = $1 WHERE player_id = $2 AND status = $3
	`, domain.SessionStatusExpired, playerID, domain.SessionStatusActive)
	if err != nil {
		return fmt.Errorf("failed to terminate sessions: %w", err)
	}

	s.audit.Log(ctx, audit.EventAccountStatusChange, domain.SeverityWarning,
		fmt.Sprintf("Player account disabled: %s", reason),
		map[string]interface{}{
			"player_id":     playerID,
			"reason":        reason,
			"authorized_by": authorizedBy,
		},
		audit.WithPlayer(playerID), audit.WithComponent("control"))

	return nil
}

// EnablePlayer enables a player's account
// GLI-19 §2.4 - Gaming Management
func (s *Service) EnablePlayer(ctx context.Context, playerID, authorizedBy string) error {
	// A live self-exclusion outranks the operator.
	var exclusionCount int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM self_exclusions
		WHERE player_id = $1 AND is_active = true
		AND (expires_at IS NULL OR expires_at > $2)
	`, playerID, time.Now().UTC()).Scan(&exclusionCount)
	if err != nil {
		return err
	}
	if exclusionCount > 0 {
		return errors.New("cannot enable player with active self-exclusion")
	}

	if err := s.setPlayerStatus(ctx, playerID, domain.PlayerStatusActive); err != nil {
		return fmt.Errorf("failed to enable player: %w", err)
	}

	s.audit.Log(ctx, audit.EventAccountStatusChange, domain.SeverityInfo,
		"Player account enabled",
		map[string]interface{}{
			"player_id":     playerID,
			"authorized_by": authorizedBy,
		},
		audit.WithPlayer(playerID), audit.WithComponent("control"))

	return nil
}

// IsGamingEnabled checks if gaming is currently enabled
// GLI-19 §2.4 - Must be able to check system state
func (s *Service) IsGamingEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gamingEnabled
}

// IsGameEnabled checks if a specific game is enabled
func (s *Service) IsGameEnabled(gameID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.disabledGames[gameID]
}

// GetSystemStatus returns current gaming system status
// GLI-19 §2.4 - System status must be available
func (s *Service) GetSystemStatus(ctx context.Context) (*domain.GamingSystemStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var activeSessions int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sessions WHERE status = $1
	`, domain.SessionStatusActive).Scan(&activeSessions)
	if err != nil {
		return nil, err
	}

	return &domain.GamingSystemStatus{
		GamingEnabled:   s.gamingEnabled,
		DisabledAt:      s.disabledAt,
		DisabledBy:      s.disabledBy,
		DisabledReason:  s.disabledReason,
		ActiveSessions:  activeSessions,
		LastStateChange: time.Now().UTC(),
	}, nil
}

// CheckAccess verifies a player can access a game right now: the system
// switch, the per-game switch and the account status in one call
// GLI-19 §2.4, §2.5.5
func (s *Service) CheckAccess(ctx context.Context, playerID, gameID string) error {
	if !s.IsGamingEnabled() {
		return ErrGamingDisabled
	}
	if !s.IsGameEnabled(gameID) {
		return ErrGameDisabled
	}

	var status domain.PlayerStatus
	err := s.db.QueryRowContext(ctx, `SELECT status FROM players WHERE id = $1`, playerID).Scan(&status)
	if err != nil {
		return err
	}
	if status != domain.PlayerStatusActive {
		return ErrPlayerDisabled
	}

	return nil
}

// LoadState loads persisted state from database on startup
func (s *Service) LoadState(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM system_state WHERE key = 'gaming_enabled'`).Scan(&value)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	s.gamingEnabled = value != "false"

	rows, err := s.db.QueryContext(ctx, `SELECT game_id FROM disabled_games`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var gameID string
		if err := rows.Scan(&gameID); err != nil {
			return err
		}
		s.disabledGames[gameID] = true
	}

	return rows.Err()
}
