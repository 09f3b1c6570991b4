// Package limits provides responsible-gaming limit management
// Compliant with GLI-19 §2.5.5: Limitations and Exclusions
//
// Key Requirements:
//   - Players can set deposit, wager, loss, and session duration limits
//   - Limit decreases take effect immediately
//   - Limit increases require a 24-hour cooling-off period
//   - Self-exclusion must be supported with minimum cooling-off before removal
package limits

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/adowning/netgame-sub000/internal/audit"
	"github.com/adowning/netgame-sub000/internal/domain"
	"github.com/google/uuid"
)

var (
	ErrLimitNotFound     = errors.New("limit not found")
	ErrPlayerExcluded    = errors.New("player is self-excluded")
	ErrCoolingOffPending = errors.New("limit increase pending cooling-off period")
	ErrInvalidLimit      = errors.New("invalid limit value")
	ErrLimitExceeded     = errors.New("responsible-gaming limit exceeded")
)

// CoolingOffPeriod is the required waiting period for limit increases
// GLI-19 §2.5.5.b - Limit increases require waiting period
const CoolingOffPeriod = 24 * time.Hour

// LimitKind names one settable limit column.
type LimitKind string

const (
	DailyDeposit   LimitKind = "daily_deposit"
	WeeklyDeposit  LimitKind = "weekly_deposit"
	MonthlyDeposit LimitKind = "monthly_deposit"
	DailyWager     LimitKind = "daily_wager"
	WeeklyWager    LimitKind = "weekly_wager"
	DailyLoss      LimitKind = "daily_loss"
	WeeklyLoss     LimitKind = "weekly_loss"
)

// limitColumns whitelists the updatable columns; anything else is rejected
// before it can reach SQL.
var limitColumns = map[LimitKind]bool{
	DailyDeposit: true, WeeklyDeposit: true, MonthlyDeposit: true,
	DailyWager: true, WeeklyWager: true,
	DailyLoss: true, WeeklyLoss: true,
}

// Service provides player limit management
type Service struct {
	db       *sql.DB
	audit    *audit.Service
	currency string
}

// New creates a new limits service
func New(db *sql.DB, auditSvc *audit.Service, currency string) *Service {
	return &Service{
		db:       db,
		audit:    auditSvc,
		currency: currency,
	}
}

// GetLimits retrieves a player's current limits
// GLI-19 §2.5.5 - Player must be able to view their limits
func (s *Service) GetLimits(ctx context.Context, playerID string) (*domain.PlayerLimits, error) {
	var limits domain.PlayerLimits
	var amounts [7]sql.NullInt64
	var sessionDur sql.NullInt64
	var coolingOff sql.NullTime

	err := s.db.QueryRowContext(ctx, `
		SELECT id, player_id, daily_deposit, weekly_deposit, monthly_deposit,
		       daily_wager, weekly_wager, daily_loss, weekly_loss,
		       session_duration, cooling_off_until, source, effective_at, updated_at
		FROM player_limits WHERE player_id = $1
	`, playerID).Scan(
		&limits.ID, &limits.PlayerID,
		&amounts[0], &amounts[1], &amounts[2], &amounts[3], &amounts[4], &amounts[5], &amounts[6],
		&sessionDur, &coolingOff,
		&limits.Source, &limits.EffectiveAt, &limits.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &domain.PlayerLimits{
				PlayerID:    playerID,
				Source:      domain.LimitSourcePlayer,
				EffectiveAt: time.Now().UTC(),
				UpdatedAt:   time.Now().UTC(),
			}, nil
		}
		return nil, fmt.Errorf("failed to get limits: %w", err)
	}

	fields := []**domain.Money{
		&limits.DailyDeposit, &limits.WeeklyDeposit, &limits.MonthlyDeposit,
		&limits.DailyWager, &limits.WeeklyWager,
		&limits.DailyLoss, &limits.WeeklyLoss,
	}
	for i, amount := range amounts {
		if amount.Valid {
			m := domain.Money{Amount: amount.Int64, Currency: s.currency}
			*fields[i] = &m
		}
	}
	if sessionDur.Valid {
		limits.SessionDuration = &sessionDur.Int64
	}
	if coolingOff.Valid {
		limits.CoolingOffUntil = &coolingOff.Time
	}

	return &limits, nil
}

// SetLimitRequest contains a limit update. Amount is in cents; zero removes
// the limit.
type SetLimitRequest struct {
	PlayerID string    `json:"player_id"`
	Kind     LimitKind `json:"kind"`
	Amount   int64     `json:"amount"`
}

// SetLimit updates one responsible-gaming limit
// GLI-19 §2.5.5.a - Deposit, wager and loss limits must be supported
// GLI-19 §2.5.5.b - Decreases immediate, increases require cooling-off
func (s *Service) SetLimit(ctx context.Context, req *SetLimitRequest) (*domain.PlayerLimits, error) {
	if req.Amount < 0 {
		return nil, ErrInvalidLimit
	}
	if !limitColumns[req.Kind] {
		return nil, fmt.Errorf("%w: unknown limit %q", ErrInvalidLimit, req.Kind)
	}

	current, err := s.GetLimits(ctx, req.PlayerID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	effectiveAt := now

	// Raising or removing a limit is delayed; tightening applies at once.
	// A first-time set restricts an unlimited account, so it is immediate.
	currentAmount := currentLimitAmount(current, req.Kind)
	if currentAmount > 0 && (req.Amount > currentAmount || req.Amount == 0) {
		effectiveAt = now.Add(CoolingOffPeriod)
	}

	if err := s.upsertLimit(ctx, req.PlayerID, req.Kind, req.Amount, effectiveAt); err != nil {
		return nil, err
	}

	s.audit.Log(ctx, "limit_change", domain.SeverityInfo,
		fmt.Sprintf("Limit changed: %s = %d cents (effective: %s)",
			req.Kind, req.Amount, effectiveAt.Format(time.RFC3339)),
		map[string]interface{}{
			"kind":         req.Kind,
			"amount":       req.Amount,
			"effective_at": effectiveAt,
			"immediate":    effectiveAt.Equal(now),
		},
		audit.WithPlayer(req.PlayerID))

	return s.GetLimits(ctx, req.PlayerID)
}

func currentLimitAmount(limits *domain.PlayerLimits, kind LimitKind) int64 {
	var m *domain.Money
	switch kind {
	case DailyDeposit:
		m = limits.DailyDeposit
	case WeeklyDeposit:
		m = limits.WeeklyDeposit
	case MonthlyDeposit:
		m = limits.MonthlyDeposit
	case DailyWager:
		m = limits.DailyWager
	case WeeklyWager:
		m = limits.WeeklyWager
	case DailyLoss:
		m = limits.DailyLoss
	case WeeklyLoss:
		m = limits.WeeklyLoss
	}
	if m == nil {
		return 0
	}
	return m.Amount
}

// SelfExclude excludes a player from gaming
// GLI-19 §2.5.5.c - Self-exclusion must be supported
func (s *Service) SelfExclude(ctx context.Context, playerID, reason string, duration *time.Duration) (*domain.SelfExclusion, error) {
	now := time.Now().UTC()

	exclusion := &domain.SelfExclusion{
		ID:        uuid.New().String(),
		PlayerID:  playerID,
		Reason:    reason,
		StartedAt: now,
		IsActive:  true,
		CreatedAt: now,
	}
	if duration != nil {
		expiresAt := now.Add(*duration)
		exclusion.ExpiresAt = &expiresAt
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO self_exclusions (id, player_id, reason, started_at, expires_at, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, exclusion.ID, exclusion.PlayerID, exclusion.Reason, exclusion.StartedAt,
		exclusion.ExpiresAt, exclusion.IsActive, exclusion.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create self-exclusion: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE players SET status = $1, updated_at = $2 WHERE id = $3
	`, domain.PlayerStatusExcluded, now, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to update player status: %w", err)
	}

	s.audit.Log(ctx, "self_exclusion", domain.SeverityCritical,
		fmt.Sprintf("Player self-excluded: %s", reason),
		map[string]interface{}{
			"exclusion_id": exclusion.ID,
			"expires_at":   exclusion.ExpiresAt,
			"permanent":    exclusion.ExpiresAt == nil,
		},
		audit.WithPlayer(playerID))

	return exclusion, nil
}

// IsExcluded checks if a player is currently self-excluded
// GLI-19 §2.5.5.c - Excluded players cannot access gaming
func (s *Service) IsExcluded(ctx context.Context, playerID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM self_exclusions
		WHERE player_id = $1 AND is_active = true
		AND (expires_at IS NULL OR expires_at > $2)
	`, playerID, time.Now().UTC()).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CheckDepositLimit checks if a deposit would exceed limits
// GLI-19 §2.5.5 - Limits must be enforced
func (s *Service) CheckDepositLimit(ctx context.Context, playerID string, amount domain.Money) error {
	limits, err := s.GetLimits(ctx, playerID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if !limits.EffectiveAt.Before(now) {
		return nil
	}

	checks := []struct {
		limit  *domain.Money
		window time.Duration
		label  string
	}{
		{limits.DailyDeposit, 24 * time.Hour, "daily"},
		{limits.WeeklyDeposit, 7 * 24 * time.Hour, "weekly"},
		{limits.MonthlyDeposit, 30 * 24 * time.Hour, "monthly"},
	}
	for _, check := range checks {
		if check.limit == nil {
			continue
		}
		total, err := s.transactionTotal(ctx, playerID, domain.TxTypeDeposit, now.Add(-check.window), now)
		if err != nil {
			return err
		}
		if total+amount.Amount > check.limit.Amount {
			return fmt.Errorf("%w: %s deposit limit", ErrLimitExceeded, check.label)
		}
	}
	return nil
}

// CheckWagerLimit checks if a wager would exceed limits. Called before
// every paid spin round.
// GLI-19 §2.5.5 - Limits must be enforced
func (s *Service) CheckWagerLimit(ctx context.Context, playerID string, amount domain.Money) error {
	limits, err := s.GetLimits(ctx, playerID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if !limits.EffectiveAt.Before(now) {
		return nil
	}

	checks := []struct {
		limit  *domain.Money
		window time.Duration
		label  string
	}{
		{limits.DailyWager, 24 * time.Hour, "daily"},
		{limits.WeeklyWager, 7 * 24 * time.Hour, "weekly"},
	}
	for _, check := range checks {
		if check.limit == nil {
			continue
		}
		total, err := s.transactionTotal(ctx, playerID, domain.TxTypeWager, now.Add(-check.window), now)
		if err != nil {
			return err
		}
		if total+amount.Amount > check.limit.Amount {
			return fmt.Errorf("%w: %s wager limit", ErrLimitExceeded, check.label)
		}
	}
	return nil
}

// CheckLossLimit checks realized net losses (wagers minus wins) against the
// configured loss limits.
// GLI-19 §2.5.5 - Limits must be enforced
func (s *Service) CheckLossLimit(ctx context.Context, playerID string, amount domain.Money) error {
	limits, err := s.GetLimits(ctx, playerID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if !limits.EffectiveAt.Before(now) {
		return nil
	}

	checks := []struct {
		limit  *domain.Money
		window time.Duration
		label  string
	}{
		{limits.DailyLoss, 24 * time.Hour, "daily"},
		{limits.WeeklyLoss, 7 * 24 * time.Hour, "weekly"},
	}
	for _, check := range checks {
		if check.limit == nil {
			continue
		}
		wagered, err := s.transactionTotal(ctx, playerID, domain.TxTypeWager, now.Add(-check.window), now)
		if err != nil {
			return err
		}
		won, err := s.transactionTotal(ctx, playerID, domain.TxTypeWin, now.Add(-check.window), now)
		if err != nil {
			return err
		}
		if wagered-won+amount.Amount > check.limit.Amount {
			return fmt.Errorf("%w: %s loss limit", ErrLimitExceeded, check.label)
		}
	}
	return nil
}

// upsertLimit inserts or updates a specific limit value
func (s *Service) upsertLimit(ctx context.Context, playerID string, kind LimitKind, amount int64, effectiveAt time.Time) error {
	now := time.Now().UTC()

	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM player_limits WHERE player_id = $1)", playerID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO player_limits (id, player_id, source, effective_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)
		`, uuid.New().String(), playerID, domain.LimitSourcePlayer, effectiveAt, now)
		if err != nil {
			return err
		}
	}

	var nullableAmount interface{}
	if amount > 0 {
		nullableAmount = amount
	}

	// kind is whitelisted by limitColumns before reaching here.
	query := fmt.Sprintf(
		"UPDATE player_limits SET %s = $1, effective_at = $2, updated_at = $3 WHERE player_id = $4",
		kind)
	_, err = s.db.ExecContext(ctx, query, nullableAmount, effectiveAt, now, playerID)
	return err
}

// transactionTotal sums completed transactions of one type in a window.
func (s *Service) transactionTotal(ctx context.Context, playerID string, txType domain.TransactionType, from, to time.Time) (int64, error) {
	var total sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM transactions
		WHERE player_id = $1 AND type = $2 AND status = 'completed'
		AND created_at >= $3 AND created_at <= $4
	`, playerID, txType, from, to).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total.Int64, nil
}
