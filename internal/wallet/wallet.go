// Package wallet provides balance and transaction management
// Compliant with GLI-19 §2.5.6: Financial Transactions, §2.5.7: Transaction Log
package wallet

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
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrPlayerNotFound    = errors.New("player not found")

	// ErrConflict means the balance changed between read and write. The
	// caller retries the whole operation on a fresh read.
	ErrConflict = errors.New("balance version conflict")
)

// Service provides wallet functionality
type Service struct {
	db       *sql.DB
	audit    *audit.Service
	currency string
}

// New creates a new wallet service
func New(db *sql.DB, auditSvc *audit.Service, currency string) *Service {
	return &Service{
		db:       db,
		audit:    auditSvc,
		currency: currency,
	}
}

// GetBalance retrieves the current balance for a player (GLI-19 §2.5.7)
func (s *Service) GetBalance(ctx context.Context, playerID string) (*domain.Balance, error) {
	var realAmount, bonusAmount, version int64
	var realCurrency, bonusCurrency string
	var updatedAt time.Time

	err := s.db.QueryRowContext(ctx, `
		SELECT real_money_amount, real_money_currency, bonus_amount, bonus_currency, version, updated_at
		FROM balances WHERE player_id = $1
	`, playerID).Scan(&realAmount, &realCurrency, &bonusAmount, &bonusCurrency, &version, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}

	realMoney := domain.Money{Amount: realAmount, Currency: realCurrency}
	bonus := domain.Money{Amount: bonusAmount, Currency: bonusCurrency}

	return &domain.Balance{
		PlayerID:     playerID,
		RealMoney:    realMoney,
		BonusBalance: bonus,
		Available:    realMoney.Add(bonus),
		Currency:     realCurrency,
		Version:      version,
		UpdatedAt:    updatedAt,
	}, nil
}

// applyTransaction moves the balance by the signed delta and records the
// transaction, all inside one database transaction. The balance write is
// version checked: if another writer got in between the read and this
// update no row matches, and the caller gets ErrConflict instead of a
// silently overwritten balance (GLI-19 §2.5.6 - no lost updates).
func (s *Service) applyTransaction(ctx context.Context, playerID string, delta int64, txType domain.TransactionType, reference, description string) (*domain.Transaction, error) {
	balance, err := s.GetBalance(ctx, playerID)
	if err != nil {
		return nil, err
	}

	if delta < 0 && balance.RealMoney.Amount+delta < 0 {
		return nil, ErrInsufficientFunds
	}

	now := time.Now().UTC()
	amount := delta
	if amount < 0 {
		amount = -amount
	}
	newBalance := domain.Money{Amount: balance.RealMoney.Amount + delta, Currency: balance.Currency}

	tx := &domain.Transaction{
		ID:            uuid.New().String(),
		PlayerID:      playerID,
		Type:          txType,
		Amount:        domain.Money{Amount: amount, Currency: balance.Currency},
		BalanceBefore: balance.RealMoney,
		BalanceAfter:  newBalance,
		Status:        domain.TxStatusCompleted,
		Reference:     reference,
		Description:   description,
		CreatedAt:     now,
		CompletedAt:   &now,
	}

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer dbTx.Rollback()

	result, err := dbTx.ExecContext(ctx, `
		UPDATE balances SET real_money_amount = $1, version = version + 1, updated_at = $2
		WHERE player_id = $3 AND version = $4
	`, newBalance.Amount, now, playerID, balance.Version)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrConflict
	}

	_, err = dbTx.ExecContext(ctx, `
		INSERT INTO transactions (id, player_id, type, amount, currency, balance_before, balance_after, status, reference, description, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, tx.ID, tx.PlayerID, tx.Type, tx.Amount.Amount, tx.Amount.Currency,
		tx.BalanceBefore.Amount, tx.BalanceAfter.Amount, tx.Status, tx.Reference, tx.Description, tx.CreatedAt, tx.CompletedAt)
	if err != nil {
		return nil, err
	}

	if err := dbTx.Commit(); err != nil {
		return nil, err
	}
	return tx, nil
}

// Deposit adds funds to a player's account (GLI-19 §2.5.6)
func (s *Service) Deposit(ctx context.Context, playerID string, amount domain.Money, reference string) (*domain.Transaction, error) {
	if amount.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	tx, err := s.applyTransaction(ctx, playerID, amount.Amount, domain.TxTypeDeposit, reference, "Deposit")
	if err != nil {
		return nil, err
	}

	s.audit.Log(ctx, audit.EventDeposit, domain.SeverityInfo,
		fmt.Sprintf("Deposit of %.2f %s", amount.Float64(), amount.Currency),
		map[string]interface{}{
			"transaction_id": tx.ID,
			"amount":         amount.Float64(),
			"currency":       amount.Currency,
		},
		audit.WithPlayer(playerID))

	return tx, nil
}

// Withdraw removes funds from a player's account (GLI-19 §2.5.6)
func (s *Service) Withdraw(ctx context.Context, playerID string, amount domain.Money, reference string) (*domain.Transaction, error) {
	if amount.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	tx, err := s.applyTransaction(ctx, playerID, -amount.Amount, domain.TxTypeWithdrawal, reference, "Withdrawal")
	if err != nil {
		return nil, err
	}

	s.audit.Log(ctx, audit.EventWithdrawal, domain.SeverityInfo,
		fmt.Sprintf("Withdrawal of %.2f %s", amount.Float64(), amount.Currency),
		map[string]interface{}{
			"transaction_id": tx.ID,
			"amount":         amount.Float64(),
			"currency":       amount.Currency,
		},
		audit.WithPlayer(playerID))

	return tx, nil
}

// PlaceWager deducts the stake for a spin round (GLI-19 §4.3.3)
func (s *Service) PlaceWager(ctx context.Context, playerID string, amount domain.Money, gameID, cycleID string) (*domain.Transaction, error) {
	if amount.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return s.applyTransaction(ctx, playerID, -amount.Amount, domain.TxTypeWager,
		cycleID, fmt.Sprintf("Wager on %s", gameID))
}

// CreditWin adds winnings to a player's balance (GLI-19 §4.3.3)
func (s *Service) CreditWin(ctx context.Context, playerID string, amount domain.Money, gameID, cycleID string) (*domain.Transaction, error) {
	if amount.Amount < 0 {
		return nil, ErrInvalidAmount
	}
	if amount.Amount == 0 {
		return nil, nil // No win to credit
	}
	return s.applyTransaction(ctx, playerID, amount.Amount, domain.TxTypeWin,
		cycleID, fmt.Sprintf("Win on %s", gameID))
}

// RefundWager returns a held stake after a failed spin round. The refund
// references the original cycle so the transaction log pairs them up.
func (s *Service) RefundWager(ctx context.Context, playerID string, amount domain.Money, gameID, cycleID string) (*domain.Transaction, error) {
	if amount.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	tx, err := s.applyTransaction(ctx, playerID, amount.Amount, domain.TxTypeRefund,
		cycleID, fmt.Sprintf("Refund of wager on %s", gameID))
	if err != nil {
		return nil, err
	}

	s.audit.Log(ctx, audit.EventBalanceAdjustment, domain.SeverityWarning,
		fmt.Sprintf("Refunded wager of %.2f %s", amount.Float64(), amount.Currency),
		map[string]interface{}{
			"transaction_id": tx.ID,
			"cycle_id":       cycleID,
			"game_id":        gameID,
		},
		audit.WithPlayer(playerID))

	return tx, nil
}

// GetTransactions retrieves transaction history for a player (GLI-19 §2.5.7)
func (s *Service) GetTransactions(ctx context.Context, playerID string, limit int) ([]*domain.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, player_id, type, amount, currency, balance_before, balance_after, status, reference, description, created_at, completed_at
		FROM transactions WHERE player_id = $1 ORDER BY created_at DESC LIMIT $2
	`, playerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []*domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		var amount, balBefore, balAfter int64
		var currency, reference, description string
		var completedAt sql.NullTime

		err := rows.Scan(&tx.ID, &tx.PlayerID, &tx.Type, &amount, &currency,
			&balBefore, &balAfter, &tx.Status, &reference, &description,
			&tx.CreatedAt, &completedAt)
		if err != nil {
			return nil, err
		}

		tx.Amount = domain.Money{Amount: amount, Currency: currency}
		tx.BalanceBefore = domain.Money{Amount: balBefore, Currency: currency}
		tx.BalanceAfter = domain.Money{Amount: balAfter, Currency: currency}
		tx.Reference = reference
		tx.Description = description
		if completedAt.Valid {
			tx.CompletedAt = &completedAt.Time
		}

		transactions = append(transactions, &tx)
	}

	return transactions, nil
}
