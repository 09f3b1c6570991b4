// Package netgame provides the typed wire contract and client for the
// slot engine integration API
package netgame

import (
	"encoding/json"
	"time"
)

// Error codes returned by the integration API
const (
	ErrUnexpectedError     = "UNEXPECTED_ERROR"
	ErrNotAuthorized       = "NOT_AUTHORIZED"
	ErrInvalidRequest      = "INVALID_REQUEST"
	ErrInvalidBet          = "INVALID_BET"
	ErrInsufficientBalance = "INSUFFICIENT_BALANCE"
	ErrGameNotFound        = "GAME_NOT_FOUND"
	ErrSessionNotFound     = "SESSION_NOT_FOUND"
	ErrSessionNotActive    = "SESSION_NOT_ACTIVE"
	ErrGamingDisabled      = "GAMING_DISABLED"
	ErrLimitReached        = "LIMIT_REACHED"
)

// Win categories on the wire.
const (
	CategoryNone  = "none"
	CategoryWin   = "win"
	CategoryBonus = "bonus"
)

// APIError represents an error response from the API
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// Response wraps the API response with either result or error
type Response[T any] struct {
	Result *T        `json:"result,omitempty"`
	Error  *APIError `json:"error,omitempty"`
}

// GameInfo is one catalog entry.
type GameInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	MaxLines int    `json:"maxLines"`
	MinBet   int64  `json:"minBet"`
	MaxBet   int64  `json:"maxBet"`
	Currency string `json:"currency"`
	Enabled  bool   `json:"enabled"`
}

// GamesResult is the result of a catalog query.
type GamesResult struct {
	Games []GameInfo `json:"games"`
}

// StartSessionRequest is the request body for /integration/session/start
type StartSessionRequest struct {
	PlayerID string `json:"playerId"`
	GameID   string `json:"gameId"`
}

// SessionResult describes a game session.
type SessionResult struct {
	SessionID string `json:"sessionId"`
	PlayerID  string `json:"playerId"`
	GameID    string `json:"gameId"`
	Status    string `json:"status"`
	Balance   int64  `json:"balance"`
	Currency  string `json:"currency"`
}

// EndSessionRequest is the request body for /integration/session/end
type EndSessionRequest struct {
	SessionID string `json:"sessionId"`
}

// SpinRequest is the request body for /integration/spin. BetPerLine is in
// the game's denomination units; both fields are ignored while free games
// are in flight.
type SpinRequest struct {
	SessionID  string `json:"sessionId"`
	BetPerLine int64  `json:"betPerLine"`
	Lines      int    `json:"lines"`
}

// WinLine is one winning combination in a spin result.
type WinLine struct {
	Line      int      `json:"line"`
	Symbol    string   `json:"symbol"`
	Count     int      `json:"count"`
	Ways      int      `json:"ways,omitempty"`
	Payout    int64    `json:"payout"`
	Positions [][2]int `json:"positions,omitempty"`
	Wild      bool     `json:"wild,omitempty"`
}

// SpinResult is the settled outcome of one spin round.
type SpinResult struct {
	CycleID string `json:"cycleId"`

	Grid  [][]string `json:"grid"`
	Stops []int      `json:"stops"`
	Wins  []WinLine  `json:"wins"`

	TotalBet int64  `json:"totalBet"`
	TotalWin int64  `json:"totalWin"`
	Category string `json:"category"`

	Scatters         int  `json:"scatters"`
	FreeSpinsAwarded int  `json:"freeSpinsAwarded"`
	FreeSpinsLeft    int  `json:"freeSpinsLeft"`
	FreeGame         bool `json:"freeGame"`

	Balance  int64  `json:"balance"`
	Currency string `json:"currency"`
}

// BalanceRequest is the request body for /integration/balance
type BalanceRequest struct {
	PlayerID string `json:"playerId"`
}

// BalanceResult is the result of a balance query
type BalanceResult struct {
	Balance  int64  `json:"balance"`
	Currency string `json:"currency"`
}

// HistoryRequest is the request body for /integration/history
type HistoryRequest struct {
	PlayerID string `json:"playerId"`
	Limit    int    `json:"limit,omitempty"`
}

// HistoryEntry is one recalled spin round.
type HistoryEntry struct {
	CycleID  string          `json:"cycleId"`
	GameID   string          `json:"gameId"`
	PlayedAt time.Time       `json:"playedAt"`
	Wager    int64           `json:"wager"`
	Win      int64           `json:"win"`
	FreeGame bool            `json:"freeGame"`
	Outcome  json.RawMessage `json:"outcome,omitempty"`
}

// HistoryResult is the result of a history query.
type HistoryResult struct {
	Rounds []HistoryEntry `json:"rounds"`
}

// ClientConfig holds the configuration for the integration client
type ClientConfig struct {
	BaseURL    string
	APIKey     string
	APISecret  string
	Timeout    time.Duration
	RetryCount int
}

// DefaultConfig returns a default client configuration
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		Timeout:    30 * time.Second,
		RetryCount: 3,
	}
}
