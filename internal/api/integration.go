// Package api - Operator integration endpoints
//
// Serves the wire contract from pkg/netgame. Operator platforms drive
// sessions and spins over these endpoints instead of the player-facing
// JWT routes; authentication is API key plus body HMAC.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/adowning/netgame-sub000/internal/control"
	"github.com/adowning/netgame-sub000/internal/game"
	"github.com/adowning/netgame-sub000/internal/limits"
	"github.com/adowning/netgame-sub000/pkg/netgame"
)

// wireResponse mirrors netgame.Response on the server side.
type wireResponse struct {
	Result interface{}       `json:"result,omitempty"`
	Error  *netgame.APIError `json:"error,omitempty"`
}

func respondIntegration(w http.ResponseWriter, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(wireResponse{Result: result})
}

func respondIntegrationError(w http.ResponseWriter, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(wireResponse{
		Error: &netgame.APIError{Code: code, Message: message},
	})
}

// integrationError translates service errors to wire error codes.
func integrationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrGameNotFound):
		respondIntegrationError(w, netgame.ErrGameNotFound, "Game not found")
	case errors.Is(err, game.ErrGameDisabled), errors.Is(err, control.ErrGameDisabled):
		respondIntegrationError(w, netgame.ErrGamingDisabled, "Game is currently disabled")
	case errors.Is(err, control.ErrGamingDisabled):
		respondIntegrationError(w, netgame.ErrGamingDisabled, "Gaming is currently disabled")
	case errors.Is(err, control.ErrPlayerDisabled), errors.Is(err, limits.ErrPlayerExcluded):
		respondIntegrationError(w, netgame.ErrNotAuthorized, "Player is not permitted to play")
	case errors.Is(err, game.ErrSessionNotFound):
		respondIntegrationError(w, netgame.ErrSessionNotFound, "Game session not found")
	case errors.Is(err, game.ErrSessionNotActive):
		respondIntegrationError(w, netgame.ErrSessionNotActive, "Game session is not active")
	case errors.Is(err, game.ErrInvalidWager):
		respondIntegrationError(w, netgame.ErrInvalidBet, "Bet is outside the configured levels")
	case errors.Is(err, game.ErrInsufficientBalance):
		respondIntegrationError(w, netgame.ErrInsufficientBalance, "Insufficient balance")
	case errors.Is(err, limits.ErrLimitExceeded):
		respondIntegrationError(w, netgame.ErrLimitReached, "Responsible-gaming limit reached")
	default:
		respondIntegrationError(w, netgame.ErrUnexpectedError, err.Error())
	}
}

// IntegrationGames handles POST /integration/games
func (h *Handler) IntegrationGames(w http.ResponseWriter, r *http.Request) {
	games := h.game.GetGames()

	result := netgame.GamesResult{Games: make([]netgame.GameInfo, len(games))}
	for i, g := range games {
		result.Games[i] = netgame.GameInfo{
			ID:       g.ID,
			Name:     g.Name,
			Type:     g.Type,
			MaxLines: g.MaxLines,
			MinBet:   g.MinBet.Amount,
			MaxBet:   g.MaxBet.Amount,
			Currency: g.MinBet.Currency,
			Enabled:  g.Enabled && h.control.IsGameEnabled(g.ID),
		}
	}

	respondIntegration(w, result)
}

// IntegrationStartSession handles POST /integration/session/start
func (h *Handler) IntegrationStartSession(w http.ResponseWriter, r *http.Request) {
	var req netgame.StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondIntegrationError(w, netgame.ErrInvalidRequest, "Invalid request body")
		return
	}

	if err := h.control.CheckAccess(r.Context(), req.PlayerID, req.GameID); err != nil {
		integrationError(w, err)
		return
	}
	if excluded, err := h.limits.IsExcluded(r.Context(), req.PlayerID); err == nil && excluded {
		integrationError(w, limits.ErrPlayerExcluded)
		return
	}

	session, err := h.game.StartSession(r.Context(), req.PlayerID, req.GameID)
	if err != nil {
		integrationError(w, err)
		return
	}

	respondIntegration(w, netgame.SessionResult{
		SessionID: session.ID,
		PlayerID:  session.PlayerID,
		GameID:    session.GameID,
		Status:    string(session.Status),
		Balance:   session.OpeningBalance.Amount,
		Currency:  session.OpeningBalance.Currency,
	})
}

// IntegrationEndSession handles POST /integration/session/end
func (h *Handler) IntegrationEndSession(w http.ResponseWriter, r *http.Request) {
	var req netgame.EndSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondIntegrationError(w, netgame.ErrInvalidRequest, "Invalid request body")
		return
	}

	session, err := h.game.EndSession(r.Context(), req.SessionID)
	if err != nil {
		integrationError(w, err)
		return
	}

	respondIntegration(w, netgame.SessionResult{
		SessionID: session.ID,
		PlayerID:  session.PlayerID,
		GameID:    session.GameID,
		Status:    string(session.Status),
		Balance:   session.CurrentBalance.Amount,
		Currency:  session.CurrentBalance.Currency,
	})
}

// IntegrationSpin handles POST /integration/spin
func (h *Handler) IntegrationSpin(w http.ResponseWriter, r *http.Request) {
	var req netgame.SpinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondIntegrationError(w, netgame.ErrInvalidRequest, "Invalid request body")
		return
	}

	session, err := h.game.GetSession(r.Context(), req.SessionID)
	if err != nil {
		integrationError(w, err)
		return
	}
	if err := h.control.CheckAccess(r.Context(), session.PlayerID, session.GameID); err != nil {
		integrationError(w, err)
		return
	}

	playReq := &game.PlayRequest{
		SessionID:  req.SessionID,
		BetPerLine: req.BetPerLine,
		Lines:      req.Lines,
	}
	if err := h.checkWagerLimits(r, session.PlayerID, session.GameID, playReq); err != nil {
		integrationError(w, err)
		return
	}

	result, err := h.game.Play(r.Context(), playReq)
	if err != nil {
		integrationError(w, err)
		return
	}

	respondIntegration(w, spinWire(result))
}

// spinWire flattens a settled round to the integration wire format.
func spinWire(result *game.PlayResult) netgame.SpinResult {
	out := result.Outcome

	grid := make([][]string, len(out.Grid))
	for i, reel := range out.Grid {
		grid[i] = make([]string, len(reel))
		for j, sym := range reel {
			grid[i][j] = string(sym)
		}
	}

	wins := make([]netgame.WinLine, len(out.Wins))
	for i, wl := range out.Wins {
		wins[i] = netgame.WinLine{
			Line:      wl.Line,
			Symbol:    string(wl.Symbol),
			Count:     wl.Count,
			Ways:      int(wl.Ways),
			Payout:    wl.Payout,
			Positions: wl.Positions,
			Wild:      wl.Wild,
		}
	}

	return netgame.SpinResult{
		CycleID:          result.Cycle.ID,
		Grid:             grid,
		Stops:            out.Stops,
		Wins:             wins,
		TotalBet:         result.Cycle.WagerAmount.Amount,
		TotalWin:         result.Cycle.WinAmount.Amount,
		Category:         string(out.Category),
		Scatters:         out.Scatters,
		FreeSpinsAwarded: out.FreeSpinsAwarded,
		FreeSpinsLeft:    result.FreeSpinsLeft,
		FreeGame:         result.FreeGame,
		Balance:          result.Balance.Amount,
		Currency:         result.Balance.Currency,
	}
}

// IntegrationBalance handles POST /integration/balance
func (h *Handler) IntegrationBalance(w http.ResponseWriter, r *http.Request) {
	var req netgame.BalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondIntegrationError(w, netgame.ErrInvalidRequest, "Invalid request body")
		return
	}

	balance, err := h.wallet.GetBalance(r.Context(), req.PlayerID)
	if err != nil {
		integrationError(w, err)
		return
	}

	respondIntegration(w, netgame.BalanceResult{
		Balance:  balance.Available.Amount,
		Currency: balance.Currency,
	})
}

// IntegrationHistory handles POST /integration/history
func (h *Handler) IntegrationHistory(w http.ResponseWriter, r *http.Request) {
	var req netgame.HistoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondIntegrationError(w, netgame.ErrInvalidRequest, "Invalid request body")
		return
	}

	recalls, err := h.game.GetHistory(r.Context(), req.PlayerID, req.Limit)
	if err != nil {
		integrationError(w, err)
		return
	}

	result := netgame.HistoryResult{Rounds: make([]netgame.HistoryEntry, len(recalls))}
	for i, recall := range recalls {
		result.Rounds[i] = netgame.HistoryEntry{
			CycleID:  recall.CycleID,
			GameID:   recall.GameID,
			PlayedAt: recall.PlayedAt,
			Wager:    recall.WagerAmount.Amount,
			Win:      recall.WinAmount.Amount,
			FreeGame: recall.FreeGame,
			Outcome:  recall.Outcome,
		}
	}

	respondIntegration(w, result)
}
