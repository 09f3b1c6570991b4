package netgame

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is a slot engine integration API client
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
}

// NewClient creates a new integration API client
func NewClient(config *ClientConfig) *Client {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// NewClientWithHTTPClient creates a new integration API client with a custom HTTP client
func NewClientWithHTTPClient(config *ClientConfig, httpClient *http.Client) *Client {
	return &Client{
		config:     config,
		httpClient: httpClient,
	}
}

// computeHMAC computes the HMAC-SHA256 signature for the request body
func (c *Client) computeHMAC(body []byte) string {
	h := hmac.New(sha256.New, []byte(c.config.APISecret))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// doRequest performs an HTTP request with HMAC signing
func (c *Client) doRequest(ctx context.Context, endpoint string, reqBody interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.config.BaseURL + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.config.APIKey)
	req.Header.Set("x-api-hmac", c.computeHMAC(bodyBytes))

	var resp *http.Response
	var lastErr error
	retryCount := c.config.RetryCount
	if retryCount == 0 {
		retryCount = 1
	}

	for i := 0; i < retryCount; i++ {
		resp, err = c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		break
	}

	if resp == nil {
		return fmt.Errorf("request failed after %d retries: %w", retryCount, lastErr)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	return nil
}

// GetGames lists the available games.
func (c *Client) GetGames(ctx context.Context) (*GamesResult, error) {
	var resp Response[GamesResult]
	if err := c.doRequest(ctx, "/integration/games", struct{}{}, &resp); err != nil {
		return nil, err
	}

	if resp.Error != nil {
		return nil, resp.Error
	}

	return resp.Result, nil
}

// StartSession opens a game session for a player.
func (c *Client) StartSession(ctx context.Context, playerID, gameID string) (*SessionResult, error) {
	req := &StartSessionRequest{
		PlayerID: playerID,
		GameID:   gameID,
	}

	var resp Response[SessionResult]
	if err := c.doRequest(ctx, "/integration/session/start", req, &resp); err != nil {
		return nil, err
	}

	if resp.Error != nil {
		return nil, resp.Error
	}

	return resp.Result, nil
}

// EndSession closes a game session.
func (c *Client) EndSession(ctx context.Context, sessionID string) (*SessionResult, error) {
	req := &EndSessionRequest{SessionID: sessionID}

	var resp Response[SessionResult]
	if err := c.doRequest(ctx, "/integration/session/end", req, &resp); err != nil {
		return nil, err
	}

	if resp.Error != nil {
		return nil, resp.Error
	}

	return resp.Result, nil
}

// Spin runs one spin round. While free games are in flight the bet fields
// are ignored and the triggering stake is replayed.
func (c *Client) Spin(ctx context.Context, req *SpinRequest) (*SpinResult, error) {
	var resp Response[SpinResult]
	if err := c.doRequest(ctx, "/integration/spin", req, &resp); err != nil {
		return nil, err
	}

	if resp.Error != nil {
		return nil, resp.Error
	}

	return resp.Result, nil
}

// GetBalance retrieves the player's current balance
func (c *Client) GetBalance(ctx context.Context, playerID string) (*BalanceResult, error) {
	req := &BalanceRequest{PlayerID: playerID}

	var resp Response[BalanceResult]
	if err := c.doRequest(ctx, "/integration/balance", req, &resp); err != nil {
		return nil, err
	}

	if resp.Error != nil {
		return nil, resp.Error
	}

	return resp.Result, nil
}

// GetHistory retrieves recent spin rounds for a player, newest first.
func (c *Client) GetHistory(ctx context.Context, playerID string, limit int) (*HistoryResult, error) {
	req := &HistoryRequest{PlayerID: playerID, Limit: limit}

	var resp Response[HistoryResult]
	if err := c.doRequest(ctx, "/integration/history", req, &resp); err != nil {
		return nil, err
	}

	if resp.Error != nil {
		return nil, resp.Error
	}

	return resp.Result, nil
}
