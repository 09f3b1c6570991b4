// Package netgame provides the typed wire contract and an HTTP client for
// the slot engine integration API.
//
// Operator platforms use this API to drive spin rounds against the engine
// without importing its internals: sessions, spins, balances and round
// history all travel over a small JSON contract.
//
// # Authentication
//
// All API requests are authenticated using:
//   - API Key: Sent in the x-api-key header
//   - HMAC Signature: SHA256 hash of the request body, sent in x-api-hmac header
//
// # Basic Usage
//
//	client := netgame.NewClient(&netgame.ClientConfig{
//	    BaseURL:   "https://rgs.example.net",
//	    APIKey:    "your-api-key",
//	    APISecret: "your-api-secret",
//	})
//
//	// Open a session
//	session, err := client.StartSession(ctx, playerID, "fortune-lines")
//
//	// Run a spin
//	result, err := client.Spin(ctx, &netgame.SpinRequest{
//	    SessionID:  session.SessionID,
//	    BetPerLine: 10,
//	    Lines:      20,
//	})
//
// # Error Handling
//
// API errors are returned as *APIError with a Code field indicating the error type:
//
//	result, err := client.Spin(ctx, req)
//	if apiErr, ok := err.(*netgame.APIError); ok {
//	    switch apiErr.Code {
//	    case netgame.ErrInsufficientBalance:
//	        // Handle insufficient funds
//	    case netgame.ErrInvalidBet:
//	        // Handle a bet outside the configured levels
//	    }
//	}
package netgame
