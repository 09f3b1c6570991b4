package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/adowning/netgame-sub000/internal/audit"
	"github.com/adowning/netgame-sub000/internal/config"
	"github.com/adowning/netgame-sub000/internal/database"
	"github.com/google/uuid"
)

func setupTestAuth(t *testing.T) (*Service, func()) {
	t.Helper()

	// Create PostgreSQL connection
	db, err := database.New("postgres", "host=localhost dbname=rgs sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}

	if err := db.Migrate(); err != nil {
		t.Logf("Migration note: %v", err)
	}

	if err := db.CleanData(); err != nil {
		t.Fatalf("Failed to clean data: %v", err)
	}

	shopID := uuid.New().String()
	_, err = db.DB.Exec(`
		INSERT INTO shops (id, name, bank_amount, bank_currency, percent, created_at, updated_at)
		VALUES ($1, 'auth-test-shop', 0, 'USD', 90, NOW(), NOW())
	`, shopID)
	if err != nil {
		t.Fatalf("Failed to create test shop: %v", err)
	}

	auditSvc := audit.New(db.DB)
	cfg := &config.AuthConfig{
		JWTSecret:         "test-secret-key-12345",
		TokenExpiry:       1 * time.Hour,
		SessionTimeout:    30 * time.Minute,
		MaxFailedAttempts: 3,
		LockoutDuration:   15 * time.Minute,
	}

	svc := New(db.DB, cfg, auditSvc, shopID)

	return svc, func() {
		db.CleanData()
		db.Close()
	}
}

func TestRegister(t *testing.T) {
	svc, cleanup := setupTestAuth(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("SuccessfulRegistration", func(t *testing.T) {
		player, err := svc.Register(ctx, &RegisterRequest{
			Username: "testuser",
			Email:    "test@example.com",
			Password: "password123",
			AcceptTC: true,
		}, "127.0.0.1")

		if err != nil {
			t.Fatalf("Registration failed: %v", err)
		}

		if player.ID == "" {
			t.Error("Expected player ID")
		}
		if player.Username != "testuser" {
			t.Errorf("Expected username 'testuser', got '%s'", player.Username)
		}
		if player.Email != "test@example.com" {
			t.Errorf("Expected email 'test@example.com', got '%s'", player.Email)
		}
		if player.ShopID != svc.defaultShopID {
			t.Errorf("Expected player attached to default shop, got '%s'", player.ShopID)
		}
	})

	t.Run("DuplicateUsername", func(t *testing.T) {
		_, err := svc.Register(ctx, &RegisterRequest{
			Username: "testuser",
			Email:    "other@example.com",
			Password: "password123",
			AcceptTC: true,
		}, "127.0.0.1")

		if !errors.Is(err, ErrUserExists) {
			t.Errorf("Expected ErrUserExists, got %v", err)
		}
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		_, err := svc.Register(ctx, &RegisterRequest{
			Username: "otheruser",
			Email:    "test@example.com",
			Password: "password123",
			AcceptTC: true,
		}, "127.0.0.1")

		if !errors.Is(err, ErrUserExists) {
			t.Errorf("Expected ErrUserExists, got %v", err)
		}
	})

	t.Run("ShortPassword", func(t *testing.T) {
		_, err := svc.Register(ctx, &RegisterRequest{
			Username: "validuser",
			Email:    "valid@example.com",
			Password: "short",
			AcceptTC: true,
		}, "127.0.0.1")

		if err == nil {
			t.Error("Expected error for short password")
		}
	})

	t.Run("TCNotAccepted", func(t *testing.T) {
		_, err := svc.Register(ctx, &RegisterRequest{
			Username: "tcuser",
			Email:    "tc@example.com",
			Password: "password123",
			AcceptTC: false,
		}, "127.0.0.1")

		if err == nil {
			t.Error("Expected error when T&C not accepted")
		}
	})
}

func TestLogin(t *testing.T) {
	svc, cleanup := setupTestAuth(t)
	defer cleanup()

	ctx := context.Background()

	player, err := svc.Register(ctx, &RegisterRequest{
		Username: "loginuser",
		Email:    "login@example.com",
		Password: "password123",
		AcceptTC: true,
	}, "127.0.0.1")
	if err != nil {
		t.Fatalf("Failed to register test player: %v", err)
	}

	t.Run("SuccessfulLogin", func(t *testing.T) {
		result, err := svc.Login(ctx, &LoginRequest{
			Username: "loginuser",
			Password: "password123",
		}, "127.0.0.1", "TestAgent")

		if err != nil {
			t.Fatalf("Login failed: %v", err)
		}

		if result.Token == "" {
			t.Error("Expected token")
		}
		if result.Player.ID != player.ID {
			t.Errorf("Expected player ID '%s', got '%s'", player.ID, result.Player.ID)
		}
		if result.Session.ID == "" {
			t.Error("Expected session ID")
		}
	})

	t.Run("WrongPassword", func(t *testing.T) {
		_, err := svc.Login(ctx, &LoginRequest{
			Username: "loginuser",
			Password: "wrongpassword",
		}, "127.0.0.1", "TestAgent")

		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("UnknownUsername", func(t *testing.T) {
		_, err := svc.Login(ctx, &LoginRequest{
			Username: "nosuchuser",
			Password: "password123",
		}, "127.0.0.1", "TestAgent")

		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Expected ErrInvalidCredentials, got %v", err)
		}
	})
}

func TestValidateToken(t *testing.T) {
	svc, cleanup := setupTestAuth(t)
	defer cleanup()

	ctx := context.Background()

	_, err := svc.Register(ctx, &RegisterRequest{
		Username: "tokenuser",
		Email:    "token@example.com",
		Password: "password123",
		AcceptTC: true,
	}, "127.0.0.1")
	if err != nil {
		t.Fatalf("Failed to register test player: %v", err)
	}

	loginResult, loginErr := svc.Login(ctx, &LoginRequest{
		Username: "tokenuser",
		Password: "password123",
	}, "127.0.0.1", "TestAgent")
	if loginErr != nil {
		t.Fatalf("Login failed: %v", loginErr)
	}

	t.Run("ValidToken", func(t *testing.T) {
		session, player, err := svc.ValidateToken(ctx, loginResult.Token)
		if err != nil {
			t.Fatalf("Token validation failed: %v", err)
		}

		if session.PlayerID == "" {
			t.Error("Expected player ID in session")
		}
		if player.Username != "tokenuser" {
			t.Errorf("Expected username 'tokenuser', got '%s'", player.Username)
		}
	})

	t.Run("InvalidToken", func(t *testing.T) {
		_, _, err := svc.ValidateToken(ctx, "invalid-token")
		if err == nil {
			t.Error("Expected error for invalid token")
		}
	})

	t.Run("TamperedToken", func(t *testing.T) {
		// Tamper with the token
		tampered := loginResult.Token + "tampered"
		_, _, err := svc.ValidateToken(ctx, tampered)
		if err == nil {
			t.Error("Expected error for tampered token")
		}
	})
}

func TestLogout(t *testing.T) {
	svc, cleanup := setupTestAuth(t)
	defer cleanup()

	ctx := context.Background()

	_, err := svc.Register(ctx, &RegisterRequest{
		Username: "logoutuser",
		Email:    "logout@example.com",
		Password: "password123",
		AcceptTC: true,
	}, "127.0.0.1")
	if err != nil {
		t.Fatalf("Failed to register test player: %v", err)
	}

	loginResult, loginErr := svc.Login(ctx, &LoginRequest{
		Username: "logoutuser",
		Password: "password123",
	}, "127.0.0.1", "TestAgent")
	if loginErr != nil {
		t.Fatalf("Login failed: %v", loginErr)
	}

	t.Run("SuccessfulLogout", func(t *testing.T) {
		// Validate token first
		session, _, err := svc.ValidateToken(ctx, loginResult.Token)
		if err != nil {
			t.Fatalf("Token should be valid before logout: %v", err)
		}

		// Logout using session ID
		err = svc.Logout(ctx, session.ID)
		if err != nil {
			t.Fatalf("Logout failed: %v", err)
		}

		// Token should be invalid after logout
		_, _, err = svc.ValidateToken(ctx, loginResult.Token)
		if err == nil {
			t.Error("Token should be invalid after logout")
		}
	})
}

func TestAccountLockout(t *testing.T) {
	svc, cleanup := setupTestAuth(t)
	defer cleanup()

	ctx := context.Background()

	_, err := svc.Register(ctx, &RegisterRequest{
		Username: "lockoutuser",
		Email:    "lockout@example.com",
		Password: "password123",
		AcceptTC: true,
	}, "127.0.0.1")
	if err != nil {
		t.Fatalf("Failed to register test player: %v", err)
	}

	t.Run("LockedAfterMaxFailures", func(t *testing.T) {
		for i := 0; i < svc.config.MaxFailedAttempts; i++ {
			_, err := svc.Login(ctx, &LoginRequest{
				Username: "lockoutuser",
				Password: "wrongpassword",
			}, "127.0.0.1", "TestAgent")
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("Attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
			}
		}

		// Even the correct password is rejected while locked out
		_, err := svc.Login(ctx, &LoginRequest{
			Username: "lockoutuser",
			Password: "password123",
		}, "127.0.0.1", "TestAgent")
		if !errors.Is(err, ErrAccountLocked) {
			t.Errorf("Expected ErrAccountLocked, got %v", err)
		}
	})

	t.Run("OtherAccountsUnaffected", func(t *testing.T) {
		_, err := svc.Register(ctx, &RegisterRequest{
			Username: "freshuser",
			Email:    "fresh@example.com",
			Password: "password123",
			AcceptTC: true,
		}, "127.0.0.1")
		if err != nil {
			t.Fatalf("Failed to register: %v", err)
		}

		result, err := svc.Login(ctx, &LoginRequest{
			Username: "freshuser",
			Password: "password123",
		}, "127.0.0.1", "TestAgent")
		if err != nil {
			t.Fatalf("Expected successful login, got: %v", err)
		}
		if result.Token == "" {
			t.Error("Expected token")
		}
	})
}
