package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/adowning/netgame-sub000/internal/api"
	"github.com/adowning/netgame-sub000/internal/audit"
	"github.com/adowning/netgame-sub000/internal/auth"
	"github.com/adowning/netgame-sub000/internal/config"
	"github.com/adowning/netgame-sub000/internal/control"
	"github.com/adowning/netgame-sub000/internal/database"
	"github.com/adowning/netgame-sub000/internal/game"
	"github.com/adowning/netgame-sub000/internal/limits"
	"github.com/adowning/netgame-sub000/internal/rng"
	"github.com/adowning/netgame-sub000/internal/wallet"
	"github.com/google/uuid"
)

func main() {
	fmt.Println("🎰 RGS - Remote Gaming Server")

	cfg := config.Load()

	db, err := database.New(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	rngSvc := rng.New()
	auditSvc := audit.New(db.DB)
	walletSvc := wallet.New(db.DB, auditSvc, cfg.Game.DefaultCurrency)
	limitsSvc := limits.New(db.DB, auditSvc, cfg.Game.DefaultCurrency)

	controlSvc := control.New(db.DB, auditSvc)
	if err := controlSvc.LoadState(context.Background()); err != nil {
		log.Fatalf("Failed to load control state: %v", err)
	}

	shopID, err := ensureDefaultShop(db.DB, cfg)
	if err != nil {
		log.Fatalf("Failed to bootstrap default shop: %v", err)
	}

	authSvc := auth.New(db.DB, &cfg.Auth, auditSvc, shopID)

	gameEngine, err := game.New(db.DB, rngSvc, walletSvc, auditSvc, cfg.Game.DataDir, game.Options{
		Currency:           cfg.Game.DefaultCurrency,
		RetryCapOverride:   cfg.Game.RetryCap,
		LargeWinThreshold:  cfg.Game.LargeWinThreshold,
		DefaultShopPercent: cfg.Game.DefaultShopPercent,
	})
	if err != nil {
		log.Fatalf("Failed to load games: %v", err)
	}

	handler := api.New(authSvc, walletSvc, gameEngine, rngSvc, limitsSvc, controlSvc, cfg.Integration)
	router := handler.SetupRouter()

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	log.Printf("Listening on :%s", cfg.Server.Port)
	log.Fatal(server.ListenAndServe())
}

// ensureDefaultShop returns the default shop, creating it on first run so
// registrations always have a venue to attach to.
func ensureDefaultShop(db *sql.DB, cfg *config.Config) (string, error) {
	const name = "default"

	var id string
	err := db.QueryRow(`SELECT id FROM shops WHERE name = $1`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}

	id = uuid.New().String()
	now := time.Now().UTC()
	_, err = db.Exec(`
		INSERT INTO shops (id, name, bank_amount, bank_currency, percent, created_at, updated_at)
		VALUES ($1, $2, 0, $3, $4, $5, $5)
	`, id, name, cfg.Game.DefaultCurrency, cfg.Game.DefaultShopPercent, now)
	if err != nil {
		return "", err
	}
	return id, nil
}
