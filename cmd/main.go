package main

import (
	"context"
	"os"

	"github.com/deedhouse/deedhouse/internal/auction/application"
	auctionhttp "github.com/deedhouse/deedhouse/internal/auction/infra/http"
	auctionpg "github.com/deedhouse/deedhouse/internal/auction/infra/repository/postgres"
	auctionws "github.com/deedhouse/deedhouse/internal/auction/infra/websocket"
	paymentsapp "github.com/deedhouse/deedhouse/internal/payments/application"
	paymentshttp "github.com/deedhouse/deedhouse/internal/payments/infra/http"
	paymentspg "github.com/deedhouse/deedhouse/internal/payments/infra/repository/postgres"
	registryapp "github.com/deedhouse/deedhouse/internal/registry/application"
	registryhttp "github.com/deedhouse/deedhouse/internal/registry/infra/http"
	registrypg "github.com/deedhouse/deedhouse/internal/registry/infra/repository/postgres"
	"github.com/deedhouse/deedhouse/internal/shared/db"
	"github.com/deedhouse/deedhouse/internal/shared/db/migrations"
	"github.com/deedhouse/deedhouse/internal/shared/events"
	"github.com/deedhouse/deedhouse/internal/shared/httpserver"
	"github.com/deedhouse/deedhouse/internal/shared/logger"
	"github.com/deedhouse/deedhouse/internal/shared/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting deedhouse server...")

	log.Info("Running database migrations...")
	if err := migrations.RunMigrations(); err != nil {
		log.Fatal("Database migration failed", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.GetPostgresDBPool(ctx)
	if err != nil {
		log.Fatal("Database connection failed", zap.Error(err))
	}
	defer pool.Close()

	// The engine identity doubles as its registry holder id and its escrow
	// account. It must be stable across restarts.
	engineID, err := uuid.Parse(os.Getenv("ENGINE_ID"))
	if err != nil {
		log.Fatal("ENGINE_ID must be a valid UUID", zap.Error(err))
	}

	hub := websocket.NewHub()
	go hub.Run(ctx)

	publishers := events.Fanout{websocket.NewHubPublisher(hub)}
	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		natsPub, err := events.NewNATSPublisher(natsURL)
		if err != nil {
			log.Fatal("NATS connection failed", zap.Error(err))
		}
		defer natsPub.Close()
		publishers = append(publishers, natsPub)
	}

	ledger := paymentsapp.NewLedger(paymentspg.NewAccountRepository(pool))
	treasury := paymentsapp.NewEngineTreasury(ledger, paymentspg.NewClaimRepository(pool), engineID)

	registry := registryapp.NewRegistryService(registrypg.NewDeedRepository(pool), publishers)

	engine := application.NewAuctionService(application.EngineDeps{
		Auctions: auctionpg.NewAuctionRepository(pool),
		Registry: registry,
		Treasury: treasury,
		EngineID: engineID,
		Events:   publishers,
	})

	server := httpserver.NewServer()
	auctionhttp.NewHandlers(engine).Register(server.App())
	registryhttp.NewHandlers(registry).Register(server.App())
	paymentshttp.NewHandlers(ledger, treasury).Register(server.App())
	auctionws.RegisterRoutes(server.App(), hub, ctx)

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":9000"
	}
	if err := server.Start(addr); err != nil {
		log.Fatal("HTTP server failed", zap.Error(err))
	}
}
