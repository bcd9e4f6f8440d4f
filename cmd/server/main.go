package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/railgate/ticketing/internal/config"
	"github.com/railgate/ticketing/internal/database"
	"github.com/railgate/ticketing/internal/handler"
	"github.com/railgate/ticketing/internal/queue"
	"github.com/railgate/ticketing/internal/repository"
	"github.com/railgate/ticketing/internal/router"
	"github.com/railgate/ticketing/internal/token"
)

func main() {
	_ = godotenv.Load() // optional .env for local development
	cfg := config.Load()

	var (
		users   repository.UserStore
		tickets repository.TicketStore
	)
	if cfg.DBHost != "" {
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := database.EnsureSchema(ctx, db); err != nil {
			cancel()
			log.Fatalf("database schema: %v", err)
		}
		cancel()
		users = repository.NewUserRepo(db, cfg.DefaultBalance)
		tickets = repository.NewTicketRepo(db)
	} else {
		// No database configured: fall back to the in-memory store.
		// State is lost on restart; development only.
		log.Printf("DB_HOST unset, using in-memory store")
		mem := repository.NewMemoryStore(cfg.DefaultBalance)
		users = mem
		tickets = mem
	}

	codec := token.NewCodec(cfg.TokenSecret)
	validity := time.Duration(cfg.ValidityMin) * time.Minute

	userHandler := handler.NewUserHandler(users, tickets)
	walletHandler := handler.NewWalletHandler(users)
	ticketHandler := handler.NewTicketHandler(users, tickets, codec, validity)
	gateHandler := handler.NewGateHandler(tickets)

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterRider(e, userHandler, walletHandler, ticketHandler)
	router.RegisterGate(e, gateHandler, cfg, config.LoadRateLimitConfig(), config.NewRedisClient())

	// Background audit consumer; runs its own reconnect loop.
	go func() {
		if err := queue.StartGateAuditConsumer(); err != nil {
			log.Printf("gate-audit consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
