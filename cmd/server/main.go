package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/laughtrack/comedy-ticketing/internal/booking"
	"github.com/laughtrack/comedy-ticketing/internal/config"
	"github.com/laughtrack/comedy-ticketing/internal/database"
	"github.com/laughtrack/comedy-ticketing/internal/handler"
	"github.com/laughtrack/comedy-ticketing/internal/payment"
	"github.com/laughtrack/comedy-ticketing/internal/queue"
	"github.com/laughtrack/comedy-ticketing/internal/repository"
	"github.com/laughtrack/comedy-ticketing/internal/router"
	queue_publisher "github.com/laughtrack/comedy-ticketing/internal/service"
	"github.com/laughtrack/comedy-ticketing/internal/show"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment

	cfg := config.Load()
	rateCfg := config.LoadRateLimitConfig()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient() // nil when Redis is unreachable; features degrade

	// Repositories.
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	shows := repository.NewShowRepo(db)
	inventory := repository.NewInventoryRepo(db)
	bookings := repository.NewBookingRepo(db)
	feeConfig := repository.NewFeeConfigRepo(db, rdb, time.Duration(cfg.FeeCacheTTLSec)*time.Second)
	txRunner := repository.NewTxRunner(db)

	// Services.
	gateway := payment.New(cfg.PaymentKeyID, cfg.PaymentSecret)
	bookingSvc := booking.NewService(txRunner, inventory, bookings, shows, feeConfig, gateway,
		queue_publisher.PublishBookingConfirmed,
		time.Duration(cfg.BookingHoldMin)*time.Minute)
	showSvc := show.NewService(txRunner, shows, inventory, bookings)

	// Background workers: the expiry sweep and the confirmation consumer.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go booking.StartSweeper(ctx, bookingSvc, time.Duration(cfg.SweepIntervalSec)*time.Second)
	go func() {
		if err := queue.StartBookingConsumer(); err != nil {
			log.Printf("booking consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	router.Register(e, router.Deps{
		Cfg:       cfg,
		RateCfg:   rateCfg,
		Redis:     rdb,
		Auth:      handler.NewAuthHandler(cfg, users, tokens),
		Shows:     handler.NewShowHandler(showSvc),
		Bookings:  handler.NewBookingHandler(bookingSvc),
		Webhooks:  handler.NewWebhookHandler(gateway, bookingSvc),
		FeeConfig: handler.NewFeeConfigHandler(feeConfig),
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
