package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/example/semsark/internal/apperrors"
	"github.com/example/semsark/internal/config"
	"github.com/example/semsark/internal/database"
	"github.com/example/semsark/internal/gateway"
	"github.com/example/semsark/internal/routes"
	"github.com/example/semsark/internal/workers"
)

func main() {
	cfg := config.Load()
	db := database.Connect(cfg.DatabaseURL)

	var gw gateway.Client
	switch cfg.Gateway {
	case "accept":
		gw = gateway.NewAcceptClient(gateway.AcceptConfig{
			BaseURL:         cfg.AcceptBaseURL,
			APIKey:          cfg.AcceptAPIKey,
			ProfileID:       cfg.AcceptProfileID,
			Currency:        cfg.Currency,
			NotificationURL: cfg.CallbackURL,
			Timeout:         cfg.GatewayTimeout,
		})
	case "paymob":
		gw = gateway.NewPaymobClient(gateway.PaymobConfig{
			BaseURL:       cfg.PaymobBaseURL,
			APIKey:        cfg.PaymobAPIKey,
			IframeID:      cfg.PaymobIframeID,
			IntegrationID: cfg.PaymobIntegrationID,
			Currency:      cfg.Currency,
			Timeout:       cfg.GatewayTimeout,
		})
	default:
		log.Fatalf("unknown payment gateway %q", cfg.Gateway)
	}

	app := fiber.New(fiber.Config{
		AppName:      "Semsark Backend",
		ErrorHandler: apperrors.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New())

	routes.Register(app, db, gw, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	expiry := workers.NewPaymentExpiryWorker(db, cfg.PendingPaymentTTL, cfg.ExpirySweepInterval)
	expiry.Start(ctx)

	log.Printf("Starting server on :%s", cfg.AppPort)
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Fatalf("fiber.Listen error: %v", err)
	}
}
