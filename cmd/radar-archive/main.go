package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/radar-archive/internal/api/http"
	"github.com/i474232898/radar-archive/internal/app"
	"github.com/i474232898/radar-archive/internal/config"
	"github.com/i474232898/radar-archive/internal/geo"
	"github.com/i474232898/radar-archive/internal/scheduler"
	"github.com/i474232898/radar-archive/internal/store"
)

func main() {
	// Load configuration (.env, environment and the user settings file).
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Registry, bucket backends with resilience, search and downloads.
	components, err := app.Build(cfg, nil)
	if err != nil {
		log.Fatalf("failed to initialise services: %v", err)
	}

	// In-memory sync ledger with configured retention.
	ledger := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)

	// Scheduler that periodically downloads the latest window of each target.
	if len(cfg.SyncTargets) > 0 && cfg.Settings.BaseDir == "" {
		log.Printf("WARN: SYNC_TARGETS set without a base directory; sync runs will fail until RADAR_BASE_DIR is configured")
	}
	sched := scheduler.New(cfg.SyncTargets, scheduler.Options{
		Interval: cfg.SyncInterval,
		Window:   cfg.SyncWindow,
		Protocol: cfg.SyncProtocol,
		NThreads: cfg.NThreads,
	}, components.Downloads, ledger)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	var geocoder geo.Geocoder
	if cfg.GeocoderAPIKey != "" {
		geocoder = geo.NewGoogle(cfg.GeocoderAPIKey)
	}

	// Basic app configuration
	server := fiber.New(fiber.Config{
		AppName:               "radar-archive",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          cfg.HTTPTimeout + 10*time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	server.Use(logger.New())
	server.Use(recover.New())

	// Basic health endpoint
	server.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ok",
			"service":  "radar-archive",
			"networks": components.Registry.AvailableNetworks(),
		})
	})

	// API routes.
	httpapi.RegisterRoutes(server, httpapi.Deps{
		Registry: components.Registry,
		Search:   components.Search,
		Ledger:   ledger,
		Geocoder: geocoder,
		Metrics:  components.Metrics,
	})

	go func() {
		log.Printf("INFO: listening on :%s", cfg.Port)
		if err := server.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
