package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	httpapi "github.com/lnhm/plant-sensor-pipeline/internal/api/http"
	"github.com/lnhm/plant-sensor-pipeline/internal/config"
	"github.com/lnhm/plant-sensor-pipeline/internal/pipeline"
	"github.com/lnhm/plant-sensor-pipeline/internal/plants"
	"github.com/lnhm/plant-sensor-pipeline/internal/scheduler"
	"github.com/lnhm/plant-sensor-pipeline/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	st, err := store.Open(ctx, cfg.DatabaseURL())
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer st.Close()

	if err := st.EnsureSchema(ctx); err != nil {
		log.Fatalf("failed to apply schema: %v", err)
	}

	// Shared HTTP client for outbound API calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	client := plants.NewClient(httpClient, cfg.PlantAPIURL)
	loader := store.NewLoader(st)
	runner := pipeline.New(client, loader, cfg.BatchSize)

	// Scheduler that runs the full pipeline on the configured interval.
	sched := scheduler.New(runner, cfg.FetchInterval)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "plant-sensor-pipeline",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		if err := st.Ping(c.Context()); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "database connection error")
		}
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "plant-sensor-pipeline",
		})
	})

	httpapi.RegisterRoutes(app, st)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal.
	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-sigCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
