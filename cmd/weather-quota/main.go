package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	httpapi "github.com/i474232898/weather-quota/internal/api/http"
	"github.com/i474232898/weather-quota/internal/config"
	"github.com/i474232898/weather-quota/internal/ledger"
	"github.com/i474232898/weather-quota/internal/metrics"
	"github.com/i474232898/weather-quota/internal/scheduler"
	"github.com/i474232898/weather-quota/internal/weather"
	"github.com/i474232898/weather-quota/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(log)

	if cfg.WeatherAPIKey == "" {
		log.Warn("WEATHERAPI_API_KEY is not set; provider requests will be rejected upstream")
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// Process-wide access ledger; counts live only as long as the process.
	accessLedger := ledger.NewMemory()
	monitor := cfg.Monitor()

	provider := providers.NewWeatherAPIProvider(httpClient, cfg.WeatherAPIKey, cfg.WeatherAPIBaseURL)

	// Core service: accounting, admission control and forecast retrieval.
	service := weather.NewService(accessLedger, monitor, provider,
		weather.WithRecorder(m),
		weather.WithLogger(log),
	)

	// Scheduler that periodically reports quota usage.
	sched := scheduler.New(accessLedger, monitor, m, cfg.UsageReportInterval, log)
	if err := sched.Start(); err != nil {
		log.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "weather-quota",
		DisableStartupMessage: true,
		Immutable:             true,
		Concurrency:           cfg.MaxConcurrentQueries,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
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

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-quota",
		})
	})
	app.Get("/metrics", m.Handler())

	// API routes.
	httpapi.RegisterRoutes(app, service)

	go func() {
		log.Info("listening", "port", cfg.Port, "hard_limit", monitor.HardLimit, "warn_fraction", monitor.WarnFraction)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("fiber server stopped", "error", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "error", err)
	}
	log.Info("shutdown complete", "total_accesses", accessLedger.Total())
}
