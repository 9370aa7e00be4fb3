package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/in-liberty420/xrpl-clob/internal/config"
	"github.com/in-liberty420/xrpl-clob/internal/engine"
	"github.com/in-liberty420/xrpl-clob/internal/handler"
	"github.com/in-liberty420/xrpl-clob/internal/ledger"
	"github.com/in-liberty420/xrpl-clob/internal/service"
	"github.com/in-liberty420/xrpl-clob/internal/settlement"
	"github.com/in-liberty420/xrpl-clob/internal/store"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Optional .env for local runs; real deployments set the environment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up slog logger with configured level.
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Durable settlement journal.
	journal, err := settlement.OpenJournal(cfg.JournalDir)
	if err != nil {
		logger.Error("failed to open settlement journal", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer journal.Close()

	// Ledger transport and custody payout builder.
	ledgerClient := ledger.NewClient(cfg.LedgerURL, cfg.LedgerTimeout)
	payouts := ledger.NewPaymentBuilder(ledgerClient, cfg.CustodyAccount)

	// Stores.
	orderStore := store.NewOrderStore()
	tradeStore := store.NewTradeStore()

	// Engine.
	book := engine.NewBook()
	clearing := engine.NewClearingEngine()
	coordinator := settlement.NewCoordinator(ledgerClient, payouts, journal, logger)
	scheduler := engine.NewScheduler(cfg.BatchInterval, cfg.TickInterval, book, clearing, coordinator, tradeStore, logger)

	// Services.
	orderSvc := service.NewOrderService(book, orderStore, ledgerClient, service.Ed25519Verifier{})
	revalidator := service.NewRevalidator(cfg.RevalidationInterval, book, ledgerClient, scheduler.BatchInProgress, logger)

	// Router.
	router := handler.NewRouter(orderSvc, book, clearing, scheduler, tradeStore, logger)

	// Start background loops with a cancellable context.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	scheduler.Start(ctx)
	revalidator.Start(ctx)

	// Configure HTTP server.
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Start HTTP server in a goroutine.
	go func() {
		logger.Info("server starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Wait for SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", slog.String("signal", sig.String()))

	// Graceful shutdown: stop HTTP server, cancel context (stops the
	// scheduler and revalidator loops).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	cancel()

	logger.Info("server stopped")
}
