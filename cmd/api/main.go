package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fasthttp/router"
	"github.com/joho/godotenv"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	deliveryHttp "web3-gateway/internal/adapter/delivery/http"
	"web3-gateway/internal/adapter/rpc"
	"web3-gateway/internal/adapter/storage/memory"
	"web3-gateway/internal/application"
	"web3-gateway/internal/config"
	"web3-gateway/internal/logger"
)

func main() {
	// --- Environment ---
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: failed to load .env: %v", err)
	}

	// --- Configuration ---
	cfgPath := "configs"
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load configuration from %s: %v", cfgPath, err)
	}

	// --- Logger ---
	appLogger, err := logger.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("Failed to setup logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()
	appLogger.Info("Logger initialized", zap.Any("config", cfg.Logger))

	// --- Dependency Injection (Manual) ---
	appLogger.Info("Initializing dependencies...")

	clients, err := rpc.NewClientFactory(*cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to configure RPC clients", zap.Error(err))
	}
	counters := memory.NewCounterRepository(cfg.RateLimit, appLogger)

	queryService := application.NewQueryService(clients, appLogger, *cfg)

	corpus, err := deliveryHttp.LoadLoreCorpus()
	if err != nil {
		appLogger.Fatal("Failed to load lore corpus", zap.Error(err))
	}
	gate := deliveryHttp.NewAuthGate(cfg.Auth, corpus, appLogger)
	limiter := deliveryHttp.NewRateLimiter(counters, cfg.RateLimit, appLogger)
	queryHandler := deliveryHttp.NewQueryHandler(queryService, cfg.Confirmations.GetDefault(), appLogger)

	// --- HTTP Router & Server ---
	appLogger.Info("Setting up HTTP router...")
	r := router.New()
	deliveryHttp.RegisterRoutes(r, queryHandler, gate, appLogger)

	server := &fasthttp.Server{
		Handler: deliveryHttp.NewHandler(r, limiter, gate, appLogger),
		Name:    cfg.App.Name,
	}

	serverAddr := ":" + cfg.Server.Port
	serverErr := make(chan error, 1)
	go func() {
		appLogger.Info("Starting HTTP server",
			zap.String("address", serverAddr),
			zap.String("defaultChain", cfg.Chain.Default),
			zap.Int("apiKeys", len(cfg.Auth.APIKeys)),
		)
		serverErr <- server.ListenAndServe(serverAddr)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErr:
		if err != nil {
			appLogger.Fatal("Failed to start server", zap.Error(err))
		}
	case <-ctx.Done():
		appLogger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		appLogger.Error("Graceful shutdown failed", zap.Error(err))
		return
	}
	appLogger.Info("Server stopped")
}
