package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"castlefs/internal/agent"
	"castlefs/internal/config"
	"castlefs/internal/transport"
)

func main() {
	// Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// Setup structured logging
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	logger.Info("starting_agent",
		"broker_kind", cfg.BrokerKind,
		"request_topic", cfg.RequestTopic,
		"data_root", cfg.DataRoot,
	)

	if err := os.MkdirAll(cfg.DataRoot, 0o755); err != nil {
		log.Fatalf("Failed to create data root: %v", err)
	}
	store, err := agent.NewStorage(cfg.DataRoot)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}

	broker, err := transport.NewBroker(cfg.BrokerKind, cfg.RedisAddr(), cfg.RedisPassword, cfg.NatsURL)
	if err != nil {
		log.Fatalf("Failed to connect broker: %v", err)
	}

	topics := transport.Topics{
		Requests:      cfg.RequestTopic,
		Responses:     cfg.ResponseTopic,
		Notifications: cfg.NotificationTopic,
	}
	handler := agent.NewHandler(store, broker, topics)

	ctx, cancel := context.WithCancel(context.Background())

	// Start handler in goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := handler.Run(ctx); err != nil {
			errChan <- err
		}
	}()

	// Status API
	statusSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.StatusPort),
		Handler: handler.StatusRouter(),
	}
	go func() {
		logger.Info("status_api_listening", "addr", statusSrv.Addr)
		if err := statusSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("received_shutdown_signal")
	case err := <-errChan:
		logger.Error("agent_error", "error", err.Error())
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = statusSrv.Shutdown(shutdownCtx)
	_ = broker.Close()
	logger.Info("agent_stopped_gracefully")
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
