package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/xiaot623/studyclub/internal/adapter/llm"
	"github.com/xiaot623/studyclub/internal/chatstore"
	"github.com/xiaot623/studyclub/internal/config"
	"github.com/xiaot623/studyclub/internal/hub"
	"github.com/xiaot623/studyclub/internal/metrics"
	"github.com/xiaot623/studyclub/internal/policy"
	"github.com/xiaot623/studyclub/internal/repository"
	"github.com/xiaot623/studyclub/internal/service"
	handler "github.com/xiaot623/studyclub/internal/transport/http"
	"github.com/xiaot623/studyclub/internal/transport/rpc"
	"github.com/xiaot623/studyclub/internal/transport/ws"
)

func main() {
	if err := run(); err != nil {
		slog.Error("studyclub exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	logger.Info("starting studyclub chat service",
		"http_port", cfg.HTTPPort,
		"storage", cfg.StorageBackend,
		"llm_provider", cfg.LLMProvider,
		"message_ttl", cfg.MessageTTL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	backend, err := repository.Open(ctx, repository.Options{
		Kind:        cfg.StorageBackend,
		Key:         cfg.StorageKey,
		DatabaseURL: cfg.DatabaseURL,
		Redis: repository.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		},
		NATS: repository.NATSOptions{
			URL:    cfg.NATSURL,
			Bucket: cfg.NATSBucket,
		},
	})
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer backend.Close()

	// Initialize LLM client
	llmClient, err := llm.NewLLMClient(llm.Options{
		Provider: cfg.LLMProvider,
		APIKey:   cfg.LLMAPIKey,
		BaseURL:  cfg.LLMBaseURL,
		Model:    cfg.LLMModel,
		Timeout:  cfg.LLMTimeout,
	})
	if err != nil {
		return fmt.Errorf("init llm client: %w", err)
	}

	// Initialize policy engine
	policyEngine, err := policy.NewEngineFromFile(ctx, cfg.PolicyFile)
	if err != nil {
		return fmt.Errorf("init policy engine: %w", err)
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	store := chatstore.New(backend, llmClient,
		chatstore.WithTTL(cfg.MessageTTL),
		chatstore.WithLogger(logger.With("component", "chatstore")),
		chatstore.WithMetrics(m),
		chatstore.WithSystemPrompt(cfg.LLMSystemPrompt),
		chatstore.WithModel(cfg.LLMModel),
	)

	connectionHub := hub.NewHub(logger.With("component", "hub"))
	go connectionHub.Run(ctx)

	svc := service.New(store, llmClient, policyEngine,
		service.WithNotifier(connectionHub),
		service.WithLogger(logger.With("component", "service")),
		service.WithPruneInterval(cfg.PruneInterval),
	)
	go svc.RunPruneSweeper(ctx)

	wsServer := ws.NewServer(cfg, connectionHub, svc, logger.With("component", "ws"))
	server := handler.NewServer(svc, connectionHub, wsServer, registry)

	errCh := make(chan error, 2)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	logger.Info("http server started", "port", cfg.HTTPPort)

	var rpcServer *rpc.Server
	if cfg.RPCPort > 0 {
		rpcServer, err = rpc.NewServer(svc, logger.With("component", "rpc"))
		if err != nil {
			return fmt.Errorf("init rpc server: %w", err)
		}
		go func() {
			if err := rpcServer.Start(fmt.Sprintf(":%d", cfg.RPCPort)); err != nil {
				errCh <- fmt.Errorf("rpc server: %w", err)
			}
		}()
		logger.Info("rpc server started", "port", cfg.RPCPort)
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	logger.Info("shutting down studyclub chat service")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("failed to shutdown http server gracefully", "error", err)
	}
	if rpcServer != nil {
		if err := rpcServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("failed to shutdown rpc server gracefully", "error", err)
		}
	}

	logger.Info("studyclub chat service stopped")
	return nil
}

func newLogger(level, format string) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if strings.ToLower(format) == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
