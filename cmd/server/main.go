package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zerosight/zerosight-go/internal/classify"
	"github.com/zerosight/zerosight-go/internal/config"
	"github.com/zerosight/zerosight-go/internal/handlers"
	"github.com/zerosight/zerosight-go/internal/samples"
	"github.com/zerosight/zerosight-go/internal/server"
	"github.com/zerosight/zerosight-go/internal/sse"
	zstls "github.com/zerosight/zerosight-go/internal/tls"
	"github.com/zerosight/zerosight-go/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	logger := server.SetupLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rules, err := cfg.LoadRules()
	if err != nil {
		logger.Error("failed to load rules", "err", err, "file", cfg.RulesFile)
		os.Exit(1)
	}
	logger.Info("rules loaded",
		"file", cfg.RulesFile,
		"ephemeral_hosts", len(rules.EphemeralHosts),
		"brand_tokens", len(rules.BrandTokens),
		"shorteners", len(rules.Shorteners),
		"phishing_keywords", len(rules.PhishingKeywords),
	)

	// Init components
	engine := classify.NewEngine(rules)
	store := samples.NewStore(cfg.MaxSamples)
	sseHub := sse.NewHub(logger)
	wsManager := ws.NewManager(store, logger)

	// HTTP handlers
	linkHandler := handlers.NewLinkHandler(engine, store, sseHub, wsManager, cfg.LatestLimit, logger)
	streamHandler := handlers.NewStreamHandler(sseHub, store)
	router := handlers.NewRouter(linkHandler, streamHandler, wsManager.HandleWS, cfg.CORSOrigins)

	// Start background goroutines
	go server.RunWithRecovery(ctx, logger, "ws-ping", wsManager.PingLoop)

	if cfg.TLSEnabled() {
		certs := zstls.NewCertManager(cfg.TLSDomains, cfg.ACMEEmail, cfg.Production, logger)
		go func() {
			if err := certs.ListenAndServe(ctx, router); err != nil {
				logger.Error("TLS server failed", "err", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE + WebSocket need unlimited write time
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutdown signal received")
		cancel() // stop background goroutines

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "err", err)
		}
	}()

	logger.Info("server starting", "addr", srv.Addr, "tls", cfg.TLSEnabled())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
