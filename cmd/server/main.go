package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/iudanet/themeshop/internal/config"
	"github.com/iudanet/themeshop/internal/server"
	"github.com/iudanet/themeshop/internal/server/handlers"
	"github.com/iudanet/themeshop/internal/server/metrics"
	"github.com/iudanet/themeshop/internal/server/middleware"
	"github.com/iudanet/themeshop/internal/server/payment"
	"github.com/iudanet/themeshop/internal/server/payment/stripe"
	"github.com/iudanet/themeshop/internal/server/storage"
	"github.com/iudanet/themeshop/internal/server/storage/memory"
	"github.com/iudanet/themeshop/internal/server/storage/sqlite"
	"github.com/iudanet/themeshop/internal/server/token"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to YAML config file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	// Show version and exit if requested
	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	cfg := config.MustLoad(*configPath)

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("themeshop server starting",
		slog.String("version", Version),
		slog.String("addr", cfg.HTTP.Addr()),
		slog.String("refresh_store", cfg.Auth.RefreshStore))

	// Хранилище пользователей, токенов и журнала заказов
	store, err := sqlite.New(ctx, cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close storage", slog.Any("error", err))
		}
	}()

	var refreshStore storage.TokenStorage = store
	if cfg.Auth.RefreshStore == config.RefreshStoreMemory {
		// индекс теряется при рестарте: все сессии придется открывать заново
		refreshStore = memory.NewTokenStorage()
	}

	tokens, err := token.NewService(token.Config{
		Issuer:          cfg.Auth.Issuer,
		Secret:          []byte(cfg.Auth.JWTSecret),
		AccessTokenTTL:  cfg.Auth.AccessTokenTTL,
		RefreshTokenTTL: cfg.Auth.RefreshTokenTTL,
	}, refreshStore)
	if err != nil {
		return fmt.Errorf("failed to create token service: %w", err)
	}

	gateway, err := stripe.New(stripe.Config{
		APIKey:                   cfg.Payment.StripeAPIKey,
		WebhookSecret:            cfg.Payment.WebhookSecret,
		APIURL:                   cfg.Payment.APIURL,
		InsecureSkipVerification: cfg.Payment.InsecureSkipWebhookVerification,
		HTTPTimeout:              cfg.Payment.GatewayTimeout,
		MaxNetworkRetries:        cfg.Payment.MaxNetworkRetries,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create payment gateway: %w", err)
	}
	if cfg.Payment.InsecureSkipWebhookVerification {
		logger.Warn("webhook signature verification is DISABLED")
	}

	// Метрики
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	coordinator := payment.NewCoordinator(payment.Config{
		Currency:       cfg.Payment.Currency,
		SuccessURL:     cfg.Payment.SuccessURL,
		CancelURL:      cfg.Payment.CancelURL,
		GatewayTimeout: cfg.Payment.GatewayTimeout,
		PendingTTL:     cfg.Payment.PendingTTL,
		SweepInterval:  cfg.Payment.SweepInterval,
	}, gateway, store, logger)
	coordinator.SetRecorder(collector)

	authHandler := handlers.NewAuthHandler(logger, store, tokens)
	authHandler.SetRefreshObserver(collector)

	var authLimiter *middleware.RateLimiter
	if !cfg.RateLimit.Disabled {
		authLimiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:              rate.Limit(cfg.RateLimit.RequestsPerSecond),
			Burst:             cfg.RateLimit.Burst,
			CleanupInterval:   cfg.RateLimit.CleanupInterval,
			TrustProxyHeaders: cfg.RateLimit.TrustProxyHeaders,
		}, logger)
		defer authLimiter.Stop()
	}

	router := server.NewRouter(server.Options{
		Logger:    logger,
		Auth:      authHandler,
		Checkout:  handlers.NewCheckoutHandler(logger, coordinator, store),
		Health:    handlers.NewHealthHandler(logger, store, Version),
		Verifier:  tokens,
		Observer:  collector,
		Gatherer:  reg,
		AuthLimit: authLimiter,
	})

	// Фоновые задачи: очистка просроченных сессий и refresh токенов
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		coordinator.Run(ctx)
	}()
	if cfg.Auth.CleanupInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tokens.RunCleanup(ctx, cfg.Auth.CleanupInterval, logger)
		}()
	}

	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	serveErrCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case serveErr = <-serveErrCh:
		logger.Error("http server failed", slog.Any("error", serveErr))
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", slog.Any("error", err))
	}

	wg.Wait()
	logger.Info("server stopped", slog.Int("pending_sessions", coordinator.PendingCount()))

	return serveErr
}

func printVersion() {
	fmt.Printf("ThemeShop Server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
