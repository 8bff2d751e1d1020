package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kasa/internal/alert"
	"kasa/internal/cart"
	"kasa/internal/catalog"
	"kasa/internal/checkout"
	"kasa/internal/config"
	"kasa/internal/handler"
	"kasa/internal/model"
	"kasa/internal/order"
	"kasa/internal/remote"
	"kasa/internal/router"
	"kasa/internal/storage"

	"github.com/redis/go-redis/v9"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadStorefront()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger, "kasa-storefront")
	logger.Info().Msg("starting kasa storefront session service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend, closeBackend, err := newBackend(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer closeBackend()

	cartSnapshot := storage.NewSnapshot(backend, cfg.Storage.CartKey, logger,
		storage.WithValidation(model.Cart.Validate),
		storage.WithTimeout[model.Cart](cfg.Storage.Timeout))
	draftSnapshot := storage.NewSnapshot(backend, cfg.Storage.DraftKey, logger,
		storage.WithTimeout[model.OrderDraft](cfg.Storage.Timeout))

	cartStore := cart.New(ctx, cartSnapshot, logger)

	initial, ok := draftSnapshot.Load(ctx)
	if !ok {
		initial = model.NewOrderDraft()
	}
	draft := order.NewDraft(initial, logger)

	alerts := alert.NewQueue(logger)
	defer alerts.Close()

	rc := remote.NewClient(cfg.Backend.BaseURL, cfg.Backend.APIKey, cfg.Backend.Timeout, logger)
	catalogClient := catalog.NewClient(rc, cfg.Catalog.CategoryCacheTTL, logger)
	searcher := catalog.NewSearcher(catalogClient.Search, cfg.Catalog.SearchDefaultLimit)

	protocol := checkout.NewProtocol(cartStore, draft, alerts, checkout.NewHTTPSubmitter(rc), logger,
		checkout.WithAlertTimeout(cfg.Checkout.AlertTimeout))
	protocol.OnConfirmed(func(ctx context.Context, c checkout.Confirmation) {
		if c.Draft.Save {
			draftSnapshot.Save(ctx, c.Draft)
		} else {
			draftSnapshot.Clear(ctx)
			draft.Reset(model.NewOrderDraft())
		}
		cartStore.Clear(ctx)
		alerts.Enqueue("Order "+c.OrderID+" received", alert.SeverityPositive)
	})

	h := handler.NewStorefrontHandler(handler.StorefrontDeps{
		Cart:       cartStore,
		Products:   catalogClient,
		Draft:      draft,
		Checkout:   protocol,
		Alerts:     alerts,
		Searcher:   searcher,
		Categories: catalogClient,
		Currency:   cfg.Pricing.Currency,
	}, logger)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router.NewStorefront(h, cfg.Auth.APIKey, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Backend.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().
			Str("address", server.Addr).
			Str("backend", cfg.Backend.BaseURL).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		protocol.Abandon()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// newBackend opens the configured session storage. The returned func
// releases it.
func newBackend(cfg *config.StorefrontConfig) (storage.Backend, func(), error) {
	switch cfg.Storage.Backend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return storage.NewRedisBackend(rdb, cfg.Storage.TTL), func() { _ = rdb.Close() }, nil
	case "memory":
		return storage.NewMemoryBackend(), func() {}, nil
	default:
		fb, err := storage.NewFileBackend(cfg.Storage.Dir)
		if err != nil {
			return nil, nil, err
		}
		return fb, func() {}, nil
	}
}
