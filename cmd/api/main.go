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

	"kasa/internal/config"
	"kasa/internal/coupon"
	"kasa/internal/database"
	"kasa/internal/handler"
	"kasa/internal/model"
	"kasa/internal/repository"
	"kasa/internal/router"
	"kasa/internal/service"
	"kasa/internal/storage"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger, "kasa-api")
	logger.Info().Msg("starting kasa catalog and checkout API")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Database.MigrateOnStart {
		if err := database.Migrate(cfg.Database.ConnectionString(), logger); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	productRepo := repository.NewProductRepository(pool, logger)
	categoryRepo := repository.NewCategoryRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)

	var coupons coupon.Checker
	if len(cfg.Coupon.Files) > 0 {
		checker, err := coupon.NewChecker(ctx, coupon.Config{
			Names:         cfg.Coupon.Files,
			MinMatchCount: cfg.Coupon.MinMatchCount,
		}, couponSource(ctx, cfg.S3, logger), logger)
		if err != nil {
			return fmt.Errorf("failed to initialize coupon checker: %w", err)
		}
		defer checker.Close()
		coupons = checker
	} else {
		logger.Info().Msg("no coupon files configured, coupons are accepted as entered")
	}

	var treeCache service.TreeCache
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		treeCache = storage.NewSnapshot[[]model.Category](
			storage.NewRedisBackend(rdb, cfg.Catalog.CategoryCacheTTL), "kasa:categories", logger)
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("category tree cached in redis")
	}

	catalogService := service.NewCatalogService(productRepo, categoryRepo, treeCache, cfg.Catalog, logger)
	orderService := service.NewOrderService(orderRepo, productRepo, coupons, logger)

	catalogHandler := handler.NewCatalogHandler(catalogService, logger)
	checkoutHandler := handler.NewCheckoutHandler(orderService, logger)

	mux := router.NewAPI(catalogHandler, checkoutHandler, cfg.Auth.APIKey, logger)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return serve(server, logger)
}

// couponSource reads coupon lists from S3 when enabled, falling back to the
// local files when the bucket cannot serve one.
func couponSource(ctx context.Context, cfg config.S3Config, logger zerolog.Logger) coupon.Source {
	files := coupon.NewFileSource()
	if !cfg.Enabled {
		logger.Info().Msg("using local file system for coupon files (S3 disabled)")
		return files
	}

	client, err := coupon.NewS3Client(ctx, cfg.Region)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to initialise S3 client, falling back to local file system only")
		return files
	}
	return coupon.NewFallbackSource(coupon.NewS3Source(client, cfg.Bucket, cfg.Prefix), files, logger)
}

func serve(server *http.Server, logger zerolog.Logger) error {
	serverErrors := make(chan error, 1)

	go func() {
		logger.Info().
			Str("address", server.Addr).
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
