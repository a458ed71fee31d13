package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ochre-shop/internal/auth"
	"ochre-shop/internal/config"
	"ochre-shop/internal/database"
	"ochre-shop/internal/handler"
	"ochre-shop/internal/notify"
	"ochre-shop/internal/payment"
	"ochre-shop/internal/repository"
	"ochre-shop/internal/router"
	"ochre-shop/internal/service"
	"ochre-shop/internal/session"

	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting ochre-shop API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// Session carts live in Redis
	redisClient, err := session.NewClient(ctx, cfg.Redis, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize redis: %w", err)
	}
	defer redisClient.Close()
	cartStore := session.NewRedisCartStore(redisClient, cfg.Session.TTL, logger)

	// Initialize repositories
	catalogRepo := repository.NewCatalogRepository(pool, logger)
	cartRepo := repository.NewCartRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	bookingRepo := repository.NewBookingRepository(pool, logger)
	userRepo := repository.NewUserRepository(pool, logger)

	gateway := payment.NewGateway(cfg.Gateway, logger)
	if !gateway.Configured() {
		logger.Warn().Msg("payment gateway keys not set, checkout will not take payments")
	}

	notifier := notify.NewDispatcher(newHooks(ctx, cfg, logger), 0, logger)

	// Initialize services
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	catalogService := service.NewCatalogService(catalogRepo, logger)
	cartService := service.NewCartService(cartRepo, catalogRepo, cartStore, logger)
	checkoutService := service.NewCheckoutService(cartRepo, orderRepo, gateway, cfg.Gateway.Currency, logger)
	paymentService := service.NewPaymentService(orderRepo, cartRepo, userRepo, gateway, notifier, logger)
	orderService := service.NewOrderService(orderRepo, logger)
	bookingService := service.NewBookingService(bookingRepo, catalogRepo, gateway, cfg.Gateway.Currency, logger)
	authService := service.NewAuthService(userRepo, cartService, tokens, logger)

	// Initialize HTTP handlers
	handlers := router.Handlers{
		Catalog: handler.NewCatalogHandler(catalogService, logger),
		Cart:    handler.NewCartHandler(cartService, logger),
		Orders:  handler.NewOrderHandler(checkoutService, orderService, logger),
		Payment: handler.NewPaymentHandler(paymentService, bookingService, logger),
		Booking: handler.NewBookingHandler(bookingService, logger),
		Auth:    handler.NewAuthHandler(authService, cfg.Auth.TokenTTL, cfg.Session.Secure, logger),
		Staff:   handler.NewStaffHandler(catalogService, orderService, bookingService, logger),
	}

	// Initialize router
	mux := router.New(handlers, tokens, cfg.Auth, cfg.Session, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// newHooks builds the post-payment hooks. Receipts go to S3 when enabled and
// to the local directory otherwise or when the upload fails.
func newHooks(ctx context.Context, cfg *config.Config, logger zerolog.Logger) []notify.Hook {
	receipts := cfg.Receipts
	fileStore := notify.NewFileReceiptStore(receipts.LocalDir, logger)

	var s3Store notify.ReceiptStore
	if receipts.S3Enabled {
		store, err := notify.NewS3ReceiptStore(ctx, receipts.Bucket, receipts.Region, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 receipt store, falling back to local file system only")
		} else {
			s3Store = store
		}
	} else {
		logger.Info().Msg("using local file system for receipts (S3 disabled)")
	}

	store := notify.NewFallbackReceiptStore(s3Store, fileStore, receipts.Prefix, receipts.S3Enabled, logger)

	return []notify.Hook{
		notify.NewEmailHook(cfg.Email, logger),
		notify.NewSMSHook(cfg.SMS, logger),
		notify.NewReceiptArchiveHook(store),
	}
}
