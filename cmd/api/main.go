package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"stockflow/internal/auth"
	"stockflow/internal/cache"
	"stockflow/internal/config"
	"stockflow/internal/events"
	"stockflow/internal/events/kafka"
	"stockflow/internal/handler"
	"stockflow/internal/identity"
	"stockflow/internal/metrics"
	"stockflow/internal/middleware"
	"stockflow/internal/repository"
	"stockflow/internal/repository/memory"
	"stockflow/internal/service"
	"stockflow/internal/ws"
	"stockflow/pkg/database"
	"stockflow/pkg/jwt"
	"stockflow/pkg/logger"
	"stockflow/pkg/tracing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

const serviceName = "stockflow-api"

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("invalid configuration")
	}
	logger.Init(serviceName, cfg.IsDevelopment())
	logger.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := tracing.InitTracer(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to initialize tracing")
	}

	// 2. Setup storage
	store, closeStore := openStore(cfg)
	defer closeStore()

	// 3. Setup WebSocket hub and event fan-out
	wsHub := ws.NewHub()
	go wsHub.Run(ctx)

	notifiers := events.Fanout{wsHub}
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			logger.Logger.Warn().Err(err).Msg("Kafka unavailable, stock events go to websocket only")
		} else {
			defer publisher.Close()
			notifiers = append(notifiers, publisher)
		}
	}

	var listCache cache.Cache = cache.Nop{}
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Logger.Warn().Err(err).Msg("Redis unavailable, list caching disabled")
		} else {
			defer redisCache.Close()
			listCache = redisCache
		}
	}

	sessions, err := newSessionVerifier(cfg)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to load session verification key")
	}

	// 4. Dependency Injection (Wiring Layers)
	identityClient := identity.NewClient(cfg.IdentityAPIURL, cfg.IdentitySecretKey)
	if cfg.IdentitySecretKey == "" {
		logger.Logger.Warn().Msg("IDENTITY_SECRET_KEY not set, user deletion will fail at the identity provider")
	}

	categoryService := service.NewCategoryService(store, listCache, cfg.CacheTTL)
	supplierService := service.NewSupplierService(store, listCache, cfg.CacheTTL)
	productService := service.NewProductService(store, listCache, cfg.CacheTTL, cfg.SKUAllocationAttempts)
	transactionService := service.NewTransactionService(store, notifiers, listCache, service.TransactionPolicy{
		ReverseOnUpdate: cfg.ReverseOnUpdate,
		RestoreOnDelete: cfg.RestoreOnDelete,
	})
	userService := service.NewUserService(store, identityClient)
	dashService := service.NewDashboardService(store, cfg.LowStockThreshold)
	syncService := service.NewIdentitySyncService(store.Users())

	routes := handler.Routes{
		Policy:       auth.DefaultPolicy(cfg.TransactionListPolicy == config.ListPolicyStaff),
		Users:        store.Users(),
		Sessions:     sessions,
		Categories:   handler.NewCategoryHandler(categoryService),
		Suppliers:    handler.NewSupplierHandler(supplierService),
		Products:     handler.NewProductHandler(productService),
		Transactions: handler.NewTransactionHandler(transactionService),
		UsersAPI:     handler.NewUserHandler(userService),
		Dashboard:    handler.NewDashboardHandler(dashService),
	}
	if cfg.WebhookSecret != "" {
		verifier, err := identity.NewSignatureVerifier(cfg.WebhookSecret)
		if err != nil {
			logger.Logger.Fatal().Err(err).Msg("invalid WEBHOOK_SECRET")
		}
		routes.Webhook = handler.NewWebhookHandler(verifier, syncService)
	} else {
		logger.Logger.Warn().Msg("WEBHOOK_SECRET not set, identity webhook disabled")
	}

	// 5. Setup Fiber
	app := fiber.New(handler.Config())

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.CORSAllowedOrigins}))
	app.Use(middleware.Tracing(serviceName))
	app.Use(middleware.RequestLogger())
	app.Use(middleware.Metrics())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "store": cfg.Store})
	})
	app.Get("/metrics", metrics.Handler())

	// 6. Routes
	handler.RegisterRoutes(app, routes)

	// WebSocket Route
	app.Use("/ws", ws.Upgrade)
	app.Get("/ws", wsHub.Handler())

	// 7. Graceful Shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Logger.Error().Err(err).Msg("server stopped")
			stop()
		}
	}()
	logger.Logger.Info().Str("port", cfg.Port).Str("store", cfg.Store).Msg("StockFlow API started")

	<-ctx.Done()

	logger.Logger.Info().Msg("Shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracer(flushCtx); err != nil {
		logger.Logger.Error().Err(err).Msg("failed to flush traces")
	}

	logger.Logger.Info().Msg("Server exited")
}

func openStore(cfg *config.Config) (repository.Store, func()) {
	if cfg.Store == config.StoreMemory {
		logger.Logger.Warn().Msg("using in-memory store, data is lost on restart")
		return memory.NewStore(), func() {}
	}

	db, err := database.ConnectDB(cfg.Database)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := repository.AutoMigrate(db); err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	return repository.NewStore(db), func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}
}

func newSessionVerifier(cfg *config.Config) (*jwt.Verifier, error) {
	if cfg.JWTPublicKeyPEM != "" {
		return jwt.NewRSAVerifier([]byte(cfg.JWTPublicKeyPEM))
	}
	return jwt.NewHMACVerifier([]byte(cfg.JWTSecret)), nil
}
