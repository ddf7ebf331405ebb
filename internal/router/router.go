package router

import (
	"fmt"
	"net/http"

	"github.com/anonto42/voxmarket/backend/internal/delivery"
	"github.com/anonto42/voxmarket/backend/internal/escrow"
	"github.com/anonto42/voxmarket/backend/internal/handlers"
	"github.com/anonto42/voxmarket/backend/internal/messaging"
	"github.com/anonto42/voxmarket/backend/internal/middleware"
	"github.com/anonto42/voxmarket/backend/internal/models"
	"github.com/anonto42/voxmarket/backend/internal/moderation"
	"github.com/anonto42/voxmarket/backend/internal/realtime"
	"github.com/anonto42/voxmarket/backend/internal/repositories"
	"github.com/anonto42/voxmarket/backend/internal/storage"
	"github.com/anonto42/voxmarket/backend/pkg/config"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Dependencies are the connections and settings SetupRoutes wires from
type Dependencies struct {
	Config *config.Config
	DB     *config.DB
	// FirebaseAuth is nil when Firebase is not configured
	FirebaseAuth middleware.IDTokenVerifier
	Logger       *zap.Logger
}

// App exposes what main needs after routing is set up
type App struct {
	Store *storage.Store
	Queue *delivery.Queue
	Hub   *realtime.Hub
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, deps Dependencies) (*App, error) {
	cfg, logger := deps.Config, deps.Logger

	// AutoMigrate PostgreSQL models
	migrations := []interface{}{&models.User{}}
	if cfg.StorageBackend == config.StoragePostgres {
		migrations = append(migrations, &storage.KVRecord{})
	}
	if err := deps.DB.Postgres.AutoMigrate(migrations...); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	logger.Info("PostgreSQL auto-migrations completed.")

	// --- Storage ---
	backend, err := newBackend(cfg, deps.DB)
	if err != nil {
		return nil, err
	}
	store := storage.NewStore(backend, storage.Quota{
		MaxItemBytes:  cfg.StorageItemMax,
		MaxTotalBytes: cfg.StorageTotalMax,
	}, storage.DefaultCleanupPolicy(), logger)
	logger.Info("Storage configured.", zap.String("backend", cfg.StorageBackend))

	// --- Initialize Repositories ---
	userRepo := repositories.NewPostgresUserRepository(deps.DB.Postgres)
	escrowRepo := repositories.NewStoreEscrowRepository(store)
	messageRepo := repositories.NewStoreMessageRepository(store)
	pendingRepo := repositories.NewStorePendingMessageRepository(store)
	notificationRepo := repositories.NewStoreNotificationRepository(store)
	favoriteRepo := repositories.NewStoreFavoriteRepository(store)
	adminActionRepo := repositories.NewStoreAdminActionRepository(store)

	// --- Services ---
	var sender delivery.Sender = delivery.LocalSender{}
	var breaker handlers.BreakerState
	if len(cfg.RelayEndpoints) > 0 {
		d := delivery.NewHTTPDispatcher(delivery.DispatcherConfig{
			Endpoints:       cfg.RelayEndpoints,
			Token:           cfg.RelayToken,
			Timeout:         cfg.RelayTimeout,
			BreakerFailures: cfg.BreakerFailures,
			BreakerCooldown: cfg.BreakerCooldown,
		}, logger)
		sender, breaker = d, d
		logger.Info("Message relay configured.", zap.Strings("endpoints", cfg.RelayEndpoints))
	} else {
		logger.Info("No message relay configured, delivering locally.")
	}

	ledger := escrow.NewLedger(escrowRepo, logger, escrow.WithGatewayDelay(cfg.GatewayDelay))
	mod := moderation.NewService(moderation.NewDetector(moderation.DefaultRules()), messageRepo, adminActionRepo, logger)
	hub := realtime.NewHub(logger)
	queue := delivery.NewQueue(sender, pendingRepo, logger)
	msgService := messaging.NewService(queue, messageRepo, notificationRepo, mod, hub, logger)
	limiter := middleware.NewUserLimiter(cfg.SendRatePerSec, cfg.SendBurst)

	// Health check - always accessible
	healthHandler := handlers.NewHealthHandler(store, breaker)
	e.GET("/api/health", healthHandler.HealthCheck)
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"message": "voxmarket api"})
	})

	// --- Unprotected routes for authentication ---
	authGroup := e.Group("/api/auth")
	authHandler := handlers.NewAuthHandler(userRepo, deps.FirebaseAuth, cfg.JWTSecret, cfg.JWTTTL, logger)
	authHandler.SetAdminEmails(cfg.AdminEmails)
	authHandler.RegisterAuthRoutes(authGroup)
	logger.Info("Auth routes configured.")

	// --- Protected routes (require JWT authentication) ---
	authMiddleware := middleware.JWTAuthMiddleware(cfg.JWTSecret, middleware.NewFirebaseResolver(deps.FirebaseAuth, userRepo))
	api := e.Group("/api")
	api.Use(authMiddleware)

	userHandler := handlers.NewUserHandler(userRepo)
	userHandler.RegisterProfileRoutes(api)
	logger.Info("User profile routes configured.")

	escrowHandler := handlers.NewEscrowHandler(ledger)
	escrowHandler.RegisterEscrowRoutes(api)
	logger.Info("Escrow routes configured.")

	messageHandler := handlers.NewMessageHandler(msgService, hub, limiter, logger)
	messageHandler.RegisterMessageRoutes(api)
	e.GET("/ws", messageHandler.Connect, authMiddleware)
	logger.Info("Message routes configured.")

	notificationHandler := handlers.NewNotificationHandler(notificationRepo)
	notificationHandler.RegisterNotificationRoutes(api)
	logger.Info("Notification routes configured.")

	favoriteHandler := handlers.NewFavoriteHandler(favoriteRepo, notificationRepo, logger)
	favoriteHandler.RegisterFavoriteRoutes(api)
	logger.Info("Favorite routes configured.")

	admin := api.Group("/admin", middleware.RequireRole(models.RoleAdmin))
	adminHandler := handlers.NewAdminHandler(mod, store)
	adminHandler.RegisterAdminRoutes(admin)
	logger.Info("Admin routes configured.")

	logger.Info("All routes configured.")
	return &App{Store: store, Queue: queue, Hub: hub}, nil
}

func newBackend(cfg *config.Config, db *config.DB) (storage.Backend, error) {
	switch cfg.StorageBackend {
	case config.StorageMemory:
		return storage.NewMemoryBackend(), nil
	case config.StoragePostgres:
		return storage.NewPostgresBackend(db.Postgres), nil
	case config.StorageMongo:
		return storage.NewMongoBackend(db.Mongo.Database(cfg.MongoDatabase)), nil
	case config.StorageRedis:
		return storage.NewRedisBackend(db.Redis, cfg.RedisKeyPrefix), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
