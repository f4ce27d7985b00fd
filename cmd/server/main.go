package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/seu-repo/handover-engine/internal/adapter/cache"
	"github.com/seu-repo/handover-engine/internal/adapter/external/catalog"
	"github.com/seu-repo/handover-engine/internal/adapter/external/notification"
	"github.com/seu-repo/handover-engine/internal/adapter/external/payment"
	"github.com/seu-repo/handover-engine/internal/adapter/grpc/server"
	"github.com/seu-repo/handover-engine/internal/adapter/http/fiber/handlers"
	"github.com/seu-repo/handover-engine/internal/adapter/http/fiber/middleware"
	"github.com/seu-repo/handover-engine/internal/adapter/lock"
	"github.com/seu-repo/handover-engine/internal/adapter/queue"
	"github.com/seu-repo/handover-engine/internal/adapter/storage/memory"
	"github.com/seu-repo/handover-engine/internal/adapter/storage/postgres"
	"github.com/seu-repo/handover-engine/internal/adapter/vault"
	wsAdapter "github.com/seu-repo/handover-engine/internal/adapter/websocket"
	"github.com/seu-repo/handover-engine/internal/observability/telemetry"
	"github.com/seu-repo/handover-engine/internal/ports"
	"github.com/seu-repo/handover-engine/internal/service/booking"
	"github.com/seu-repo/handover-engine/internal/service/health"
	"github.com/seu-repo/handover-engine/internal/service/invoice"
	"github.com/seu-repo/handover-engine/pkg/config"
)

const (
	serviceName    = "handover-engine"
	serviceVersion = "v1.0.0"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	// 2. Initialize Logger
	logger, err := newLogger(cfg.Logging, cfg.App.Environment)
	if err != nil {
		log.Fatal("Failed to initialize logger: ", err)
	}
	defer logger.Sync()

	version := cfg.App.Version
	if version == "" {
		version = serviceVersion
	}
	logger.Info("Starting Handover Engine",
		zap.String("service", serviceName),
		zap.String("version", version),
		zap.String("environment", cfg.App.Environment),
	)

	// 3. Pull secrets from Vault
	if cfg.Vault.Enabled {
		sm, err := vault.NewSecretManager(cfg.Vault, logger)
		if err != nil {
			logger.Fatal("Failed to create Vault client", zap.Error(err))
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = sm.Apply(ctx, cfg)
		cancel()
		if err != nil {
			logger.Fatal("Failed to load secrets from Vault", zap.Error(err))
		}
	}

	// 4. Initialize OpenTelemetry (Distributed Tracing)
	if cfg.OpenTelemetry.Enabled {
		tracerProvider, err := telemetry.InitTracer(cfg.OpenTelemetry, version)
		if err != nil {
			logger.Fatal("Failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			if err := tracerProvider.Shutdown(context.Background()); err != nil {
				logger.Error("Error shutting down tracer provider", zap.Error(err))
			}
		}()
	}

	healthCfg := &health.Config{Version: version}

	// 5. Booking storage
	var repo ports.BookingRepository
	switch cfg.Database.Driver {
	case "postgres":
		db, err := postgres.NewConnection(cfg.Database, logger)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer closeDB(db, logger)

		if cfg.Database.AutoMigrate {
			if err := postgres.RunMigrations(db); err != nil {
				logger.Fatal("Failed to run migrations", zap.Error(err))
			}
		}
		pgRepo := postgres.NewBookingRepository(db, logger)
		healthCfg.Database = pgRepo
		repo = pgRepo
	default:
		logger.Warn("Using in-memory booking storage; data is lost on restart")
		repo = memory.NewBookingRepository()
	}

	// 6. Redis client, read cache and booking locks
	var redisClient *redis.Client
	var bookingCache ports.Cache
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(cfg.Redis, logger)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		redisCache := cache.NewRedisCache(redisClient, logger)
		defer redisCache.Close()
		healthCfg.Redis = redisCache
		bookingCache = redisCache
	} else {
		localCache := cache.NewLocalCache(cfg.Cache.CleanupInterval, logger)
		defer localCache.Close()
		bookingCache = localCache
	}

	locker, err := lock.New(cfg.Locking, redisClient, logger)
	if err != nil {
		logger.Fatal("Failed to initialize booking locks", zap.Error(err))
	}

	// 7. Message Queue and event dispatch
	messageQueue, err := queue.New(cfg.Queue, logger)
	if err != nil {
		logger.Fatal("Failed to connect to message queue", zap.Error(err), zap.String("driver", cfg.Queue.Driver))
	}
	defer messageQueue.Close()
	healthCfg.Queue = health.PingFunc(messageQueue.Ping)

	subject := cfg.Queue.Subject
	if subject == "" {
		subject = notification.DefaultSubject
	}
	dispatcher := notification.NewQueueDispatcher(messageQueue, subject, cfg.Notification, logger)
	defer dispatcher.Close()

	// 8. External collaborators
	var vehicles ports.VehicleCatalog
	var customers ports.CustomerDirectory
	if cfg.Catalog.VehicleURL != "" && cfg.Catalog.CustomerURL != "" {
		vehicles = catalog.NewHTTPVehicleCatalog(cfg.Catalog, cfg.CircuitBreaker, logger)
		customers = catalog.NewHTTPCustomerDirectory(cfg.Catalog, cfg.CircuitBreaker, logger)
	} else {
		mem, err := catalog.LoadSeed(cfg.Catalog.SeedFile)
		if err != nil {
			logger.Fatal("Failed to load catalog seed", zap.Error(err), zap.String("seed_file", cfg.Catalog.SeedFile))
		}
		logger.Warn("Serving vehicles and customers from a local seed file", zap.String("seed_file", cfg.Catalog.SeedFile))
		vehicles, customers = mem, mem
	}

	opts := []booking.Option{booking.WithCacheTTL(cfg.Cache.BookingTTL)}
	var stripeGateway *payment.StripeGateway
	if cfg.Payment.Stripe.Enabled {
		stripeGateway = payment.NewStripeGateway(cfg.Payment.Stripe.SecretKey, cfg.Payment.Stripe.WebhookSecret, logger)
		opts = append(opts, booking.WithPaymentGateway(stripeGateway, cfg.Payment.Stripe.Currency))
	}

	// 9. Initialize Services (Business Logic Layer)
	bookingService := booking.NewService(repo, locker, bookingCache, vehicles, customers, dispatcher, logger, opts...)
	invoiceRenderer := invoice.NewRenderer(cfg.App.Name, cfg.Payment.Stripe.Currency)
	healthService := health.NewService(healthCfg, logger)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// 10. Initialize WebSocket Hub (live dashboard feed)
	wsHub := wsAdapter.NewHub(logger)
	go wsHub.Run(ctx)
	if err := wsHub.Consume(messageQueue, subject); err != nil {
		logger.Fatal("Failed to subscribe dashboard hub", zap.Error(err), zap.String("subject", subject))
	}

	// 11. Initialize Fiber HTTP Server
	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		ServerHeader:          serviceName,
		DisableStartupMessage: true,
		ReadTimeout:           cfg.HTTP.ReadTimeout,
		WriteTimeout:          cfg.HTTP.WriteTimeout,
		IdleTimeout:           cfg.HTTP.IdleTimeout,
		BodyLimit:             cfg.HTTP.BodyLimit,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	// Global Middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} ${locals:requestid} ${status} ${method} ${path} ${latency}\n",
	}))
	if cfg.CORS.Enabled {
		app.Use(middleware.NewCORS(cfg.CORS))
	}
	if cfg.RateLimiting.Enabled {
		app.Use(middleware.RateLimit(cfg.RateLimiting))
	}
	if cfg.CircuitBreaker.Enabled {
		app.Use(middleware.CircuitBreaker(cfg.CircuitBreaker, logger))
	}

	// Health Check Endpoints
	health.NewFiberHandler(healthService).RegisterRoutes(app)

	// Metrics endpoint for Prometheus
	if cfg.Prometheus.Enabled {
		metricsHandler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
		app.Get(cfg.Prometheus.Path, func(c *fiber.Ctx) error {
			metricsHandler(c.Context())
			return nil
		})
	}

	// API v1 Routes
	v1 := app.Group("/api/v1")
	handlers.NewBookingHandler(bookingService, invoiceRenderer, logger).RegisterRoutes(v1)

	if stripeGateway != nil {
		app.Post("/webhooks/stripe", handlers.NewStripeWebhookHandler(stripeGateway, bookingService, logger).Handle)
	}

	// Live dashboard WebSocket
	app.Get("/ws/bookings", wsHub.Handler()...)

	// 12. Initialize gRPC health server
	var grpcServer *server.GRPCServer
	if cfg.GRPC.Enabled {
		grpcServer = server.NewGRPCServer(healthService, 10*time.Second, logger)
		go grpcServer.Watch(ctx)
		go func() {
			logger.Info("Starting gRPC Server", zap.Int("port", cfg.GRPC.Port))
			lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPC.Port))
			if err != nil {
				logger.Fatal("Failed to listen for gRPC", zap.Error(err))
			}
			if err := grpcServer.Serve(lis); err != nil {
				logger.Fatal("gRPC Server failed", zap.Error(err))
			}
		}()
	}

	// 13. Start HTTP Server
	go func() {
		logger.Info("Starting HTTP Server", zap.Int("port", cfg.HTTP.Port))
		if err := app.Listen(fmt.Sprintf(":%d", cfg.HTTP.Port)); err != nil {
			logger.Fatal("HTTP Server failed", zap.Error(err))
		}
	}()

	// 14. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if grpcServer != nil {
		grpcServer.Stop()
	}
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	stop()

	logger.Info("Server exited gracefully")
}

func closeDB(db *gorm.DB, logger *zap.Logger) {
	if err := postgres.Close(db); err != nil {
		logger.Error("Error closing database", zap.Error(err))
	}
}
