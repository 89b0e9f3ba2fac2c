package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fekuna/omnipos-inventory-service/config"
	"github.com/fekuna/omnipos-inventory-service/internal/broker"
	"github.com/fekuna/omnipos-inventory-service/internal/cache"
	"github.com/fekuna/omnipos-inventory-service/internal/database/postgres"
	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/fekuna/omnipos-inventory-service/internal/migrate"
	"github.com/fekuna/omnipos-inventory-service/internal/observability"
	"github.com/fekuna/omnipos-inventory-service/internal/rpc"
	"github.com/fekuna/omnipos-inventory-service/internal/stock"
	"github.com/fekuna/omnipos-inventory-service/internal/store"

	resH "github.com/fekuna/omnipos-inventory-service/internal/reservation/handler"
	resListenerPkg "github.com/fekuna/omnipos-inventory-service/internal/reservation/listener"
	resSweeperPkg "github.com/fekuna/omnipos-inventory-service/internal/reservation/sweeper"
	resUCPkg "github.com/fekuna/omnipos-inventory-service/internal/reservation/usecase"

	stockH "github.com/fekuna/omnipos-inventory-service/internal/stock/handler"
	stockUCPkg "github.com/fekuna/omnipos-inventory-service/internal/stock/usecase"

	whH "github.com/fekuna/omnipos-inventory-service/internal/warehouse/handler"
	whUCPkg "github.com/fekuna/omnipos-inventory-service/internal/warehouse/usecase"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const serviceVersion = "0.1.0"

func main() {
	// 1. Load Configuration
	_ = godotenv.Load()
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	logConfig := &logger.ZapLoggerConfig{
		IsDevelopment:     false,
		Encoding:          "json",
		Level:             "info",
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}
	if cfg.Server.AppEnv == "development" || cfg.Server.AppEnv == "dev" {
		logConfig.IsDevelopment = true
		logConfig.Encoding = cfg.Logger.Encoding
		logConfig.Level = cfg.Logger.Level
	}

	appLogger := logger.NewZapLogger(logConfig)
	defer appLogger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Tracing
	shutdownTracing, err := observability.SetupTracing(ctx, &observability.TracingConfig{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: serviceVersion,
		Endpoint:       cfg.Tracing.Endpoint,
		URLPath:        cfg.Tracing.URLPath,
		Insecure:       cfg.Tracing.Insecure,
		SampleRatio:    cfg.Tracing.SampleRatio,
		ExportTimeout:  cfg.Tracing.ExportTimeout,
	})
	if err != nil {
		appLogger.Fatal("Could not set up tracing", zap.Error(err))
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		if err := shutdownTracing(sctx); err != nil {
			appLogger.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	// 4. Storage
	var st *store.Store
	switch cfg.Storage.Driver {
	case "memory":
		st = store.NewMemory()
		appLogger.Warn("Using in-memory storage; data is lost on restart")
	default:
		db, err := postgres.NewPostgres(&postgres.Config{
			Host:            cfg.Postgres.Host,
			Port:            cfg.Postgres.Port,
			User:            cfg.Postgres.User,
			Password:        cfg.Postgres.Password,
			DBName:          cfg.Postgres.DBName,
			SSLMode:         cfg.Postgres.SSLMode,
			MaxOpenConns:    cfg.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Postgres.MaxIdleConns,
			ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
			ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
		})
		if err != nil {
			appLogger.Fatal("Could not connect to database", zap.Error(err))
		}
		defer db.Close()
		appLogger.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))

		if cfg.Storage.AutoMigrate {
			if err := migrate.MigrateInventoryDB(ctx, db, appLogger, migrate.DefaultOptions()); err != nil {
				appLogger.Fatal("Could not migrate database", zap.Error(err))
			}
		}
		st = store.NewPostgres(db)
	}

	// 5. Initialize Redis
	var (
		availabilityCache stock.AvailabilityCache
		sweepLock         resSweeperPkg.Locker
	)
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedisClient(&cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			appLogger.Fatal("Could not connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		availabilityCache = redisClient
		sweepLock = redisClient
		appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
	}

	// 6. Initialize Kafka
	var (
		events        stock.EventPublisher
		kafkaConsumer *broker.KafkaConsumer
	)
	if cfg.Kafka.Enabled {
		kafkaConsumer = broker.NewConsumer(&broker.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			GroupID: cfg.Kafka.GroupID,
		})
		defer kafkaConsumer.Close()

		producer := broker.NewProducer(&broker.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.EventsTopic,
		})
		defer producer.Close()
		events = producer
		appLogger.Info("Connected to Kafka",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("orders_topic", cfg.Kafka.Topic),
			zap.String("events_topic", cfg.Kafka.EventsTopic))
	}

	// 7. Initialize UseCases
	whUC := whUCPkg.NewWarehouseUseCase(st, availabilityCache, appLogger)
	stockUC := stockUCPkg.NewStockUseCase(st, availabilityCache, events, cfg.Redis.AvailabilityTTL, appLogger)
	resUC := resUCPkg.NewReservationUseCase(st, availabilityCache, events, resUCPkg.Options{
		CartTTL:        cfg.Reservation.CartTTL,
		CheckoutTTL:    cfg.Reservation.CheckoutTTL,
		SweepBatchSize: cfg.Reservation.SweepBatchSize,
	}, appLogger)

	// 8. Background workers
	sweeper := resSweeperPkg.NewScheduler(resUC, sweepLock, cfg.Reservation.SweepInterval, appLogger)
	sweeper.Start(ctx)

	if kafkaConsumer != nil {
		orderListener := resListenerPkg.NewOrderListener(kafkaConsumer, resUC, appLogger)
		go orderListener.Start(ctx)
	}

	// 9. Initialize Handlers
	whHandler := whH.NewWarehouseHandler(whUC, appLogger)
	stockHandler := stockH.NewStockHandler(stockUC, appLogger)
	resHandler := resH.NewReservationHandler(resUC, sweeper, appLogger)

	// 10. Start gRPC Server
	port := cfg.Server.GRPCPort
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	lis, err := net.Listen("tcp", port)
	if err != nil {
		appLogger.Fatal("failed to listen", zap.Error(err))
	}

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			rpc.RecoveryInterceptor(appLogger),
			rpc.ContextInterceptor(),
			rpc.LoggingInterceptor(appLogger),
			rpc.ValidationInterceptor(validator.New(validator.WithRequiredStructEnabled())),
		),
	)

	whHandler.Register(grpcServer)
	stockHandler.Register(grpcServer)
	resHandler.Register(grpcServer)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	for _, name := range []string{whH.ServiceName, stockH.ServiceName, resH.ServiceName} {
		healthServer.SetServingStatus(name, healthpb.HealthCheckResponse_SERVING)
	}

	reflection.Register(grpcServer)

	appLogger.Info("Starting gRPC server", zap.String("port", port), zap.String("storage", cfg.Storage.Driver))

	// Graceful Shutdown
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			appLogger.Fatal("failed to serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	healthServer.Shutdown()
	grpcServer.GracefulStop()
	sweeper.Stop()
	cancel()
	appLogger.Info("Server stopped")
}
