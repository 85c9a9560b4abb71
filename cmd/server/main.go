package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"submissionportal/internal/authorization"
	"submissionportal/internal/cache"
	"submissionportal/internal/config"
	"submissionportal/internal/data"
	"submissionportal/internal/handler"
	"submissionportal/internal/health"
	"submissionportal/internal/middleware"
	"submissionportal/internal/notify"
	"submissionportal/internal/service"
	"submissionportal/internal/storage"
	"submissionportal/pkg/db"
	"submissionportal/pkg/kafka"
	"submissionportal/pkg/logging"
)

const (
	healthCheckInterval = 10 * time.Second
	// responseGrace leaves room to write the error after a request times out.
	responseGrace = 5 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.New()
	if err != nil {
		panic(fmt.Sprintf("cannot create config: %v", err))
	}

	logger, err := logging.NewDefault(cfg.IsProduction())
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	ctx = logging.ContextWithLogger(ctx, logger)

	pool, err := db.New(ctx, db.Config{
		URL:            cfg.PostgresURL,
		MaxConns:       cfg.PostgresMaxConn,
		MinConns:       cfg.PostgresMinConn,
		AutoMigrate:    cfg.PostgresAutoMigrate,
		MigrationsPath: cfg.MigrationsPath,
	})
	if err != nil {
		logger.Fatal(ctx, "cannot create db", zap.Error(err))
	}
	defer pool.Close()

	fileStorage, err := newStorage(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "cannot create storage", zap.Error(err))
	}

	var accountCache service.Cache = cache.Noop{}
	if cfg.RedisURL != "" {
		redisConn := redis.NewClient(&redis.Options{
			Addr: cfg.RedisURL,
		})
		defer func() { _ = redisConn.Close() }()
		accountCache = cache.NewRedisCache(redisConn)
	}

	producer, err := kafka.NewProducer(kafka.Config{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.KafkaTopic,
	})
	if err != nil {
		logger.Fatal(ctx, "cannot create kafka producer", zap.Error(err))
	}
	defer func() { _ = producer.Close() }()

	outbox := notify.NewOutbox(producer, logger, cfg.NotifyWorkers, cfg.NotifyQueueSize)

	accountRepo := data.NewAccountRepository(pool)
	tokenIssuer := authorization.NewTokenIssuer(cfg.TokenSecret, cfg.TokenTTL)

	accountService := service.NewAccountService(
		accountRepo,
		authorization.NewBcryptHasher(),
		tokenIssuer,
		outbox,
		accountCache,
		cfg.CacheTTL,
	)
	submissionService := service.NewSubmissionService(
		accountRepo,
		fileStorage,
		outbox,
		accountCache,
		cfg.MaxUploadBytes,
	).WithInvalidationDelay(cfg.CacheInvalidateDelay)

	router := handler.NewRouter(handler.RouterConfig{
		Logger:         logger,
		Auth:           middleware.NewAuthMiddleware(tokenIssuer),
		RequestTimeout: cfg.RequestTimeout,
		Accounts:       handler.NewAccountHandler(accountService),
		Uploads:        handler.NewUploadHandler(submissionService),
		Health:         health.NewHandler(accountRepo),
	})

	grpcServer, healthServer := health.NewGRPCServer(logger)
	go health.Watch(ctx, accountRepo, healthServer, healthCheckInterval)

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCHealthPort))
	if err != nil {
		logger.Fatal(ctx, "cannot create listener", zap.Error(err))
	}
	go func() {
		if err := grpcServer.Serve(listener); err != nil {
			logger.Error(ctx, "grpc health server stopped", zap.Error(err))
		}
	}()

	port := fmt.Sprintf(":%d", cfg.HTTPPort)
	logger.Info(ctx, "Starting server", zap.String("port", port), zap.String("storage", cfg.StorageBackend))

	srv := &http.Server{
		Addr:              port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.RequestTimeout,
		WriteTimeout:      cfg.RequestTimeout + responseGrace,
		IdleTimeout:       2 * time.Minute,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(ctx, "cannot start http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info(ctx, "Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "server forced to shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()
	if err := outbox.Close(shutdownCtx); err != nil {
		logger.Error(ctx, "outbox not drained", zap.Error(err))
	}
	logger.Info(ctx, "Server stopped")
}

func newStorage(ctx context.Context, cfg *config.Config) (service.FileStorage, error) {
	if cfg.StorageBackend == config.StorageBackendDisk {
		return storage.NewDiskStorage(cfg.DiskStorageDir, cfg.StoragePublicURL)
	}

	client, err := storage.NewS3Client(ctx, storage.S3Config{
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
	})
	if err != nil {
		return nil, err
	}
	return storage.NewS3Storage(ctx, client, cfg.StorageBucket, cfg.StoragePublicURL)
}
