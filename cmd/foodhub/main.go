package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Aidin1998/foodhub/api"
	"github.com/Aidin1998/foodhub/internal/config"
	"github.com/Aidin1998/foodhub/internal/database"
	"github.com/Aidin1998/foodhub/internal/identity"
	"github.com/Aidin1998/foodhub/internal/orders"
	"github.com/Aidin1998/foodhub/internal/realtime"
	"github.com/Aidin1998/foodhub/internal/settings"
	"github.com/Aidin1998/foodhub/internal/ws"
	"github.com/Aidin1998/foodhub/pkg/logger"
	"github.com/Aidin1998/foodhub/pkg/telemetry"
)

func main() {
	configPath := flag.String("config", os.Getenv("FOODHUB_CONFIG"), "path to a YAML config file")
	flag.Parse()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zapLogger); err != nil {
		zapLogger.Fatal("Server exited with error", zap.Error(err))
	}
	zapLogger.Info("Server stopped")
}

func run(ctx context.Context, cfg *config.Config, zapLogger *zap.Logger) error {
	shutdownTelemetry, err := telemetry.Setup(ctx, telemetry.Config{
		Tracing: cfg.Tracing.Enabled,
		Metrics: cfg.Tracing.Enabled,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			zapLogger.Warn("Telemetry shutdown failed", zap.Error(err))
		}
	}()

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	go database.ReportPoolStats(ctx, db, 30*time.Second, zapLogger)

	var (
		store       identity.Store
		redisClient *redis.Client
	)
	if cfg.Redis.Enabled {
		redisClient, err = database.NewRedisClient(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer redisClient.Close()
		store = identity.NewRedisStore(redisClient, "foodhub:")
	} else {
		mem := identity.NewMemoryStore(cfg.OTP.Capacity)
		go mem.RunJanitor(ctx, time.Minute)
		store = mem
	}

	bus := realtime.NewBroadcaster(cfg.Realtime, zapLogger)
	defer bus.Close()

	if cfg.Kafka.Enabled {
		fwd := realtime.NewForwarder(bus, realtime.NewKafkaWriter(cfg.Kafka, zapLogger), zapLogger)
		go func() {
			if err := fwd.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				zapLogger.Error("Kafka forwarder stopped", zap.Error(err))
			}
		}()
	}

	hub := ws.NewHub(bus, cfg.Server.AllowedOrigins, zapLogger)
	defer hub.Close()

	ordersSvc := orders.NewService(db, bus, cfg.Orders, zapLogger)

	apiServer, err := api.NewServer(zapLogger, api.Deps{
		Orders:    ordersSvc,
		Settings:  settings.NewRepository(db),
		OTP:       identity.NewOTPService(store, identity.LogSender{Logger: zapLogger}, cfg.OTP, zapLogger),
		Tokens:    identity.NewTokens(cfg.JWT),
		Operators: identity.NewOperators(cfg.Operator),
		Hub:       hub,
		Health: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			if err := sqlDB.PingContext(ctx); err != nil {
				return err
			}
			if redisClient != nil {
				return redisClient.Ping(ctx).Err()
			}
			return nil
		},
	}, api.Options{AllowedOrigins: cfg.Server.AllowedOrigins})
	if err != nil {
		return fmt.Errorf("api: %w", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zapLogger.Info("Starting HTTP server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zapLogger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	// Hijacked websocket connections are not tracked by Shutdown; the hub
	// closes them on return.
	return srv.Shutdown(shutdownCtx)
}
