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

	"github.com/joho/godotenv"
	"google.golang.org/grpc"

	"github.com/Billy-Davies-2/seal-tracker/internal/bot"
	"github.com/Billy-Davies-2/seal-tracker/internal/clickhouse"
	"github.com/Billy-Davies-2/seal-tracker/internal/config"
	"github.com/Billy-Davies-2/seal-tracker/internal/dal"
	grpcserver "github.com/Billy-Davies-2/seal-tracker/internal/grpc"
	"github.com/Billy-Davies-2/seal-tracker/internal/handlers"
	"github.com/Billy-Davies-2/seal-tracker/internal/logger"
	"github.com/Billy-Davies-2/seal-tracker/internal/mocks"
	"github.com/Billy-Davies-2/seal-tracker/internal/models"
	"github.com/Billy-Davies-2/seal-tracker/internal/pubsub"
	"github.com/Billy-Davies-2/seal-tracker/internal/scheduler"
	"github.com/Billy-Davies-2/seal-tracker/internal/service"
	"github.com/Billy-Davies-2/seal-tracker/internal/source"
)

// archive is a price-history store that must be closed on shutdown
type archive interface {
	service.Archive
	Close() error
}

func main() {
	if err := run(); err != nil {
		logger.Error("Error running application", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Initialize logger first; reconfigured once the level is known
	logger.Init()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("Error loading .env file", "error", err)
	}

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.InitWithLevel(cfg.LogLevel)
	logger.Info("Starting seal tracker", "environment", cfg.Environment)

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	bus, closeBus, err := openBus(cfg)
	if err != nil {
		return err
	}
	defer closeBus()

	history, err := openArchive(cfg)
	if err != nil {
		return err
	}
	defer history.Close()

	src, err := source.New(cfg.Source)
	if err != nil {
		return err
	}
	logger.Info("Using seal source", "source", src.Name())

	instanceID, _ := os.Hostname()
	svc := service.New(src, store, history, bus, service.Options{
		Precompute:  cfg.Table.PrecomputeRatios,
		MaxPageSize: cfg.Table.MaxPageSize,
		StaleAfter:  2 * cfg.Source.RefreshInterval,
		InstanceID:  instanceID,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, cfg.Source.FetchTimeout+5*time.Second)
	err = svc.Start(startCtx)
	cancel()
	if err != nil {
		return err
	}
	go svc.Watch(ctx)

	if cfg.Source.Kind == "file" && cfg.Source.WatchFile {
		go func() {
			err := source.WatchFile(ctx, cfg.Source.File, source.DefaultWatchDebounce, func() {
				logger.Info("Seal feed changed on disk, refreshing", "file", cfg.Source.File)
				if _, err := svc.Refresh(ctx); err != nil {
					logger.Error("Error refreshing after file change", "error", err)
				}
			})
			if err != nil {
				logger.Error("Error watching seal feed", "file", cfg.Source.File, "error", err)
			}
		}()
	}

	sched, err := scheduler.NewScheduler(svc, cfg.Source.RefreshInterval, cfg.Source.FetchTimeout+5*time.Second)
	if err != nil {
		return err
	}
	if err := sched.Start(); err != nil {
		return err
	}
	defer func() {
		if err := sched.Stop(); err != nil {
			logger.Error("Error stopping scheduler", "error", err)
		}
	}()

	defaults := models.DefaultViewState()
	defaults.PageSize = cfg.Table.DefaultPageSize

	// gRPC
	lis, err := net.Listen("tcp", "0.0.0.0:"+cfg.Server.GRPCPort)
	if err != nil {
		return fmt.Errorf("failed to listen for gRPC: %w", err)
	}
	grpcServer := grpc.NewServer()
	grpcserver.RegisterTableServiceServer(grpcServer, grpcserver.NewServer(svc, defaults))
	go func() {
		logger.Info("gRPC server starting", "address", lis.Addr().String())
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("Failed to serve gRPC", "error", err)
		}
	}()
	defer grpcServer.Stop()

	// HTTP
	api := handlers.NewAPIHandlers(svc, defaults)
	httpServer := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Server.Port,
		Handler:           handlers.NewRouter(api, handlers.RouterOptions{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Server starting", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			stop()
		}
	}()

	// Telegram
	if cfg.Telegram.Token != "" {
		botDefaults := defaults
		botDefaults.PageSize = bot.DefaultPageSize
		telegramBot, err := bot.NewTelegramBot(cfg.Telegram.Token, cfg.Telegram.ChatID, bot.NewHandler(svc, botDefaults), svc)
		if err != nil {
			return fmt.Errorf("failed to start telegram bot: %w", err)
		}
		go func() {
			if err := telegramBot.Start(ctx); err != nil {
				logger.Error("Error running telegram bot", "error", err)
			}
		}()
		go telegramBot.Notify(ctx, bus)
	} else {
		logger.Info("Skipping Telegram bot (TELEGRAM_TOKEN not set)")
	}

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down HTTP server", "error", err)
	}
	return nil
}

func openStore(cfg *config.Config) (dal.SnapshotDAL, error) {
	switch cfg.Store.Driver {
	case "memory", "":
		logger.Info("Using in-memory snapshot store")
		return dal.NewMemoryDAL(), nil
	case "sqlite":
		store, err := dal.NewSQLiteDAL(cfg.Store.SQLiteFile)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite: %w", err)
		}
		logger.Info("Connected to SQLite database", "file", cfg.Store.SQLiteFile)
		return store, nil
	case "postgres":
		if cfg.Store.DatabaseURL == "" {
			if cfg.IsDevelopment() {
				return mocks.NewMockPostgresDAL(cfg.Store.SQLiteFile)
			}
			return nil, errors.New("DATABASE_URL environment variable is required for postgres driver")
		}
		store, err := dal.NewPostgresDAL(cfg.Store.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres: %w", err)
		}
		logger.Info("Connected to Postgres database")
		return store, nil
	}
	return nil, fmt.Errorf("unknown DB_DRIVER: %s (valid: memory, sqlite, postgres)", cfg.Store.Driver)
}

// openBus uses embedded NATS in development and real NATS JetStream
// otherwise. Local subscribers always hang off an in-process fan-out.
func openBus(cfg *config.Config) (pubsub.Bus, func(), error) {
	if cfg.IsDevelopment() {
		logger.Info("Starting embedded NATS server for local development")
		opts := pubsub.DefaultEmbeddedNATSOptions()
		opts.Subject = cfg.NATS.Subject
		opts.StreamName = cfg.NATS.Stream
		embedded, err := pubsub.NewEmbeddedNATSPubSub(opts)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize embedded NATS: %w", err)
		}
		logger.Info("Embedded NATS server ready", "url", embedded.ServerURL())
		return pubsub.NewWithUpstream(embedded), embedded.Close, nil
	}

	logger.Info("Using real NATS JetStream for production")
	natsBus, err := pubsub.NewNATSPubSub(cfg.NATS.URL, pubsub.NATSOptions{
		Subject:    cfg.NATS.Subject,
		StreamName: cfg.NATS.Stream,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize NATS: %w", err)
	}
	logger.Info("Connected to NATS", "url", cfg.NATS.URL)
	return pubsub.NewWithUpstream(natsBus), natsBus.Close, nil
}

func openArchive(cfg *config.Config) (archive, error) {
	if cfg.ClickHouse.Addr == "" {
		logger.Info("Using mock ClickHouse price history (CLICKHOUSE_ADDR not set)")
		return mocks.NewMockClickHouseClient(), nil
	}

	client, err := clickhouse.NewClient(cfg.ClickHouse.Addr, cfg.ClickHouse.Database, cfg.ClickHouse.User, cfg.ClickHouse.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ClickHouse: %w", err)
	}
	logger.Info("Connected to ClickHouse", "address", cfg.ClickHouse.Addr, "database", cfg.ClickHouse.Database)
	return client, nil
}
