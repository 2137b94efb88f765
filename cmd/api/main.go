package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	goredis "github.com/redis/go-redis/v9"
	"github.com/serhatipek/choreline/internal/channel"
	"github.com/serhatipek/choreline/internal/config"
	"github.com/serhatipek/choreline/internal/handler"
	"github.com/serhatipek/choreline/internal/infra/postgresql"
	"github.com/serhatipek/choreline/internal/infra/postgresql/migrations"
	infraredis "github.com/serhatipek/choreline/internal/infra/redis"
	"github.com/serhatipek/choreline/internal/observability"
	"github.com/serhatipek/choreline/internal/prefs"
	"github.com/serhatipek/choreline/internal/ratelimit"
	"github.com/serhatipek/choreline/internal/repository"
	"github.com/serhatipek/choreline/internal/service"
	"github.com/serhatipek/choreline/internal/transport"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	var archive repository.Archive
	var gormArchive *repository.GormArchive
	var sqlDB *sql.DB
	if cfg.DatabaseDSN != "" {
		db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
		if err != nil {
			logger.Fatal("postgres initialization failed", zap.Error(err))
		}
		if err := migrations.Migrate(db); err != nil {
			logger.Fatal("database migrations failed", zap.Error(err))
		}
		sqlDB, err = db.DB()
		if err != nil {
			logger.Fatal("postgres underlying db init failed", zap.Error(err))
		}
		defer sqlDB.Close()

		gormArchive, err = repository.NewGormArchive(db)
		if err != nil {
			logger.Fatal("delivery archive init failed", zap.Error(err))
		}
		archive = gormArchive
	} else {
		logger.Info("no database configured, delivery archive disabled")
	}

	var counter ratelimit.Counter = ratelimit.NewMemoryCounter()
	var rdb *goredis.Client
	if cfg.RedisURL != "" {
		rdb, err = infraredis.NewRedis(cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis initialization failed", zap.Error(err))
		}
		defer rdb.Close()

		counter, err = infraredis.NewCounter(rdb)
		if err != nil {
			logger.Fatal("redis rate counter init failed", zap.Error(err))
		}
	} else {
		logger.Info("no redis configured, rate limiting kept in process memory")
	}

	registry := channel.NewRegistry(
		channel.NewWhatsAppAdapter(channel.WhatsAppConfig{
			BaseURL:     cfg.WhatsAppBaseURL,
			AccessToken: cfg.WhatsAppToken,
			PhoneID:     cfg.WhatsAppPhoneID,
		}),
		channel.NewSMSAdapter(channel.SMSConfig{
			BaseURL:    cfg.SMSBaseURL,
			AccountSID: cfg.SMSAccountSID,
			AuthToken:  cfg.SMSAuthToken,
			FromNumber: cfg.SMSFromNumber,
		}),
		channel.NewEmailAdapter(channel.EmailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.EmailFrom,
		}),
	)

	svc, err := service.New(registry, prefs.NewMemoryStore(), counter, archive, service.Config{
		SweepInterval:  time.Duration(cfg.SweepIntervalSeconds) * time.Second,
		BulkBatchSize:  cfg.BulkBatchSize,
		BulkPause:      time.Duration(cfg.BulkPauseMillis) * time.Millisecond,
		AttemptTimeout: time.Duration(cfg.AttemptTimeoutSeconds) * time.Second,
	}, logger)
	if err != nil {
		logger.Fatal("delivery service init failed", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	svc.SetMetrics(metrics)

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(metrics.HTTPMiddleware())
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	if err := handler.RegisterNotificationRoutes(app, svc); err != nil {
		logger.Fatal("route registration failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := svc.Start(ctx); err != nil && ctx.Err() == nil {
			logger.Error("scheduler stopped", zap.Error(err))
		}
	}()

	if gormArchive != nil {
		go pruneArchive(ctx, gormArchive, logger)
	}

	go func() {
		logger.Info("choreline api started", zap.Int("port", cfg.APIPort))
		if err := app.Listen(fmt.Sprintf(":%d", cfg.APIPort)); err != nil {
			logger.Error("http server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("http shutdown failed", zap.Error(err))
	}
}

const archiveRetention = 90 * 24 * time.Hour

// pruneArchive drops archived delivery records past retention once a day.
func pruneArchive(ctx context.Context, archive *repository.GormArchive, logger *zap.Logger) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := archive.PruneBefore(ctx, time.Now().Add(-archiveRetention)); err != nil {
				logger.Warn("archive prune failed", zap.Error(err))
			}
		}
	}
}
