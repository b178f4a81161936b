package repository

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dmfreitas/invoice-extractor/internal/entity"
)

type Config struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
	DialTimeout     time.Duration
}

// Open connects to the database named by URL and migrates the schema.
// postgres:// and postgresql:// URLs use the Postgres driver; everything else
// is treated as a SQLite file path (an optional sqlite:// prefix is allowed).
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*gorm.DB, error) {
	logger.Info("connecting to database", "url", redactURL(cfg.URL))

	dialector := dialectorFor(cfg.URL)
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxConnLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.MaxConnLifetime)
	}

	pingCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	if err := sqlDB.PingContext(pingCtx); err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}

	if err := db.WithContext(ctx).AutoMigrate(
		&entity.Invoice{},
		&entity.LineItem{},
		&entity.ExtractJob{},
	); err != nil {
		logger.Error("schema migration failed", "error", err)
		return nil, err
	}

	logger.Info("successfully connected to database")
	return db, nil
}

// Close closes the underlying connection pool gracefully.
func Close(db *gorm.DB, logger *slog.Logger) {
	if db == nil {
		return
	}
	logger.Info("closing database connections")
	sqlDB, err := db.DB()
	if err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
			return
		}
	}
	logger.Info("database connections closed")
}

// HealthCheck pings through database/sql to catch URL issues early.
func HealthCheck(ctx context.Context, db *gorm.DB, timeout time.Duration, logger *slog.Logger) error {
	logger.Debug("pinging database")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return err
	}
	logger.Debug("database ping successful")
	return nil
}

func dialectorFor(url string) gorm.Dialector {
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return postgres.Open(url)
	}
	return sqlite.Open(strings.TrimPrefix(url, "sqlite://"))
}

// redactURL hides credentials embedded in connection URLs before logging.
func redactURL(url string) string {
	at := strings.LastIndex(url, "@")
	if at == -1 {
		return url
	}
	scheme := strings.Index(url, "://")
	if scheme == -1 || at < scheme {
		return url
	}
	return url[:scheme+3] + "***" + url[at:]
}
