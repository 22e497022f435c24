package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mikepea/recipebox/pkg/recipebox/config"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// sqlitePragmas turn on foreign keys (for cascading owner deletes), let
// writers wait for each other instead of failing with SQLITE_BUSY, and take
// the write lock at BEGIN so concurrent transactions cannot deadlock on upgrade.
var sqlitePragmas = []string{
	"_foreign_keys=on",
	"_busy_timeout=5000",
	"_journal_mode=WAL",
	"_txlock=immediate",
}

// Open initializes a gorm connection for the configured driver.
// Unique-constraint violations are translated to gorm.ErrDuplicatedKey.
func Open(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(SQLiteDSN(cfg.DSN))
	case "postgres":
		dialector = postgres.New(postgres.Config{
			DSN:                  cfg.DSN,
			PreferSimpleProtocol: true,
		})
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newGormLogger(log, cfg.LogLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get database object: %w", err)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return db, nil
}

// SQLiteDSN appends the pragmas the store depends on to a SQLite path,
// leaving any pragma the caller already set untouched.
func SQLiteDSN(dsn string) string {
	var missing []string
	for _, p := range sqlitePragmas {
		key := p[:strings.Index(p, "=")+1]
		if !strings.Contains(dsn, key) {
			missing = append(missing, p)
		}
	}
	if len(missing) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(missing, "&")
}

// WaitFor retries Open and Ping until the database answers, the attempts
// are exhausted or ctx is cancelled.
func WaitFor(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	var lastErr error
	for attempt := 1; attempt <= cfg.WaitAttempts; attempt++ {
		db, err := Open(cfg, log)
		if err == nil {
			err = ping(ctx, db)
			if err == nil {
				log.Info("Database is available", zap.Int("attempt", attempt))
				return db, nil
			}
			if sqlDB, dbErr := db.DB(); dbErr == nil {
				sqlDB.Close()
			}
		}
		lastErr = err
		log.Warn("Database unavailable, waiting",
			zap.Int("attempt", attempt),
			zap.Duration("interval", cfg.WaitInterval),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(cfg.WaitInterval):
		}
	}
	return nil, fmt.Errorf("database not available after %d attempts: %w", cfg.WaitAttempts, lastErr)
}

func ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func newGormLogger(log *zap.Logger, level string) gormlogger.Interface {
	var lvl gormlogger.LogLevel
	switch level {
	case "silent":
		lvl = gormlogger.Silent
	case "error":
		lvl = gormlogger.Error
	case "info":
		lvl = gormlogger.Info
	default:
		lvl = gormlogger.Warn
	}
	if log == nil {
		log = zap.NewNop()
	}
	return gormlogger.New(zap.NewStdLog(log.Named("gorm")), gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  lvl,
		IgnoreRecordNotFoundError: true,
	})
}
