package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewGorm opens a gorm handle on the same PostgreSQL database for ORM-backed tables.
func NewGorm(dsn string, opts PoolOptions, log *zap.Logger) (*gorm.DB, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql.DB: %w", err)
	}
	maxOpen := 10
	if opts.MaxConns > 0 {
		maxOpen = int(opts.MaxConns)
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxOpen / 2)
	lifetime := 30 * time.Minute
	if opts.MaxConnLifetime > 0 {
		lifetime = opts.MaxConnLifetime
	}
	sqlDB.SetConnMaxLifetime(lifetime)

	log.Info("gorm connection established")
	return db, nil
}
