package db

import (
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tometh04/vibook-accounting/internal/config"
)

// Open connects to the accounting database.
func Open(cfg config.Config, log *zap.Logger) (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", cfg.DatabasePath)
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	// Serialized writer; the accounting core relies on transactional writes,
	// not connection-level parallelism.
	sqlDB.SetMaxOpenConns(1)

	log.Info("database opened", zap.String("path", cfg.DatabasePath))
	return conn, nil
}

var Module = fx.Module("db",
	fx.Provide(Open),
)
