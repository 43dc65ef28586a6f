package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const sqlitePrefix = "sqlite:"

// InitDB opens the database named by dsn: a postgres:// URL, or
// "sqlite:<path>" for a local file.
func InitDB(dsn string) (*gorm.DB, error) {
	var dia gorm.Dialector

	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		dia = postgres.Open(dsn)
	case strings.HasPrefix(dsn, sqlitePrefix):
		dia = sqlite.Open(strings.TrimPrefix(dsn, sqlitePrefix))
	default:
		return nil, fmt.Errorf("unsupported database %q: expected postgres:// or sqlite:<path>", dsn)
	}

	newLogger := logger.New(
		logrus.New(),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
			Colorful:                  false,
		},
	)

	newDB, err := gorm.Open(dia, &gorm.Config{Logger: newLogger, TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := newDB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to configure connections: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	if dia.Name() == "sqlite" {
		// one writer at a time
		sqlDB.SetMaxOpenConns(1)
	}

	zap.S().Named("gorm").Infof("connected to %s database", dia.Name())
	return newDB, nil
}
