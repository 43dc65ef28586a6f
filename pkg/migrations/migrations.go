package migrations

import (
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationFolder = "sql"

//go:embed sql/*.sql
var migrationFS embed.FS

// MigrateStore applies the pending schema migrations to db.
func MigrateStore(db *gorm.DB) error {
	goose.SetLogger(&logger{})
	goose.SetBaseFS(migrationFS)

	dialect, err := gooseDialect(db.Dialector.Name())
	if err != nil {
		return err
	}
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	return goose.Up(sqlDB, migrationFolder)
}

func gooseDialect(gormDialect string) (string, error) {
	switch gormDialect {
	case "postgres":
		return "postgres", nil
	case "sqlite":
		return "sqlite3", nil
	default:
		return "", fmt.Errorf("no migrations for %s databases", gormDialect)
	}
}

/*
logger implements goose.Logger interface

	type Logger interface {
		Fatalf(format string, v ...interface{})
		Printf(format string, v ...interface{})
	}
*/
type logger struct{}

func (m *logger) Printf(format string, v ...interface{}) { zap.S().Named("migrations").Infof(format, v...) }
func (m *logger) Fatalf(format string, v ...interface{}) { zap.S().Named("migrations").Fatalf(format, v...) }
