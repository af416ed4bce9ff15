package db

import (
	"errors"
	"fmt"

	migrate "github.com/golang-migrate/migrate/v4"
	// registers the postgres driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/diewo77/invoice-dashboard/internal/config"
	"github.com/diewo77/invoice-dashboard/internal/models"
)

// DefaultMigrationsDir is where the SQL migrations live relative to the working directory.
const DefaultMigrationsDir = "migrations"

func migrationsSource(dir string) string {
	if dir == "" {
		dir = DefaultMigrationsDir
	}
	return "file://" + dir
}

var requiredTables = []string{"users", "customers", "invoices", "revenue"}

// Migrate applies the schema. With cfg.Migrations on a postgres DSN it runs
// the SQL files through golang-migrate; otherwise it falls back to gorm
// AutoMigrate, which is what sqlite and local development use.
func Migrate(conn *gorm.DB, cfg config.DatabaseConfig, log *zap.Logger) error {
	dsn := NormalizeDSN(cfg.DSN)
	if cfg.Migrations && !IsSQLite(dsn) {
		if err := runSQLMigrations(migrationsSource(cfg.MigrationsDir), ToURLDSN(dsn), log); err != nil {
			return fmt.Errorf("sql migrations: %w", err)
		}
	} else if err := AutoMigrate(conn); err != nil {
		return err
	}

	for _, table := range requiredTables {
		if !conn.Migrator().HasTable(table) {
			return errors.New("missing table after migration: " + table)
		}
	}
	return nil
}

// AutoMigrate creates or updates the tables from the gorm models.
func AutoMigrate(conn *gorm.DB) error {
	for _, m := range []any{&models.User{}, &models.Customer{}, &models.Invoice{}, &models.Revenue{}} {
		if err := conn.AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	return nil
}

func runSQLMigrations(source, url string, log *zap.Logger) error {
	m, err := migrate.New(source, url)
	if err != nil {
		return err
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			log.Warn("closing migrator", zap.NamedError("source", srcErr), zap.NamedError("database", dbErr))
		}
	}()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("no migrations to apply")
			return nil
		}
		return err
	}
	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("migration version: %w", err)
	}
	log.Info("migrations applied", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}
