// Package testutil opens throwaway databases for package tests.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/diewo77/invoice-dashboard/internal/config"
	"github.com/diewo77/invoice-dashboard/internal/db"
)

// MemoryDSN names a shared in-memory sqlite database private to t.
func MemoryDSN(t *testing.T) string {
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	return fmt.Sprintf("sqlite:file:%s?mode=memory&cache=shared", name)
}

// NewDB opens an empty, migrated sqlite database that lives until t ends.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := config.DatabaseConfig{DSN: MemoryDSN(t), LogLevel: "silent"}
	conn, err := db.Connect(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err, "connect sqlite")
	require.NoError(t, db.Migrate(conn, cfg, zap.NewNop()), "migrate sqlite")

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	// one connection keeps concurrent readers from tripping over sqlite table locks
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}

// SeededDB is NewDB plus the placeholder data.
func SeededDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn := NewDB(t)
	require.NoError(t, db.Seed(context.Background(), conn, zap.NewNop()), "seed sqlite")
	return conn
}

// CloseDB closes the pool under conn so every later query fails.
func CloseDB(t *testing.T, conn *gorm.DB) {
	t.Helper()
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
}

// MockDB wraps a GORM database with sqlmock.
type MockDB struct {
	DB    *gorm.DB
	Mock  sqlmock.Sqlmock
	SqlDB *sql.DB
}

// NewMockDB opens GORM's postgres dialect over sqlmock.
func NewMockDB(t *testing.T) *MockDB {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err, "create sqlmock")

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err, "open gorm over sqlmock")

	t.Cleanup(func() { _ = mockDB.Close() })
	return &MockDB{DB: gormDB, Mock: mock, SqlDB: mockDB}
}

// ExpectationsWereMet fails t on unmet expectations.
func (m *MockDB) ExpectationsWereMet(t *testing.T) {
	t.Helper()
	require.NoError(t, m.Mock.ExpectationsWereMet(), "unmet database expectations")
}
