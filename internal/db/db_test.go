package db

import (
	"context"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/diewo77/invoice-dashboard/internal/config"
	"github.com/diewo77/invoice-dashboard/internal/models"
)

func memoryConfig(t *testing.T) config.DatabaseConfig {
	return config.DatabaseConfig{
		DSN:      fmt.Sprintf("sqlite:file:%s?mode=memory&cache=shared", t.Name()),
		LogLevel: "silent",
	}
}

func TestNormalizeDSN(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "  ", ""},
		{"url kept", "postgres://u:p@h:5432/db", "postgres://u:p@h:5432/db"},
		{"quoted url", `"postgresql://u@h/db"`, "postgresql://u@h/db"},
		{"kv adds sslmode", "host=h  user=u dbname=d", "host=h user=u dbname=d sslmode=disable"},
		{"kv keeps sslmode", "host=h user=u dbname=d sslmode=require", "host=h user=u dbname=d sslmode=require"},
		{"sqlite untouched", "sqlite:file:x?mode=memory", "sqlite:file:x?mode=memory"},
		{"unknown untouched", "nonsense", "nonsense"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeDSN(tt.in); got != tt.want {
				t.Errorf("NormalizeDSN(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestToURLDSN(t *testing.T) {
	got := ToURLDSN("host=db port=5432 user=app password=secret dbname=dash sslmode=disable")
	want := "postgres://app:secret@db:5432/dash?sslmode=disable"
	if got != want {
		t.Fatalf("ToURLDSN = %q, want %q", got, want)
	}
	if got := ToURLDSN("host=db dbname=dash"); got != "host=db dbname=dash" {
		t.Fatalf("incomplete kv should be unchanged, got %q", got)
	}
}

func TestMaskDSN(t *testing.T) {
	if got := MaskDSN("host=h password=hunter2 user=u"); got != "host=h password=*** user=u" {
		t.Errorf("kv mask = %q", got)
	}
	if got := MaskDSN("postgres://app:hunter2@db:5432/dash"); got != "postgres://app:***@db:5432/dash" {
		t.Errorf("url mask = %q", got)
	}
}

func TestIsSQLite(t *testing.T) {
	for dsn, want := range map[string]bool{
		"sqlite::memory:":           true,
		"file:test.db":              true,
		"postgres://u@h/db":         false,
		"host=h user=u dbname=dash": false,
	} {
		if got := IsSQLite(dsn); got != want {
			t.Errorf("IsSQLite(%q) = %v, want %v", dsn, got, want)
		}
	}
}

func TestConnectRejectsEmptyDSN(t *testing.T) {
	if _, err := Connect(context.Background(), config.DatabaseConfig{}, zap.NewNop()); err != ErrEmptyDSN {
		t.Fatalf("expected ErrEmptyDSN, got %v", err)
	}
}

func TestConnectMigrateSeedSQLite(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig(t)
	conn, err := Connect(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := Migrate(conn, cfg, zap.NewNop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if err := Seed(ctx, conn, zap.NewNop()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := Seed(ctx, conn, zap.NewNop()); err != nil {
		t.Fatalf("second seed: %v", err)
	}

	counts := map[string]int64{}
	for name, model := range map[string]any{
		"users":     &models.User{},
		"customers": &models.Customer{},
		"invoices":  &models.Invoice{},
		"revenue":   &models.Revenue{},
	} {
		var n int64
		conn.Model(model).Count(&n)
		counts[name] = n
	}
	want := map[string]int64{
		"users":     1,
		"customers": int64(len(seedCustomers)),
		"invoices":  int64(len(seedInvoices)),
		"revenue":   12,
	}
	for k, v := range want {
		if counts[k] != v {
			t.Errorf("%s: got %d rows, want %d", k, counts[k], v)
		}
	}

	var u models.User
	if err := conn.Where("email = ?", SeedUser.Email).First(&u).Error; err != nil {
		t.Fatalf("seed user missing: %v", err)
	}
	if u.Password == SeedUser.Password {
		t.Fatal("seed password stored in plaintext")
	}
}
