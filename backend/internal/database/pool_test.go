package database

import (
	"context"
	"testing"
)

func TestNewDatabasePool_SQLite(t *testing.T) {
	config := DefaultPoolConfig()
	config.Driver = DriverSQLite
	config.DSN = "file::memory:?cache=shared"

	pool, err := NewDatabasePool(config)
	if err != nil {
		t.Fatalf("Failed to open sqlite pool: %v", err)
	}
	defer pool.Close()

	if err := pool.AutoMigrate(); err != nil {
		t.Fatalf("AutoMigrate failed: %v", err)
	}
	if err := pool.Health(context.Background()); err != nil {
		t.Errorf("Expected healthy pool, got %v", err)
	}

	stats := pool.Stats()
	if stats["driver"] != "sqlite" {
		t.Errorf("Expected driver sqlite, got %v", stats["driver"])
	}
	if stats["max_open_connections"] != 1 {
		t.Errorf("Expected 1 max open connection, got %v", stats["max_open_connections"])
	}
}

func TestNewDatabasePool_UnknownDriver(t *testing.T) {
	config := DefaultPoolConfig()
	config.Driver = "oracle"

	if _, err := NewDatabasePool(config); err == nil {
		t.Error("Expected error for unsupported driver")
	}
}
