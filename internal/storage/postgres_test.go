package storage

import (
	"context"
	"os"
	"testing"
)

func getPostgresDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("INTAKE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("INTAKE_TEST_POSTGRES_DSN not set, skipping PostgreSQL tests")
	}
	return dsn
}

func newPostgresTestStorage(t *testing.T) Storage {
	t.Helper()
	dsn := getPostgresDSN(t)
	s, err := NewPostgresStorage(Config{ConnectionString: dsn})
	if err != nil {
		t.Fatalf("failed to create postgres storage: %v", err)
	}
	if _, err := s.pool.Exec(context.Background(), "TRUNCATE leads RESTART IDENTITY"); err != nil {
		t.Fatalf("failed to reset leads table: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPostgresStorage(t *testing.T) {
	getPostgresDSN(t)
	testStorageSuite(t, newPostgresTestStorage)
}

func TestPostgresStorageConnectionError(t *testing.T) {
	_, err := NewPostgresStorage(Config{ConnectionString: ""})
	if err == nil {
		t.Error("expected error for empty connection string")
	}
}

func TestPostgresStorageInvalidDSN(t *testing.T) {
	_, err := NewPostgresStorage(Config{ConnectionString: "postgres://invalid:5432/nonexistent?connect_timeout=1"})
	if err == nil {
		t.Error("expected error for unreachable database")
	}
}
