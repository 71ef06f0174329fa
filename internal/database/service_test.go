package database

import (
	"context"
	"testing"
)

func setupTestService(t *testing.T) *SQLiteService {
	t.Helper()

	service := NewSQLiteService(nil)
	if err := service.Connect(context.Background(), TestConfig()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() {
		service.Close()
	})
	return service
}

func TestConnectAndHealth(t *testing.T) {
	service := setupTestService(t)

	if err := service.Health(context.Background()); err != nil {
		t.Errorf("Health check failed: %v", err)
	}
	if service.DB() == nil {
		t.Error("DB handle is nil after connect")
	}
}

func TestMigrateCreatesSchema(t *testing.T) {
	service := setupTestService(t)
	ctx := context.Background()

	if err := service.Migrate(ctx); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	version, err := service.GetMigrationVersion(ctx)
	if err != nil {
		t.Fatalf("GetMigrationVersion failed: %v", err)
	}
	if version < 1 {
		t.Errorf("Expected migration version >= 1, got %d", version)
	}

	var name string
	err = service.DB().QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'coding_sessions'`).Scan(&name)
	if err != nil {
		t.Fatalf("coding_sessions table missing after migration: %v", err)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	service := setupTestService(t)
	ctx := context.Background()

	if err := service.Migrate(ctx); err != nil {
		t.Fatalf("First migrate failed: %v", err)
	}
	if err := service.Migrate(ctx); err != nil {
		t.Errorf("Second migrate failed: %v", err)
	}
}

func TestOptimizeRuns(t *testing.T) {
	service := setupTestService(t)
	ctx := context.Background()

	if err := service.Migrate(ctx); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	if err := service.Optimize(ctx); err != nil {
		t.Errorf("Optimize failed: %v", err)
	}
}

func TestCloseIsSafeToRepeat(t *testing.T) {
	service := NewSQLiteService(nil)
	if err := service.Connect(context.Background(), TestConfig()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	if err := service.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := service.Close(); err != nil {
		t.Errorf("Second close failed: %v", err)
	}
}

func TestHealthFailsWhenNotConnected(t *testing.T) {
	service := NewSQLiteService(nil)
	if err := service.Health(context.Background()); err == nil {
		t.Error("Health should fail before connect")
	}
}
