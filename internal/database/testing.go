package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/yourusername/fx-backtest/internal/config"
)

// TestDatabaseEnv names the config file used by Postgres integration tests
const TestDatabaseEnv = "FX_BACKTEST_TEST_CONFIG"

// SetupTestDB connects to the integration database, skipping the test when none is configured
func SetupTestDB(t *testing.T) *DB {
	t.Helper()

	path := os.Getenv(TestDatabaseEnv)
	if path == "" {
		t.Skipf("%s not set, skipping postgres integration test", TestDatabaseEnv)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("failed to load test config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := Initialize(ctx, cfg)
	if err != nil {
		t.Fatalf("failed to create test database connection: %v", err)
	}

	t.Cleanup(db.Close)
	return db
}
