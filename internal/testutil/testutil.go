// Package testutil holds integration test helpers. Tests that need Postgres or
// Redis skip unless the service is reachable (or fail when TEST_REQUIRE_INFRA is set).
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	// Import pgx driver for database/sql compatibility in tests.
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/target/ticketflow/internal/migrate"
)

// TestingTB is the part of *testing.T and *testing.B the helpers use.
type TestingTB interface {
	Helper()
	Skip(args ...any)
	Skipf(format string, args ...any)
	Fatal(args ...any)
	Fatalf(format string, args ...any)
	Logf(format string, args ...any)
	Cleanup(func())
}

// TestDBConfig holds the test database location.
type TestDBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// DefaultTestDBConfig reads TEST_DB_* with local docker-compose defaults.
func DefaultTestDBConfig() TestDBConfig {
	return TestDBConfig{
		Host:     getEnvOrDefault("TEST_DB_HOST", "localhost"),
		Port:     getEnvOrDefault("TEST_DB_PORT", "55432"),
		User:     getEnvOrDefault("TEST_DB_USER", "ticketflow"),
		Password: getEnvOrDefault("TEST_DB_PASSWORD", "ticketflow"),
		DBName:   getEnvOrDefault("TEST_DB_NAME", "ticketflow"),
	}
}

// DSN returns the connection string. TEST_DATABASE_URL wins when set.
func (c TestDBConfig) DSN() string {
	if v := os.Getenv("TEST_DATABASE_URL"); v != "" {
		return v
	}
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable",
		c.User, c.Password, net.JoinHostPort(c.Host, c.Port), c.DBName)
}

// SetupTestDB opens the test database, applies migrations and empties the
// tickets table. The handle is closed on cleanup.
func SetupTestDB(t TestingTB) *sql.DB {
	t.Helper()

	db, err := sql.Open("pgx", DefaultTestDBConfig().DSN())
	if err != nil {
		skipOrFail(t, requireDB(), "test database not available: %v", err)
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		skipOrFail(t, requireDB(), "test database not available: %v", err)
		return nil
	}
	if err := migrate.Run(ctx, db); err != nil {
		_ = db.Close()
		t.Fatal("run migrations:", err)
	}
	CleanupTestDB(t, db)
	t.Cleanup(func() {
		CleanupTestDB(t, db)
		if err := db.Close(); err != nil {
			t.Logf("close test db: %v", err)
		}
	})
	return db
}

// CleanupTestDB removes every ticket.
func CleanupTestDB(t TestingTB, db *sql.DB) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, "DELETE FROM tickets"); err != nil {
		t.Fatalf("clean up tickets: %v", err)
	}
}

// SetupTestRedis connects to REDIS_ADDR (default localhost:56379) and flushes
// the selected DB (TEST_REDIS_DB, default 1).
func SetupTestRedis(t TestingTB) *redis.Client {
	t.Helper()

	addr := getEnvOrDefault("REDIS_ADDR", "localhost:56379")
	db := 1
	if v := os.Getenv("TEST_REDIS_DB"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 {
			db = i
		}
	}

	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		skipOrFail(t, requireRedis(), "redis not available at %s: %v", addr, err)
		return nil
	}
	client.FlushDB(ctx)
	t.Cleanup(func() {
		if err := client.Close(); err != nil {
			t.Logf("close redis client: %v", err)
		}
	})
	return client
}

func skipOrFail(t TestingTB, required bool, format string, args ...any) {
	t.Helper()
	if required {
		t.Fatalf(format, args...)
		return
	}
	t.Skipf(format, args...)
}

func getEnvOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}

func requireDB() bool    { return envBool("TEST_REQUIRE_DB") || envBool("TEST_REQUIRE_INFRA") }
func requireRedis() bool { return envBool("TEST_REQUIRE_REDIS") || envBool("TEST_REQUIRE_INFRA") }
