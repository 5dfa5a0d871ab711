//go:build integration

package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"todoAPI/repository"
)

// SetupTestDB returns a Postgres pool. TEST_DATABASE_URL is used when set,
// otherwise a throwaway container is started.
func SetupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	ctx := context.Background()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
			tcpostgres.WithDatabase("todo"),
			tcpostgres.WithUsername("todo"),
			tcpostgres.WithPassword("todo"),
			tcpostgres.BasicWaitStrategies(),
		)
		if err != nil {
			t.Fatalf("failed to start postgres container: %v", err)
		}
		t.Cleanup(func() {
			if err := testcontainers.TerminateContainer(container); err != nil {
				t.Logf("Warning: failed to terminate postgres container: %v", err)
			}
		})

		dbURL, err = container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			t.Fatalf("failed to get postgres connection string: %v", err)
		}
	}

	pool, err := repository.NewPostgresPool(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)

	return pool
}

// NewPostgresStore returns a store on a clean schema.
func NewPostgresStore(t *testing.T) *repository.PostgresStore {
	t.Helper()

	pool := SetupTestDB(t)
	store := repository.NewPostgresStore(pool)

	ctx := context.Background()
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	if _, err := pool.Exec(ctx, "TRUNCATE todo_items, todo_lists RESTART IDENTITY CASCADE"); err != nil {
		t.Fatalf("failed to clean test data: %v", err)
	}

	return store
}
