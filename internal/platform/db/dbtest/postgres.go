// Package dbtest starts a throwaway Postgres for integration tests.
package dbtest

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dmehra2102/storefront/internal/platform/db"
)

type Env struct {
	PG    *postgres.PostgresContainer
	PGURL string
	Pool  *pgxpool.Pool
}

// Setup runs a migrated Postgres container and returns a pool bound to it.
// It skips the test under -short or when no container runtime is reachable.
func Setup(t *testing.T) *Env {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pgC, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("storefront"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(context.Background()) })

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, db.Migrate(slog.New(slog.NewTextHandler(io.Discard, nil)), pgURL))

	pool, err := pgxpool.New(ctx, pgURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return &Env{PG: pgC, PGURL: pgURL, Pool: pool}
}

// SeedUser inserts a user row and returns its id.
func SeedUser(t *testing.T, pool *pgxpool.Pool, id, role string, active bool) string {
	t.Helper()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO users (id, first_name, last_name, email, role, is_active, is_verified)
		 VALUES ($1, 'Test', $2, $1 || '@example.com', $2, $3, TRUE)`,
		id, role, active)
	require.NoError(t, err)
	return id
}

// SeedProduct inserts a product row with the given price and stock.
func SeedProduct(t *testing.T, pool *pgxpool.Pool, id string, priceCents int64, qty int) string {
	t.Helper()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO products (id, name, price_cents, quantity, image) VALUES ($1, $1, $2, $3, '')`,
		id, priceCents, qty)
	require.NoError(t, err)
	return id
}
