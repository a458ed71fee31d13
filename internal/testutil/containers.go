// Package testutil starts the throwaway Postgres and Redis containers used by
// package and integration tests.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"ochre-shop/internal/config"
	"ochre-shop/internal/database"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// RequireContainers skips the test under -short or when no container
// runtime is reachable.
func RequireContainers(t *testing.T) {
	t.Helper()
	if skipIfShort(t, testing.Short()) {
		return
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
}

func skipIfShort(t testing.TB, short bool) bool {
	t.Helper()
	if short {
		t.Skip("skipping container-backed test in short mode")
		return true
	}
	return false
}

// PostgresConfig starts a PostgreSQL container and returns a config pointing at it.
func PostgresConfig(t *testing.T) config.DatabaseConfig {
	t.Helper()
	RequireContainers(t)
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            "postgres",
		Password:        "postgres",
		Database:        "testdb",
		MaxConnections:  10,
		MinConnections:  1,
		MaxConnLifetime: 300,
	}
}

// Postgres starts a PostgreSQL container, applies the schema and returns a pool.
func Postgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pool, err := database.NewPool(ctx, PostgresConfig(t), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, database.Migrate(ctx, pool, zerolog.Nop()))
	return pool
}

// Redis starts a Redis container and returns a connected client.
func Redis(t *testing.T) *redis.Client {
	t.Helper()
	RequireContainers(t)
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate redis container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

// Truncate empties every application table between subtests.
func Truncate(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	_, err := pool.Exec(context.Background(), `
		TRUNCATE experience_bookings, order_items, orders, cart_items, carts,
			product_units, products, categories, users RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
}

