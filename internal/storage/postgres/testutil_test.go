package postgres

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB starts a throwaway PostgreSQL container with the audit schema
// applied. The container is terminated when the test ends.
func setupTestDB(t *testing.T) *Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("scan"),
		postgres.WithUsername("scan"),
		postgres.WithPassword("scan"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	applySchema(t, ctx, pool)
	return pool
}

// applySchema executes the migration files in name order. The migrations
// package imports this one, so the files are read from disk.
func applySchema(t *testing.T, ctx context.Context, pool *Pool) {
	t.Helper()

	dir := os.DirFS(filepath.Join("..", "migrations", "postgres"))
	files, err := fs.Glob(dir, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files, "no migration files found")

	for _, name := range files {
		sql, err := fs.ReadFile(dir, name)
		require.NoError(t, err)
		_, err = pool.Exec(ctx, string(sql))
		require.NoError(t, err, "apply %s", name)
	}
}
