package clickhouse

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB starts a throwaway ClickHouse server with the trade event
// schema applied. The container is terminated when the test ends.
func setupTestDB(t *testing.T) *Conn {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "clickhouse/clickhouse-server:24.1-alpine",
			ExposedPorts: []string{"9000/tcp"},
			Env:          map[string]string{"CLICKHOUSE_DB": "scan"},
			WaitingFor: wait.ForAll(
				wait.ForLog("Ready for connections").WithStartupTimeout(60*time.Second),
				wait.ForListeningPort("9000/tcp"),
			),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "start clickhouse container")

	endpoint, err := container.PortEndpoint(ctx, "9000/tcp", "")
	require.NoError(t, err)

	conn, err := NewConn(ctx, fmt.Sprintf("clickhouse://%s/scan", endpoint))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	applySchema(t, ctx, conn)
	return conn
}

// applySchema executes the migration statements one Exec at a time. The
// migrations package imports this one, so the files are read from disk.
func applySchema(t *testing.T, ctx context.Context, conn *Conn) {
	t.Helper()

	dir := os.DirFS(filepath.Join("..", "migrations", "clickhouse"))
	files, err := fs.Glob(dir, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files, "no migration files found")

	for _, name := range files {
		content, err := fs.ReadFile(dir, name)
		require.NoError(t, err)
		for _, stmt := range strings.Split(withoutComments(string(content)), ";") {
			if strings.TrimSpace(stmt) != "" {
				require.NoError(t, conn.Exec(ctx, stmt), "apply %s", name)
			}
		}
	}
}

func withoutComments(sql string) string {
	var b strings.Builder
	for _, line := range strings.Split(sql, "\n") {
		if !strings.HasPrefix(strings.TrimSpace(line), "--") {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String()
}
