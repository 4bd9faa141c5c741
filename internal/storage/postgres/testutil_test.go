package postgres

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// One container serves the whole package; each test gets its own schema.
var (
	containerOnce sync.Once
	container     *postgres.PostgresContainer
	containerDSN  string
	containerErr  error
	schemaSeq     atomic.Int64
)

func TestMain(m *testing.M) {
	code := m.Run()
	if container != nil {
		_ = container.Terminate(context.Background())
	}
	os.Exit(code)
}

func startContainer(ctx context.Context) {
	container, containerErr = postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("trade_memory"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if containerErr != nil {
		return
	}
	containerDSN, containerErr = container.ConnectionString(ctx, "sslmode=disable")
}

// setupTestDB returns a pool whose search_path is a fresh schema with the
// journal migrations applied. cleanup drops the schema and closes the pool.
func setupTestDB(t *testing.T) (*Pool, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	containerOnce.Do(func() { startContainer(ctx) })
	require.NoError(t, containerErr, "postgres container unavailable")

	schema := fmt.Sprintf("journal_%d", schemaSeq.Add(1))
	admin, err := NewPool(ctx, containerDSN, PoolOptions{MaxConns: 1})
	require.NoError(t, err)
	_, err = admin.Exec(ctx, "CREATE SCHEMA "+schema)
	admin.Close()
	require.NoError(t, err)

	pool, err := NewPool(ctx, containerDSN+"&search_path="+schema, PoolOptions{MaxConns: 4})
	require.NoError(t, err)

	applySchema(t, ctx, pool)

	cleanup := func() {
		if _, err := pool.Exec(ctx, "DROP SCHEMA "+schema+" CASCADE"); err != nil {
			t.Logf("drop schema %s: %v", schema, err)
		}
		pool.Close()
	}
	return pool, cleanup
}

// applySchema runs the migration files from disk; the migrations package
// imports this one, so its embedded copy is out of reach here.
func applySchema(t *testing.T, ctx context.Context, pool *Pool) {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	require.True(t, ok)
	dir := filepath.Join(filepath.Dir(thisFile), "..", "migrations", "postgres")

	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, files, "no migrations under %s", dir)
	sort.Strings(files)

	for _, file := range files {
		sql, err := os.ReadFile(file)
		require.NoError(t, err)
		_, err = pool.Exec(ctx, string(sql))
		require.NoError(t, err, "apply %s", filepath.Base(file))
	}
}

func ptr[T any](v T) *T {
	return &v
}
