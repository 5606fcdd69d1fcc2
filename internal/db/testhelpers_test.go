package db

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// testPool is the shared pool for the PostgreSQL tests, nil under -short.
var testPool *pgxpool.Pool

// TestMain starts one PostgreSQL 16 container for the package unless -short is set.
func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		log.Fatalf("starting postgres container: %v", err)
	}

	code, err := runWithPostgres(ctx, container, m)
	if terr := testcontainers.TerminateContainer(container); terr != nil {
		log.Printf("terminating postgres container: %v", terr)
	}
	if err != nil {
		log.Fatal(err)
	}
	os.Exit(code)
}

func runWithPostgres(ctx context.Context, container *postgres.PostgresContainer, m *testing.M) (int, error) {
	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return 0, fmt.Errorf("getting connection string: %w", err)
	}
	if err := RunMigrations(ctx, dsn); err != nil {
		return 0, fmt.Errorf("running migrations: %w", err)
	}
	d, err := New(ctx, dsn)
	if err != nil {
		return 0, err
	}
	defer d.Close()
	testPool = d.Pool()

	return m.Run(), nil
}

// setupPostgres returns the shared pool with empty tables, or skips.
func setupPostgres(tb testing.TB) *pgxpool.Pool {
	tb.Helper()
	if testPool == nil {
		tb.Skip("postgres tests need a container (run without -short)")
	}
	ctx := context.Background()
	for _, q := range []string{"TRUNCATE players", "TRUNCATE worlds", "TRUNCATE sessions"} {
		if _, err := testPool.Exec(ctx, q); err != nil {
			tb.Fatalf("cleanup %q: %v", q, err)
		}
	}
	return testPool
}

// setupSQLite returns a fresh migrated database in a temp dir.
func setupSQLite(tb testing.TB) *SQLite {
	tb.Helper()
	s, err := OpenSQLite(context.Background(), tb.TempDir()+"/test.db")
	if err != nil {
		tb.Fatalf("opening sqlite: %v", err)
	}
	tb.Cleanup(func() { _ = s.Close() })
	return s
}
