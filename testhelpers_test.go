package pgxplore_test

import (
	"context"
	"os"
	"testing"

	pgxplore "github.com/pgxplore/pgxplore"
	"github.com/rickchristie/govner/pgflock/client"
	"github.com/rs/zerolog"
)

const (
	pgflockLockerPort = 9776
	pgflockPassword   = "pgflock"
)

func acquireTestDB(t *testing.T) string {
	t.Helper()
	connStr, err := client.Lock(pgflockLockerPort, t.Name(), pgflockPassword)
	if err != nil {
		t.Fatalf("Failed to acquire test database: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Unlock(pgflockLockerPort, pgflockPassword, connStr)
	})
	return connStr
}

func testLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).Level(zerolog.Disabled)
}

func defaultConfig() pgxplore.Config {
	return pgxplore.Config{
		Pool: pgxplore.PoolConfig{MaxConns: 5},
		Query: pgxplore.QueryConfig{
			DefaultTimeoutSeconds: 30,
			InspectTimeoutSeconds: 10,
			MaxSQLLength:          100000,
			MaxResultLength:       100000,
		},
	}
}

func newTestInstance(t *testing.T, config pgxplore.Config) (*pgxplore.Explorer, string) {
	t.Helper()
	connStr := acquireTestDB(t)
	ctx := context.Background()
	e, err := pgxplore.New(ctx, connStr, config, testLogger())
	if err != nil {
		t.Fatalf("Failed to create Explorer: %v", err)
	}
	t.Cleanup(func() { e.Close(ctx) })
	return e, connStr
}

// setupDDL runs a DDL statement during test setup, failing the test on error.
func setupDDL(t *testing.T, e *pgxplore.Explorer, sql string) {
	t.Helper()
	_, err := e.Execute(context.Background(), pgxplore.ExecuteInput{SQL: sql, Category: pgxplore.CategoryDefinition})
	if err != nil {
		t.Fatalf("setup DDL failed: %v", err)
	}
}

// setupDML runs a DML statement during test setup, failing the test on error.
func setupDML(t *testing.T, e *pgxplore.Explorer, sql string) {
	t.Helper()
	_, err := e.Execute(context.Background(), pgxplore.ExecuteInput{SQL: sql, Category: pgxplore.CategoryMutation})
	if err != nil {
		t.Fatalf("setup DML failed: %v", err)
	}
}

// queryRows runs a DQL statement and returns its rows, failing the test on error.
func queryRows(t *testing.T, e *pgxplore.Explorer, sql string) *pgxplore.ExecResult {
	t.Helper()
	result, err := e.Execute(context.Background(), pgxplore.ExecuteInput{SQL: sql, Category: pgxplore.CategoryQuery})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	return result
}
