//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/linkcut/linkcut/internal/testutil"
)

// ============================================================================
// Migration Integration Tests
// ============================================================================

func TestIntegrationMigration_ApplyAllTables(t *testing.T) {
	ctx, pool := newMigrationTestEnv(t)

	tables := []string{
		"users",
		"plans",
		"subscriptions",
		"links",
		"click_events",
		"daily_link_stats",
	}

	for _, table := range tables {
		t.Run(table, func(t *testing.T) {
			exists, err := tableExists(ctx, pool, table)
			if err != nil {
				t.Fatalf("tableExists failed: %v", err)
			}
			if !exists {
				t.Errorf("Table %q should exist after migrations", table)
			}
		})
	}
}

func TestIntegrationMigration_LinksTableSchema(t *testing.T) {
	ctx, pool := newMigrationTestEnv(t)

	expectedColumns := []string{
		"id",
		"code",
		"target_url",
		"owner_id",
		"click_count",
		"deleted_at",
		"created_at",
		"updated_at",
	}

	for _, column := range expectedColumns {
		t.Run(column, func(t *testing.T) {
			exists, err := columnExists(ctx, pool, "links", column)
			if err != nil {
				t.Fatalf("columnExists failed: %v", err)
			}
			if !exists {
				t.Errorf("Column links.%s should exist", column)
			}
		})
	}
}

func TestIntegrationMigration_CodeUniqueAcrossDeleted(t *testing.T) {
	ctx, pool := newMigrationTestEnv(t)

	code := testutil.UniqueCode("mig")
	_, err := pool.Exec(ctx, `
		INSERT INTO links (id, code, target_url, owner_id, deleted_at)
		VALUES ($1, $2, 'https://example.com', 'u1', NOW())
	`, testutil.UniqueID("link"), code)
	if err != nil {
		t.Fatalf("insert soft-deleted link: %v", err)
	}

	// The code index covers soft-deleted rows, so this must fail.
	_, err = pool.Exec(ctx, `
		INSERT INTO links (id, code, target_url, owner_id)
		VALUES ($1, $2, 'https://example.org', 'u2')
	`, testutil.UniqueID("link"), code)
	if err == nil {
		t.Error("inserting a retired code should violate the unique index")
	}
}

func TestIntegrationMigration_PlansSeeded(t *testing.T) {
	ctx, pool := newMigrationTestEnv(t)

	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM plans").Scan(&count); err != nil {
		t.Fatalf("count plans: %v", err)
	}
	if count < 3 {
		t.Errorf("expected at least 3 seeded plans, got %d", count)
	}

	var limit int
	err := pool.QueryRow(ctx, "SELECT link_limit FROM plans WHERE name = 'business'").Scan(&limit)
	if err != nil {
		t.Fatalf("query business plan: %v", err)
	}
	if limit != 0 {
		t.Errorf("business plan should be unlimited (0), got %d", limit)
	}
}

func TestIntegrationMigration_Idempotency(t *testing.T) {
	ctx, pool := newMigrationTestEnv(t)

	// A second apply must be a no-op via IF NOT EXISTS / ON CONFLICT.
	for _, schema := range []func(context.Context, *pgxpool.Pool) error{
		testutil.ResetUsersSchema,
		testutil.ResetPlansSchema,
		testutil.ResetLinksSchema,
		testutil.ResetClickEventsSchema,
	} {
		if err := schema(ctx, pool); err != nil {
			t.Fatalf("second apply should not fail: %v", err)
		}
	}
}

// ============================================================================
// Helper Functions
// ============================================================================

func tableExists(ctx context.Context, pool *pgxpool.Pool, tableName string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = 'public'
			AND table_name = $1
		)
	`, tableName).Scan(&exists)
	return exists, err
}

func columnExists(ctx context.Context, pool *pgxpool.Pool, tableName, columnName string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.columns
			WHERE table_schema = 'public'
			AND table_name = $1
			AND column_name = $2
		)
	`, tableName, columnName).Scan(&exists)
	return exists, err
}

// ============================================================================
// Test Environment Setup
// ============================================================================

func newMigrationTestEnv(t *testing.T) (context.Context, *pgxpool.Pool) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	dbURL := testutil.RequireEnv(t, "DATABASE_URL")

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(pool.Close)

	unlock, err := testutil.AcquireDBLock(ctx, pool)
	if err != nil {
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() {
		_ = unlock()
	})

	for _, schema := range []func(context.Context, *pgxpool.Pool) error{
		testutil.ResetUsersSchema,
		testutil.ResetPlansSchema,
		testutil.ResetLinksSchema,
		testutil.ResetClickEventsSchema,
	} {
		if err := schema(ctx, pool); err != nil {
			t.Fatalf("apply migrations: %v", err)
		}
	}

	return ctx, pool
}
