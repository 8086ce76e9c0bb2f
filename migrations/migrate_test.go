package migrations

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func getTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping migration integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	return pool
}

func runSQL(t *testing.T, pool *pgxpool.Pool, filename string) {
	t.Helper()
	sql, err := os.ReadFile(filename)
	if err != nil {
		t.Fatalf("failed to read %s: %v", filename, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err = pool.Exec(ctx, string(sql))
	if err != nil {
		t.Fatalf("failed to execute %s: %v", filename, err)
	}
}

var schemaTables = []string{
	"users", "conversations", "messages", "documents",
	"summaries", "lawyer_connections", "notifications",
}

func assertTablesExist(t *testing.T, pool *pgxpool.Pool, tables []string) {
	t.Helper()
	ctx := context.Background()
	for _, table := range tables {
		var exists bool
		err := pool.QueryRow(ctx,
			"SELECT EXISTS (SELECT FROM information_schema.tables WHERE table_name = $1)", table,
		).Scan(&exists)
		if err != nil {
			t.Fatalf("failed to check table %s: %v", table, err)
		}
		if !exists {
			t.Errorf("table %s does not exist", table)
		}
	}
}

func TestMigration_UpCreatesAllTables(t *testing.T) {
	pool := getTestPool(t)
	defer pool.Close()

	runSQL(t, pool, "001_initial_schema.up.sql")

	assertTablesExist(t, pool, schemaTables)
}

func TestMigration_UpIsIdempotent(t *testing.T) {
	pool := getTestPool(t)
	defer pool.Close()

	runSQL(t, pool, "001_initial_schema.up.sql")
	runSQL(t, pool, "001_initial_schema.up.sql")
}

func TestMigration_DownAndUpCycle(t *testing.T) {
	pool := getTestPool(t)
	defer pool.Close()

	// We don't check table absence between down/up because concurrent
	// test packages (repository) share this database and may recreate tables.
	runSQL(t, pool, "001_initial_schema.down.sql")
	runSQL(t, pool, "001_initial_schema.up.sql")

	assertTablesExist(t, pool, schemaTables)
}

func TestMigration_ConversationFactColumnsExist(t *testing.T) {
	pool := getTestPool(t)
	defer pool.Close()

	runSQL(t, pool, "001_initial_schema.up.sql")

	ctx := context.Background()
	for _, col := range []string{"who", "what", "when_facts", "where_facts", "why"} {
		var dataType string
		err := pool.QueryRow(ctx, `
			SELECT data_type FROM information_schema.columns
			WHERE table_name = 'conversations' AND column_name = $1
		`, col).Scan(&dataType)
		if err != nil {
			t.Fatalf("failed to check %s column: %v", col, err)
		}
		if dataType != "jsonb" {
			t.Errorf("conversations.%s type = %q, want %q", col, dataType, "jsonb")
		}
	}
}

func TestMigration_SummaryConversationIDIsUnique(t *testing.T) {
	pool := getTestPool(t)
	defer pool.Close()

	runSQL(t, pool, "001_initial_schema.up.sql")

	ctx := context.Background()
	var isUnique bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM pg_constraint
			WHERE conrelid = 'summaries'::regclass
			AND contype = 'u'
			AND conkey = (
				SELECT array_agg(attnum) FROM pg_attribute
				WHERE attrelid = 'summaries'::regclass AND attname = 'conversation_id'
			)
		)
	`).Scan(&isUnique)
	if err != nil {
		t.Fatalf("failed to check unique constraint: %v", err)
	}
	if !isUnique {
		t.Error("summaries.conversation_id is not unique, required for idempotent summary generation")
	}
}
