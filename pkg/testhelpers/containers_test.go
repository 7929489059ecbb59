//go:build integration

package testhelpers

import (
	"context"
	"testing"
)

func TestEngineDB_MigrationsApplied(t *testing.T) {
	engineDB := GetEngineDB(t)

	ctx := context.Background()

	for _, table := range []string{"age_policies", "conversation_messages", "safety_audit_log"} {
		var exists bool
		err := engineDB.DB.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = 'public' AND table_name = $1)",
			table).Scan(&exists)
		if err != nil {
			t.Fatalf("failed to check table %s: %v", table, err)
		}
		if !exists {
			t.Errorf("expected table %s to exist after migrations", table)
		}
	}
}

func TestEngineDB_SingleActivePolicyIndex(t *testing.T) {
	engineDB := GetEngineDB(t)

	ctx := context.Background()

	var indexName string
	err := engineDB.DB.QueryRow(ctx,
		"SELECT indexname FROM pg_indexes WHERE tablename = 'age_policies' AND indexname = 'age_policies_single_active'").
		Scan(&indexName)
	if err != nil {
		t.Fatalf("expected partial unique index on age_policies: %v", err)
	}
}
