//go:build integration

package testhelpers

import (
	"context"
	"testing"
)

func TestTestDB_MigrationsApplied(t *testing.T) {
	testDB := GetTestDB(t)

	ctx := context.Background()

	var exists bool
	err := testDB.DB.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'wizard_state')").
		Scan(&exists)
	if err != nil {
		t.Fatalf("failed to query information_schema: %v", err)
	}

	if !exists {
		t.Error("expected wizard_state table to exist after migrations")
	}
}

func TestTestRedis_Ping(t *testing.T) {
	testRedis := GetTestRedis(t)

	if err := testRedis.Client.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("failed to ping redis: %v", err)
	}
}
