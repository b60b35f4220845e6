//go:build integration

package mssql

import (
	"context"
	"os"
	"testing"
	"time"

	"csvreporter/internal/storage"
)

func getTestDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("MSSQL_TEST_DSN")
	if dsn == "" {
		t.Skip("MSSQL_TEST_DSN not set; skipping MSSQL integration tests")
	}
	return dsn
}

func TestAuditCopyIntegration(t *testing.T) {
	dsn := getTestDSN(t)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	table := "dbo.csvreporter_audit_it"
	repo, closeFn, err := NewRepository(ctx, Config{DSN: dsn, Table: table})
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	defer closeFn()

	_ = repo.Exec(ctx, "IF OBJECT_ID(N'"+table+"', N'U') IS NOT NULL DROP TABLE "+msIdent(table))
	if err := repo.Exec(ctx, createAuditTable(table)); err != nil {
		t.Fatalf("create: %v", err)
	}
	defer func() { _ = repo.Exec(context.Background(), "DROP TABLE "+msIdent(table)) }()

	n, err := repo.CopyFrom(ctx, storage.AuditColumns, [][]any{
		{"run", "k1", "Update", "salary", "100", "200", false},
		{"run", "k2", "Delete", "salary", "50", "", nil},
	})
	if err != nil {
		t.Fatalf("CopyFrom: %v", err)
	}
	if n != 2 {
		t.Fatalf("copied %d, want 2", n)
	}
}
