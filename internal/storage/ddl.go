package storage

import (
	"context"
	"fmt"
	"sync"
)

// AuditColumns is the long-format layout of the audit table: one row per
// reported field of a change.
var AuditColumns = []string{"run_id", "anchor", "status", "column_name", "old_value", "new_value", "matched"}

// DDLBootstrapper creates the audit table for one backend if it is missing.
type DDLBootstrapper func(ctx context.Context, repo Repository, table string) error

var (
	ddlMu  sync.RWMutex
	ddlFns = map[string]DDLBootstrapper{}
)

// RegisterDDL registers the bootstrapper for kind, usually from init.
func RegisterDDL(kind string, fn DDLBootstrapper) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	ddlFns[kindKey(kind)] = fn
}

// EnsureAuditTable runs the bootstrapper registered for kind.
func EnsureAuditTable(ctx context.Context, kind string, repo Repository, table string) error {
	ddlMu.RLock()
	fn, ok := ddlFns[kindKey(kind)]
	ddlMu.RUnlock()
	if !ok {
		return fmt.Errorf("no DDL bootstrapper registered for storage.kind=%q", kind)
	}
	if err := fn(ctx, repo, table); err != nil {
		return fmt.Errorf("%s: create audit table %s: %w", kind, table, err)
	}
	return nil
}
