package postgres

import "fmt"

// createAuditTable returns the CREATE TABLE statement for the audit layout.
func createAuditTable(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    run_id      TEXT NOT NULL,
    anchor      TEXT NOT NULL,
    status      TEXT NOT NULL,
    column_name TEXT NOT NULL,
    old_value   TEXT,
    new_value   TEXT,
    matched     BOOLEAN
)`, splitFQN(table).Sanitize())
}
