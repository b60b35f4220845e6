package sqlite

import "fmt"

func createAuditTable(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    run_id      TEXT NOT NULL,
    anchor      TEXT NOT NULL,
    status      TEXT NOT NULL,
    column_name TEXT NOT NULL,
    old_value   TEXT,
    new_value   TEXT,
    matched     INTEGER
)`, ident(table))
}
