package mysql

import "fmt"

func createAuditTable(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    run_id      VARCHAR(36)  NOT NULL,
    anchor      VARCHAR(768) NOT NULL,
    status      VARCHAR(16)  NOT NULL,
    column_name VARCHAR(256) NOT NULL,
    old_value   TEXT NULL,
    new_value   TEXT NULL,
    matched     BOOLEAN NULL
) CHARACTER SET utf8mb4`, myIdent(table))
}
