package mssql

import (
	"fmt"
	"strings"
)

func createAuditTable(table string) string {
	lit := strings.ReplaceAll(table, "'", "''")
	return fmt.Sprintf(`IF OBJECT_ID(N'%s', N'U') IS NULL
CREATE TABLE %s (
    run_id      NVARCHAR(36)  NOT NULL,
    anchor      NVARCHAR(450) NOT NULL,
    status      NVARCHAR(16)  NOT NULL,
    column_name NVARCHAR(256) NOT NULL,
    old_value   NVARCHAR(MAX) NULL,
    new_value   NVARCHAR(MAX) NULL,
    matched     BIT NULL
)`, lit, msIdent(table))
}
