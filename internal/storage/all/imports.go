// Package all registers every built-in audit backend. Import it for side
// effects from the binary's wiring layer:
//
//	import _ "csvreporter/internal/storage/all"
//
// after which storage.New accepts the kinds "postgres", "sqlite", "mssql",
// and "mysql".
package all

import (
	_ "csvreporter/internal/storage/mssql"
	_ "csvreporter/internal/storage/mysql"
	_ "csvreporter/internal/storage/postgres"
	_ "csvreporter/internal/storage/sqlite"
)
