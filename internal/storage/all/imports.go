// Package all registers every built-in SQL dialect with the storage
// package. Import it for side effects:
//
//	import _ "herbot/internal/storage/all"
//
//	client, err := storage.Open(ctx, storage.Config{Kind: "mssql", ...}, log)
//
// Kinds made available:
//
//   - "mssql"    (herbot/internal/storage/mssql)
//   - "postgres" (herbot/internal/storage/postgres)
//   - "sqlite"   (herbot/internal/storage/sqlite)
//
// A binary that needs only one backend can import that dialect package
// directly instead.
package all

import (
	_ "herbot/internal/storage/mssql"
	_ "herbot/internal/storage/postgres"
	_ "herbot/internal/storage/sqlite"
)
