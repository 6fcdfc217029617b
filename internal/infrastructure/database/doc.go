// Package database provides SQLite connectivity for the registry mirror.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Embedded schema migrations
//   - Connection lifecycle management
//
// The mirror database is a cache: it lets the daemon start with a
// complete registry snapshot before any live change events arrive.
// Losing it costs nothing but a warm-up period.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
package database
