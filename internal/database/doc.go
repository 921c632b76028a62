// Package database stores crawl output.
//
// CrawlDB is a SQLite database (modernc.org/sqlite, no cgo) in the data
// directory holding:
//   - vehicles: every emitted record, unique by vehicle key
//   - runs: one row per crawl with its status and counts
//   - checkpoint_keys and checkpoint_meta: the optional SQLite checkpoint backend
//
// PostgresStore writes the same records to PostgreSQL through a pgx pool
// when a DSN is configured.
package database
