// Package sqlstore is the durable store behind every service: the pixel
// registry and the append-only open log.
//
// SQLite (mattn/go-sqlite3) is the default; PostgreSQL (lib/pq) is used when
// a database URL is configured. Queries are built with squirrel so one code
// path serves both placeholder styles, and the schema is managed by embedded
// goose migrations per dialect.
//
// Timestamps are always written as UTC truncated to microseconds, so their
// SQLite text form sorts chronologically. Time aggregates (MIN/MAX) come back
// from SQLite as untyped text and are scanned through nullTime.
package sqlstore
