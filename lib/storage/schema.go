// Copyright 2026 The SphereOS Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"fmt"
	"strconv"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// schemaVersion is the version of the on-disk layout. Bumped on any
// incompatible change to the tables below; an existing database with a
// different version fails to open with ErrSchemaMismatch (there are no
// migrations yet).
const schemaVersion = 1

// schema creates the object table, the four address index tables, and
// the metadata table. Idempotent: every statement is IF NOT EXISTS, so
// it is safe to run once per pooled connection.
//
// Object rows are immutable after insert (created_at set once, sizes
// derived, payload bytes fixed). Address rows are mutable: re-storing
// under a bound address repoints digest and bumps updated_at.
// Timestamps are Unix nanoseconds.
const schema = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS objects (
	digest          TEXT PRIMARY KEY,
	raw_size        INTEGER NOT NULL,
	compressed_size INTEGER NOT NULL,
	compression     INTEGER NOT NULL,
	data            BLOB NOT NULL,
	metadata        BLOB,
	created_at      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS addr_path (
	address    TEXT PRIMARY KEY,
	digest     TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_addr_path_digest ON addr_path(digest);

CREATE TABLE IF NOT EXISTS addr_hash (
	address    TEXT PRIMARY KEY,
	digest     TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_addr_hash_digest ON addr_hash(digest);

CREATE TABLE IF NOT EXISTS addr_coord (
	address    TEXT PRIMARY KEY,
	point      INTEGER NOT NULL,
	sub_bucket TEXT NOT NULL,
	digest     TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_addr_coord_digest ON addr_coord(digest);
CREATE INDEX IF NOT EXISTS idx_addr_coord_point ON addr_coord(point);

CREATE TABLE IF NOT EXISTS addr_time (
	address    TEXT PRIMARY KEY,
	digest     TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_addr_time_digest ON addr_time(digest);
`

// ensureSchema creates the tables and verifies the stored schema
// version and lattice point count. Runs once per pooled connection via
// the pool's OnConnect hook; only the first run on a fresh database
// actually writes the meta rows.
//
// The lattice point count is pinned in the database because coordinate
// addresses written under one count are meaningless under another.
// Opening an existing database with a different configured count is a
// mismatch, not a migration.
func ensureSchema(conn *sqlite.Conn, latticePoints int) error {
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	if err := checkMetaInt(conn, "schema_version", schemaVersion); err != nil {
		return err
	}
	return checkMetaInt(conn, "lattice_points", latticePoints)
}

// checkMetaInt reads an integer meta row, inserting the expected value
// if the row is absent, and returns ErrSchemaMismatch if a different
// value is already stored.
func checkMetaInt(conn *sqlite.Conn, key string, expected int) error {
	var stored string
	var found bool
	err := sqlitex.Execute(conn, "SELECT value FROM meta WHERE key = ?", &sqlitex.ExecOptions{
		Args: []any{key},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			stored = stmt.ColumnText(0)
			found = true
			return nil
		},
	})
	if err != nil {
		return fmt.Errorf("reading meta %s: %w", key, err)
	}

	if !found {
		// OR IGNORE: two fresh connections may race to seed the row.
		err := sqlitex.Execute(conn, "INSERT OR IGNORE INTO meta (key, value) VALUES (?, ?)", &sqlitex.ExecOptions{
			Args: []any{key, strconv.Itoa(expected)},
		})
		if err != nil {
			return fmt.Errorf("writing meta %s: %w", key, err)
		}
		return nil
	}

	value, err := strconv.Atoi(stored)
	if err != nil {
		return fmt.Errorf("%w: meta %s holds %q, not an integer", ErrSchemaMismatch, key, stored)
	}
	if value != expected {
		return fmt.Errorf("%w: %s is %d, this engine requires %d", ErrSchemaMismatch, key, value, expected)
	}
	return nil
}
