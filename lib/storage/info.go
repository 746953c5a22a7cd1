// Copyright 2026 The SphereOS Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/sphereos-foundation/sphereos/lib/codec"
)

// Info is a point-in-time health summary of the store.
type Info struct {
	// SchemaVersion and LatticePoints are the values pinned in the
	// database.
	SchemaVersion int
	LatticePoints int

	// Objects is the number of object rows; RawBytes and
	// CompressedBytes are their summed sizes.
	Objects         int
	RawBytes        int64
	CompressedBytes int64

	// Unreferenced is the number of objects no address entry points
	// at — what the next GC pass would reclaim.
	Unreferenced int

	// Addresses is the entry count per index, keyed by kind name.
	Addresses map[string]int
}

// Info gathers the health summary. Counts come from a single pooled
// connection but not a single transaction; a concurrent writer can
// shift totals between reads, which is fine for a diagnostic view.
func (s *Store) Info(ctx context.Context) (*Info, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: info: %w", err)
	}
	defer s.pool.Put(conn)

	info := &Info{Addresses: make(map[string]int, len(Kinds()))}

	for _, key := range []string{"schema_version", "lattice_points"} {
		value, err := readMetaInt(conn, key)
		if err != nil {
			return nil, fmt.Errorf("storage: info: %w", mapBusy(err))
		}
		switch key {
		case "schema_version":
			info.SchemaVersion = value
		case "lattice_points":
			info.LatticePoints = value
		}
	}

	err = sqlitex.Execute(conn, `SELECT COUNT(*),
		COALESCE(SUM(raw_size), 0),
		COALESCE(SUM(compressed_size), 0)
		FROM objects`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			info.Objects = stmt.ColumnInt(0)
			info.RawBytes = stmt.ColumnInt64(1)
			info.CompressedBytes = stmt.ColumnInt64(2)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("storage: info: counting objects: %w", mapBusy(err))
	}

	err = sqlitex.Execute(conn, `SELECT COUNT(*) FROM objects WHERE digest NOT IN (
		SELECT digest FROM addr_path
		UNION SELECT digest FROM addr_hash
		UNION SELECT digest FROM addr_coord
		UNION SELECT digest FROM addr_time
	)`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			info.Unreferenced = stmt.ColumnInt(0)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("storage: info: counting unreferenced: %w", mapBusy(err))
	}

	for _, kind := range Kinds() {
		table, err := kind.table()
		if err != nil {
			return nil, fmt.Errorf("storage: info: %w", err)
		}
		err = sqlitex.Execute(conn, fmt.Sprintf("SELECT COUNT(*) FROM %s", table), &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				info.Addresses[kind.String()] = stmt.ColumnInt(0)
				return nil
			},
		})
		if err != nil {
			return nil, fmt.Errorf("storage: info: counting %s: %w", kind, mapBusy(err))
		}
	}

	return info, nil
}

// Metadata decodes the metadata record stored with a digest into out.
// Returns ErrNotFound when the object is absent or was stored without
// metadata.
func (s *Store) Metadata(ctx context.Context, digestHex string, out any) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("storage: metadata: %w", err)
	}
	defer s.pool.Put(conn)

	var blob []byte
	var found bool
	err = sqlitex.Execute(conn, "SELECT metadata FROM objects WHERE digest = ?", &sqlitex.ExecOptions{
		Args: []any{digestHex},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			found = true
			if stmt.ColumnType(0) == sqlite.TypeNull {
				return nil
			}
			blob = make([]byte, stmt.ColumnLen(0))
			stmt.ColumnBytes(0, blob)
			return nil
		},
	})
	if err != nil {
		return fmt.Errorf("storage: metadata %s: %w", digestHex, mapBusy(err))
	}
	if !found || blob == nil {
		return fmt.Errorf("storage: metadata %s: %w", digestHex, ErrNotFound)
	}

	if err := codec.Unmarshal(blob, out); err != nil {
		return fmt.Errorf("storage: metadata %s: %w", digestHex, err)
	}
	return nil
}

// readMetaInt reads one integer meta row.
func readMetaInt(conn *sqlite.Conn, key string) (int, error) {
	var value int
	var found bool
	err := sqlitex.Execute(conn, "SELECT value FROM meta WHERE key = ?", &sqlitex.ExecOptions{
		Args: []any{key},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			value = stmt.ColumnInt(0)
			found = true
			return nil
		},
	})
	if err != nil {
		return 0, fmt.Errorf("reading meta %s: %w", key, err)
	}
	if !found {
		return 0, fmt.Errorf("%w: meta row %s is missing", ErrSchemaMismatch, key)
	}
	return value, nil
}
