// Copyright 2026 The SphereOS Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/sphereos-foundation/sphereos/lib/lattice"
)

// Entry is one address binding returned by List.
type Entry struct {
	// Address is the full address string within its kind.
	Address string

	// Digest is the hex content digest the address points at.
	Digest string

	// UpdatedAt is when the binding was last written.
	UpdatedAt time.Time
}

// Query selects address entries from one index. Exactly one kind is
// queried per call; the fields that apply depend on the kind.
type Query struct {
	// Kind selects the index. Required.
	Kind AddressKind

	// Prefix applies to PATH: entries at or below this directory-style
	// prefix. "/" or "" lists everything.
	Prefix string

	// From and Until apply to TIME: an inclusive bucket range. A zero
	// From means the beginning; a zero Until means the end.
	From  string
	Until string

	// Point applies to COORDINATE: the lattice point to list. Ignored
	// when NearestTo is set.
	Point int

	// NearestTo and NearestN apply to COORDINATE: when NearestTo is
	// non-nil, entries are gathered from the NearestN lattice points
	// closest to NearestTo's own point, in increasing angular
	// distance. NearestN defaults to 1.
	NearestTo []byte
	NearestN  int

	// Limit caps the number of entries returned. Zero means no cap.
	Limit int
}

// List returns address entries matching the query. PATH results come
// back in lexicographic address order, TIME results in chronological
// bucket order, exact-point COORDINATE results in sub-bucket order,
// and nearest-N COORDINATE results grouped by increasing angular
// distance from the query key's point.
func (s *Store) List(ctx context.Context, q Query) ([]Entry, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	defer s.pool.Put(conn)

	var entries []Entry
	switch q.Kind {
	case KindPath:
		entries, err = listPath(conn, q)
	case KindHash:
		entries, err = listSorted(conn, "addr_hash", q.Limit)
	case KindTime:
		entries, err = listTime(conn, q)
	case KindCoordinate:
		entries, err = s.listCoordinate(conn, q)
	default:
		return nil, fmt.Errorf("storage: list: unknown address kind: %d", uint8(q.Kind))
	}
	if err != nil {
		return nil, fmt.Errorf("storage: list %s: %w", q.Kind, mapBusy(err))
	}
	return entries, nil
}

// listPath lists PATH entries under a directory-style prefix. The
// prefix matches whole segments: "/users" matches "/users/alice" and
// "/users" itself, but not "/users2".
func listPath(conn *sqlite.Conn, q Query) ([]Entry, error) {
	prefix := q.Prefix
	if prefix == "" || prefix == "/" {
		return listSorted(conn, "addr_path", q.Limit)
	}
	if err := validatePath(prefix); err != nil {
		return nil, err
	}
	prefix = strings.TrimSuffix(prefix, "/")

	// LIKE would need escaping for % and _ in path segments; scanning
	// in address order and filtering on whole segments is simpler and
	// the index scan is already bounded by the leading prefix match.
	var entries []Entry
	err := sqlitex.Execute(conn, `SELECT address, digest, updated_at
		FROM addr_path
		WHERE address >= ? AND address < ?
		ORDER BY address`, &sqlitex.ExecOptions{
		// The half-open range [prefix, prefix+0xFF) covers every
		// address that begins with the prefix bytes.
		Args: []any{prefix, prefix + "\xff"},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			address := stmt.ColumnText(0)
			if address != prefix && !strings.HasPrefix(address, prefix+"/") {
				return nil
			}
			entries = append(entries, entryFromRow(stmt))
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return capEntries(entries, q.Limit), nil
}

// listSorted lists every entry of one index table in address order.
func listSorted(conn *sqlite.Conn, table string, limit int) ([]Entry, error) {
	var entries []Entry
	err := sqlitex.Execute(conn,
		fmt.Sprintf("SELECT address, digest, updated_at FROM %s ORDER BY address", table),
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				entries = append(entries, entryFromRow(stmt))
				return nil
			},
		})
	if err != nil {
		return nil, err
	}
	return capEntries(entries, limit), nil
}

// listTime lists TIME entries within an inclusive bucket range. Bucket
// strings sort chronologically, so the range is a plain string
// comparison.
func listTime(conn *sqlite.Conn, q Query) ([]Entry, error) {
	for _, bucket := range []string{q.From, q.Until} {
		if bucket == "" {
			continue
		}
		if _, err := time.Parse(timeBucketLayout, bucket); err != nil {
			return nil, fmt.Errorf("malformed time bucket %q (want %s): %w", bucket, timeBucketLayout, err)
		}
	}

	var clauses []string
	var args []any
	if q.From != "" {
		clauses = append(clauses, "address >= ?")
		args = append(args, q.From)
	}
	if q.Until != "" {
		clauses = append(clauses, "address <= ?")
		args = append(args, q.Until)
	}
	query := "SELECT address, digest, updated_at FROM addr_time"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY address"

	var entries []Entry
	err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			entries = append(entries, entryFromRow(stmt))
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return capEntries(entries, q.Limit), nil
}

// listCoordinate lists COORDINATE entries, either at one exact point
// or across the N points nearest to a query key.
func (s *Store) listCoordinate(conn *sqlite.Conn, q Query) ([]Entry, error) {
	if q.NearestTo == nil {
		if q.Point < 0 || q.Point >= s.lattice.Count() {
			return nil, fmt.Errorf("coordinate point %d out of range [0,%d)", q.Point, s.lattice.Count())
		}
		entries, err := listPoint(conn, q.Point)
		if err != nil {
			return nil, err
		}
		return capEntries(entries, q.Limit), nil
	}

	n := q.NearestN
	if n <= 0 {
		n = 1
	}
	origin, _ := s.lattice.CoordinateFor(q.NearestTo)
	points, err := s.lattice.Nearest(origin, n)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, point := range points {
		found, err := listPoint(conn, point)
		if err != nil {
			return nil, err
		}
		entries = append(entries, found...)
		if q.Limit > 0 && len(entries) >= q.Limit {
			break
		}
	}
	return capEntries(entries, q.Limit), nil
}

// listPoint lists the entries at one lattice point in sub-bucket
// order.
func listPoint(conn *sqlite.Conn, point int) ([]Entry, error) {
	var entries []Entry
	err := sqlitex.Execute(conn, `SELECT address, digest, updated_at
		FROM addr_coord
		WHERE point = ?
		ORDER BY sub_bucket`, &sqlitex.ExecOptions{
		Args: []any{point},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			entries = append(entries, entryFromRow(stmt))
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// NearestPoints returns the indices of the n lattice points closest to
// where key lands, nearest first. A convenience passthrough for
// callers doing proximity queries without building a full Query.
func (s *Store) NearestPoints(key []byte, n int) ([]int, error) {
	origin, _ := s.lattice.CoordinateFor(key)
	return s.lattice.Nearest(origin, n)
}

// CoordinateAddress returns the full coordinate address key maps to on
// this store's lattice.
func (s *Store) CoordinateAddress(key []byte) string {
	point, subBucket := s.lattice.CoordinateFor(key)
	return lattice.FormatAddress(point, subBucket)
}

func entryFromRow(stmt *sqlite.Stmt) Entry {
	return Entry{
		Address:   stmt.ColumnText(0),
		Digest:    stmt.ColumnText(1),
		UpdatedAt: time.Unix(0, stmt.ColumnInt64(2)),
	}
}

func capEntries(entries []Entry, limit int) []Entry {
	if limit > 0 && len(entries) > limit {
		return entries[:limit]
	}
	return entries
}
