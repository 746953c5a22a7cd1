// Copyright 2026 The SphereOS Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/sphereos-foundation/sphereos/lib/clock"
	"github.com/sphereos-foundation/sphereos/lib/codec"
	"github.com/sphereos-foundation/sphereos/lib/compress"
	"github.com/sphereos-foundation/sphereos/lib/digest"
	"github.com/sphereos-foundation/sphereos/lib/lattice"
	"github.com/sphereos-foundation/sphereos/lib/sqlitepool"
)

// timeBucketLayout truncates timestamps to the minute. TIME addresses
// sort chronologically under plain string comparison in this layout,
// which is what the range scan in List relies on.
const timeBucketLayout = "2006-01-02T15:04"

// Store is the unified façade over the content store, the four
// address indexes, and the lattice coordinate mapper. One Store owns
// one database file; multiple processes may each open a Store on the
// same file concurrently.
//
// All methods are safe for concurrent use. Writes run in IMMEDIATE
// transactions; reads run on pooled connections without long-lived
// locks and see either the pre- or post-commit state of a concurrent
// write, never a torn row.
type Store struct {
	pool    *sqlitepool.Pool
	lattice *lattice.Lattice
	clock   clock.Clock
	logger  *slog.Logger
}

// Config holds the parameters for opening a Store.
type Config struct {
	// Path is the filesystem path to the database file. Required.
	Path string

	// PoolSize is the connection pool size. Zero means the pool's
	// default.
	PoolSize int

	// BusyTimeout bounds lock waits. Zero means the pool's default.
	BusyTimeout time.Duration

	// LatticePoints is the number of coordinate lattice points.
	// Defaults to lattice.DefaultPointCount (108). Must match the
	// value pinned in an existing database.
	LatticePoints int

	// Clock provides timestamps for created_at, updated_at, and
	// derived TIME buckets. Defaults to the real clock.
	Clock clock.Clock

	// Logger receives operational messages. If nil, a no-op logger is
	// used.
	Logger *slog.Logger
}

// Open opens (creating if necessary) the database at cfg.Path and
// returns a ready Store. The schema version and lattice point count
// stored in the database are verified; a mismatch fails with
// ErrSchemaMismatch. The caller must Close the Store when done.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("storage: Path is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}

	points := cfg.LatticePoints
	if points == 0 {
		points = lattice.DefaultPointCount
	}
	lat, err := lattice.New(points)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:        cfg.Path,
		PoolSize:    cfg.PoolSize,
		BusyTimeout: cfg.BusyTimeout,
		Logger:      logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return ensureSchema(conn, points)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	store := &Store{
		pool:    pool,
		lattice: lat,
		clock:   clk,
		logger:  logger,
	}

	// Connections initialize lazily, so force one now: a schema
	// mismatch must fail Open, not the first operation.
	conn, err := pool.Take(context.Background())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: opening %s: %w", cfg.Path, err)
	}
	pool.Put(conn)

	return store, nil
}

// Close closes the underlying connection pool. Blocks until all
// borrowed connections are returned.
func (s *Store) Close() error {
	return s.pool.Close()
}

// Lattice returns the coordinate lattice this store maps keys onto.
func (s *Store) Lattice() *lattice.Lattice {
	return s.lattice
}

// TimeBucket renders a timestamp as a TIME address: UTC, truncated to
// the minute.
func TimeBucket(t time.Time) string {
	return t.UTC().Format(timeBucketLayout)
}

// StoreOptions carries the optional parameters of Store. A nil
// *StoreOptions means all defaults.
type StoreOptions struct {
	// CoordinateKey is the key placed on the lattice when a
	// COORDINATE store is called with an empty address. Defaults to
	// the payload itself.
	CoordinateKey []byte

	// Metadata is an optional record (content type, original name,
	// caller annotations) persisted as deterministic CBOR alongside
	// the object. Stored only when the object row is first created;
	// objects are immutable, so a later store of the same bytes never
	// rewrites it.
	Metadata any
}

// Descriptor describes the outcome of a successful Store call.
type Descriptor struct {
	// Digest is the hex content digest of the stored object.
	Digest string

	// Kind and Address identify the index entry that was bound,
	// including any address the engine derived for the caller.
	Kind    AddressKind
	Address string

	// RawSize and CompressedSize are the payload sizes in bytes.
	RawSize        int64
	CompressedSize int64

	// Compression is the algorithm the payload was stored under.
	Compression compress.Tag

	// Deduplicated is true when an object with this digest already
	// existed and only the address entry was written.
	Deduplicated bool
}

// Store compresses payload, writes the object row if its digest is
// new, and binds (kind, address) to the digest — all in one IMMEDIATE
// transaction, so either both the object and the address entry are
// visible or neither is.
//
// An empty address is derived where the kind allows it: HASH uses the
// object digest, COORDINATE places the payload (or
// opts.CoordinateKey) on the lattice, TIME uses the current clock
// bucket. PATH addresses must always be supplied. Re-storing under a
// bound address repoints it (last-write-wins); the previously
// referenced object is retained until GC finds it unreferenced.
func (s *Store) Store(ctx context.Context, payload []byte, kind AddressKind, address string, opts *StoreOptions) (*Descriptor, error) {
	if opts == nil {
		opts = &StoreOptions{}
	}

	compressed, tag, err := compress.Auto(payload)
	if err != nil {
		return nil, fmt.Errorf("storage: compressing payload: %w", err)
	}
	if compressed == nil {
		// A nil payload must bind as a zero-length blob, not NULL.
		compressed = []byte{}
	}
	digestHex := digest.Format(digest.Object(compressed))

	resolved, coordPoint, coordBucket, err := s.resolveStoreAddress(kind, address, digestHex, payload, opts)
	if err != nil {
		return nil, err
	}

	var metadataBlob []byte
	if opts.Metadata != nil {
		metadataBlob, err = codec.Marshal(opts.Metadata)
		if err != nil {
			return nil, fmt.Errorf("storage: marshaling metadata: %w", err)
		}
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: store: %w", err)
	}
	defer s.pool.Put(conn)

	now := s.clock.Now().UnixNano()
	deduplicated := false

	err = func() (err error) {
		endTransaction, err := sqlitex.ImmediateTransaction(conn)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer endTransaction(&err)

		exists, err := objectExists(conn, digestHex)
		if err != nil {
			return err
		}
		deduplicated = exists

		if !exists {
			err = sqlitex.Execute(conn, `INSERT INTO objects
				(digest, raw_size, compressed_size, compression, data, metadata, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{
				Args: []any{
					digestHex,
					int64(len(payload)),
					int64(len(compressed)),
					int(tag),
					compressed,
					nullableBlob(metadataBlob),
					now,
				},
			})
			if err != nil {
				return fmt.Errorf("inserting object: %w", err)
			}
		}

		return s.upsertAddress(conn, kind, resolved, coordPoint, coordBucket, digestHex, now)
	}()
	if err != nil {
		return nil, fmt.Errorf("storage: store %s %q: %w", kind, resolved, mapBusy(err))
	}

	return &Descriptor{
		Digest:         digestHex,
		Kind:           kind,
		Address:        resolved,
		RawSize:        int64(len(payload)),
		CompressedSize: int64(len(compressed)),
		Compression:    tag,
		Deduplicated:   deduplicated,
	}, nil
}

// resolveStoreAddress validates the caller's address for the kind, or
// derives one when the address is empty and the kind allows it. For
// COORDINATE it also returns the parsed point and sub-bucket.
func (s *Store) resolveStoreAddress(kind AddressKind, address, digestHex string, payload []byte, opts *StoreOptions) (resolved string, point int, subBucket string, err error) {
	switch kind {
	case KindPath:
		if err := validatePath(address); err != nil {
			return "", 0, "", err
		}
		return address, 0, "", nil

	case KindHash:
		if address == "" {
			return digestHex, 0, "", nil
		}
		// The hash index is an identity mapping: the address IS the
		// content digest. A caller-supplied address that differs from
		// the actual digest would silently break that invariant.
		if address != digestHex {
			return "", 0, "", fmt.Errorf("storage: hash address %q does not match content digest %s", address, digestHex)
		}
		return address, 0, "", nil

	case KindCoordinate:
		if address == "" {
			key := opts.CoordinateKey
			if key == nil {
				key = payload
			}
			point, subBucket = s.lattice.CoordinateFor(key)
			return lattice.FormatAddress(point, subBucket), point, subBucket, nil
		}
		point, subBucket, err = lattice.ParseAddress(address)
		if err != nil {
			return "", 0, "", fmt.Errorf("storage: %w", err)
		}
		if point >= s.lattice.Count() {
			return "", 0, "", fmt.Errorf("storage: coordinate point %d out of range [0,%d)", point, s.lattice.Count())
		}
		return lattice.FormatAddress(point, subBucket), point, subBucket, nil

	case KindTime:
		if address == "" {
			return TimeBucket(s.clock.Now()), 0, "", nil
		}
		if _, err := time.Parse(timeBucketLayout, address); err != nil {
			return "", 0, "", fmt.Errorf("storage: malformed time bucket %q (want %s): %w", address, timeBucketLayout, err)
		}
		return address, 0, "", nil

	default:
		return "", 0, "", fmt.Errorf("storage: unknown address kind: %d", uint8(kind))
	}
}

// upsertAddress writes or repoints one address entry. Must run inside
// the caller's transaction.
func (s *Store) upsertAddress(conn *sqlite.Conn, kind AddressKind, address string, point int, subBucket string, digestHex string, now int64) error {
	if kind == KindCoordinate {
		err := sqlitex.Execute(conn, `INSERT INTO addr_coord
			(address, point, sub_bucket, digest, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(address) DO UPDATE SET
				digest = excluded.digest,
				updated_at = excluded.updated_at`, &sqlitex.ExecOptions{
			Args: []any{address, point, subBucket, digestHex, now},
		})
		if err != nil {
			return fmt.Errorf("upserting coordinate address: %w", err)
		}
		return nil
	}

	table, err := kind.table()
	if err != nil {
		return err
	}
	err = sqlitex.Execute(conn, fmt.Sprintf(`INSERT INTO %s
		(address, digest, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			digest = excluded.digest,
			updated_at = excluded.updated_at`, table), &sqlitex.ExecOptions{
		Args: []any{address, digestHex, now},
	})
	if err != nil {
		return fmt.Errorf("upserting %s address: %w", kind, err)
	}
	return nil
}

// Retrieve resolves (kind, address) to a digest and returns the
// decompressed payload. Returns ErrNotFound when the address is
// unbound. A bound address whose object row is missing is an internal
// consistency fault: it is logged and surfaced as ErrDanglingReference
// (a GC pass is the recommended repair).
func (s *Store) Retrieve(ctx context.Context, kind AddressKind, address string) ([]byte, error) {
	address, err := canonicalAddress(kind, address)
	if err != nil {
		return nil, err
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: retrieve: %w", err)
	}
	defer s.pool.Put(conn)

	digestHex, found, err := resolveAddress(conn, kind, address)
	if err != nil {
		return nil, fmt.Errorf("storage: retrieve %s %q: %w", kind, address, mapBusy(err))
	}
	if !found {
		return nil, fmt.Errorf("storage: retrieve %s %q: %w", kind, address, ErrNotFound)
	}

	payload, err := s.readObject(conn, digestHex)
	if err != nil {
		if errors.Is(err, ErrDanglingReference) {
			s.logger.Error("address resolves to missing object",
				"kind", kind.String(),
				"address", address,
				"digest", digestHex,
			)
		}
		return nil, fmt.Errorf("storage: retrieve %s %q: %w", kind, address, err)
	}
	return payload, nil
}

// RetrieveByDigest returns the decompressed payload for a digest
// without consulting any index. Returns ErrNotFound for an unknown
// digest.
func (s *Store) RetrieveByDigest(ctx context.Context, digestHex string) ([]byte, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: retrieve digest: %w", err)
	}
	defer s.pool.Put(conn)

	payload, err := s.readObject(conn, digestHex)
	if err != nil {
		if errors.Is(err, ErrDanglingReference) {
			// No address involved; an absent object is a plain miss.
			return nil, fmt.Errorf("storage: retrieve digest %s: %w", digestHex, ErrNotFound)
		}
		return nil, fmt.Errorf("storage: retrieve digest %s: %w", digestHex, err)
	}
	return payload, nil
}

// readObject loads, integrity-checks, and decompresses one object.
// Missing rows return ErrDanglingReference (the caller decides whether
// that means a dangling index entry or a plain miss); corrupt blobs
// return ErrCorruptObject.
func (s *Store) readObject(conn *sqlite.Conn, digestHex string) ([]byte, error) {
	var (
		found      bool
		rawSize    int64
		tag        compress.Tag
		compressed []byte
	)
	err := sqlitex.Execute(conn,
		"SELECT raw_size, compression, data FROM objects WHERE digest = ?",
		&sqlitex.ExecOptions{
			Args: []any{digestHex},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = true
				rawSize = stmt.ColumnInt64(0)
				tag = compress.Tag(stmt.ColumnInt64(1))
				compressed = make([]byte, stmt.ColumnLen(2))
				stmt.ColumnBytes(2, compressed)
				return nil
			},
		})
	if err != nil {
		return nil, mapBusy(err)
	}
	if !found {
		return nil, ErrDanglingReference
	}

	// The digest is computed over the compressed bytes, so it doubles
	// as the integrity check on the stored blob.
	if digest.Format(digest.Object(compressed)) != digestHex {
		return nil, fmt.Errorf("%w: stored bytes do not match digest %s", ErrCorruptObject, digestHex)
	}

	payload, err := compress.Decompress(compressed, tag, int(rawSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptObject, err)
	}
	return payload, nil
}

// Exists reports whether (kind, address) is bound. It does not verify
// the backing object.
func (s *Store) Exists(ctx context.Context, kind AddressKind, address string) (bool, error) {
	address, err := canonicalAddress(kind, address)
	if err != nil {
		return false, err
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return false, fmt.Errorf("storage: exists: %w", err)
	}
	defer s.pool.Put(conn)

	_, found, err := resolveAddress(conn, kind, address)
	if err != nil {
		return false, fmt.Errorf("storage: exists %s %q: %w", kind, address, mapBusy(err))
	}
	return found, nil
}

// Delete removes the address entry only, returning whether an entry
// existed. Object bytes are retained until a GC pass finds them
// unreferenced.
func (s *Store) Delete(ctx context.Context, kind AddressKind, address string) (bool, error) {
	address, err := canonicalAddress(kind, address)
	if err != nil {
		return false, err
	}

	table, err := kind.table()
	if err != nil {
		return false, fmt.Errorf("storage: delete: %w", err)
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return false, fmt.Errorf("storage: delete: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, fmt.Sprintf("DELETE FROM %s WHERE address = ?", table), &sqlitex.ExecOptions{
		Args: []any{address},
	})
	if err != nil {
		return false, fmt.Errorf("storage: delete %s %q: %w", kind, address, mapBusy(err))
	}
	return conn.Changes() > 0, nil
}

// RefCount returns the number of address entries, across all four
// indexes, currently pointing at the digest.
func (s *Store) RefCount(ctx context.Context, digestHex string) (int, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("storage: ref count: %w", err)
	}
	defer s.pool.Put(conn)

	count, err := refCount(conn, digestHex)
	if err != nil {
		return 0, fmt.Errorf("storage: ref count %s: %w", digestHex, mapBusy(err))
	}
	return count, nil
}

// GCResult is returned by GC.
type GCResult struct {
	// ObjectsReclaimed is the number of object rows deleted.
	ObjectsReclaimed int
}

// GC deletes every object with zero referencing address entries. The
// reference scan and the deletion run in one IMMEDIATE transaction, so
// a concurrent store either commits first (its object is referenced
// and kept) or after (it re-inserts the object row inside its own
// transaction). Safe to run at any time.
func (s *Store) GC(ctx context.Context) (*GCResult, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: gc: %w", err)
	}
	defer s.pool.Put(conn)

	reclaimed := 0
	err = func() (err error) {
		endTransaction, err := sqlitex.ImmediateTransaction(conn)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer endTransaction(&err)

		err = sqlitex.Execute(conn, `DELETE FROM objects WHERE digest NOT IN (
			SELECT digest FROM addr_path
			UNION SELECT digest FROM addr_hash
			UNION SELECT digest FROM addr_coord
			UNION SELECT digest FROM addr_time
		)`, nil)
		if err != nil {
			return fmt.Errorf("deleting unreferenced objects: %w", err)
		}
		reclaimed = conn.Changes()
		return nil
	}()
	if err != nil {
		return nil, fmt.Errorf("storage: gc: %w", mapBusy(err))
	}

	if reclaimed > 0 {
		s.logger.Info("garbage collection reclaimed objects", "count", reclaimed)
	}
	return &GCResult{ObjectsReclaimed: reclaimed}, nil
}

// canonicalAddress normalizes a caller-supplied address into the form
// the index stores. Only coordinate addresses have a non-identity
// canonical form: the point index is zero-padded ("5/abc" becomes
// "005/abc"), so lookups succeed regardless of how the caller wrote
// the point.
func canonicalAddress(kind AddressKind, address string) (string, error) {
	if kind != KindCoordinate {
		return address, nil
	}
	point, subBucket, err := lattice.ParseAddress(address)
	if err != nil {
		return "", fmt.Errorf("storage: %w", err)
	}
	return lattice.FormatAddress(point, subBucket), nil
}

// resolveAddress looks up one address entry. Runs on the caller's
// connection.
func resolveAddress(conn *sqlite.Conn, kind AddressKind, address string) (digestHex string, found bool, err error) {
	table, err := kind.table()
	if err != nil {
		return "", false, err
	}

	err = sqlitex.Execute(conn, fmt.Sprintf("SELECT digest FROM %s WHERE address = ?", table), &sqlitex.ExecOptions{
		Args: []any{address},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			digestHex = stmt.ColumnText(0)
			found = true
			return nil
		},
	})
	if err != nil {
		return "", false, err
	}
	return digestHex, found, nil
}

// objectExists reports whether an object row exists for the digest.
func objectExists(conn *sqlite.Conn, digestHex string) (bool, error) {
	var exists bool
	err := sqlitex.Execute(conn, "SELECT 1 FROM objects WHERE digest = ?", &sqlitex.ExecOptions{
		Args: []any{digestHex},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			exists = true
			return nil
		},
	})
	if err != nil {
		return false, fmt.Errorf("checking object existence: %w", err)
	}
	return exists, nil
}

// refCount counts address entries referencing a digest across all
// four indexes, on the caller's connection.
func refCount(conn *sqlite.Conn, digestHex string) (int, error) {
	total := 0
	for _, kind := range Kinds() {
		table, err := kind.table()
		if err != nil {
			return 0, err
		}
		err = sqlitex.Execute(conn, fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE digest = ?", table), &sqlitex.ExecOptions{
			Args: []any{digestHex},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				total += stmt.ColumnInt(0)
				return nil
			},
		})
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}

// validatePath checks the PATH address form: a leading slash followed
// by at least one non-empty segment, no empty segments in between.
func validatePath(address string) error {
	if address == "" {
		return fmt.Errorf("storage: path address is required")
	}
	if !strings.HasPrefix(address, "/") {
		return fmt.Errorf("storage: path address %q must start with '/'", address)
	}
	if address == "/" {
		return fmt.Errorf("storage: path address %q has no segments", address)
	}
	for _, segment := range strings.Split(address[1:], "/") {
		if segment == "" {
			return fmt.Errorf("storage: path address %q contains an empty segment", address)
		}
	}
	return nil
}

// nullableBlob converts an empty metadata blob to SQL NULL.
func nullableBlob(data []byte) any {
	if len(data) == 0 {
		return nil
	}
	return data
}
