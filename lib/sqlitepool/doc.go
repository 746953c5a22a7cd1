// Copyright 2026 The SphereOS Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool provides the SQLite connection pool used by the
// storage engine.
//
// The engine's whole state lives in one embedded database file shared
// by multiple concurrent processes and threads, so this package wraps
// zombiezen.com/go/sqlite with the pragmas that contract needs: WAL
// journal mode, NORMAL synchronous for process-crash durability
// without fsync-per-commit overhead, memory-mapped I/O for read
// performance, and a bounded busy timeout so that no lock wait lasts
// forever.
//
// The pool is built on zombiezen's sqlitex.Pool, which manages a
// fixed-size set of connections. Callers [Pool.Take] a connection,
// perform work, and [Pool.Put] it back. Connections are NOT safe for
// concurrent use — each goroutine must hold its own connection for the
// duration of its work.
//
// # Pragmas
//
// Every connection in the pool is initialized with these pragmas:
//
//   - journal_mode=WAL: write-ahead logging for concurrent readers and
//     a single writer. Reads never block writes; writes never block
//     reads. Readers see either the pre- or post-commit state of a row,
//     never a torn one.
//   - synchronous=NORMAL: transactions survive process crashes. Not
//     durable across OS crashes or power failure — acceptable because
//     the payload bytes are content-addressed and re-storable.
//   - busy_timeout: wait a bounded time for a write lock instead of
//     returning SQLITE_BUSY immediately. After the timeout the storage
//     layer surfaces a retryable Busy error; retry is the caller's
//     responsibility.
//   - foreign_keys=OFF: the engine manages referential integrity
//     explicitly (garbage collection computes reference counts inside
//     its own transaction; FK cascades would fight that).
//   - cache_size=-8192: 8 MB page cache per connection.
//   - mmap_size=268435456: 256 MB memory-mapped I/O for reads.
//   - temp_store=MEMORY: temporary tables and indexes in memory.
//
// # Design
//
// This package is intentionally thin: it applies standard pragmas and
// exposes the underlying zombiezen types directly. There is no query
// builder. The storage engine writes SQL, uses sqlitex.Execute for
// cached statements, and manages transactions with
// sqlitex.ImmediateTransaction.
package sqlitepool
