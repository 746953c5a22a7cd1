// Copyright 2026 The SphereOS Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"errors"
	"fmt"

	"zombiezen.com/go/sqlite"
)

// The error taxonomy of the storage engine. Callers test with
// errors.Is; every error carries operation context via wrapping.
var (
	// ErrNotFound indicates an unresolved address or an absent
	// object. Recoverable — the caller decides the fallback.
	ErrNotFound = errors.New("not found")

	// ErrCorruptObject indicates stored bytes that fail the digest
	// integrity check or decompression. Non-recoverable for that
	// object; surfaced, never retried.
	ErrCorruptObject = errors.New("corrupt object")

	// ErrDanglingReference indicates an address entry whose digest
	// has no backing object. This is an internal invariant violation:
	// it is logged where detected, surfaced to the caller, and a GC
	// pass is the recommended repair.
	ErrDanglingReference = errors.New("dangling reference")

	// ErrBusy indicates lock contention that outlasted the configured
	// busy timeout. Recoverable via caller retry with backoff; the
	// engine itself never retries.
	ErrBusy = errors.New("database busy")

	// ErrSchemaMismatch indicates a database file whose schema
	// version (or lattice configuration) this engine cannot use.
	// Fatal for the open.
	ErrSchemaMismatch = errors.New("schema mismatch")
)

// mapBusy translates SQLite lock-contention result codes into ErrBusy
// so callers can match with errors.Is. Other errors pass through
// unchanged.
func mapBusy(err error) error {
	if err == nil {
		return nil
	}
	switch sqlite.ErrCode(err) {
	case sqlite.ResultBusy, sqlite.ResultLocked:
		return fmt.Errorf("%w: %v", ErrBusy, err)
	}
	return err
}
