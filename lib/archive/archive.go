// Copyright 2026 The SphereOS Authors
// SPDX-License-Identifier: Apache-2.0

// Package archive moves directory trees in and out of the content
// store as single objects. A tree is packed into a gzip-compressed tar
// blob, stored under a path address, and unpacked back to byte-
// identical files on pull. This is the transport convention the git
// bridge uses: one path address, one archived tree.
package archive

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/sphereos-foundation/sphereos/lib/storage"
)

// ErrArchiveCorrupt indicates a blob that cannot be decoded as a
// gzip-compressed tar archive, or an archive whose member paths would
// escape the extraction directory.
var ErrArchiveCorrupt = errors.New("corrupt archive")

// Pack archives the directory tree rooted at dir into a
// gzip-compressed tar blob. Member names are slash-separated paths
// relative to dir; file modes are preserved. Symlinks and other
// non-regular files are skipped: the store holds content, not
// filesystem structure.
func Pack(dir string) ([]byte, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("archive: %s is not a directory", dir)
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	err = filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		name := filepath.ToSlash(rel)

		info, err := entry.Info()
		if err != nil {
			return err
		}

		switch {
		case entry.IsDir():
			header := &tar.Header{
				Typeflag: tar.TypeDir,
				Name:     name + "/",
				Mode:     int64(info.Mode().Perm()),
			}
			return tw.WriteHeader(header)

		case info.Mode().IsRegular():
			header := &tar.Header{
				Typeflag: tar.TypeReg,
				Name:     name,
				Mode:     int64(info.Mode().Perm()),
				Size:     info.Size(),
			}
			if err := tw.WriteHeader(header); err != nil {
				return err
			}
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			if _, err := io.Copy(tw, f); err != nil {
				return err
			}
			return nil

		default:
			return nil
		}
	})
	if err != nil {
		return nil, fmt.Errorf("archive: packing %s: %w", dir, err)
	}

	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("archive: packing %s: %w", dir, err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("archive: packing %s: %w", dir, err)
	}
	return buf.Bytes(), nil
}

// Unpack extracts an archive blob into dir, creating it if necessary.
// Existing files are overwritten; files present in dir but absent from
// the archive are left alone. Member paths are validated against
// directory escape before anything is written.
func Unpack(blob []byte, dir string) error {
	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return fmt.Errorf("archive: %w: %v", ErrArchiveCorrupt, err)
	}
	defer gz.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("archive: %w", err)
	}

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("archive: %w: %v", ErrArchiveCorrupt, err)
		}

		target, err := securePath(dir, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, fs.FileMode(header.Mode).Perm()|0o700); err != nil {
				return fmt.Errorf("archive: %w", err)
			}

		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("archive: %w", err)
			}
			if err := writeFile(target, tr, fs.FileMode(header.Mode).Perm()); err != nil {
				return fmt.Errorf("archive: extracting %s: %w", header.Name, err)
			}

		default:
			// Symlinks, devices, and the rest are never packed, so a
			// blob containing them did not come from Pack.
			return fmt.Errorf("archive: %w: unexpected member type %d for %s",
				ErrArchiveCorrupt, header.Typeflag, header.Name)
		}
	}
}

// securePath resolves a tar member name inside dir, rejecting absolute
// names and any traversal that would land outside dir.
func securePath(dir, name string) (string, error) {
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("archive: %w: absolute member path %s", ErrArchiveCorrupt, name)
	}
	target := filepath.Join(dir, filepath.FromSlash(name))
	if target != dir && !strings.HasPrefix(target, dir+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive: %w: member path %s escapes archive root", ErrArchiveCorrupt, name)
	}
	return target, nil
}

func writeFile(target string, r io.Reader, mode fs.FileMode) error {
	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Push packs the directory tree at dir and stores it under the given
// path address, returning the store descriptor. The address follows
// the "/<namespace>/<name>" convention but any valid path address is
// accepted.
func Push(ctx context.Context, store *storage.Store, dir, address string) (*storage.Descriptor, error) {
	blob, err := Pack(dir)
	if err != nil {
		return nil, err
	}
	desc, err := store.Store(ctx, blob, storage.KindPath, address, &storage.StoreOptions{
		Metadata: Manifest{Source: filepath.Base(dir)},
	})
	if err != nil {
		return nil, fmt.Errorf("archive: push %s: %w", address, err)
	}
	return desc, nil
}

// Pull retrieves the archive stored under the given path address and
// unpacks it into dir.
func Pull(ctx context.Context, store *storage.Store, address, dir string) error {
	blob, err := store.Retrieve(ctx, storage.KindPath, address)
	if err != nil {
		return fmt.Errorf("archive: pull %s: %w", address, err)
	}
	return Unpack(blob, dir)
}

// Manifest is the metadata record stored with each pushed archive.
type Manifest struct {
	// Source is the base name of the directory the archive was packed
	// from.
	Source string `cbor:"source"`
}
