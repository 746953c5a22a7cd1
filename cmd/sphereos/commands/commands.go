// Copyright 2026 The SphereOS Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands assembles the sphereos CLI command tree.
package commands

import (
	"fmt"
	"log/slog"

	"github.com/sphereos-foundation/sphereos/cmd/sphereos/cli"
	"github.com/sphereos-foundation/sphereos/lib/config"
	"github.com/sphereos-foundation/sphereos/lib/storage"
	"github.com/sphereos-foundation/sphereos/lib/version"
)

// Root returns the top-level sphereos command.
func Root() *cli.Command {
	return &cli.Command{
		Name:    "sphereos",
		Summary: "content-addressable storage with path, hash, coordinate, and time addressing",
		Description: "sphereos stores deduplicated content in a single SQLite file and\n" +
			"addresses it four ways: hierarchical paths, content hashes, points on\n" +
			"a spherical lattice, and time buckets.",
		Subcommands: []*cli.Command{
			storeCommand(),
			retrieveCommand(),
			catCommand(),
			existsCommand(),
			deleteCommand(),
			listCommand(),
			gcCommand(),
			refCountCommand(),
			infoCommand(),
			pushCommand(),
			pullCommand(),
			versionCommand(),
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:    "version",
		Summary: "print version information",
		Run: func(args []string) error {
			fmt.Println(version.Full())
			return nil
		},
	}
}

// session bundles what every storage-touching command needs: the
// loaded config, a logger, and an open store. Callers must Close it.
type session struct {
	config *config.Config
	logger *slog.Logger
	store  *storage.Store
}

// openSession loads configuration (from --config if given, else
// SPHEREOS_CONFIG, else defaults) and opens the store.
func openSession(configPath string) (*session, error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	logger := cli.NewLogger(cfg.Log.Level, cfg.Log.Format)

	if err := cfg.EnsureDatabaseDir(); err != nil {
		return nil, err
	}
	busyTimeout, err := cfg.Database.BusyTimeoutDuration()
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(storage.Config{
		Path:          cfg.Database.Path,
		PoolSize:      cfg.Database.PoolSize,
		BusyTimeout:   busyTimeout,
		LatticePoints: cfg.Database.LatticePoints,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}

	return &session{config: cfg, logger: logger, store: store}, nil
}

func (s *session) Close() error {
	return s.store.Close()
}
