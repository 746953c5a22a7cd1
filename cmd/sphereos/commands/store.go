// Copyright 2026 The SphereOS Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/sphereos-foundation/sphereos/cmd/sphereos/cli"
	"github.com/sphereos-foundation/sphereos/lib/storage"
)

func storeCommand() *cli.Command {
	var (
		configPath  string
		kindName    string
		address     string
		file        string
		contentType string
		name        string
		coordKey    string
		jsonOut     bool
	)
	return &cli.Command{
		Name:    "store",
		Summary: "store a payload under an address",
		Usage:   "sphereos store --kind <kind> [--address <address>] [--file <path>] [flags]",
		Description: "store reads a payload from --file (or stdin) and stores it under the\n" +
			"given address. For hash, coordinate, and time kinds the address may be\n" +
			"omitted and is derived: the content digest, the payload's lattice\n" +
			"coordinate, or the current minute bucket.",
		Examples: []cli.Example{
			{Description: "store a file under a path", Command: "sphereos store --kind path --address /docs/readme --file README.md"},
			{Description: "store stdin by content hash", Command: "echo hello | sphereos store --kind hash"},
			{Description: "place a payload on the lattice by an explicit key", Command: "sphereos store --kind coordinate --coordinate-key user:alice --file avatar.png"},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("store", pflag.ContinueOnError)
			flags.StringVar(&configPath, "config", "", "config file path (overrides SPHEREOS_CONFIG)")
			flags.StringVar(&kindName, "kind", "path", "address kind: path, hash, coordinate, or time")
			flags.StringVar(&address, "address", "", "address to bind (optional for hash, coordinate, time)")
			flags.StringVar(&file, "file", "", "payload file (default: stdin)")
			flags.StringVar(&contentType, "content-type", "", "content type recorded in object metadata")
			flags.StringVar(&name, "name", "", "original name recorded in object metadata")
			flags.StringVar(&coordKey, "coordinate-key", "", "lattice placement key (coordinate kind only)")
			flags.BoolVar(&jsonOut, "json", false, "output the descriptor as JSON")
			return flags
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected arguments: %v", args)
			}
			kind, err := storage.ParseKind(kindName)
			if err != nil {
				return err
			}

			payload, err := readPayload(file)
			if err != nil {
				return err
			}

			session, err := openSession(configPath)
			if err != nil {
				return err
			}
			defer session.Close()

			opts := &storage.StoreOptions{}
			if coordKey != "" {
				opts.CoordinateKey = []byte(coordKey)
			}
			if contentType != "" || name != "" {
				opts.Metadata = objectMetadata{ContentType: contentType, Name: name}
			}

			desc, err := session.store.Store(context.Background(), payload, kind, address, opts)
			if err != nil {
				return err
			}

			if jsonOut {
				return cli.WriteJSON(desc)
			}
			dedup := ""
			if desc.Deduplicated {
				dedup = " (deduplicated)"
			}
			fmt.Printf("%s %s -> %s%s\n", desc.Kind, desc.Address, desc.Digest, dedup)
			return nil
		},
	}
}

// objectMetadata is the CBOR record attached to objects stored via the
// CLI.
type objectMetadata struct {
	ContentType string `cbor:"content_type,omitempty"`
	Name        string `cbor:"name,omitempty"`
}

func readPayload(file string) ([]byte, error) {
	if file == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return data, nil
}
