// Copyright 2026 The SphereOS Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/sphereos-foundation/sphereos/cmd/sphereos/cli"
	"github.com/sphereos-foundation/sphereos/lib/storage"
)

func retrieveCommand() *cli.Command {
	var (
		configPath string
		kindName   string
		digestHex  string
		output     string
	)
	return &cli.Command{
		Name:    "retrieve",
		Summary: "retrieve a payload by address or digest",
		Usage:   "sphereos retrieve [--kind <kind>] <address> [flags]",
		Description: "retrieve resolves an address and writes the payload to --output (or\n" +
			"stdout). With --digest, the object is fetched directly without\n" +
			"consulting any index.",
		Examples: []cli.Example{
			{Description: "retrieve by path", Command: "sphereos retrieve --kind path /docs/readme"},
			{Description: "retrieve by digest, into a file", Command: "sphereos retrieve --digest 4ae3... --output readme.md"},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("retrieve", pflag.ContinueOnError)
			flags.StringVar(&configPath, "config", "", "config file path (overrides SPHEREOS_CONFIG)")
			flags.StringVar(&kindName, "kind", "path", "address kind: path, hash, coordinate, or time")
			flags.StringVar(&digestHex, "digest", "", "fetch by object digest instead of an address")
			flags.StringVar(&output, "output", "", "write the payload to this file (default: stdout)")
			return flags
		},
		Run: func(args []string) error {
			session, err := openSession(configPath)
			if err != nil {
				return err
			}
			defer session.Close()
			ctx := context.Background()

			var payload []byte
			switch {
			case digestHex != "":
				if len(args) != 0 {
					return fmt.Errorf("--digest takes no positional arguments")
				}
				payload, err = session.store.RetrieveByDigest(ctx, digestHex)
			case len(args) == 1:
				var kind storage.AddressKind
				kind, err = storage.ParseKind(kindName)
				if err != nil {
					return err
				}
				payload, err = session.store.Retrieve(ctx, kind, args[0])
			default:
				return fmt.Errorf("expected exactly one address argument")
			}
			if err != nil {
				return err
			}

			if output != "" {
				return os.WriteFile(output, payload, 0o644)
			}
			_, err = os.Stdout.Write(payload)
			return err
		},
	}
}

// catCommand is retrieve under its colloquial name.
func catCommand() *cli.Command {
	cmd := retrieveCommand()
	cmd.Name = "cat"
	cmd.Summary = "alias for retrieve"
	cmd.Usage = "sphereos cat [--kind <kind>] <address> [flags]"
	return cmd
}

func existsCommand() *cli.Command {
	var (
		configPath string
		kindName   string
	)
	return &cli.Command{
		Name:    "exists",
		Summary: "check whether an address is bound",
		Usage:   "sphereos exists [--kind <kind>] <address>",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("exists", pflag.ContinueOnError)
			flags.StringVar(&configPath, "config", "", "config file path (overrides SPHEREOS_CONFIG)")
			flags.StringVar(&kindName, "kind", "path", "address kind: path, hash, coordinate, or time")
			return flags
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one address argument")
			}
			kind, err := storage.ParseKind(kindName)
			if err != nil {
				return err
			}

			session, err := openSession(configPath)
			if err != nil {
				return err
			}
			defer session.Close()

			found, err := session.store.Exists(context.Background(), kind, args[0])
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("%s %s: not bound", kind, args[0])
			}
			fmt.Printf("%s %s: bound\n", kind, args[0])
			return nil
		},
	}
}

func deleteCommand() *cli.Command {
	var (
		configPath string
		kindName   string
	)
	return &cli.Command{
		Name:    "delete",
		Summary: "remove an address binding (object bytes stay until gc)",
		Usage:   "sphereos delete [--kind <kind>] <address>",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("delete", pflag.ContinueOnError)
			flags.StringVar(&configPath, "config", "", "config file path (overrides SPHEREOS_CONFIG)")
			flags.StringVar(&kindName, "kind", "path", "address kind: path, hash, coordinate, or time")
			return flags
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one address argument")
			}
			kind, err := storage.ParseKind(kindName)
			if err != nil {
				return err
			}

			session, err := openSession(configPath)
			if err != nil {
				return err
			}
			defer session.Close()

			deleted, err := session.store.Delete(context.Background(), kind, args[0])
			if err != nil {
				return err
			}
			if !deleted {
				return fmt.Errorf("%s %s: not bound", kind, args[0])
			}
			fmt.Printf("deleted %s %s\n", kind, args[0])
			return nil
		},
	}
}
