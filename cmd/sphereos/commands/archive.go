// Copyright 2026 The SphereOS Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/sphereos-foundation/sphereos/cmd/sphereos/cli"
	"github.com/sphereos-foundation/sphereos/lib/archive"
)

func pushCommand() *cli.Command {
	var configPath string
	return &cli.Command{
		Name:    "push",
		Summary: "archive a directory tree and store it under a path address",
		Usage:   "sphereos push <dir> <address>",
		Examples: []cli.Example{
			{Description: "publish a working tree", Command: "sphereos push ./site /repo/site"},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("push", pflag.ContinueOnError)
			flags.StringVar(&configPath, "config", "", "config file path (overrides SPHEREOS_CONFIG)")
			return flags
		},
		Run: func(args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("expected <dir> and <address> arguments")
			}
			session, err := openSession(configPath)
			if err != nil {
				return err
			}
			defer session.Close()

			desc, err := archive.Push(context.Background(), session.store, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("pushed %s -> %s (%s, %d bytes)\n",
				args[0], desc.Address, desc.Digest, desc.RawSize)
			return nil
		},
	}
}

func pullCommand() *cli.Command {
	var configPath string
	return &cli.Command{
		Name:    "pull",
		Summary: "retrieve an archived tree and unpack it into a directory",
		Usage:   "sphereos pull <address> <dir>",
		Examples: []cli.Example{
			{Description: "restore a published tree", Command: "sphereos pull /repo/site ./site"},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("pull", pflag.ContinueOnError)
			flags.StringVar(&configPath, "config", "", "config file path (overrides SPHEREOS_CONFIG)")
			return flags
		},
		Run: func(args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("expected <address> and <dir> arguments")
			}
			session, err := openSession(configPath)
			if err != nil {
				return err
			}
			defer session.Close()

			if err := archive.Pull(context.Background(), session.store, args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("pulled %s -> %s\n", args[0], args[1])
			return nil
		},
	}
}
