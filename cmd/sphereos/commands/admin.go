// Copyright 2026 The SphereOS Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/sphereos-foundation/sphereos/cmd/sphereos/cli"
)

func gcCommand() *cli.Command {
	var configPath string
	return &cli.Command{
		Name:    "gc",
		Summary: "delete objects no address references",
		Usage:   "sphereos gc [flags]",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("gc", pflag.ContinueOnError)
			flags.StringVar(&configPath, "config", "", "config file path (overrides SPHEREOS_CONFIG)")
			return flags
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected arguments: %v", args)
			}
			session, err := openSession(configPath)
			if err != nil {
				return err
			}
			defer session.Close()

			result, err := session.store.GC(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("reclaimed %d objects\n", result.ObjectsReclaimed)
			return nil
		},
	}
}

func refCountCommand() *cli.Command {
	var configPath string
	return &cli.Command{
		Name:    "ref-count",
		Summary: "count address bindings referencing a digest",
		Usage:   "sphereos ref-count <digest>",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("ref-count", pflag.ContinueOnError)
			flags.StringVar(&configPath, "config", "", "config file path (overrides SPHEREOS_CONFIG)")
			return flags
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one digest argument")
			}
			session, err := openSession(configPath)
			if err != nil {
				return err
			}
			defer session.Close()

			count, err := session.store.RefCount(context.Background(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(count)
			return nil
		},
	}
}

func infoCommand() *cli.Command {
	var (
		configPath string
		jsonOut    bool
	)
	return &cli.Command{
		Name:    "info",
		Summary: "print a health summary of the store",
		Usage:   "sphereos info [flags]",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("info", pflag.ContinueOnError)
			flags.StringVar(&configPath, "config", "", "config file path (overrides SPHEREOS_CONFIG)")
			flags.BoolVar(&jsonOut, "json", false, "output the summary as JSON")
			return flags
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected arguments: %v", args)
			}
			session, err := openSession(configPath)
			if err != nil {
				return err
			}
			defer session.Close()

			info, err := session.store.Info(context.Background())
			if err != nil {
				return err
			}

			if jsonOut {
				return cli.WriteJSON(info)
			}
			fmt.Printf("database:        %s\n", session.config.Database.Path)
			fmt.Printf("schema version:  %d\n", info.SchemaVersion)
			fmt.Printf("lattice points:  %d\n", info.LatticePoints)
			fmt.Printf("objects:         %d (%d raw bytes, %d compressed)\n",
				info.Objects, info.RawBytes, info.CompressedBytes)
			fmt.Printf("unreferenced:    %d\n", info.Unreferenced)
			for _, kind := range []string{"path", "hash", "coordinate", "time"} {
				fmt.Printf("%-10s       %d\n", kind, info.Addresses[kind])
			}
			return nil
		},
	}
}
