// Copyright 2026 The SphereOS Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/sphereos-foundation/sphereos/cmd/sphereos/cli"
	"github.com/sphereos-foundation/sphereos/lib/storage"
)

func listCommand() *cli.Command {
	var (
		configPath string
		kindName   string
		prefix     string
		from       string
		until      string
		point      int
		nearestTo  string
		nearestN   int
		limit      int
		jsonOut    bool
	)
	return &cli.Command{
		Name:    "list",
		Summary: "list address bindings in one index",
		Usage:   "sphereos list --kind <kind> [flags]",
		Description: "list enumerates bindings in one index. Path listings take a directory\n" +
			"prefix, time listings an inclusive bucket range, coordinate listings\n" +
			"either an exact lattice point or a nearest-N search around a key.",
		Examples: []cli.Example{
			{Description: "list a path subtree", Command: "sphereos list --kind path --prefix /users/alice"},
			{Description: "list one afternoon", Command: "sphereos list --kind time --from 2026-08-28T12:00 --until 2026-08-28T18:00"},
			{Description: "find content placed near a key", Command: "sphereos list --kind coordinate --nearest-to user:alice --nearest 5"},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("list", pflag.ContinueOnError)
			flags.StringVar(&configPath, "config", "", "config file path (overrides SPHEREOS_CONFIG)")
			flags.StringVar(&kindName, "kind", "path", "address kind: path, hash, coordinate, or time")
			flags.StringVar(&prefix, "prefix", "", "path prefix (path kind)")
			flags.StringVar(&from, "from", "", "inclusive start bucket (time kind)")
			flags.StringVar(&until, "until", "", "inclusive end bucket (time kind)")
			flags.IntVar(&point, "point", 0, "exact lattice point (coordinate kind)")
			flags.StringVar(&nearestTo, "nearest-to", "", "search around this key's lattice point (coordinate kind)")
			flags.IntVar(&nearestN, "nearest", 1, "number of nearest lattice points to search")
			flags.IntVar(&limit, "limit", 0, "maximum entries to return (0 = unlimited)")
			flags.BoolVar(&jsonOut, "json", false, "output entries as JSON")
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

			session, err := openSession(configPath)
			if err != nil {
				return err
			}
			defer session.Close()

			query := storage.Query{
				Kind:     kind,
				Prefix:   prefix,
				From:     from,
				Until:    until,
				Point:    point,
				NearestN: nearestN,
				Limit:    limit,
			}
			if nearestTo != "" {
				query.NearestTo = []byte(nearestTo)
			}

			entries, err := session.store.List(context.Background(), query)
			if err != nil {
				return err
			}

			if jsonOut {
				return cli.WriteJSON(entries)
			}
			tw := tabwriter.NewWriter(os.Stdout, 2, 0, 2, ' ', 0)
			for _, entry := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\n",
					entry.Address,
					entry.Digest,
					entry.UpdatedAt.UTC().Format(time.RFC3339),
				)
			}
			return tw.Flush()
		},
	}
}
