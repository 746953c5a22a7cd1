// Copyright 2026 The SphereOS Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"

	"github.com/sphereos-foundation/sphereos/cmd/sphereos/commands"
	"github.com/sphereos-foundation/sphereos/lib/process"
)

func main() {
	if err := commands.Root().Execute(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}
