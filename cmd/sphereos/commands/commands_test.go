// Copyright 2026 The SphereOS Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"testing"
)

func TestRootHasAllCommands(t *testing.T) {
	root := Root()
	want := []string{
		"store", "retrieve", "cat", "exists", "delete", "list",
		"gc", "ref-count", "info", "push", "pull", "version",
	}

	names := map[string]bool{}
	for _, sub := range root.Subcommands {
		names[sub.Name] = true
	}
	for _, name := range want {
		if !names[name] {
			t.Errorf("root command missing %q", name)
		}
	}
	if len(root.Subcommands) != len(want) {
		t.Errorf("root has %d commands, want %d", len(root.Subcommands), len(want))
	}
}

func TestOpenSessionWithConfigFile(t *testing.T) {
	// Covered indirectly by lib/config tests; here just verify a bad
	// path fails cleanly.
	if _, err := openSession("/nonexistent/sphereos.yaml"); err == nil {
		t.Error("openSession accepted a missing config file")
	}
}
