// Copyright 2026 The SphereOS Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestExecuteDispatchesSubcommand(t *testing.T) {
	ran := false
	root := &Command{
		Name: "sphereos",
		Subcommands: []*Command{
			{Name: "gc", Run: func(args []string) error {
				ran = true
				return nil
			}},
		},
	}

	if err := root.Execute([]string{"gc"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !ran {
		t.Error("subcommand did not run")
	}
}

func TestExecuteUnknownCommandSuggests(t *testing.T) {
	root := &Command{
		Name: "sphereos",
		Subcommands: []*Command{
			{Name: "retrieve", Run: func([]string) error { return nil }},
		},
	}

	err := root.Execute([]string{"retreive"})
	if err == nil {
		t.Fatal("unknown command accepted")
	}
	if !strings.Contains(err.Error(), `did you mean "retrieve"`) {
		t.Errorf("error lacks suggestion: %v", err)
	}
}

func TestExecutePassesFlagsAndArgs(t *testing.T) {
	var kind string
	var got []string
	cmd := &Command{
		Name: "list",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("list", pflag.ContinueOnError)
			flags.StringVar(&kind, "kind", "path", "")
			return flags
		},
		Run: func(args []string) error {
			got = args
			return nil
		},
	}

	if err := cmd.Execute([]string{"--kind", "time", "extra"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if kind != "time" {
		t.Errorf("kind = %q, want time", kind)
	}
	if len(got) != 1 || got[0] != "extra" {
		t.Errorf("args = %v, want [extra]", got)
	}
}

func TestExecuteUnknownFlagSuggests(t *testing.T) {
	cmd := &Command{
		Name: "list",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("list", pflag.ContinueOnError)
			flags.String("prefix", "", "")
			return flags
		},
		Run: func([]string) error { return nil },
	}

	err := cmd.Execute([]string{"--prefx", "/a"})
	if err == nil {
		t.Fatal("unknown flag accepted")
	}
	if !strings.Contains(err.Error(), "--prefix") {
		t.Errorf("error lacks flag suggestion: %v", err)
	}
}

func TestPrintHelpListsSubcommands(t *testing.T) {
	root := &Command{
		Name: "sphereos",
		Subcommands: []*Command{
			{Name: "store", Summary: "store a payload"},
			{Name: "gc", Summary: "collect garbage"},
		},
	}

	var out strings.Builder
	root.PrintHelp(&out)
	help := out.String()
	for _, want := range []string{"store", "store a payload", "gc", "collect garbage"} {
		if !strings.Contains(help, want) {
			t.Errorf("help missing %q:\n%s", want, help)
		}
	}
}

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "abc", 3},
		{"abc", "abc", 0},
		{"retreive", "retrieve", 2},
		{"gc", "list", 4},
	}
	for _, tc := range cases {
		if got := levenshtein(tc.a, tc.b); got != tc.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}
