// Copyright 2026 slothlet contributors
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package main implements slothletctl, a demo CLI over a bound API
// instance: load a module directory, invoke a path, inspect its shape, and
// list registered hooks.
//
// Usage:
//
//	slothletctl load <dir> [--json]            Discover and print a module tree
//	slothletctl invoke <dir> <path> [args...]   Call a path and print its result
//	slothletctl describe <dir> [--json]         Print instance shape/config
//	slothletctl hooks <dir>                     List registered hooks
//	slothletctl init <dir>                      Scaffold an example module
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
)

// GlobalFlags holds the flags shared by every subcommand.
type GlobalFlags struct {
	JSON    bool
	NoColor bool
	Quiet   bool
	Debug   bool
}

func main() {
	globals := GlobalFlags{}

	flag.Usage = func() {
		fmt.Fprint(os.Stderr, `slothletctl - demo CLI for a slothlet bound API instance

Usage:
  slothletctl <command> [options]

Commands:
  load      Discover and print a module tree
  invoke    Call a path and print its result
  describe  Print instance shape and configuration
  hooks     List registered hooks
  init      Scaffold an example module directory

Global Options:
`)
		flag.PrintDefaults()
	}

	flag.BoolVar(&globals.JSON, "json", false, "Output as JSON")
	flag.BoolVar(&globals.NoColor, "no-color", false, "Disable colored output")
	flag.BoolVarP(&globals.Quiet, "quiet", "q", false, "Suppress progress output")
	flag.BoolVar(&globals.Debug, "debug", false, "Enable debug logging")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	command := args[0]
	cmdArgs := args[1:]

	var err error
	switch command {
	case "load":
		err = runLoad(cmdArgs, globals)
	case "invoke":
		err = runInvoke(cmdArgs, globals)
	case "describe":
		err = runDescribe(cmdArgs, globals)
	case "hooks":
		err = runHooks(cmdArgs, globals)
	case "init":
		err = runInit(cmdArgs, globals)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
