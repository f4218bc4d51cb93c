// Copyright 2026 slothlet contributors
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"context"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/slothlet/slothlet"
	"github.com/slothlet/slothlet/internal/output"
	"github.com/slothlet/slothlet/internal/ui"
)

func runDescribe(args []string, globals GlobalFlags) error {
	fs := flag.NewFlagSet("describe", flag.ExitOnError)
	hotReload := fs.Bool("hot-reload", false, "Load with hot reload enabled")
	fs.Usage = func() {
		fmt.Printf(`Usage: slothletctl describe <dir> [options]

Loads the module tree rooted at dir and prints its configuration and shape.
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return fmt.Errorf("dir argument required")
	}
	dir := fs.Arg(0)

	b, err := slothlet.New(context.Background(), slothlet.Config{
		Dir:       dir,
		HotReload: *hotReload,
		Debug:     globals.Debug,
	})
	if err != nil {
		return fmt.Errorf("load failed: %w", err)
	}
	defer b.Shutdown()

	d := b.Describe(context.Background())

	if globals.JSON {
		return output.JSON(d)
	}

	ui.InitColors(globals.NoColor)
	ui.Header("Bound API Instance")
	fmt.Printf("%s %s\n", ui.Label("Instance ID:"), d.InstanceID)
	fmt.Printf("%s %s\n", ui.Label("Dir:"), d.Dir)
	fmt.Printf("%s %s\n", ui.Label("Mode:"), d.Mode)
	fmt.Printf("%s %v\n", ui.Label("Hot reload:"), d.HotReload)
	fmt.Printf("%s %d\n", ui.Label("Registered hooks:"), d.HookCount)
	fmt.Println()
	ui.SubHeader("Owned paths:")
	for _, p := range d.Paths {
		if p == "" {
			p = "(root)"
		}
		fmt.Printf("  %s\n", p)
	}
	return nil
}
