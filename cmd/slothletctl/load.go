// Copyright 2026 slothlet contributors
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"context"
	"fmt"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/slothlet/slothlet"
	"github.com/slothlet/slothlet/internal/output"
	"github.com/slothlet/slothlet/internal/ui"
)

// TreeResult is the --json shape of `load`.
type TreeResult struct {
	Dir        string   `json:"dir"`
	InstanceID string   `json:"instance_id"`
	TopLevel   []string `json:"top_level"`
}

func runLoad(args []string, globals GlobalFlags) error {
	fs := flag.NewFlagSet("load", flag.ExitOnError)
	lazy := fs.Bool("lazy", false, "Materialize subfolders lazily instead of eagerly")
	fs.Usage = func() {
		fmt.Printf(`Usage: slothletctl load <dir> [options]

Discovers and loads a module tree rooted at dir, then prints its top-level
shape.
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

	progressCfg := NewProgressConfig(globals)
	spinner := NewSpinner(progressCfg, "Discovering")
	done := make(chan struct{})
	if spinner != nil {
		go func() {
			ticker := time.NewTicker(80 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					_ = spinner.Add(1)
				}
			}
		}()
	}

	cfg := slothlet.Config{Dir: dir, Debug: globals.Debug}
	if *lazy {
		cfg.Mode = slothlet.ModeLazy
	}
	b, err := slothlet.New(context.Background(), cfg)
	close(done)
	if spinner != nil {
		_ = spinner.Finish()
	}
	if err != nil {
		return fmt.Errorf("load failed: %w", err)
	}
	defer b.Shutdown()

	d := b.Describe(context.Background())

	if globals.JSON {
		return output.JSON(TreeResult{Dir: d.Dir, InstanceID: d.InstanceID, TopLevel: d.TopLevel})
	}

	ui.InitColors(globals.NoColor)
	ui.Header("Module Tree")
	fmt.Printf("%s %s\n", ui.Label("Dir:"), d.Dir)
	fmt.Printf("%s %s\n", ui.Label("Instance:"), d.InstanceID)
	fmt.Printf("%s %s\n", ui.Label("Mode:"), d.Mode)
	fmt.Println()
	ui.SubHeader("Top-level paths:")
	for _, k := range d.TopLevel {
		fmt.Printf("  %s\n", k)
	}
	ui.Success(fmt.Sprintf("loaded %d top-level path(s)", len(d.TopLevel)))
	return nil
}
