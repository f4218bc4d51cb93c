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

// HookListItem is one entry of the --json `hooks` output.
type HookListItem struct {
	ID       string `json:"id"`
	Pattern  string `json:"pattern"`
	Subset   string `json:"subset"`
	Priority int    `json:"priority"`
}

// Hooks are registered in Go code (spec.md's before/primary/after/always/
// error handlers are function values, not CLI-expressible data), so this
// command only lists whatever the embedding program registered before
// handing control to slothletctl — useful for confirming a wiring, not for
// registering hooks interactively.
func runHooks(args []string, globals GlobalFlags) error {
	fs := flag.NewFlagSet("hooks", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Printf(`Usage: slothletctl hooks <dir>

Loads the module tree rooted at dir and lists its registered hooks. Since
hooks are registered from Go code, a freshly loaded instance with no
embedding program wiring will report zero hooks.
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

	b, err := slothlet.New(context.Background(), slothlet.Config{Dir: dir, Debug: globals.Debug})
	if err != nil {
		return fmt.Errorf("load failed: %w", err)
	}
	defer b.Shutdown()

	hookList := b.Hooks().List("")
	items := make([]HookListItem, 0, len(hookList))
	for _, h := range hookList {
		items = append(items, HookListItem{
			ID:       h.ID,
			Pattern:  h.Pattern,
			Subset:   string(h.Subset),
			Priority: h.Priority,
		})
	}

	if globals.JSON {
		return output.JSON(items)
	}

	ui.InitColors(globals.NoColor)
	if len(items) == 0 {
		ui.Info("no hooks registered")
		return nil
	}
	ui.Header("Registered Hooks")
	for _, it := range items {
		fmt.Printf("  %-20s %-10s pattern=%-20s priority=%d\n", it.ID, it.Subset, it.Pattern, it.Priority)
	}
	return nil
}
