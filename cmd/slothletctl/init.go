// Copyright 2026 slothlet contributors
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"fmt"
	"os"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"github.com/slothlet/slothlet/internal/ui"
)

// exampleDataModule scaffolds a YAML data module, the one module kind
// slothletctl can load and describe on its own: unlike a .go module, a
// YAML/JSON file needs no init()-time registry.Register call to decode, so
// `load`/`describe` work against it immediately without a recompile.
const exampleDataModule = `# A data module: slothlet decodes this file's contents as a single
# non-callable value. Go modules work the same way at the tree level, but
# require an init() in your own binary calling registry.Register, since
# slothlet never evaluates arbitrary Go source at runtime — see
# internal/registry's package doc for the exact pattern.
greeting: hello from slothlet
retries: 3
`

func runInit(args []string, globals GlobalFlags) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	force := fs.Bool("force", false, "Overwrite an existing config.yaml")
	fs.Usage = func() {
		fmt.Printf(`Usage: slothletctl init <dir> [options]

Scaffolds dir with an example data module (config.yaml) that slothletctl's
load/describe commands can read immediately, since YAML/JSON modules decode
without a compile-time registry entry. Go modules need to be wired into
your own binary via registry.Register; see internal/registry's package doc.
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

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create %s: %w", dir, err)
	}

	path := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(path); err == nil && !*force {
		return fmt.Errorf("%s already exists; use --force to overwrite", path)
	}

	if err := os.WriteFile(path, []byte(exampleDataModule), 0o644); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}

	ui.InitColors(globals.NoColor)
	ui.Success(fmt.Sprintf("scaffolded %s", path))
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  slothletctl load " + dir)
	fmt.Println("  slothletctl describe " + dir)
	return nil
}
