// Copyright 2026 slothlet contributors
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"context"
	"encoding/json"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/slothlet/slothlet"
	"github.com/slothlet/slothlet/internal/output"
)

// InvokeResult is the --json shape of `invoke`.
type InvokeResult struct {
	Path    string `json:"path"`
	Results []any  `json:"results"`
}

func runInvoke(args []string, globals GlobalFlags) error {
	fs := flag.NewFlagSet("invoke", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Printf(`Usage: slothletctl invoke <dir> <path> [args...]

Loads the module tree rooted at dir and calls path with args. Each arg is
parsed as JSON first (so "42", "true", '"str"', '{"a":1}' all work);
anything that fails to parse as JSON is passed through as a raw string.
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		fs.Usage()
		return fmt.Errorf("dir and path arguments required")
	}
	dir := fs.Arg(0)
	path := fs.Arg(1)
	rawArgs := fs.Args()[2:]

	callArgs := make([]any, len(rawArgs))
	for i, a := range rawArgs {
		callArgs[i] = decodeArg(a)
	}

	b, err := slothlet.New(context.Background(), slothlet.Config{Dir: dir, Debug: globals.Debug})
	if err != nil {
		return fmt.Errorf("load failed: %w", err)
	}
	defer b.Shutdown()

	out, err := b.Invoke(context.Background(), path, callArgs...)
	if err != nil {
		if globals.JSON {
			return output.JSONError(err)
		}
		return err
	}

	if globals.JSON {
		return output.JSON(InvokeResult{Path: path, Results: out})
	}

	for _, v := range out {
		fmt.Println(v)
	}
	return nil
}

func decodeArg(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}
