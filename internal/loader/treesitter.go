// Copyright 2026 slothlet contributors
//
// SPDX-License-Identifier: AGPL-3.0-only

package loader

import (
	"context"
	"fmt"
	"os"
	"sort"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/slothlet/slothlet/internal/registry"
	"github.com/slothlet/slothlet/slotherr"
)

// Introspector parses Go source with tree-sitter to list the identifiers a
// file exports at the top level, independent of whether a Register call
// actually ran for it. CrossCheck uses it to catch a common configuration
// mistake: a .go module file sitting in a loaded directory whose package
// was never imported, so its init() never registered it. Discovery and the
// decoders do not call CrossCheck.
type Introspector struct {
	parser *sitter.Parser
}

// NewIntrospector builds an Introspector configured for the Go grammar.
func NewIntrospector() *Introspector {
	p := sitter.NewParser()
	p.SetLanguage(golang.GetLanguage())
	return &Introspector{parser: p}
}

// ExportedNames returns the names of every top-level exported (capitalized)
// func, var, const, and type declared directly in absPath.
func (in *Introspector) ExportedNames(absPath string) ([]string, error) {
	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("loader: reading %q: %w", absPath, err)
	}

	tree, err := in.parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("loader: tree-sitter parse %q: %w", absPath, err)
	}
	defer tree.Close()

	var names []string
	root := tree.RootNode()
	for i := 0; i < int(root.ChildCount()); i++ {
		collectTopLevelNames(root.Child(i), content, &names)
	}
	sort.Strings(names)
	return names, nil
}

func collectTopLevelNames(node *sitter.Node, content []byte, names *[]string) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "function_declaration":
		addExportedName(node.ChildByFieldName("name"), content, names)
	case "const_declaration", "var_declaration":
		for i := 0; i < int(node.ChildCount()); i++ {
			spec := node.Child(i)
			if spec.Type() != "const_spec" && spec.Type() != "var_spec" {
				continue
			}
			for j := 0; j < int(spec.ChildCount()); j++ {
				child := spec.Child(j)
				if child.Type() == "identifier" {
					addExportedName(child, content, names)
				}
			}
		}
	case "type_declaration":
		for i := 0; i < int(node.ChildCount()); i++ {
			spec := node.Child(i)
			if spec.Type() == "type_spec" {
				addExportedName(spec.ChildByFieldName("name"), content, names)
			}
			if spec.Type() == "type_spec_list" {
				for j := 0; j < int(spec.ChildCount()); j++ {
					inner := spec.Child(j)
					if inner.Type() == "type_spec" {
						addExportedName(inner.ChildByFieldName("name"), content, names)
					}
				}
			}
		}
	}
}

func addExportedName(node *sitter.Node, content []byte, names *[]string) {
	if node == nil {
		return
	}
	name := string(content[node.StartByte():node.EndByte()])
	if name == "" {
		return
	}
	if r := []rune(name)[0]; unicode.IsUpper(r) {
		*names = append(*names, name)
	}
}

// CrossCheck compares the Go source at absPath against what was published
// to the registry for it, returning a Materialization error naming any
// exported identifier that tree-sitter found in source but that never
// turned up as a registry named export — the file's package was probably
// never imported, so its init() never ran.
func CrossCheck(in *Introspector, absPath string) error {
	found, err := in.ExportedNames(absPath)
	if err != nil {
		return err
	}
	reg, ok := registry.Lookup(absPath)
	if !ok {
		if len(found) == 0 {
			return nil
		}
		return slotherr.Materializationf(absPath, nil,
			"source declares %d exported identifier(s) (e.g. %q) but nothing registered itself for this file", len(found), found[0])
	}

	var missing []string
	for _, name := range found {
		if _, ok := reg.Named[name]; ok {
			continue
		}
		if reg.Default != nil && name == "Default" {
			continue
		}
		missing = append(missing, name)
	}
	if len(missing) == 0 {
		return nil
	}
	return slotherr.Materializationf(absPath, nil,
		"source declares exported identifier %q that was never published via registry.Register", missing[0])
}
