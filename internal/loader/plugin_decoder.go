// Copyright 2026 slothlet contributors
//
// SPDX-License-Identifier: AGPL-3.0-only

//go:build slothlet_plugin

package loader

import (
	"fmt"
	"plugin"
)

// PluginDecoder decodes a .so module built with `go build -buildmode=plugin`,
// looking up its exported "Default", "Named", and "Callable" symbols. It is
// only compiled in with the slothlet_plugin build tag: plugin modules pull
// in the platform-specific plugin runtime and most consumers never need
// them (SPEC_FULL.md §0.1's third module kind).
type PluginDecoder struct{}

func (PluginDecoder) Extensions() []string { return []string{".so"} }

func (PluginDecoder) Decode(absPath string) (Export, error) {
	p, err := plugin.Open(absPath)
	if err != nil {
		return Export{}, fmt.Errorf("loader: opening plugin %q: %w", absPath, err)
	}

	var export Export
	if sym, err := p.Lookup("Default"); err == nil {
		export.Default = derefSymbol(sym)
		export.HasDefault = true
	}
	if sym, err := p.Lookup("Named"); err == nil {
		if named, ok := derefSymbol(sym).(map[string]any); ok {
			export.Named = named
		}
	}
	if sym, err := p.Lookup("Callable"); err == nil {
		if callable, ok := derefSymbol(sym).(bool); ok {
			export.Callable = callable
		}
	}
	return export, nil
}

func derefSymbol(sym plugin.Symbol) any {
	switch v := sym.(type) {
	case *any:
		return *v
	default:
		return v
	}
}

// RegisterPluginDecoder adds PluginDecoder to r. Call this from main() after
// NewRegistry() when building with the slothlet_plugin tag.
func RegisterPluginDecoder(r *Registry) {
	r.Register(PluginDecoder{})
}
