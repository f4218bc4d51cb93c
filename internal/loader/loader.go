// Copyright 2026 slothlet contributors
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package loader implements slothlet's L2 layer: decoding one module file
// into a normalized Export record (SPEC_FULL.md §0.1, spec.md §4.3).
//
// Decoding is pluggable by file extension, mirroring the teacher's
// ingestion.CodeParser/ParserMode pattern: a Decoder is chosen for a path,
// asked to Decode it, and returns the same Export shape regardless of
// which concrete format produced it.
package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/slothlet/slothlet/internal/registry"
	"gopkg.in/yaml.v3"
)

// Export is the normalized surface of one module file: an optional default
// value, a set of named exports, and whether the default is callable.
type Export struct {
	Default    any
	Named      map[string]any
	HasDefault bool
	Callable   bool
}

// Decoder decodes one module file into an Export.
type Decoder interface {
	// Decode reads absPath and returns its Export.
	Decode(absPath string) (Export, error)
	// Extensions lists the file extensions (with leading dot) this Decoder
	// claims, e.g. []string{".go"}.
	Extensions() []string
}

// Registry indexes Decoders by extension and picks one for a path.
type Registry struct {
	byExt map[string]Decoder
}

// NewRegistry builds a Registry with the default decoder set: Go registry
// modules, YAML/JSON data modules. Plugin (.so) support is added separately
// via RegisterPluginDecoder when the slothlet_plugin build tag is present.
func NewRegistry() *Registry {
	r := &Registry{byExt: map[string]Decoder{}}
	r.Register(GoDecoder{})
	r.Register(YAMLDecoder{})
	r.Register(JSONDecoder{})
	return r
}

// Register adds (or replaces) the Decoder claiming each of its Extensions.
func (r *Registry) Register(d Decoder) {
	for _, ext := range d.Extensions() {
		r.byExt[ext] = d
	}
}

// ForPath returns the Decoder claiming absPath's extension, or false if no
// Decoder is registered for it (the file is not a module file and
// discovery should skip it).
func (r *Registry) ForPath(absPath string) (Decoder, bool) {
	d, ok := r.byExt[strings.ToLower(filepath.Ext(absPath))]
	return d, ok
}

// Decode is a convenience that looks up and runs the Decoder for absPath.
func (r *Registry) Decode(absPath string) (Export, error) {
	d, ok := r.ForPath(absPath)
	if !ok {
		return Export{}, fmt.Errorf("loader: no decoder registered for extension %q", filepath.Ext(absPath))
	}
	return d.Decode(absPath)
}

// GoDecoder decodes a .go registry module by consulting
// internal/registry for whatever that file's init() published.
type GoDecoder struct{}

func (GoDecoder) Extensions() []string { return []string{".go"} }

func (GoDecoder) Decode(absPath string) (Export, error) {
	reg, ok := registry.Lookup(absPath)
	if !ok {
		return Export{}, registry.ErrNotRegistered(absPath)
	}
	return Export{
		Default:    reg.Default,
		HasDefault: reg.HasDefault || reg.Default != nil,
		Named:      reg.Named,
		Callable:   reg.Callable,
	}, nil
}

// YAMLDecoder decodes a .yaml/.yml data module: the whole document becomes
// a single default export, never callable.
type YAMLDecoder struct{}

func (YAMLDecoder) Extensions() []string { return []string{".yaml", ".yml"} }

func (YAMLDecoder) Decode(absPath string) (Export, error) {
	raw, err := os.ReadFile(absPath)
	if err != nil {
		return Export{}, fmt.Errorf("loader: reading %q: %w", absPath, err)
	}
	var value any
	if err := yaml.Unmarshal(raw, &value); err != nil {
		return Export{}, fmt.Errorf("loader: decoding yaml %q: %w", absPath, err)
	}
	return Export{Default: value, HasDefault: true, Callable: false}, nil
}

// JSONDecoder decodes a .json data module the same way YAMLDecoder does.
type JSONDecoder struct{}

func (JSONDecoder) Extensions() []string { return []string{".json"} }

func (JSONDecoder) Decode(absPath string) (Export, error) {
	raw, err := os.ReadFile(absPath)
	if err != nil {
		return Export{}, fmt.Errorf("loader: reading %q: %w", absPath, err)
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return Export{}, fmt.Errorf("loader: decoding json %q: %w", absPath, err)
	}
	return Export{Default: value, HasDefault: true, Callable: false}, nil
}
