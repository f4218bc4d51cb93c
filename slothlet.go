// Copyright 2026 slothlet contributors
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package slothlet implements the bound API façade: a filesystem-driven
// tree of callables with an invocation/hook pipeline, ownership-gated live
// extension, and per-request context propagation, built from the L0-L3
// layers in internal/segment, internal/discovery, internal/loader, and
// internal/tree.
package slothlet

import (
	"context"
	"log/slog"
	"maps"
	"os"
	"sync"

	"github.com/slothlet/slothlet/internal/events"
	"github.com/slothlet/slothlet/internal/hooks"
	"github.com/slothlet/slothlet/internal/instance"
	"github.com/slothlet/slothlet/internal/loader"
	"github.com/slothlet/slothlet/internal/logging"
	"github.com/slothlet/slothlet/internal/ownership"
	"github.com/slothlet/slothlet/internal/reqcontext"
	"github.com/slothlet/slothlet/internal/segment"
	"github.com/slothlet/slothlet/internal/tree"
	"github.com/slothlet/slothlet/internal/validate"
)

// Mode selects how a folder's module tree is materialized.
type Mode int

const (
	// ModeEager walks and decodes a whole subtree before New/AddApi return.
	ModeEager Mode = iota
	// ModeLazy decodes a folder's own files immediately but defers every
	// subfolder to first access.
	ModeLazy
)

func (m Mode) String() string {
	if m == ModeLazy {
		return "lazy"
	}
	return "eager"
}

// RuntimeStyle is carried from spec.md's factory config for parity; Go's
// invocation pipeline has no async/sync split to select between (every
// call is already synchronous with cooperative cancellation via
// context.Context), so both values currently drive identical behavior.
type RuntimeStyle int

const (
	RuntimeAsync RuntimeStyle = iota
	RuntimeLive
)

// HooksConfig configures the hook manager's initial state.
type HooksConfig struct {
	// Enabled, if non-nil, overrides the default (hooks dispatch on).
	Enabled *bool
}

// ScopeConfig enables and configures per-request context propagation.
type ScopeConfig struct {
	// DefaultMerge is the merge strategy Run/Scope use when the caller
	// doesn't specify one. Defaults to reqcontext.MergeShallow.
	DefaultMerge reqcontext.Merge
}

// Config configures a bound API instance.
type Config struct {
	// Dir is the root folder to load. A relative Dir resolves against the
	// directory of New's caller's source file, not slothlet's own, found by
	// walking the call stack (spec.md §4.7); pass an absolute path to avoid
	// depending on that resolution.
	Dir string

	Mode    Mode
	Runtime RuntimeStyle

	HotReload bool
	Hooks     HooksConfig

	// AllowAPIOverwrite, if non-nil, overrides the default (cross-module
	// overwrite allowed). nil means true.
	AllowAPIOverwrite *bool

	// APIDepth caps folder-nesting depth materialized under Dir; zero
	// means unlimited.
	APIDepth int

	Rules    segment.Rules
	Decoders *loader.Registry

	Context   map[string]any
	Reference map[string]any
	Scope     *ScopeConfig

	Debug bool
}

func (c Config) withDefaults() Config {
	if c.Decoders == nil {
		c.Decoders = loader.NewRegistry()
	}
	return c
}

// AddApiOptions configures one AddApi call.
type AddApiOptions struct {
	ModuleID       string
	ForceOverwrite bool
	MutateExisting bool
}

// RemoveSpec selects what RemoveApi removes: either a single Path, or
// every path currently owned by ModuleID.
type RemoveSpec struct {
	Path     string
	ModuleID string
}

type addApiOp struct {
	apiPath    string
	folderPath string
	metadata   map[string]any
	options    AddApiOptions
	removed    bool
}

// BoundApi is a live, mutable instance of the loaded tree plus its control
// plane: hook manager, ownership registry, per-request context, and
// lifecycle bookkeeping.
type BoundApi struct {
	mu   sync.RWMutex
	root tree.Node
	cfg  Config

	hookManager *hooks.Manager
	ownership   *ownership.Registry
	emitter     *events.Emitter

	baseContext  reqcontext.Store
	defaultMerge reqcontext.Merge

	instanceData *instance.Data
	instanceID   string

	additionalMu   sync.Mutex
	additionalApis []addApiOp

	referenceMu sync.RWMutex
	reference   map[string]any

	log *slog.Logger
}

// New builds a bound API instance rooted at cfg.Dir, running the initial
// discovery+load as an implicit AddApi("", cfg.Dir, ...) so the primary
// load and every later addApi share one code path.
func New(ctx context.Context, cfg Config) (*BoundApi, error) {
	cfg = cfg.withDefaults()
	cfg.Dir = validate.ResolveFolderPath(cfg.Dir)
	if err := validate.FolderPath(cfg.Dir); err != nil {
		return nil, err
	}
	if cfg.Scope != nil {
		if err := validate.MergeStrategy(cfg.Scope.DefaultMerge); err != nil {
			return nil, err
		}
	}

	logging.Configure(os.Stderr, cfg.Debug)
	log := logging.WithComponent("slothlet")

	hm := hooks.NewManager()
	if cfg.Hooks.Enabled != nil && !*cfg.Hooks.Enabled {
		hm.Disable()
	}

	defaultMerge := reqcontext.MergeShallow
	if cfg.Scope != nil && cfg.Scope.DefaultMerge != "" {
		defaultMerge = cfg.Scope.DefaultMerge
	}

	b := &BoundApi{
		root:         tree.NewNamespace(segment.Path{}),
		cfg:          cfg,
		hookManager:  hm,
		ownership:    ownership.NewRegistry(),
		emitter:      events.NewEmitter(),
		baseContext:  reqcontext.Store(cfg.Context),
		defaultMerge: defaultMerge,
		reference:    cloneMap(cfg.Reference),
		log:          log,
	}
	b.emitter.Track()

	b.instanceData = &instance.Data{ID: instance.NewID(), OnShutdown: b.onShutdown}
	b.instanceID = b.instanceData.ID
	instance.Register(b.instanceData)

	if err := b.AddApi(ctx, "", cfg.Dir, nil, AddApiOptions{ModuleID: ownership.CoreModuleID}); err != nil {
		instance.Unregister(b.instanceData.ID)
		return nil, err
	}

	log.Info("slothlet.bound.new", "instance_id", b.instanceID, "dir", cfg.Dir, "mode", cfg.Mode.String())
	return b, nil
}

func (b *BoundApi) getRoot() tree.Node {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.root
}

func (b *BoundApi) setRoot(n tree.Node) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.root = n
}

// Hooks exposes the hook manager backing the `hooks` control-plane
// property of spec.md §4.7.
func (b *BoundApi) Hooks() *hooks.Manager { return b.hookManager }

// InstanceID returns the current instance identifier, regenerated on every
// Reload.
func (b *BoundApi) InstanceID() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.instanceID
}

// Context returns the effective context for ctx: the base context merged
// with whatever per-request store is active, if any (spec.md §4.7's
// `context` getter).
func (b *BoundApi) Context(ctx context.Context) map[string]any {
	return reqcontext.Effective(ctx, b.baseContext)
}

// Reference returns a snapshot of the consumer-supplied sidecar values.
func (b *BoundApi) Reference() map[string]any {
	b.referenceMu.RLock()
	defer b.referenceMu.RUnlock()
	out := make(map[string]any, len(b.reference))
	maps.Copy(out, b.reference)
	return out
}

// SetReference assigns a sidecar value. Keys that would collide with a
// non-writable built-in on a JS host (name, length, prototype, constructor,
// caller, arguments) are accepted without error: the map-backed reference
// here has no such built-ins to protect, so there is nothing to guard
// against assigning over.
func (b *BoundApi) SetReference(key string, value any) error {
	b.referenceMu.Lock()
	defer b.referenceMu.Unlock()
	if b.reference == nil {
		b.reference = map[string]any{}
	}
	b.reference[key] = value
	return nil
}

// Shutdown tears the instance down: idempotent, removes tracked event
// listeners, and unregisters the instance from the process-wide registry.
func (b *BoundApi) Shutdown() {
	b.instanceData.Shutdown()
}

func (b *BoundApi) onShutdown() {
	b.emitter.Shutdown()
	b.log.Info("slothlet.bound.shutdown", "instance_id", b.InstanceID())
}

func (b *BoundApi) allowOverwrite() bool {
	if b.cfg.AllowAPIOverwrite == nil {
		return true
	}
	return *b.cfg.AllowAPIOverwrite
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	maps.Copy(out, m)
	return out
}
