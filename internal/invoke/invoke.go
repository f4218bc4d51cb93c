// Copyright 2026 slothlet contributors
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package invoke implements slothlet's invocation wrapper (spec.md §4.6):
// the hot path every Leaf-callable runs through, threading the before,
// primary, after, always, and error hook pipelines around a single
// reflection-backed call; primary hooks run as a stage after before and
// ahead of the target call.
package invoke

import (
	"time"

	"github.com/slothlet/slothlet/internal/hooks"
	"github.com/slothlet/slothlet/slotherr"
)

// Target is the leaf function being wrapped, already bound to its
// receiver — typically tree.Leaf.Call.
type Target func(args []any) ([]any, error)

// Options configures one invocation.
type Options struct {
	// SuppressErrors, when true, swallows a failed invocation after the
	// error pipeline runs, returning (nil, nil) instead of the error.
	SuppressErrors bool
}

// Result is the outcome of one wrapped invocation.
type Result struct {
	Values       []any
	ShortCircuit bool
}

// Invoke runs path's before/primary/after/always/error pipeline against
// mgr, calling target after the before and primary stages unless a hook in
// either stage short-circuits. reqContext is the caller's current per-request context
// (spec.md §4.9), threaded into every Invocation so hooks can read it.
//
// When mgr is nil, disabled, or has no hook matching path, target is
// called directly with no pipeline overhead (spec.md §4.6 step 2).
func Invoke(mgr *hooks.Manager, path string, target Target, args []any, reqContext map[string]any, opts Options) ([]any, error) {
	if mgr == nil || !mgr.Enabled() {
		return target(args)
	}
	anyMatch, err := mgr.HasAnyMatch(path)
	if err != nil {
		return nil, err
	}
	if !anyMatch {
		return target(args)
	}

	var (
		result       []any
		shortCircuit bool
		stageErr     error
		stageSubset  hooks.Subset
		stageHookID  string
	)

	before, err := mgr.MatchingByPriority(hooks.SubsetBefore, path)
	if err != nil {
		return nil, err
	}
	for _, h := range before {
		inv := &hooks.Invocation{Path: path, Args: args, Context: reqContext}
		hr, herr := h.Handler(inv)
		if herr != nil {
			stageErr, stageSubset, stageHookID = herr, hooks.SubsetBefore, h.ID
			break
		}
		if hr == nil {
			continue
		}
		if hr.ShortCircuit {
			shortCircuit = true
			result = hr.Result
			break
		}
		if hr.Args != nil {
			args = hr.Args
		}
	}

	// Subset primary runs in the same pre-call stage as before, immediately
	// ahead of the target — it is the default subset hooks.on() assigns, so
	// a hook registered without an explicit subset still observes and can
	// short-circuit the call.
	if stageErr == nil && !shortCircuit {
		primary, perr := mgr.MatchingByPriority(hooks.SubsetPrimary, path)
		if perr != nil {
			return nil, perr
		}
		for _, h := range primary {
			inv := &hooks.Invocation{Path: path, Args: args, Context: reqContext}
			hr, herr := h.Handler(inv)
			if herr != nil {
				stageErr, stageSubset, stageHookID = herr, hooks.SubsetPrimary, h.ID
				break
			}
			if hr == nil {
				continue
			}
			if hr.ShortCircuit {
				shortCircuit = true
				result = hr.Result
				break
			}
			if hr.Args != nil {
				args = hr.Args
			}
		}
	}

	if stageErr == nil && !shortCircuit {
		out, terr := target(args)
		if terr != nil {
			stageErr, stageSubset, stageHookID = terr, hooks.SubsetPrimary, ""
		} else {
			result = out
		}
	}

	if stageErr == nil {
		after, err := mgr.MatchingByRegistration(hooks.SubsetAfter, path)
		if err != nil {
			return nil, err
		}
		for _, h := range after {
			inv := &hooks.Invocation{Path: path, Args: args, Result: result, Context: reqContext}
			hr, herr := h.Handler(inv)
			if herr != nil {
				stageErr, stageSubset, stageHookID = herr, hooks.SubsetAfter, h.ID
				break
			}
			if hr != nil && hr.Result != nil {
				result = hr.Result
			}
		}
	}

	if stageErr != nil {
		errHooks, merr := mgr.MatchingByRegistration(hooks.SubsetError, path)
		if merr != nil {
			return nil, merr
		}
		for _, h := range errHooks {
			inv := &hooks.Invocation{
				Path:            path,
				Args:            args,
				Context:         reqContext,
				Err:             stageErr,
				HasError:        true,
				SourceSubset:    stageSubset,
				SourceHookID:    stageHookID,
				SourceTimestamp: timeNow(),
			}
			if _, herr := h.Handler(inv); herr != nil {
				stageErr = slotherr.Hookf(path, herr, "error hook %q failed", h.ID)
			}
		}
	}

	always, aerr := mgr.MatchingByRegistration(hooks.SubsetAlways, path)
	if aerr != nil {
		return nil, aerr
	}
	for _, h := range always {
		inv := &hooks.Invocation{
			Path:     path,
			Args:     args,
			Result:   result,
			Context:  reqContext,
			Err:      stageErr,
			HasError: stageErr != nil,
		}
		_, _ = h.Handler(inv)
	}

	if stageErr != nil {
		if opts.SuppressErrors {
			return nil, nil
		}
		return nil, stageErr
	}
	return result, nil
}

// timeNow is a seam so tests can assert ordering without depending on wall
// clock precision; production always uses time.Now.
var timeNow = time.Now
