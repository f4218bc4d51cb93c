// Copyright 2026 slothlet contributors
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package discovery implements slothlet's L1 layer: walking a directory and
// classifying it into folder/file nodes per the "smart flattening" rules
// (one matching file inlines into its folder, an addapi.* file always
// inlines, everything else becomes folder.filename), without yet loading or
// invoking anything — that is internal/loader and internal/tree's job.
package discovery

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/slothlet/slothlet/internal/loader"
	"github.com/slothlet/slothlet/internal/segment"
	"github.com/slothlet/slothlet/slotherr"
)

// addAPIName is the sanitized form of the special "addapi.*" filename that
// always inlines into its folder's own node (Case 2).
const addAPIName = "addapi"

// File is a single module file discovered under a folder, with its
// sanitized segment name attached.
type File struct {
	AbsPath string
	Name    string
}

// Classification is the discovery output for one folder: which file (if
// any) inlines into the folder's own node, which files become
// folder.<name> children, and which subfolders recurse into their own
// Classification.
type Classification struct {
	AbsPath string
	// Segment is this folder's own sanitized mount segment ("" at the
	// primary-load root, conceptually addApi("", root)).
	Segment string
	// Inlined is the file whose ExportRecord is merged directly into this
	// folder's node (Cases 1–3), or nil if none qualifies (Case 4).
	Inlined *File
	// Files holds every other module file in this folder, keyed by its
	// sanitized name, becoming folder.<name> nodes.
	Files []File
	// Folders holds every subfolder's own Classification, keyed by its
	// sanitized segment name.
	Folders map[string]*Classification
}

// Options configures a Walk.
type Options struct {
	Rules    segment.Rules
	Decoders *loader.Registry
	// MaxDepth caps folder-nesting depth materialized below the walk root;
	// zero means unlimited (spec.md's apiDepth: integer | Infinity).
	MaxDepth int
}

// Walk classifies dir (whose sanitized mount segment is segmentName) and
// recurses into its subfolders concurrently, up to opts.MaxDepth.
func Walk(ctx context.Context, dir, segmentName string, opts Options) (*Classification, error) {
	return walk(ctx, dir, segmentName, opts, 0)
}

// ClassifyShallow lists dir's immediate entries and classifies its module
// files per Cases 1-4, returning the subfolder names separately without
// recursing into them. internal/tree's lazy builder uses this to know a
// folder's children without paying for a full recursive walk up front.
func ClassifyShallow(dir, segmentName string, opts Options) (*Classification, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, slotherr.Accessf(dir, err, "Cannot access folder %q", dir)
	}

	var files []File
	var subdirs []string
	seen := map[string]string{} // sanitized name -> absolute path, for collision detection

	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		abs := filepath.Join(dir, name)

		if entry.IsDir() {
			subdirs = append(subdirs, name)
			continue
		}
		if opts.Decoders != nil {
			if _, ok := opts.Decoders.ForPath(abs); !ok {
				continue
			}
		}
		sanitized := segment.Sanitize(name, opts.Rules)
		if prior, dup := seen[sanitized]; dup {
			return nil, nil, slotherr.Configurationf(dir,
				"%q and %q both sanitize to %q in the same folder", prior, abs, sanitized)
		}
		seen[sanitized] = abs
		files = append(files, File{AbsPath: abs, Name: sanitized})
	}

	return classifyFiles(dir, segmentName, files), subdirs, nil
}

func walk(ctx context.Context, dir, segmentName string, opts Options, depth int) (*Classification, error) {
	classification, subdirs, err := ClassifyShallow(dir, segmentName, opts)
	if err != nil {
		return nil, err
	}

	if opts.MaxDepth > 0 && depth+1 >= opts.MaxDepth {
		return classification, nil
	}
	if len(subdirs) == 0 {
		return classification, nil
	}

	classification.Folders = make(map[string]*Classification, len(subdirs))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range subdirs {
		name := name
		childDir := filepath.Join(dir, name)
		childSegment := segment.Sanitize(name, opts.Rules)
		g.Go(func() error {
			child, err := walk(gctx, childDir, childSegment, opts, depth+1)
			if err != nil {
				return err
			}
			mu.Lock()
			classification.Folders[childSegment] = child
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return classification, nil
}

// classifyFiles applies Cases 1-4 / Rule 1 to one folder's file set. Rule 1
// (subfolder X with a file named X) falls out of the same logic: the
// recursive call simply passes the subfolder's own sanitized name as
// segmentName.
func classifyFiles(dir, segmentName string, files []File) *Classification {
	c := &Classification{AbsPath: dir, Segment: segmentName}

	var addAPIFile, matchingFile *File
	for i := range files {
		f := &files[i]
		switch {
		case f.Name == addAPIName:
			addAPIFile = f
		case segmentName != "" && f.Name == segmentName:
			matchingFile = f
		}
	}

	inlined := addAPIFile
	if inlined == nil {
		inlined = matchingFile
	}
	c.Inlined = inlined

	for i := range files {
		f := &files[i]
		if f == inlined {
			continue
		}
		c.Files = append(c.Files, *f)
	}
	sort.Slice(c.Files, func(i, j int) bool { return c.Files[i].Name < c.Files[j].Name })
	return c
}
