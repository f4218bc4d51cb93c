// Copyright 2026 slothlet contributors
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package validate holds slothlet's boundary checks: apiPath/folderPath
// shape validation for addApi/removeApi/reloadApi, and merge-strategy
// validation for BoundApi configuration (spec.md §4.7, §4.9).
package validate

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/slothlet/slothlet/internal/reqcontext"
	"github.com/slothlet/slothlet/slotherr"
)

// frameworkModulePath identifies stack frames that belong to slothlet's own
// source (New, AddApi, and the rest of the call chain down to
// ResolveFolderPath itself) so they can be skipped when hunting for the
// caller that actually supplied a relative folderPath.
const frameworkModulePath = "github.com/slothlet/slothlet"

// ResolveFolderPath resolves folder against the directory of the nearest
// non-framework caller's source file when folder is relative, per spec.md
// §4.7 ("resolves folderPath relative to the caller's file, not the
// framework's file"). Absolute folders, and folders for which no
// non-framework caller can be found, pass through unchanged.
func ResolveFolderPath(folder string) string {
	if folder == "" || filepath.IsAbs(folder) {
		return folder
	}
	for i := 1; ; i++ {
		pc, file, _, ok := runtime.Caller(i)
		if !ok {
			return folder
		}
		fn := runtime.FuncForPC(pc)
		if fn != nil && strings.HasPrefix(fn.Name(), frameworkModulePath) {
			continue
		}
		return filepath.Join(filepath.Dir(file), folder)
	}
}

// ApiPath checks path against spec.md §4.7's addApi rule: non-empty,
// not whitespace-only, no leading/trailing/consecutive dots.
func ApiPath(path string) error {
	if path == "" {
		return slotherr.Validationf(path, "apiPath must be a non-empty string")
	}
	if strings.TrimSpace(path) == "" {
		return slotherr.Validationf(path, "apiPath must be a non-empty, non-whitespace string")
	}
	if strings.HasPrefix(path, ".") || strings.HasSuffix(path, ".") {
		return slotherr.Validationf(path, "apiPath must not have leading or trailing dots")
	}
	if strings.Contains(path, "..") {
		return slotherr.Validationf(path, "apiPath must not contain consecutive dots")
	}
	return nil
}

// FolderPath checks that folder is a non-empty string and is accessible on
// disk (spec.md §4.7: "folderPath (accessible string)").
func FolderPath(folder string) error {
	if strings.TrimSpace(folder) == "" {
		return slotherr.Validationf(folder, "folderPath must be a non-empty string")
	}
	info, err := os.Stat(folder)
	if err != nil {
		return slotherr.Accessf(folder, err, "cannot access folderPath %q", folder)
	}
	if !info.IsDir() {
		return slotherr.Accessf(folder, nil, "folderPath %q is not a directory", folder)
	}
	return nil
}

// ReloadPath checks path for reloadApi: must be a non-empty, non-whitespace
// string (spec.md §4.7: "Rejects if ... path is not a non-empty
// non-whitespace string"). Unlike ApiPath, a reload path that doesn't
// currently exist in the tree is not an error here — the caller resolves
// without throwing per spec.md §4.7.
func ReloadPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return slotherr.Validationf(path, "path must be a non-empty, non-whitespace string")
	}
	return nil
}

// MergeStrategy validates a BoundApi's configured default per-request
// context merge strategy (spec.md §4.9).
func MergeStrategy(m reqcontext.Merge) error {
	return m.Validate()
}
