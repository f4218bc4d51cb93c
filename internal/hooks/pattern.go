// Copyright 2026 slothlet contributors
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package hooks implements slothlet's L5 pattern-matching hook registry:
// glob/brace patterns addressing leaf ApiPaths, and the before/primary/
// after/always/error pipeline ordering around an invocation (spec.md §4.10,
// §4.6).
package hooks

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// maxBraceDepth is spec.md §4.10's brace-nesting limit.
const maxBraceDepth = 10

// ErrBraceDepth is the exact message spec.md §4.10 requires on overflow.
var ErrBraceDepth = errors.New("Brace expansion exceeds maximum nesting depth of 10")

// expandBraces expands every `{a,b,...}` alternation in pattern (nesting
// allowed up to maxBraceDepth) into the set of literal patterns it denotes. A pattern
// with no braces expands to itself. Exported as _expandBraces in spec.md's
// vocabulary; named without the underscore here since Go has no private-vs-
// debug-export distinction worth faking.
func expandBraces(pattern string) ([]string, error) {
	return expandBracesDepth(pattern, 0)
}

func expandBracesDepth(pattern string, depth int) ([]string, error) {
	if depth > maxBraceDepth {
		return nil, ErrBraceDepth
	}

	open := strings.IndexByte(pattern, '{')
	if open == -1 {
		return []string{pattern}, nil
	}
	shut, err := matchingBrace(pattern, open)
	if err != nil {
		return nil, err
	}

	prefix := pattern[:open]
	inner := pattern[open+1 : shut]
	suffix := pattern[shut+1:]

	alternatives := splitTopLevel(inner)
	var expanded []string
	for _, alt := range alternatives {
		combined := prefix + alt + suffix
		sub, err := expandBracesDepth(combined, depth+1)
		if err != nil {
			return nil, err
		}
		expanded = append(expanded, sub...)
	}
	return expanded, nil
}

// matchingBrace finds the index of the '}' matching the '{' at open,
// respecting nested braces.
func matchingBrace(pattern string, open int) (int, error) {
	depth := 0
	for i := open; i < len(pattern); i++ {
		switch pattern[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("unbalanced '{' in pattern %q", pattern)
}

// splitTopLevel splits inner on top-level commas, not descending into
// nested braces.
func splitTopLevel(inner string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(inner); i++ {
		switch inner[i] {
		case '{':
			depth++
		case '}':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, inner[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, inner[start:])
	return parts
}

// patternToRegex translates one brace-free glob pattern (as produced by
// expandBraces) into an anchored regular expression string: '*' matches one
// path segment, '**' matches any number of segments including zero, dots
// are literal separators, and an empty pattern matches everything.
func patternToRegex(pattern string) string {
	if pattern == "" {
		return "^.*$"
	}
	var b strings.Builder
	b.WriteString("^")
	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		switch {
		case runes[i] == '*' && i+1 < len(runes) && runes[i+1] == '*':
			b.WriteString(".*")
			i++
			// Swallow a following "." so "**.add" matches both "math.add"
			// and "add" at depth zero.
			if i+1 < len(runes) && runes[i+1] == '.' {
				b.WriteString("(?:\\.|)")
				i++
			}
		case runes[i] == '*':
			b.WriteString("[^.]*")
		case strings.ContainsRune(`.\+?()[]^$|`, runes[i]):
			b.WriteString(regexp.QuoteMeta(string(runes[i])))
		default:
			b.WriteRune(runes[i])
		}
	}
	b.WriteString("$")
	return b.String()
}

// compiled is a cached pattern: its possibly-negated, possibly-brace-
// expanded set of compiled regexes.
type compiled struct {
	negate  bool
	regexes []*regexp.Regexp
}

func (c compiled) match(path string) bool {
	matched := false
	for _, re := range c.regexes {
		if re.MatchString(path) {
			matched = true
			break
		}
	}
	if c.negate {
		return !matched
	}
	return matched
}

var (
	compileCacheMu sync.RWMutex
	compileCache   = map[string]compiled{}
)

// compilePattern compiles pattern, consulting and populating the
// process-wide cache keyed by the literal pattern string (spec.md §4.10:
// "Compilation is cached per pattern string").
func compilePattern(pattern string) (compiled, error) {
	compileCacheMu.RLock()
	if c, ok := compileCache[pattern]; ok {
		compileCacheMu.RUnlock()
		return c, nil
	}
	compileCacheMu.RUnlock()

	negate := strings.HasPrefix(pattern, "!")
	rest := pattern
	if negate {
		rest = pattern[1:]
	}

	alternatives, err := expandBraces(rest)
	if err != nil {
		return compiled{}, err
	}

	regexes := make([]*regexp.Regexp, 0, len(alternatives))
	for _, alt := range alternatives {
		re, err := regexp.Compile(patternToRegex(alt))
		if err != nil {
			return compiled{}, fmt.Errorf("hooks: compiling pattern %q: %w", alt, err)
		}
		regexes = append(regexes, re)
	}

	c := compiled{negate: negate, regexes: regexes}
	compileCacheMu.Lock()
	compileCache[pattern] = c
	compileCacheMu.Unlock()
	return c, nil
}

// Matches reports whether path satisfies pattern, compiling (and caching)
// pattern on first use.
func Matches(pattern, path string) (bool, error) {
	c, err := compilePattern(pattern)
	if err != nil {
		return false, err
	}
	return c.match(path), nil
}

// ExpandBraces is the debug/test entry point spec.md §4.10 calls
// `_expandBraces`: it expands one pattern's brace alternation without
// compiling it.
func ExpandBraces(pattern string) ([]string, error) { return expandBraces(pattern) }

// PatternToRegex is the debug/test entry point spec.md §4.10 calls
// `_patternToRegex`: it renders the regex string one brace-free pattern
// compiles to, without actually compiling it.
func PatternToRegex(pattern string) string { return patternToRegex(pattern) }
