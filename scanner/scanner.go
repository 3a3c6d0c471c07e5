// Package scanner walks a project tree and extracts i18n key usages by
// applying the configured regular-expression patterns to each file's text.
//
// Files are processed by a fixed-size worker pool. The merged result is
// always sorted by (file, line, column), so callers never observe worker
// scheduling order. A single unreadable or undecodable file is recorded as
// a recoverable error and does not stop the scan.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/MilkWind/i18n-assistant/config"
)

// Occurrence is a single i18n key usage found in a source file.
// Line and Column are 1-based and point at the key literal.
type Occurrence struct {
	File    string
	Line    int
	Column  int
	Key     string
	Pattern string
}

// FileError records a recoverable per-file scan failure.
type FileError struct {
	File string
	Err  error
}

func (e FileError) Error() string { return e.File + ": " + e.Err.Error() }
func (e FileError) Unwrap() error { return e.Err }

// Result is the outcome of one scan. It is built fresh on every call and
// never mutated afterward.
type Result struct {
	// Occurrences holds every match, sorted by (file, line, column).
	Occurrences []Occurrence
	// UsedKeys is the set of unique keys referenced (exact, case-sensitive).
	UsedKeys map[string]bool
	// FileCounts maps each scanned file with matches to its occurrence count.
	FileCounts map[string]int
	// FilesScanned is the number of files processed, matches or not.
	FilesScanned int
	// Errors lists per-file failures the scan recovered from.
	Errors []FileError
	// Elapsed is the wall-clock scan duration.
	Elapsed time.Duration
	// Cancelled is set when the scan stopped early via the context.
	Cancelled bool
}

// ProgressFunc is invoked after each file completes. Invocations are
// serialized, so the callback needs no locking of its own. A panicking
// callback is recovered and never corrupts the scan result.
type ProgressFunc func(done, total int, file string)

type compiledPattern struct {
	name     string
	re       *regexp.Regexp
	keyGroup int
}

// Scan walks cfg.ProjectRoot and applies every configured pattern to each
// retained file. Cancellation is cooperative: the context is checked between
// files only, and an in-flight file read always completes. A cancelled scan
// returns the partial result with Cancelled set.
func Scan(ctx context.Context, cfg config.Config, progress ProgressFunc) (*Result, error) {
	start := time.Now()

	patterns, err := compilePatterns(cfg.Patterns)
	if err != nil {
		return nil, err
	}

	files, err := collectFiles(cfg.ProjectRoot, extensionSet(cfg.Extensions), cfg.IgnorePatterns)
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", cfg.ProjectRoot, err)
	}

	res := &Result{
		UsedKeys:   make(map[string]bool),
		FileCounts: make(map[string]int),
	}

	var (
		mu   sync.Mutex
		done int
	)
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	g := new(errgroup.Group)
	g.SetLimit(workers)

	for _, file := range files {
		file := file
		if ctx.Err() != nil {
			mu.Lock()
			res.Cancelled = true
			mu.Unlock()
			break
		}
		g.Go(func() error {
			occs, ferr := scanFile(file, patterns, cfg.Encoding)

			mu.Lock()
			if ferr != nil {
				res.Errors = append(res.Errors, *ferr)
			} else {
				res.Occurrences = append(res.Occurrences, occs...)
			}
			done++
			// Called under the mutex so the callback never runs concurrently.
			notify(progress, done, len(files), file)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	res.FilesScanned = done

	sort.Slice(res.Occurrences, func(i, j int) bool {
		a, b := res.Occurrences[i], res.Occurrences[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		return a.Pattern < b.Pattern
	})
	sort.Slice(res.Errors, func(i, j int) bool { return res.Errors[i].File < res.Errors[j].File })

	for _, occ := range res.Occurrences {
		res.UsedKeys[occ.Key] = true
		res.FileCounts[occ.File]++
	}

	res.Elapsed = time.Since(start)
	return res, nil
}

func compilePatterns(patterns []config.Pattern) ([]compiledPattern, error) {
	compiled := make([]compiledPattern, 0, len(patterns))
	for _, p := range patterns {
		re, err := p.Compile()
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, compiledPattern{name: p.Name, re: re, keyGroup: p.KeyGroup})
	}
	return compiled, nil
}

func extensionSet(exts []string) map[string]bool {
	set := make(map[string]bool, len(exts))
	for _, e := range exts {
		set[strings.ToLower(e)] = true
	}
	return set
}

// collectFiles enumerates the tree under root, pruning ignored directories
// so excluded subtrees are never descended into. The returned list is sorted.
func collectFiles(root string, exts map[string]bool, ignores []string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, rerr := filepath.Rel(root, p)
		if rerr != nil {
			rel = p
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && ignored(rel, ignores) {
				return filepath.SkipDir
			}
			return nil
		}
		if ignored(rel, ignores) {
			return nil
		}
		if !exts[strings.ToLower(filepath.Ext(p))] {
			return nil
		}
		files = append(files, p)
		return nil
	})
	sort.Strings(files)
	return files, err
}

// ignored reports whether the slash-separated relative path matches any
// ignore pattern. Patterns use glob semantics against the full relative path
// and against the base name; a trailing "/**" excludes a whole subtree.
func ignored(rel string, patterns []string) bool {
	base := path.Base(rel)
	for _, p := range patterns {
		p = filepath.ToSlash(p)
		if ok, _ := path.Match(p, rel); ok {
			return true
		}
		if ok, _ := path.Match(p, base); ok {
			return true
		}
		if strings.HasSuffix(p, "/**") {
			prefix := strings.TrimSuffix(p, "/**")
			if rel == prefix || strings.HasPrefix(rel, prefix+"/") {
				return true
			}
		}
	}
	return false
}

// scanFile reads and decodes one file and applies every pattern to it.
// Each match yields one occurrence per pattern; overlapping matches from
// different patterns are all kept.
func scanFile(file string, patterns []compiledPattern, encodingHint string) ([]Occurrence, *FileError) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, &FileError{File: file, Err: err}
	}
	text, err := decodeText(data, encodingHint)
	if err != nil {
		return nil, &FileError{File: file, Err: err}
	}

	var occs []Occurrence
	offsets := lineOffsets(text)

	for _, p := range patterns {
		for _, m := range p.re.FindAllStringSubmatchIndex(text, -1) {
			start, end := keyGroupSpan(m, p.keyGroup)
			if start < 0 {
				continue
			}
			key := trimKey(text[start:end])
			// A key literal never spans lines.
			if key == "" || strings.ContainsAny(key, "\r\n") {
				continue
			}
			line, col := position(text, offsets, start)
			occs = append(occs, Occurrence{
				File:    file,
				Line:    line,
				Column:  col,
				Key:     key,
				Pattern: p.name,
			})
		}
	}
	return occs, nil
}

// trimKey strips surrounding whitespace and quote characters from a capture.
// No other transformation is applied.
func trimKey(raw string) string {
	key := strings.TrimSpace(raw)
	key = strings.Trim(key, "'\"`")
	return strings.TrimSpace(key)
}

// keyGroupSpan returns the byte span of the capture group holding the key.
// Group 0 means "first non-empty capture group".
func keyGroupSpan(match []int, group int) (int, int) {
	if group > 0 {
		if 2*group+1 >= len(match) {
			return -1, -1
		}
		return match[2*group], match[2*group+1]
	}
	for g := 1; 2*g+1 < len(match); g++ {
		if match[2*g] >= 0 {
			return match[2*g], match[2*g+1]
		}
	}
	return -1, -1
}

func lineOffsets(text string) []int {
	offsets := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			offsets = append(offsets, i+1)
		}
	}
	return offsets
}

// position converts a byte offset into a 1-based (line, column) pair.
// Columns count runes, not bytes.
func position(text string, offsets []int, pos int) (int, int) {
	i := sort.Search(len(offsets), func(i int) bool { return offsets[i] > pos }) - 1
	return i + 1, utf8.RuneCountInString(text[offsets[i]:pos]) + 1
}

func notify(progress ProgressFunc, done, total int, file string) {
	if progress == nil {
		return
	}
	// A broken callback must not take the scan down with it.
	defer func() { _ = recover() }()
	progress(done, total, file)
}
