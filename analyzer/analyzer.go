// Package analyzer cross-references scanned key usages against parsed locale
// files. Analysis is pure: it reads both inputs, touches no files, and
// produces the same result for the same inputs every time.
package analyzer

import (
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/MilkWind/i18n-assistant/localefile"
	"github.com/MilkWind/i18n-assistant/scanner"
)

// MissingKey is a key used in source code but defined in no locale file.
type MissingKey struct {
	Key         string               `json:"key"`
	Occurrences []scanner.Occurrence `json:"occurrences"`
	// Suggestions names locale files whose existing keys share the longest
	// dot-path prefix with the missing key, best match first.
	Suggestions []string `json:"suggestions,omitempty"`
}

// UnusedKey is a key defined in a locale file but never referenced.
type UnusedKey struct {
	Key   string `json:"key"`
	File  string `json:"file"`
	Value any    `json:"value"`
}

// InconsistentKey is a key defined in some locale files of a sibling group
// but absent from others. Files are siblings when they share a directory.
type InconsistentKey struct {
	Key        string   `json:"key"`
	Dir        string   `json:"dir"`
	PresentIn  []string `json:"present_in"`
	AbsentFrom []string `json:"absent_from"`
	// Used reports whether source code references the key; used inconsistent
	// keys are the ones worth fixing first.
	Used bool `json:"used"`
}

// FileCoverage groups the i18n calls of one scanned source file: how many
// resolve to a defined key and how many do not.
type FileCoverage struct {
	File      string  `json:"file"`
	Total     int     `json:"total_calls"`
	Matched   int     `json:"matched_calls"`
	Unmatched int     `json:"unmatched_calls"`
	Ratio     float64 `json:"ratio"`
}

// Result is the full analysis outcome.
type Result struct {
	UsedCount    int `json:"used_keys"`
	DefinedCount int `json:"defined_keys"`
	// MatchedCount is the number of defined keys that are referenced.
	MatchedCount int `json:"matched_keys"`
	// CoveragePercent is MatchedCount over DefinedCount, as a percentage.
	// It is 0 when no keys are defined.
	CoveragePercent float64 `json:"coverage_percent"`

	Missing      []MissingKey      `json:"missing_keys"`
	Unused       []UnusedKey       `json:"unused_keys"`
	Inconsistent []InconsistentKey `json:"inconsistent_keys"`
	Coverage     []FileCoverage    `json:"file_coverage"`

	FilesScanned    int                    `json:"files_scanned"`
	OccurrenceCount int                    `json:"occurrences"`
	ScanErrors      []scanner.FileError    `json:"-"`
	ParseErrors     []localefile.FileError `json:"-"`
	// Warnings carries per-file parse warnings, prefixed with the file path.
	Warnings []string      `json:"warnings,omitempty"`
	Elapsed  time.Duration `json:"-"`
}

// Analyze cross-references a scan result with a parse result.
func Analyze(scan *scanner.Result, parse *localefile.Result) *Result {
	res := &Result{
		UsedCount:       len(scan.UsedKeys),
		DefinedCount:    len(parse.DefinedKeys),
		FilesScanned:    scan.FilesScanned,
		OccurrenceCount: len(scan.Occurrences),
		ScanErrors:      scan.Errors,
		ParseErrors:     parse.Errors,
		Elapsed:         scan.Elapsed,
	}

	for _, f := range parse.Files {
		for _, w := range f.Warnings {
			res.Warnings = append(res.Warnings, f.Path+": "+w)
		}
	}
	sort.Strings(res.Warnings)

	res.Missing = missingKeys(scan, parse)
	res.Unused = unusedKeys(scan, parse)
	res.Inconsistent = inconsistentKeys(scan, parse)
	res.Coverage = fileCoverage(scan, parse)

	for key := range parse.DefinedKeys {
		if scan.UsedKeys[key] {
			res.MatchedCount++
		}
	}
	if res.DefinedCount > 0 {
		res.CoveragePercent = float64(res.MatchedCount) / float64(res.DefinedCount) * 100
	}
	return res
}

func missingKeys(scan *scanner.Result, parse *localefile.Result) []MissingKey {
	occurrencesByKey := make(map[string][]scanner.Occurrence)
	for _, occ := range scan.Occurrences {
		occurrencesByKey[occ.Key] = append(occurrencesByKey[occ.Key], occ)
	}

	var missing []MissingKey
	for key := range scan.UsedKeys {
		if parse.DefinedKeys[key] {
			continue
		}
		missing = append(missing, MissingKey{
			Key:         key,
			Occurrences: occurrencesByKey[key],
			Suggestions: SuggestFiles(key, parse.Files),
		})
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i].Key < missing[j].Key })
	return missing
}

// SuggestFiles ranks locale files as insertion targets for a missing key.
// A file scores by the deepest dot-path prefix it shares with the key among
// its defined keys; ties break by path. At most three files are returned and
// a file with no shared prefix never is.
func SuggestFiles(key string, files []*localefile.File) []string {
	type scored struct {
		path  string
		depth int
	}
	var candidates []scored
	for _, f := range files {
		best := 0
		for defined := range f.Keys {
			if d := sharedPrefixDepth(key, defined); d > best {
				best = d
			}
		}
		if best > 0 {
			candidates = append(candidates, scored{path: f.Path, depth: best})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].depth != candidates[j].depth {
			return candidates[i].depth > candidates[j].depth
		}
		return candidates[i].path < candidates[j].path
	})
	if len(candidates) > 3 {
		candidates = candidates[:3]
	}
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.path
	}
	return out
}

// sharedPrefixDepth counts leading dot segments two keys have in common.
func sharedPrefixDepth(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	depth := 0
	for depth < len(as) && depth < len(bs) && as[depth] == bs[depth] {
		depth++
	}
	return depth
}

func unusedKeys(scan *scanner.Result, parse *localefile.Result) []UnusedKey {
	var unused []UnusedKey
	for _, f := range parse.Files {
		for key, value := range f.Keys {
			if !scan.UsedKeys[key] {
				unused = append(unused, UnusedKey{Key: key, File: f.Path, Value: value})
			}
		}
	}
	sort.Slice(unused, func(i, j int) bool {
		if unused[i].File != unused[j].File {
			return unused[i].File < unused[j].File
		}
		return unused[i].Key < unused[j].Key
	})
	return unused
}

// inconsistentKeys compares each sibling group of locale files. A directory
// with a single file has nothing to be inconsistent with.
func inconsistentKeys(scan *scanner.Result, parse *localefile.Result) []InconsistentKey {
	groups := make(map[string][]*localefile.File)
	for _, f := range parse.Files {
		dir := filepath.Dir(f.Path)
		groups[dir] = append(groups[dir], f)
	}

	var dirs []string
	for dir, files := range groups {
		if len(files) > 1 {
			dirs = append(dirs, dir)
		}
	}
	sort.Strings(dirs)

	var inconsistent []InconsistentKey
	for _, dir := range dirs {
		files := groups[dir]
		union := make(map[string]bool)
		for _, f := range files {
			for key := range f.Keys {
				union[key] = true
			}
		}

		keys := make([]string, 0, len(union))
		for key := range union {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			var present, absent []string
			for _, f := range files {
				if _, ok := f.Keys[key]; ok {
					present = append(present, f.Path)
				} else {
					absent = append(absent, f.Path)
				}
			}
			if len(absent) == 0 {
				continue
			}
			sort.Strings(present)
			sort.Strings(absent)
			inconsistent = append(inconsistent, InconsistentKey{
				Key:        key,
				Dir:        dir,
				PresentIn:  present,
				AbsentFrom: absent,
				Used:       scan.UsedKeys[key],
			})
		}
	}
	return inconsistent
}

// fileCoverage groups occurrences by source file. A scanned file with no
// matches has no calls to cover and does not appear.
func fileCoverage(scan *scanner.Result, parse *localefile.Result) []FileCoverage {
	byFile := make(map[string]*FileCoverage)
	for _, occ := range scan.Occurrences {
		fc := byFile[occ.File]
		if fc == nil {
			fc = &FileCoverage{File: occ.File}
			byFile[occ.File] = fc
		}
		fc.Total++
		if parse.DefinedKeys[occ.Key] {
			fc.Matched++
		} else {
			fc.Unmatched++
		}
	}

	coverage := make([]FileCoverage, 0, len(byFile))
	for _, fc := range byFile {
		fc.Ratio = float64(fc.Matched) / float64(fc.Total)
		coverage = append(coverage, *fc)
	}
	sort.Slice(coverage, func(i, j int) bool { return coverage[i].File < coverage[j].File })
	return coverage
}
