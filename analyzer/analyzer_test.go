package analyzer

import (
	"reflect"
	"testing"

	"github.com/MilkWind/i18n-assistant/localefile"
	"github.com/MilkWind/i18n-assistant/scanner"
)

func scanResult(occs ...scanner.Occurrence) *scanner.Result {
	res := &scanner.Result{
		Occurrences: occs,
		UsedKeys:    make(map[string]bool),
		FileCounts:  make(map[string]int),
	}
	for _, occ := range occs {
		res.UsedKeys[occ.Key] = true
		res.FileCounts[occ.File]++
	}
	res.FilesScanned = len(res.FileCounts)
	return res
}

func localeFile(path string, keys map[string]any) *localefile.File {
	return &localefile.File{Path: path, Locale: "x", Format: "json", Keys: keys}
}

func parseResult(files ...*localefile.File) *localefile.Result {
	res := &localefile.Result{Files: files, DefinedKeys: make(map[string]bool)}
	for _, f := range files {
		for key := range f.Keys {
			res.DefinedKeys[key] = true
		}
	}
	return res
}

func TestAnalyze_PartitionsKeys(t *testing.T) {
	scan := scanResult(
		scanner.Occurrence{File: "a.js", Line: 1, Column: 3, Key: "common.hello", Pattern: "t"},
		scanner.Occurrence{File: "a.js", Line: 2, Column: 3, Key: "common.gone", Pattern: "t"},
	)
	parse := parseResult(localeFile("/loc/en.json", map[string]any{
		"common.hello": "Hello",
		"common.stale": "Stale",
	}))

	res := Analyze(scan, parse)

	if len(res.Missing) != 1 || res.Missing[0].Key != "common.gone" {
		t.Errorf("missing: %+v", res.Missing)
	}
	if len(res.Missing[0].Occurrences) != 1 || res.Missing[0].Occurrences[0].Line != 2 {
		t.Errorf("missing occurrences: %+v", res.Missing[0].Occurrences)
	}
	if len(res.Unused) != 1 || res.Unused[0].Key != "common.stale" {
		t.Errorf("unused: %+v", res.Unused)
	}
	if res.MatchedCount != 1 || res.UsedCount != 2 || res.DefinedCount != 2 {
		t.Errorf("counts: %+v", res)
	}

	// A key is never both missing and matched, or both unused and matched.
	for _, m := range res.Missing {
		if parse.DefinedKeys[m.Key] {
			t.Errorf("missing key %q is defined", m.Key)
		}
	}
	for _, u := range res.Unused {
		if scan.UsedKeys[u.Key] {
			t.Errorf("unused key %q is used", u.Key)
		}
	}
}

func TestAnalyze_CoveragePercent(t *testing.T) {
	keys := make(map[string]any)
	var occs []scanner.Occurrence
	for _, k := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
		keys[k] = k
	}
	line := 1
	for _, k := range []string{"a", "b", "c", "d", "e", "f"} {
		occs = append(occs, scanner.Occurrence{File: "s.js", Line: line, Column: 1, Key: k, Pattern: "t"})
		line++
	}

	res := Analyze(scanResult(occs...), parseResult(localeFile("/loc/en.json", keys)))
	if res.CoveragePercent != 60.0 {
		t.Errorf("coverage: want 60.0, got %v", res.CoveragePercent)
	}
	if len(res.Coverage) != 1 || res.Coverage[0].File != "s.js" {
		t.Fatalf("file coverage: %+v", res.Coverage)
	}
	if res.Coverage[0].Matched != 6 || res.Coverage[0].Total != 6 || res.Coverage[0].Unmatched != 0 {
		t.Errorf("file coverage: %+v", res.Coverage)
	}
}

// Coverage is per scanned source file: calls grouped by the file they occur
// in, split into those whose key is defined and those whose key is not.
func TestAnalyze_FileCoverageGroupsCallsBySourceFile(t *testing.T) {
	scan := scanResult(
		scanner.Occurrence{File: "a.js", Line: 1, Column: 1, Key: "common.hello", Pattern: "t"},
		scanner.Occurrence{File: "a.js", Line: 2, Column: 1, Key: "common.gone", Pattern: "t"},
		scanner.Occurrence{File: "b.js", Line: 1, Column: 1, Key: "common.hello", Pattern: "t"},
	)
	parse := parseResult(localeFile("/loc/en.json", map[string]any{"common.hello": "Hello"}))

	res := Analyze(scan, parse)

	want := []FileCoverage{
		{File: "a.js", Total: 2, Matched: 1, Unmatched: 1, Ratio: 0.5},
		{File: "b.js", Total: 1, Matched: 1, Unmatched: 0, Ratio: 1.0},
	}
	if !reflect.DeepEqual(res.Coverage, want) {
		t.Errorf("coverage = %+v, want %+v", res.Coverage, want)
	}
	for _, fc := range res.Coverage {
		if fc.File == "/loc/en.json" {
			t.Errorf("locale file appeared in source coverage: %+v", fc)
		}
	}
}

func TestAnalyze_EmptyLocalesCoverageZero(t *testing.T) {
	scan := scanResult(scanner.Occurrence{File: "a.js", Line: 1, Column: 1, Key: "x", Pattern: "t"})
	res := Analyze(scan, parseResult())

	if res.CoveragePercent != 0.0 {
		t.Errorf("coverage with no defined keys: want 0.0, got %v", res.CoveragePercent)
	}
	if len(res.Missing) != 1 {
		t.Errorf("every used key should be missing: %+v", res.Missing)
	}
}

func TestAnalyze_InconsistentSiblingGroups(t *testing.T) {
	scan := scanResult(scanner.Occurrence{File: "a.js", Line: 1, Column: 1, Key: "shared.used", Pattern: "t"})
	parse := parseResult(
		localeFile("/loc/en.json", map[string]any{"shared.used": "u", "shared.both": "b"}),
		localeFile("/loc/zh.json", map[string]any{"shared.both": "b"}),
		// Different directory: not a sibling of the two above.
		localeFile("/other/fr.json", map[string]any{"only.here": "x"}),
	)

	res := Analyze(scan, parse)

	if len(res.Inconsistent) != 1 {
		t.Fatalf("inconsistent: %+v", res.Inconsistent)
	}
	ik := res.Inconsistent[0]
	if ik.Key != "shared.used" || !ik.Used {
		t.Errorf("unexpected inconsistent key: %+v", ik)
	}
	if !reflect.DeepEqual(ik.PresentIn, []string{"/loc/en.json"}) ||
		!reflect.DeepEqual(ik.AbsentFrom, []string{"/loc/zh.json"}) {
		t.Errorf("membership wrong: %+v", ik)
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	scan := scanResult(
		scanner.Occurrence{File: "a.js", Line: 1, Column: 1, Key: "m.one", Pattern: "t"},
		scanner.Occurrence{File: "b.js", Line: 1, Column: 1, Key: "m.two", Pattern: "t"},
	)
	parse := parseResult(
		localeFile("/loc/en.json", map[string]any{"u.a": 1, "u.b": 2, "u.c": 3}),
		localeFile("/loc/zh.json", map[string]any{"u.a": 1}),
	)

	first := Analyze(scan, parse)
	second := Analyze(scan, parse)
	if !reflect.DeepEqual(first, second) {
		t.Error("analysis is not deterministic")
	}
}

func TestSuggestFiles_RanksByPrefixDepth(t *testing.T) {
	files := []*localefile.File{
		localeFile("/loc/deep.json", map[string]any{"menu.file.save": "s"}),
		localeFile("/loc/shallow.json", map[string]any{"menu.edit": "e"}),
		localeFile("/loc/unrelated.json", map[string]any{"auth.login": "l"}),
	}

	got := SuggestFiles("menu.file.open", files)
	want := []string{"/loc/deep.json", "/loc/shallow.json"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SuggestFiles = %v, want %v", got, want)
	}
}

func TestSuggestFiles_CapAndTies(t *testing.T) {
	files := []*localefile.File{
		localeFile("/loc/d.json", map[string]any{"app.x": 1}),
		localeFile("/loc/b.json", map[string]any{"app.x": 1}),
		localeFile("/loc/c.json", map[string]any{"app.x": 1}),
		localeFile("/loc/a.json", map[string]any{"app.x": 1}),
	}

	got := SuggestFiles("app.y", files)
	want := []string{"/loc/a.json", "/loc/b.json", "/loc/c.json"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SuggestFiles = %v, want %v", got, want)
	}
}

func TestSuggestFiles_NoSharedPrefix(t *testing.T) {
	files := []*localefile.File{
		localeFile("/loc/en.json", map[string]any{"other.thing": 1}),
	}
	if got := SuggestFiles("brand.new", files); len(got) != 0 {
		t.Errorf("expected no suggestions, got %v", got)
	}
}
