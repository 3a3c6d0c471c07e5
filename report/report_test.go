package report

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/MilkWind/i18n-assistant/analyzer"
	"github.com/MilkWind/i18n-assistant/localefile"
	"github.com/MilkWind/i18n-assistant/scanner"
)

func sampleAnalysis() *analyzer.Result {
	scan := &scanner.Result{
		Occurrences: []scanner.Occurrence{
			{File: "app.js", Line: 3, Column: 10, Key: "common.hello", Pattern: "t"},
			{File: "app.js", Line: 7, Column: 10, Key: "common.gone", Pattern: "t"},
		},
		UsedKeys:   map[string]bool{"common.hello": true, "common.gone": true},
		FileCounts: map[string]int{"app.js": 2},
	}
	parse := &localefile.Result{
		Files: []*localefile.File{
			{Path: "/loc/en.json", Locale: "en", Format: "json", Keys: map[string]any{
				"common.hello": "Hello",
				"common.stale": "Stale",
			}},
		},
		DefinedKeys: map[string]bool{"common.hello": true, "common.stale": true},
	}
	return analyzer.Analyze(scan, parse)
}

func TestRender_Sections(t *testing.T) {
	text := Render(sampleAnalysis(), nil)

	for _, want := range []string{
		"i18n Analysis Report",
		"Missing keys (1)",
		"common.gone",
		"used at app.js:7:10 (t)",
		"Unused keys (1)",
		"common.stale",
		"Coverage:            50.0%",
		"app.js: 1/2 matched, 1 unmatched (50.0%)",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("report lacks %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "Optimization") {
		t.Error("optimization section present without optimization info")
	}
}

func TestRender_WithOptimization(t *testing.T) {
	opt := &OptimizationInfo{
		SessionDir:   "/out/app 2025-03-01 10_30_00",
		FilesWritten: 2,
		RemovedKeys:  3,
		AddedKeys:    1,
		Errors:       []string{"/loc/zh.json: permission denied"},
	}
	text := Render(sampleAnalysis(), opt)

	for _, want := range []string{
		"Optimization",
		"Files written:       2",
		"Keys removed:        3",
		"Error: /loc/zh.json: permission denied",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("report lacks %q:\n%s", want, text)
		}
	}
}

func TestRender_Deterministic(t *testing.T) {
	analysis := sampleAnalysis()
	if Render(analysis, nil) != Render(analysis, nil) {
		t.Error("text rendering is not deterministic")
	}
}

func TestRenderJSON_Shape(t *testing.T) {
	data, err := RenderJSON(sampleAnalysis(), &OptimizationInfo{SessionDir: "/out/s"})
	if err != nil {
		t.Fatalf("RenderJSON: %v", err)
	}

	var decoded struct {
		Analysis struct {
			CoveragePercent float64 `json:"coverage_percent"`
			Missing         []struct {
				Key string `json:"key"`
			} `json:"missing_keys"`
		} `json:"analysis"`
		Optimization struct {
			SessionDir string `json:"session_dir"`
		} `json:"optimization"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, data)
	}
	if decoded.Analysis.CoveragePercent != 50.0 {
		t.Errorf("coverage: %v", decoded.Analysis.CoveragePercent)
	}
	if len(decoded.Analysis.Missing) != 1 || decoded.Analysis.Missing[0].Key != "common.gone" {
		t.Errorf("missing keys: %+v", decoded.Analysis.Missing)
	}
	if decoded.Optimization.SessionDir != "/out/s" {
		t.Errorf("optimization: %+v", decoded.Optimization)
	}
}

func TestRenderJSON_Deterministic(t *testing.T) {
	analysis := sampleAnalysis()
	a, err := RenderJSON(analysis, nil)
	if err != nil {
		t.Fatal(err)
	}
	b, err := RenderJSON(analysis, nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Error("JSON rendering is not deterministic")
	}
}
