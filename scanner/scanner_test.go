package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/MilkWind/i18n-assistant/config"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func scanConfig(root string) config.Config {
	cfg := config.Default()
	cfg.ProjectRoot = root
	cfg.Extensions = []string{".js", ".vue"}
	cfg.Workers = 2
	return cfg
}

func TestScan_FindsKeysWithPositions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app.js", "const a = t('common.hello')\nlet b = $t(\"common.welcome\")\n")

	res, err := Scan(context.Background(), scanConfig(root), nil)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(res.Occurrences) != 2 {
		t.Fatalf("expected 2 occurrences, got %d: %v", len(res.Occurrences), res.Occurrences)
	}

	first := res.Occurrences[0]
	if first.Key != "common.hello" || first.Line != 1 {
		t.Errorf("unexpected first occurrence: %+v", first)
	}
	// Column points at the key literal inside t('...').
	if first.Column != 14 {
		t.Errorf("column: want 14, got %d", first.Column)
	}
	if first.Pattern != "t" {
		t.Errorf("pattern: want t, got %q", first.Pattern)
	}

	second := res.Occurrences[1]
	if second.Key != "common.welcome" || second.Line != 2 || second.Pattern != "dollar-t" {
		t.Errorf("unexpected second occurrence: %+v", second)
	}

	if !res.UsedKeys["common.hello"] || !res.UsedKeys["common.welcome"] {
		t.Errorf("used keys incomplete: %v", res.UsedKeys)
	}
	if res.FileCounts[first.File] != 2 {
		t.Errorf("file counts: %v", res.FileCounts)
	}
}

func TestScan_QuoteStripping(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.js", "t( 'auth.login.title' )\n")

	cfg := scanConfig(root)
	// A capture that keeps the quotes must still yield a clean key.
	cfg.Patterns = []config.Pattern{{Name: "raw", Regex: `t\(\s*('[^'\r\n]+')\s*\)`, KeyGroup: 1}}

	res, err := Scan(context.Background(), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Occurrences) != 1 || res.Occurrences[0].Key != "auth.login.title" {
		t.Fatalf("unexpected occurrences: %v", res.Occurrences)
	}
}

func TestScan_IgnoresAndExtensions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/a.js", "t('keep.me')\n")
	writeFile(t, root, "node_modules/lib/b.js", "t('skip.dep')\n")
	writeFile(t, root, "src/c.go", "t('skip.ext')\n")
	writeFile(t, root, "src/skip.vue", "t('skip.glob')\n")

	cfg := scanConfig(root)
	cfg.IgnorePatterns = append(cfg.IgnorePatterns, "skip.vue")

	res, err := Scan(context.Background(), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Occurrences) != 1 || res.Occurrences[0].Key != "keep.me" {
		t.Fatalf("unexpected occurrences: %v", res.Occurrences)
	}
}

func TestScan_ZeroMatchesIsValid(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.js", "console.log('nothing here')\n")

	res, err := Scan(context.Background(), scanConfig(root), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Occurrences) != 0 || len(res.Errors) != 0 {
		t.Fatalf("expected clean empty result, got %+v", res)
	}
	// A file without matches still counts as scanned.
	if res.FilesScanned != 1 {
		t.Errorf("files scanned: want 1, got %d", res.FilesScanned)
	}
}

func TestScan_BinaryFileRecordedAsError(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "good.js", "t('a.b')\n")
	p := filepath.Join(root, "bad.js")
	if err := os.WriteFile(p, []byte{0x00, 0x01, 0x02, 't', '(', '\''}, 0644); err != nil {
		t.Fatal(err)
	}

	res, err := Scan(context.Background(), scanConfig(root), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Errors) != 1 || res.Errors[0].File != p {
		t.Fatalf("expected one file error for %s, got %v", p, res.Errors)
	}
	// The failure must not stop the rest of the scan.
	if len(res.Occurrences) != 1 {
		t.Fatalf("expected the good file to be scanned, got %v", res.Occurrences)
	}
}

func TestScan_UTF16BOMDecodes(t *testing.T) {
	root := t.TempDir()
	// "t('a.b')" as UTF-16LE with BOM.
	src := "t('a.b')"
	data := []byte{0xFF, 0xFE}
	for _, r := range src {
		data = append(data, byte(r), 0x00)
	}
	if err := os.WriteFile(filepath.Join(root, "w.js"), data, 0644); err != nil {
		t.Fatal(err)
	}

	res, err := Scan(context.Background(), scanConfig(root), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Occurrences) != 1 || res.Occurrences[0].Key != "a.b" {
		t.Fatalf("unexpected occurrences: %v (errors: %v)", res.Occurrences, res.Errors)
	}
}

func TestScan_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.js", "t('a.b')\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Scan(ctx, scanConfig(root), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Cancelled {
		t.Error("expected Cancelled to be set")
	}
	if len(res.Occurrences) != 0 {
		t.Errorf("expected no files picked up after cancellation, got %v", res.Occurrences)
	}
}

func TestScan_DeterministicAcrossWorkerCounts(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.js", "t('x.a')\nt('x.b')\n")
	writeFile(t, root, "b.js", "t('y.a')\n")
	writeFile(t, root, "sub/c.js", "t('z.a')\n$t('z.b')\n")

	cfg := scanConfig(root)
	cfg.Workers = 1
	serial, err := Scan(context.Background(), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}

	cfg.Workers = 8
	parallel, err := Scan(context.Background(), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(serial.Occurrences, parallel.Occurrences) {
		t.Errorf("occurrence order depends on worker count:\n%v\nvs\n%v",
			serial.Occurrences, parallel.Occurrences)
	}
}

func TestScan_OverlappingPatternsNotDeduplicated(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.js", "t('same.span')\n")

	cfg := scanConfig(root)
	cfg.Patterns = []config.Pattern{
		{Name: "narrow", Regex: `t\('([^'\r\n]+)'\)`, KeyGroup: 1},
		{Name: "wide", Regex: `\bt\('([^'\r\n]+)'\)`, KeyGroup: 1},
	}

	res, err := Scan(context.Background(), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Occurrences) != 2 {
		t.Fatalf("expected one occurrence per pattern, got %v", res.Occurrences)
	}
	if res.Occurrences[0].Line != res.Occurrences[1].Line ||
		res.Occurrences[0].Column != res.Occurrences[1].Column {
		t.Errorf("expected the same location for both patterns: %v", res.Occurrences)
	}
}

func TestScan_MultilineKeyDiscarded(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.js", "t('broken\n.key')\nt('ok.key')\n")

	cfg := scanConfig(root)
	// Permissive pattern whose capture may span lines.
	cfg.Patterns = []config.Pattern{{Name: "loose", Regex: `(?s)t\('([^']+)'\)`, KeyGroup: 1}}

	res, err := Scan(context.Background(), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Occurrences) != 1 || res.Occurrences[0].Key != "ok.key" {
		t.Fatalf("expected only the single-line key, got %v", res.Occurrences)
	}
}

func TestScan_ProgressPanicRecovered(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.js", "t('a.b')\n")
	writeFile(t, root, "b.js", "t('c.d')\n")

	calls := 0
	res, err := Scan(context.Background(), scanConfig(root), func(done, total int, file string) {
		calls++
		panic("broken callback")
	})
	if err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("expected 2 progress calls, got %d", calls)
	}
	if len(res.Occurrences) != 2 {
		t.Errorf("panicking callback corrupted the result: %v", res.Occurrences)
	}
}

// The progress callback is serialized: even with a full worker pool it may
// mutate unguarded state, and the done counter it sees is strictly
// increasing with no value skipped or repeated.
func TestScan_ProgressSerializedAcrossWorkers(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 20; i++ {
		writeFile(t, root, fmt.Sprintf("f%02d.js", i), "t('a.b')\n")
	}

	cfg := scanConfig(root)
	cfg.Workers = 8

	var seen []int
	res, err := Scan(context.Background(), cfg, func(done, total int, file string) {
		if total != 20 {
			t.Errorf("total = %d, want 20", total)
		}
		seen = append(seen, done)
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(seen) != 20 {
		t.Fatalf("expected 20 progress calls, got %d", len(seen))
	}
	for i, d := range seen {
		if d != i+1 {
			t.Fatalf("done values out of order: %v", seen)
		}
	}
	if res.FilesScanned != 20 {
		t.Errorf("files scanned: want 20, got %d", res.FilesScanned)
	}
}

func TestIgnored_SubtreePatterns(t *testing.T) {
	patterns := []string{"node_modules/**", "*.min.js"}

	cases := []struct {
		rel  string
		want bool
	}{
		{"node_modules", true},
		{"node_modules/pkg/index.js", true},
		{"src/app.js", false},
		{"src/vendor.min.js", true},
	}
	for _, tc := range cases {
		if got := ignored(tc.rel, patterns); got != tc.want {
			t.Errorf("ignored(%q) = %v, want %v", tc.rel, got, tc.want)
		}
	}
}
