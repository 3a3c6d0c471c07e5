// Package optimizer writes cleaned-up copies of the locale files into a
// timestamped session directory. Originals are never touched: each session
// holds a verified backup, the optimized files, and the rendered reports.
package optimizer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/MilkWind/i18n-assistant/analyzer"
	"github.com/MilkWind/i18n-assistant/config"
	"github.com/MilkWind/i18n-assistant/localefile"
	"github.com/MilkWind/i18n-assistant/report"
)

const (
	backupDirName    = "backup"
	optimizedDirName = "optimized"
	reportsDirName   = "reports"

	// sessionTimeFormat keeps the session directory name safe on every
	// filesystem: no colons.
	sessionTimeFormat = "2006-01-02 15_04_05"

	analysisTextName = "analysis_report.txt"
	analysisJSONName = "analysis_report.json"
	optimizeJSONName = "optimization_report.json"
)

// WriteError records a per-file failure during optimization. One broken file
// never aborts the session.
type WriteError struct {
	File string
	Err  error
}

func (e WriteError) Error() string { return e.File + ": " + e.Err.Error() }
func (e WriteError) Unwrap() error { return e.Err }

func (e WriteError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		File  string `json:"file"`
		Error string `json:"error"`
	}{e.File, e.Err.Error()})
}

// FileChange lists what happened to one locale file.
type FileChange struct {
	Path    string   `json:"path"`
	Removed []string `json:"removed_keys,omitempty"`
	Added   []string `json:"added_keys,omitempty"`
}

// Result describes one optimization session.
type Result struct {
	SessionDir   string `json:"session_dir"`
	BackupDir    string `json:"backup_dir"`
	OptimizedDir string `json:"optimized_dir"`
	ReportsDir   string `json:"reports_dir"`

	FilesWritten int `json:"files_written"`
	RemovedKeys  int `json:"removed_keys"`
	AddedKeys    int `json:"added_keys"`

	Changes []FileChange `json:"changes"`
	Errors  []WriteError `json:"errors,omitempty"`
}

// Info converts the result into the neutral summary the report package
// renders.
func (r *Result) Info() *report.OptimizationInfo {
	info := &report.OptimizationInfo{
		SessionDir:   r.SessionDir,
		BackupDir:    r.BackupDir,
		OptimizedDir: r.OptimizedDir,
		ReportsDir:   r.ReportsDir,
		FilesWritten: r.FilesWritten,
		RemovedKeys:  r.RemovedKeys,
		AddedKeys:    r.AddedKeys,
	}
	for _, e := range r.Errors {
		info.Errors = append(info.Errors, e.Error())
	}
	return info
}

// ProgressFunc is invoked after each locale file is processed.
type ProgressFunc func(done, total int, file string)

// Optimize writes one session under cfg.OutputRoot: every parsed locale file
// is backed up, cleaned (unused keys removed, missing and used-but-absent
// keys inserted with empty values), and written to the optimized directory.
// Only a session directory that cannot be created is fatal; everything else
// is recorded per file and the session continues.
func Optimize(analysis *analyzer.Result, parse *localefile.Result, cfg config.Config, progress ProgressFunc) (*Result, error) {
	backend, err := localefile.Lookup(cfg.ParserFormat)
	if err != nil {
		return nil, err
	}

	session, err := createSession(cfg.OutputRoot, projectName(cfg.ProjectRoot), time.Now())
	if err != nil {
		return nil, err
	}

	res := &Result{
		SessionDir:   session,
		BackupDir:    filepath.Join(session, backupDirName),
		OptimizedDir: filepath.Join(session, optimizedDirName),
		ReportsDir:   filepath.Join(session, reportsDirName),
	}
	for _, dir := range []string{res.BackupDir, res.OptimizedDir, res.ReportsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	removals := removalPlan(analysis)
	additions := additionPlan(analysis, parse)
	ledger := NewLedger(res.BackupDir)

	for i, f := range parse.Files {
		rel, rerr := filepath.Rel(cfg.LocaleDir, f.Path)
		if rerr != nil {
			rel = filepath.Base(f.Path)
		}

		if ferr := optimizeFile(f, backend, res, ledger, rel, removals[f.Path], additions[f.Path]); ferr != nil {
			res.Errors = append(res.Errors, *ferr)
		}
		notify(progress, i+1, len(parse.Files), f.Path)
	}

	// Locale files that failed to parse are still backed up verbatim; they
	// just get no optimized counterpart.
	for _, pe := range parse.Errors {
		if ferr := backupFile(pe.File, cfg.LocaleDir, res.BackupDir, ledger); ferr != nil {
			res.Errors = append(res.Errors, *ferr)
		}
	}

	if err := ledger.Save(); err != nil {
		res.Errors = append(res.Errors, WriteError{File: ledger.Path(), Err: err})
	}
	writeReports(res, analysis)
	return res, nil
}

func projectName(root string) string {
	if abs, err := filepath.Abs(root); err == nil {
		return filepath.Base(abs)
	}
	return filepath.Base(root)
}

// createSession makes "<project> <timestamp>" under root, appending a
// counter when a session from the same second already exists.
func createSession(root, project string, now time.Time) (string, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return "", fmt.Errorf("creating output root %s: %w", root, err)
	}
	base := fmt.Sprintf("%s %s", project, now.Format(sessionTimeFormat))
	for n := 0; ; n++ {
		name := base
		if n > 0 {
			name = fmt.Sprintf("%s (%d)", base, n+1)
		}
		dir := filepath.Join(root, name)
		err := os.Mkdir(dir, 0755)
		if err == nil {
			return dir, nil
		}
		if !os.IsExist(err) {
			return "", fmt.Errorf("creating session %s: %w", dir, err)
		}
	}
}

// removalPlan maps each locale file to its unused keys, sorted.
func removalPlan(analysis *analyzer.Result) map[string][]string {
	plan := make(map[string][]string)
	for _, u := range analysis.Unused {
		plan[u.File] = append(plan[u.File], u.Key)
	}
	return plan
}

// additionPlan maps each locale file to the keys it should gain: missing
// keys go into every file, used inconsistent keys into the sibling files
// they are absent from.
func additionPlan(analysis *analyzer.Result, parse *localefile.Result) map[string][]string {
	set := make(map[string]map[string]bool)
	add := func(path, key string) {
		if set[path] == nil {
			set[path] = make(map[string]bool)
		}
		set[path][key] = true
	}

	for _, m := range analysis.Missing {
		for _, f := range parse.Files {
			add(f.Path, m.Key)
		}
	}
	for _, ik := range analysis.Inconsistent {
		if !ik.Used {
			continue
		}
		for _, path := range ik.AbsentFrom {
			add(path, ik.Key)
		}
	}

	plan := make(map[string][]string, len(set))
	for path, keys := range set {
		sorted := make([]string, 0, len(keys))
		for key := range keys {
			sorted = append(sorted, key)
		}
		sort.Strings(sorted)
		plan[path] = sorted
	}
	return plan
}

func backupFile(path, localeDir, backupDir string, ledger *Ledger) *WriteError {
	rel, err := filepath.Rel(localeDir, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return &WriteError{File: path, Err: err}
	}
	if err := writeUnder(backupDir, rel, data); err != nil {
		return &WriteError{File: path, Err: err}
	}
	ledger.Record(rel, data)
	return nil
}

func optimizeFile(f *localefile.File, backend localefile.Backend, res *Result, ledger *Ledger, rel string, remove, add []string) *WriteError {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return &WriteError{File: f.Path, Err: err}
	}
	if err := writeUnder(res.BackupDir, rel, data); err != nil {
		return &WriteError{File: f.Path, Err: err}
	}
	ledger.Record(rel, data)

	doc := f.Doc.Clone()
	change := FileChange{Path: f.Path}
	for _, key := range remove {
		if doc.Remove(key) {
			change.Removed = append(change.Removed, key)
		}
	}
	for _, key := range add {
		if _, exists := f.Keys[key]; exists {
			continue
		}
		doc.Set(key, "")
		change.Added = append(change.Added, key)
	}

	out, err := backend.Marshal(doc)
	if err != nil {
		return &WriteError{File: f.Path, Err: err}
	}
	if err := writeUnder(res.OptimizedDir, rel, out); err != nil {
		return &WriteError{File: f.Path, Err: err}
	}

	res.FilesWritten++
	res.RemovedKeys += len(change.Removed)
	res.AddedKeys += len(change.Added)
	res.Changes = append(res.Changes, change)
	return nil
}

// writeUnder writes data at dir/rel, creating intermediate directories so
// nested locale layouts survive.
func writeUnder(dir, rel string, data []byte) error {
	path := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func writeReports(res *Result, analysis *analyzer.Result) {
	write := func(name string, data []byte) {
		path := filepath.Join(res.ReportsDir, name)
		if err := os.WriteFile(path, data, 0644); err != nil {
			res.Errors = append(res.Errors, WriteError{File: path, Err: err})
		}
	}

	write(analysisTextName, []byte(report.Render(analysis, res.Info())))

	if data, err := report.RenderJSON(analysis, res.Info()); err != nil {
		res.Errors = append(res.Errors, WriteError{File: analysisJSONName, Err: err})
	} else {
		write(analysisJSONName, data)
	}

	if data, err := json.MarshalIndent(res, "", "  "); err != nil {
		res.Errors = append(res.Errors, WriteError{File: optimizeJSONName, Err: err})
	} else {
		write(optimizeJSONName, append(data, '\n'))
	}
}

func notify(progress ProgressFunc, done, total int, file string) {
	if progress == nil {
		return
	}
	defer func() { _ = recover() }()
	progress(done, total, file)
}
