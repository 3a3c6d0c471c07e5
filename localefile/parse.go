package localefile

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/MilkWind/i18n-assistant/config"
)

// File is one parsed locale file.
type File struct {
	// Path is the absolute or config-relative path of the file.
	Path string
	// Locale is the file name without its extension ("en", "zh-CN", ...).
	Locale string
	// Format is the backend that parsed the file.
	Format string
	// Keys maps every flattened dot-path key to its value.
	Keys map[string]any
	// Warnings holds non-fatal findings, currently duplicate keys.
	Warnings []string
	// Doc is the ordered document, kept for serialization.
	Doc *Document
}

// FileError records a locale file that could not be read or parsed.
type FileError struct {
	File string
	Err  error
}

func (e FileError) Error() string { return e.File + ": " + e.Err.Error() }
func (e FileError) Unwrap() error { return e.Err }

// Result is the outcome of parsing a locale directory.
type Result struct {
	// Files lists successfully parsed files, sorted by path.
	Files []*File
	// DefinedKeys is the union of flattened keys across all files.
	DefinedKeys map[string]bool
	// Errors lists files that failed to parse. A bad file never aborts
	// the rest of the directory.
	Errors []FileError
}

// Lookup returns the parsed file at path, or nil.
func (r *Result) Lookup(path string) *File {
	for _, f := range r.Files {
		if f.Path == path {
			return f
		}
	}
	return nil
}

// ParseDir walks cfg.LocaleDir and parses every file the configured backend
// claims. An empty directory is a valid result with zero defined keys.
func ParseDir(cfg config.Config) (*Result, error) {
	backend, err := Lookup(cfg.ParserFormat)
	if err != nil {
		return nil, err
	}

	exts := make(map[string]bool)
	for _, ext := range backend.Extensions() {
		exts[ext] = true
	}

	var paths []string
	err = filepath.WalkDir(cfg.LocaleDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if exts[strings.ToLower(filepath.Ext(p))] {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", cfg.LocaleDir, err)
	}
	sort.Strings(paths)

	res := &Result{DefinedKeys: make(map[string]bool)}
	for _, p := range paths {
		file, ferr := parseFile(p, backend, cfg.DuplicatePolicy)
		if ferr != nil {
			res.Errors = append(res.Errors, *ferr)
			continue
		}
		res.Files = append(res.Files, file)
		for key := range file.Keys {
			res.DefinedKeys[key] = true
		}
	}
	return res, nil
}

func parseFile(path string, backend Backend, policy config.DuplicatePolicy) (*File, *FileError) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &FileError{File: path, Err: err}
	}
	doc, err := backend.Parse(data)
	if err != nil {
		return nil, &FileError{File: path, Err: err}
	}
	keys, warnings := doc.Flatten(policy)

	base := filepath.Base(path)
	return &File{
		Path:     path,
		Locale:   strings.TrimSuffix(base, filepath.Ext(base)),
		Format:   backend.Name(),
		Keys:     keys,
		Warnings: warnings,
		Doc:      doc,
	}, nil
}
