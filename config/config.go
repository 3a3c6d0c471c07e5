// Package config defines the analysis configuration and its JSON file format.
//
// A Config is constructed once (from flags, a config file, or both), validated,
// and then passed by value into every core operation. No component reads
// ambient global state.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// DefaultFileName is the default config file name, looked up in the
// project root.
const DefaultFileName = "i18n-assistant-config.json"

// DuplicatePolicy controls how a duplicate flattened key inside a single
// locale file is resolved. Either way the duplicate is reported as a warning.
type DuplicatePolicy string

const (
	// DuplicateLastWins keeps the value seen last (default).
	DuplicateLastWins DuplicatePolicy = "last-wins"
	// DuplicateFirstWins keeps the value seen first.
	DuplicateFirstWins DuplicatePolicy = "first-wins"
)

// Pattern is a named usage pattern applied by the scanner. KeyGroup is the
// index of the capture group holding the key literal; 0 means "first
// non-empty group".
type Pattern struct {
	Name     string `json:"name"`
	Regex    string `json:"regex"`
	KeyGroup int    `json:"key_group,omitempty"`
}

// Compile compiles the pattern's regular expression.
func (p Pattern) Compile() (*regexp.Regexp, error) {
	re, err := regexp.Compile(p.Regex)
	if err != nil {
		return nil, fmt.Errorf("pattern %q: %w", p.Name, err)
	}
	return re, nil
}

// Config holds every knob the pipeline reads. The zero value is not usable;
// start from Default().
type Config struct {
	// ProjectRoot is the source tree to scan.
	ProjectRoot string `json:"project_path"`
	// LocaleDir is the directory holding the locale definition files.
	LocaleDir string `json:"i18n_path"`
	// OutputRoot is where optimization sessions are created.
	OutputRoot string `json:"output_path"`

	IgnorePatterns []string  `json:"ignore_patterns"`
	Patterns       []Pattern `json:"i18n_patterns"`
	Extensions     []string  `json:"file_extensions"`

	// ParserFormat selects the locale file backend ("json", "yaml", ...).
	ParserFormat string `json:"parser_type"`
	// Workers is the scanner worker pool size.
	Workers int `json:"max_threads"`
	// Encoding is an IANA charset name used as a decoding hint for scanned
	// files. Empty means UTF-8. A BOM in the file always wins.
	Encoding string `json:"encoding"`

	DuplicatePolicy DuplicatePolicy `json:"duplicate_policy"`

	// AutoOptimize runs the optimizer right after analysis.
	AutoOptimize bool `json:"generate_cleaned_files"`
}

// Default returns the default configuration, mirroring the common
// JavaScript/Vue project shape.
func Default() Config {
	return Config{
		OutputRoot: "./i18n-analysis",
		IgnorePatterns: []string{
			"node_modules/**", ".git/**", "dist/**", "build/**",
			"__pycache__/**", ".vscode/**", ".idea/**", ".venv/**",
		},
		Patterns:        DefaultPatterns(),
		Extensions:      []string{".js", ".ts", ".vue", ".jsx", ".tsx", ".py", ".html", ".php"},
		ParserFormat:    "json",
		Workers:         4,
		Encoding:        "utf-8",
		DuplicatePolicy: DuplicateLastWins,
		AutoOptimize:    true,
	}
}

// DefaultPatterns returns the built-in usage patterns: t(), $t(), i18n.t(),
// _() and gettext() over single, double, or backtick quotes.
//
// Go's regexp engine has no lookbehind, so the "not preceded by a letter"
// guards are written as a leading boundary alternation. The key literal is
// always capture group 1 and cannot contain a quote or a newline.
func DefaultPatterns() []Pattern {
	const quoted = "['\"`]([^'\"`\\r\\n]+)['\"`]"
	return []Pattern{
		{Name: "t", Regex: `(?m)(?:^|[^A-Za-z0-9_$.])t\s*\(\s*` + quoted, KeyGroup: 1},
		{Name: "dollar-t", Regex: `\$t\s*\(\s*` + quoted, KeyGroup: 1},
		{Name: "i18n-t", Regex: `i18n\.t\s*\(\s*` + quoted, KeyGroup: 1},
		{Name: "underscore", Regex: `(?m)(?:^|[^A-Za-z0-9_])_\s*\(\s*` + quoted, KeyGroup: 1},
		{Name: "gettext", Regex: `(?m)(?:^|[^A-Za-z0-9_.])gettext\s*\(\s*` + quoted, KeyGroup: 1},
	}
}

// ValidationError reports one or more fatal configuration problems.
// It aborts the pipeline before any scanning begins.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// Validate checks the configuration against the filesystem and the set of
// known parser formats. It returns a *ValidationError listing every problem
// found, or nil.
func (c Config) Validate(knownFormats []string) error {
	var problems []string

	checkDir := func(label, path string) {
		if path == "" {
			problems = append(problems, label+" is not set")
			return
		}
		info, err := os.Stat(path)
		switch {
		case err != nil:
			problems = append(problems, fmt.Sprintf("%s %q does not exist", label, path))
		case !info.IsDir():
			problems = append(problems, fmt.Sprintf("%s %q is not a directory", label, path))
		}
	}
	checkDir("project path", c.ProjectRoot)
	checkDir("i18n path", c.LocaleDir)

	if c.OutputRoot == "" {
		problems = append(problems, "output path is not set")
	}

	if c.Workers < 1 {
		problems = append(problems, fmt.Sprintf("max threads must be at least 1, got %d", c.Workers))
	}

	for _, ext := range c.Extensions {
		if !strings.HasPrefix(ext, ".") {
			problems = append(problems, fmt.Sprintf("file extension %q must start with a dot", ext))
		}
	}

	if len(c.Patterns) == 0 {
		problems = append(problems, "no usage patterns configured")
	}
	for _, p := range c.Patterns {
		if _, err := p.Compile(); err != nil {
			problems = append(problems, err.Error())
		}
	}

	switch c.DuplicatePolicy {
	case "", DuplicateLastWins, DuplicateFirstWins:
	default:
		problems = append(problems, fmt.Sprintf("unknown duplicate policy %q", c.DuplicatePolicy))
	}

	known := false
	for _, f := range knownFormats {
		if f == c.ParserFormat {
			known = true
			break
		}
	}
	if !known {
		problems = append(problems, fmt.Sprintf("unknown parser type %q (supported: %s)",
			c.ParserFormat, strings.Join(knownFormats, ", ")))
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Load reads a config file and merges it over the defaults, so a partial
// file only overrides the fields it mentions.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	if cfg.DuplicatePolicy == "" {
		cfg.DuplicatePolicy = DuplicateLastWins
	}
	return cfg, nil
}

// Save writes the configuration as indented JSON.
func (c Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", path, err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
