// Package report renders analysis and optimization results as plain text for
// the terminal and as JSON for tooling. Rendering is deterministic: the same
// results always produce byte-identical output.
package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/MilkWind/i18n-assistant/analyzer"
)

// OptimizationInfo summarizes one optimization session for reporting. It is
// deliberately a plain value type so the optimizer can produce it without the
// report package knowing anything about sessions.
type OptimizationInfo struct {
	SessionDir   string   `json:"session_dir"`
	BackupDir    string   `json:"backup_dir"`
	OptimizedDir string   `json:"optimized_dir"`
	ReportsDir   string   `json:"reports_dir"`
	FilesWritten int      `json:"files_written"`
	RemovedKeys  int      `json:"removed_keys"`
	AddedKeys    int      `json:"added_keys"`
	Errors       []string `json:"errors,omitempty"`
}

const divider = "============================================================"

// Render produces the human-readable text report. opt may be nil when no
// optimization ran.
func Render(analysis *analyzer.Result, opt *OptimizationInfo) string {
	var b strings.Builder

	b.WriteString(divider + "\n")
	b.WriteString("i18n Analysis Report\n")
	b.WriteString(divider + "\n\n")

	fmt.Fprintf(&b, "Files scanned:       %d\n", analysis.FilesScanned)
	fmt.Fprintf(&b, "Key occurrences:     %d\n", analysis.OccurrenceCount)
	fmt.Fprintf(&b, "Unique keys used:    %d\n", analysis.UsedCount)
	fmt.Fprintf(&b, "Keys defined:        %d\n", analysis.DefinedCount)
	fmt.Fprintf(&b, "Keys matched:        %d\n", analysis.MatchedCount)
	fmt.Fprintf(&b, "Coverage:            %.1f%%\n", analysis.CoveragePercent)

	renderMissing(&b, analysis.Missing)
	renderUnused(&b, analysis.Unused)
	renderInconsistent(&b, analysis.Inconsistent)
	renderCoverage(&b, analysis.Coverage)
	renderProblems(&b, analysis)

	if opt != nil {
		b.WriteString("\n" + divider + "\n")
		b.WriteString("Optimization\n")
		b.WriteString(divider + "\n\n")
		fmt.Fprintf(&b, "Session directory:   %s\n", opt.SessionDir)
		fmt.Fprintf(&b, "Files written:       %d\n", opt.FilesWritten)
		fmt.Fprintf(&b, "Keys removed:        %d\n", opt.RemovedKeys)
		fmt.Fprintf(&b, "Keys added:          %d\n", opt.AddedKeys)
		for _, e := range opt.Errors {
			fmt.Fprintf(&b, "Error: %s\n", e)
		}
	}
	return b.String()
}

func renderMissing(b *strings.Builder, missing []analyzer.MissingKey) {
	fmt.Fprintf(b, "\nMissing keys (%d)\n", len(missing))
	b.WriteString(strings.Repeat("-", 40) + "\n")
	if len(missing) == 0 {
		b.WriteString("  none\n")
		return
	}
	for _, m := range missing {
		fmt.Fprintf(b, "  %s\n", m.Key)
		for _, occ := range m.Occurrences {
			fmt.Fprintf(b, "    used at %s:%d:%d (%s)\n", occ.File, occ.Line, occ.Column, occ.Pattern)
		}
		if len(m.Suggestions) > 0 {
			fmt.Fprintf(b, "    suggested files: %s\n", strings.Join(m.Suggestions, ", "))
		}
	}
}

func renderUnused(b *strings.Builder, unused []analyzer.UnusedKey) {
	fmt.Fprintf(b, "\nUnused keys (%d)\n", len(unused))
	b.WriteString(strings.Repeat("-", 40) + "\n")
	if len(unused) == 0 {
		b.WriteString("  none\n")
		return
	}
	current := ""
	for _, u := range unused {
		if u.File != current {
			current = u.File
			fmt.Fprintf(b, "  %s\n", u.File)
		}
		fmt.Fprintf(b, "    %s\n", u.Key)
	}
}

func renderInconsistent(b *strings.Builder, inconsistent []analyzer.InconsistentKey) {
	fmt.Fprintf(b, "\nInconsistent keys (%d)\n", len(inconsistent))
	b.WriteString(strings.Repeat("-", 40) + "\n")
	if len(inconsistent) == 0 {
		b.WriteString("  none\n")
		return
	}
	for _, ik := range inconsistent {
		flag := ""
		if ik.Used {
			flag = " [used]"
		}
		fmt.Fprintf(b, "  %s%s\n", ik.Key, flag)
		fmt.Fprintf(b, "    present in: %s\n", strings.Join(ik.PresentIn, ", "))
		fmt.Fprintf(b, "    absent from: %s\n", strings.Join(ik.AbsentFrom, ", "))
	}
}

func renderCoverage(b *strings.Builder, coverage []analyzer.FileCoverage) {
	fmt.Fprintf(b, "\nPer-file coverage\n")
	b.WriteString(strings.Repeat("-", 40) + "\n")
	if len(coverage) == 0 {
		b.WriteString("  no key usages\n")
		return
	}
	for _, fc := range coverage {
		fmt.Fprintf(b, "  %s: %d/%d matched, %d unmatched (%.1f%%)\n",
			fc.File, fc.Matched, fc.Total, fc.Unmatched, fc.Ratio*100)
	}
}

func renderProblems(b *strings.Builder, analysis *analyzer.Result) {
	if len(analysis.ScanErrors) == 0 && len(analysis.ParseErrors) == 0 && len(analysis.Warnings) == 0 {
		return
	}
	b.WriteString("\nProblems\n")
	b.WriteString(strings.Repeat("-", 40) + "\n")
	for _, e := range analysis.ScanErrors {
		fmt.Fprintf(b, "  scan: %s\n", e.Error())
	}
	for _, e := range analysis.ParseErrors {
		fmt.Fprintf(b, "  parse: %s\n", e.Error())
	}
	for _, w := range analysis.Warnings {
		fmt.Fprintf(b, "  warning: %s\n", w)
	}
}

// jsonReport is the serialized shape of the JSON report.
type jsonReport struct {
	Analysis     *analyzer.Result  `json:"analysis"`
	ScanErrors   []string          `json:"scan_errors,omitempty"`
	ParseErrors  []string          `json:"parse_errors,omitempty"`
	Optimization *OptimizationInfo `json:"optimization,omitempty"`
}

// RenderJSON produces the machine-readable report. opt may be nil.
func RenderJSON(analysis *analyzer.Result, opt *OptimizationInfo) ([]byte, error) {
	r := jsonReport{Analysis: analysis, Optimization: opt}
	for _, e := range analysis.ScanErrors {
		r.ScanErrors = append(r.ScanErrors, e.Error())
	}
	for _, e := range analysis.ParseErrors {
		r.ParseErrors = append(r.ParseErrors, e.Error())
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling report: %w", err)
	}
	return append(data, '\n'), nil
}
