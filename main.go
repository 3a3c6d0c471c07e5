// i18n-assistant — finds, audits, and cleans up i18n translation keys.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/MilkWind/i18n-assistant/analyzer"
	"github.com/MilkWind/i18n-assistant/config"
	"github.com/MilkWind/i18n-assistant/localefile"
	"github.com/MilkWind/i18n-assistant/optimizer"
	"github.com/MilkWind/i18n-assistant/report"
	"github.com/MilkWind/i18n-assistant/scanner"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "i18n-assistant",
		Short: "Find, audit, and clean up i18n translation keys",
		Long: `i18n-assistant — finds, audits, and cleans up i18n translation keys.

Scans a project tree for translation key usages (t(), $t(), i18n.t(), _(),
gettext() and custom patterns), cross-references them against the locale
files, and reports missing, unused, and inconsistent keys. Optionally writes
cleaned-up locale files into a timestamped session directory with a verified
backup of the originals.

Commands:
  analyze     Scan the project and report key usage problems
  init        Write a starter configuration file
  formats     List the supported locale file formats`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newAnalyzeCmd(),
		newInitCmd(),
		newFormatsCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("i18n-assistant version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// formats (list registered locale file backends)
// ---------------------------------------------------------------------------

func newFormatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List the supported locale file formats",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range localefile.Formats() {
				backend, err := localefile.Lookup(name)
				if err != nil {
					continue
				}
				fmt.Printf("%-6s %s\n", name, strings.Join(backend.Extensions(), " "))
			}
		},
	}
}

// ---------------------------------------------------------------------------
// init (write a starter configuration file)
// ---------------------------------------------------------------------------

func newInitCmd() *cobra.Command {
	var (
		projectDir string
		localeDir  string
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter configuration file",
		Long: `Write a configuration file with the default scan patterns, ignore list,
and file extensions, ready to edit.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultFileName
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			cfg := config.Default()
			cfg.ProjectRoot = projectDir
			cfg.LocaleDir = localeDir
			if err := cfg.Save(path); err != nil {
				return err
			}
			logSuccess("Wrote %s", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectDir, "project", ".", "Project directory to scan")
	cmd.Flags().StringVar(&localeDir, "i18n", "./locales", "Directory with locale files")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	return cmd
}

// ---------------------------------------------------------------------------
// analyze (scan, cross-reference, report, optionally optimize)
// ---------------------------------------------------------------------------

func newAnalyzeCmd() *cobra.Command {
	var (
		cfgPath      string
		projectDir   string
		localeDir    string
		outputDir    string
		format       string
		encodingName string
		threads      int
		jsonOut      bool
		noOptimize   bool
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Scan the project and report key usage problems",
		Long: `Scan the project tree for translation key usages, parse the locale files,
and report missing, unused, and inconsistent keys plus per-file coverage.

Unless --no-optimize is given (or the config disables it), cleaned-up locale
files are written to a timestamped session directory under the output path,
alongside a checksummed backup of the originals and the rendered reports.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cfgPath)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("project") {
				cfg.ProjectRoot = projectDir
			}
			if flags.Changed("i18n") {
				cfg.LocaleDir = localeDir
			}
			if flags.Changed("output") {
				cfg.OutputRoot = outputDir
			}
			if flags.Changed("format") {
				cfg.ParserFormat = format
			}
			if flags.Changed("encoding") {
				cfg.Encoding = encodingName
			}
			if flags.Changed("threads") {
				cfg.Workers = threads
			}
			if noOptimize {
				cfg.AutoOptimize = false
			}

			if err := cfg.Validate(localefile.Formats()); err != nil {
				return err
			}
			return runAnalysis(cmd, cfg, jsonOut)
		},
	}

	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "Config file (default: "+config.DefaultFileName+" if present)")
	cmd.Flags().StringVar(&projectDir, "project", ".", "Project directory to scan")
	cmd.Flags().StringVar(&localeDir, "i18n", "./locales", "Directory with locale files")
	cmd.Flags().StringVar(&outputDir, "output", "./i18n-analysis", "Output directory for sessions")
	cmd.Flags().StringVar(&format, "format", "json", "Locale file format ("+strings.Join(localefile.Formats(), ", ")+")")
	cmd.Flags().StringVar(&encodingName, "encoding", "utf-8", "Source file encoding (IANA charset name)")
	cmd.Flags().IntVar(&threads, "threads", 4, "Scanner worker count")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the JSON report instead of text")
	cmd.Flags().BoolVar(&noOptimize, "no-optimize", false, "Skip writing optimized locale files")

	return cmd
}

// resolveConfig loads an explicit config file, falls back to the default
// file in the working directory, and otherwise starts from the defaults.
func resolveConfig(path string) (config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	if _, err := os.Stat(config.DefaultFileName); err == nil {
		return config.Load(config.DefaultFileName)
	}
	return config.Default(), nil
}

func runAnalysis(cmd *cobra.Command, cfg config.Config, jsonOut bool) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	logInfo("Scanning %s ...", cfg.ProjectRoot)
	progress := newProgressLine("Scanning")
	scan, err := scanner.Scan(ctx, cfg, progress.update)
	progress.finish()
	if err != nil {
		return err
	}
	if scan.Cancelled {
		logWarning("Scan interrupted; results are partial")
	}
	logInfo("Found %d occurrences of %d keys in %s", len(scan.Occurrences), len(scan.UsedKeys), scan.Elapsed.Round(time.Millisecond))

	parse, err := localefile.ParseDir(cfg)
	if err != nil {
		return err
	}
	logInfo("Parsed %d locale files (%d keys)", len(parse.Files), len(parse.DefinedKeys))

	analysis := analyzer.Analyze(scan, parse)
	for _, e := range scan.Errors {
		logWarning("scan: %v", e)
	}
	for _, e := range parse.Errors {
		logWarning("parse: %v", e)
	}

	var opt *report.OptimizationInfo
	if cfg.AutoOptimize && !scan.Cancelled {
		optProgress := newProgressLine("Optimizing")
		res, err := optimizer.Optimize(analysis, parse, cfg, optProgress.update)
		optProgress.finish()
		if err != nil {
			return err
		}
		opt = res.Info()
		for _, e := range res.Errors {
			logWarning("optimize: %v", e)
		}
		logSuccess("Session written to %s", res.SessionDir)
	}

	if jsonOut {
		data, err := report.RenderJSON(analysis, opt)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	}
	fmt.Print(report.Render(analysis, opt))
	return nil
}

// ---------------------------------------------------------------------------
// Progress line (TTY only)
// ---------------------------------------------------------------------------

// progressLine redraws a single counter line on stderr. On a non-terminal
// stderr it stays silent, so logs and CI output remain clean.
type progressLine struct {
	label   string
	enabled bool
	drawn   bool
}

func newProgressLine(label string) *progressLine {
	fd := os.Stderr.Fd()
	return &progressLine{
		label:   label,
		enabled: isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd),
	}
}

func (p *progressLine) update(done, total int, file string) {
	if !p.enabled {
		return
	}
	p.drawn = true
	fmt.Fprintf(os.Stderr, "\r\033[K%s %d/%d", p.label, done, total)
}

func (p *progressLine) finish() {
	if p.enabled && p.drawn {
		fmt.Fprint(os.Stderr, "\r\033[K")
	}
}
