// Command processor turns a directory of sensor exports into one summary file.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sensorcli/internal/config"
	"sensorcli/internal/dataprocessing"
	"sensorcli/internal/exporter"
	"sensorcli/internal/files"
	"sensorcli/internal/infrastructure"
	"sensorcli/internal/validation"
	"sensorcli/pkg/contracts/domain"
)

// FailuresSuffix is appended to the summary base name for the failure report.
const FailuresSuffix = "_failures.csv"

const dateFlagLayout = "2006-01-02"

type options struct {
	configFile     string
	inDir          string
	outDir         string
	format         string
	pattern        string
	since          string
	until          string
	workers        int
	strict         bool
	suppressPadded bool
	logLevel       string
}

// result is what one run produced.
type result struct {
	SummaryPath  string
	FailuresPath string
	Processed    int
	Failed       int
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

func execute(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "processor [flags] [FILE...]",
		Short: "Summarize sensor exports",
		Long: "Classifies the columns of every sensor export, computes the calibrated\n" +
			"metrics of each file and writes one summary row per file.\n\n" +
			"Exports are read from --in, or from the FILE arguments when given.",
		Version:       config.AppVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := run(cmd.Context(), opts, args, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "processed %d file(s), %d failed\nsummary: %s\n",
				res.Processed, res.Failed, res.SummaryPath)
			if res.FailuresPath != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "failures: %s\n", res.FailuresPath)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configFile, "config", "", "YAML config file (defaults to the standard search path)")
	f.StringVar(&opts.inDir, "in", "", "directory holding the exports (defaults to the uploads directory)")
	f.StringVar(&opts.outDir, "out", "", "directory for the summary (defaults to the reports directory)")
	f.StringVar(&opts.format, "format", string(exporter.FormatCSV), "summary format: csv or xlsx")
	f.StringVar(&opts.pattern, "pattern", "", "glob restricting the exports read from --in")
	f.StringVar(&opts.since, "since", "", "skip exports dated before YYYY-MM-DD")
	f.StringVar(&opts.until, "until", "", "skip exports dated after YYYY-MM-DD")
	f.IntVar(&opts.workers, "workers", 0, "concurrent files (0 uses the configured value)")
	f.BoolVar(&opts.strict, "strict", false, "reject files that need a classification fallback or padding")
	f.BoolVar(&opts.suppressPadded, "suppress-padded", false, "leave padded humidity slots empty")
	f.StringVar(&opts.logLevel, "log-level", "", "log level (defaults to the configured level)")

	return cmd
}

func loadConfig(opts options) (*config.Config, error) {
	if opts.configFile != "" {
		return config.LoadFrom(opts.configFile)
	}
	return config.Load()
}

func parseDay(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateFlagLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return t, nil
}

func run(ctx context.Context, opts options, args []string, logOut io.Writer) (*result, error) {
	format, err := exporter.ParseFormat(opts.format)
	if err != nil {
		return nil, err
	}
	from, err := parseDay(opts.since)
	if err != nil {
		return nil, err
	}
	to, err := parseDay(opts.until)
	if err != nil {
		return nil, err
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, fmt.Errorf("--until %s is before --since %s", opts.until, opts.since)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	if opts.strict {
		cfg.Calibration.Mode = string(dataprocessing.ModeStrict)
	}
	if opts.workers > 0 {
		cfg.Processing.Workers = opts.workers
	}
	if opts.suppressPadded {
		cfg.Processing.SuppressPadded = true
	}
	level := cfg.Logging.Level
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	logger := infrastructure.NewLogger(logOut, level).With(slog.String("component", "processor"))

	paths, err := config.ResolvePaths(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	inDir := firstNonEmpty(opts.inDir, paths.UploadsDir)
	outDir, err := filepath.Abs(firstNonEmpty(opts.outDir, paths.ReportsDir))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory: %w", err)
	}

	validator := validation.NewFileValidator(logger)
	if err := validator.ValidateOutputDirectory(outDir); err != nil {
		return nil, err
	}

	inputs, err := collectInputs(validator, inDir, opts.pattern, args, from, to)
	if err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no exports found in %s", inDir)
	}

	logger.InfoContext(ctx, "Processing exports",
		slog.Int("files", len(inputs)),
		slog.String("mode", cfg.Calibration.Mode),
		slog.String("format", string(format)))

	calc := dataprocessing.NewCalculator(cfg.CalibrationParams(), logger,
		dataprocessing.WithFallbackObserver(func(filename, stage string) {
			logger.WarnContext(ctx, "fallback applied",
				slog.String("filename", filename),
				slog.String("stage", stage))
		}))
	processor := dataprocessing.NewBatchProcessor(calc, nil, dataprocessing.ProcessorOptions{
		Workers:   cfg.Processing.Workers,
		Sentinels: cfg.Processing.Sentinels,
	}, logger)

	results, err := processor.ProcessFiles(ctx, inputs)
	if err != nil {
		return nil, err
	}

	records := make([]domain.MetricsRecord, 0, len(results))
	failures := make(map[string]error)
	for _, r := range results {
		if r.OK() {
			records = append(records, *r.Record)
			continue
		}
		failures[r.Filename] = r.Err
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("none of %d export(s) could be processed: %w", len(results), firstFailure(results))
	}

	exp := exporter.NewSummaryExporter(paths, exporter.SummaryOptions{
		SuppressPadded: cfg.Processing.SuppressPadded,
	}, logger)

	res := &result{Processed: len(records), Failed: len(failures)}
	res.SummaryPath, err = exp.ExportFile(filepath.Join(outDir, config.SummaryBaseName+"."+string(format)), format, records)
	if err != nil {
		return nil, fmt.Errorf("failed to write summary: %w", err)
	}

	if len(failures) > 0 {
		res.FailuresPath = filepath.Join(outDir, config.SummaryBaseName+FailuresSuffix)
		if err := exp.ExportFailures(res.FailuresPath, failures); err != nil {
			return nil, fmt.Errorf("failed to write failure report: %w", err)
		}
	}

	logger.InfoContext(ctx, "Summary complete",
		slog.Int("processed", res.Processed),
		slog.Int("failed", res.Failed),
		slog.String("summary", res.SummaryPath))
	return res, nil
}

// collectInputs returns the export paths to process: the explicit args when
// present, otherwise the exports discovered in inDir.
func collectInputs(validator *validation.FileValidator, inDir, pattern string, args []string, from, to time.Time) ([]string, error) {
	if len(args) > 0 {
		var problems []string
		for _, path := range args {
			if err := validator.ValidateExport(path); err != nil {
				problems = append(problems, err.Error())
			}
		}
		if len(problems) > 0 {
			return nil, errors.New(strings.Join(problems, "; "))
		}
		return args, nil
	}

	if err := validator.ValidateInputDirectory(inDir); err != nil {
		return nil, err
	}

	discovery := files.NewDiscovery("")
	var (
		found []files.FileInfo
		err   error
	)
	if pattern != "" {
		found, err = discovery.FindFilesByPattern(inDir, pattern)
	} else {
		found, err = discovery.FindExports(inDir)
	}
	if err != nil {
		return nil, err
	}
	return files.Paths(files.FilterFilesByDateRange(found, from, to)), nil
}

func firstFailure(results []dataprocessing.FileResult) error {
	for _, r := range results {
		if r.Err != nil {
			return r.Err
		}
	}
	return errors.New("no records produced")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
