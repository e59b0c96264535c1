package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"sensorcli/pkg/contracts/domain"
)

// FileResult is the outcome of processing one export.
type FileResult struct {
	Path     string                `json:"path"`
	Filename string                `json:"filename"`
	Record   *domain.MetricsRecord `json:"record,omitempty"`
	Dropped  []string              `json:"dropped_columns,omitempty"`
	Err      error                 `json:"-"`
	Duration time.Duration         `json:"duration"`
}

// OK reports whether the file produced a record.
func (r FileResult) OK() bool {
	return r.Err == nil && r.Record != nil
}

// ProcessorOptions configures a BatchProcessor.
type ProcessorOptions struct {
	// Workers bounds concurrent files. Zero uses GOMAXPROCS.
	Workers int
	// Sentinels are fault codes whose columns are dropped before classification.
	Sentinels []float64
}

// BatchObserver receives one call per finished file.
type BatchObserver func(ctx context.Context, result FileResult)

// BatchProcessor parses, classifies and calculates many exports concurrently,
// feeding successful records into a Summarizer.
type BatchProcessor struct {
	parser     *Parser
	calculator *Calculator
	summarizer *Summarizer
	opts       ProcessorOptions
	observer   BatchObserver
	logger     *slog.Logger
}

// NewBatchProcessor wires a processor. summarizer may be nil, in which case
// records are only returned and duplicates are detected within the batch.
func NewBatchProcessor(calculator *Calculator, summarizer *Summarizer, opts ProcessorOptions, logger *slog.Logger) *BatchProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	return &BatchProcessor{
		parser:     NewParser(logger),
		calculator: calculator,
		summarizer: summarizer,
		opts:       opts,
		logger:     logger.With(slog.String("component", "batch_processor")),
	}
}

// SetObserver registers fn to be called after each file, from worker goroutines.
func (p *BatchProcessor) SetObserver(fn BatchObserver) {
	p.observer = fn
}

// ProcessTable cleans, classifies and calculates one already parsed table.
// It also returns the names of the sentinel columns it dropped.
func (p *BatchProcessor) ProcessTable(table *domain.Table, filename string) (*Calculation, []string, error) {
	cleaned, dropped := DropSentinelColumns(table, p.opts.Sentinels)
	if len(dropped) > 0 {
		p.logger.Debug("sentinel columns dropped",
			slog.String("filename", filename),
			slog.Any("columns", dropped))
	}
	calc, err := p.calculator.ProcessDetailed(cleaned, filename)
	if err != nil {
		return nil, dropped, err
	}
	return calc, dropped, nil
}

// ProcessFiles processes paths with a bounded worker pool and returns one
// result per path in input order. Per-file failures are reported in
// FileResult.Err and never stop the batch; the returned error is only set
// when ctx is cancelled.
func (p *BatchProcessor) ProcessFiles(ctx context.Context, paths []string) ([]FileResult, error) {
	start := time.Now()
	results := make([]FileResult, len(paths))

	// Filenames are claimed up front so repeats in the batch lose to the first.
	seen := make(map[string]bool, len(paths))
	skip := make([]bool, len(paths))
	for i, path := range paths {
		name := filepath.Base(path)
		results[i] = FileResult{Path: path, Filename: name}
		if seen[name] || (p.summarizer != nil && p.summarizer.Has(name)) {
			results[i].Err = fmt.Errorf("%s: %w", name, ErrDuplicateFile)
			skip[i] = true
			continue
		}
		seen[name] = true
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)

	for i := range paths {
		if skip[i] {
			p.notify(ctx, results[i])
			continue
		}
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			results[i] = p.processFile(gctx, results[i])
			p.notify(gctx, results[i])
			return nil
		})
	}

	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		for i := range results {
			if results[i].Record == nil && results[i].Err == nil {
				results[i].Err = err
			}
		}
		return results, fmt.Errorf("batch cancelled: %w", err)
	}

	ok := 0
	for _, r := range results {
		if r.OK() {
			ok++
		}
	}
	p.logger.InfoContext(ctx, "batch processed",
		slog.Int("files", len(paths)),
		slog.Int("succeeded", ok),
		slog.Int("failed", len(paths)-ok),
		slog.Duration("duration", time.Since(start)))

	return results, nil
}

func (p *BatchProcessor) processFile(ctx context.Context, in FileResult) (res FileResult) {
	res = in
	start := time.Now()
	defer func() { res.Duration = time.Since(start) }()

	table, err := p.parser.ParseFile(res.Path)
	if err != nil {
		res.Err = fmt.Errorf("%s: %w", res.Filename, err)
		p.logger.WarnContext(ctx, "failed to parse export",
			slog.String("filename", res.Filename),
			slog.String("error", err.Error()))
		return res
	}

	calc, dropped, err := p.ProcessTable(table, res.Filename)
	res.Dropped = dropped
	if err != nil {
		res.Err = err
		p.logger.WarnContext(ctx, "failed to calculate metrics",
			slog.String("filename", res.Filename),
			slog.String("error", err.Error()))
		return res
	}

	if p.summarizer != nil {
		if err := p.summarizer.Add(ctx, *calc.Record); err != nil {
			res.Err = err
			return res
		}
	}
	res.Record = calc.Record
	return res
}

func (p *BatchProcessor) notify(ctx context.Context, res FileResult) {
	if p.observer != nil {
		p.observer(ctx, res)
	}
}
