// Package knit extracts a dependency-injection graph from Kotlin sources that
// use Knit-style @Provides annotations and "by di" delegated properties.
package knit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/panbanda/knitgraph/internal/cache"
	"github.com/panbanda/knitgraph/internal/fileproc"
	"github.com/panbanda/knitgraph/pkg/models"
	"github.com/panbanda/knitgraph/pkg/parser"
)

var (
	// ErrNoNodes is returned when a run produces no graph nodes at all.
	ErrNoNodes = errors.New("no graph nodes extracted")
	// ErrFileTooLarge is recorded for files above the configured size limit.
	ErrFileTooLarge = errors.New("file exceeds size limit")
)

// Analyzer extracts a DI graph from a batch of Kotlin files.
type Analyzer struct {
	workers     int
	dedup       DedupMode
	maxFileSize int64
	logger      *slog.Logger
	onProgress  fileproc.ProgressFunc
	extractor   *Extractor

	annotation string
	delegate   string
	wrappers   []string
}

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithWorkers sets the number of concurrent extraction workers (<= 0 uses 2x NumCPU).
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		a.workers = n
	}
}

// WithDedupMode selects meaning- or location-based edge deduplication.
func WithDedupMode(mode DedupMode) Option {
	return func(a *Analyzer) {
		a.dedup = mode
	}
}

// WithMaxFileSize sets the maximum file size in bytes (0 = no limit).
func WithMaxFileSize(maxSize int64) Option {
	return func(a *Analyzer) {
		a.maxFileSize = maxSize
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithProgress sets a callback invoked once per processed file.
func WithProgress(fn func()) Option {
	return func(a *Analyzer) {
		a.onProgress = fn
	}
}

// WithAnnotation overrides the provider annotation name (default "Provides").
func WithAnnotation(name string) Option {
	return func(a *Analyzer) {
		a.annotation = name
	}
}

// WithDelegate overrides the consumer delegate identifier (default "di").
func WithDelegate(name string) Option {
	return func(a *Analyzer) {
		a.delegate = name
	}
}

// WithWrappers overrides the generic wrappers unwrapped from consumer types.
func WithWrappers(wrappers []string) Option {
	return func(a *Analyzer) {
		a.wrappers = wrappers
	}
}

// New creates a new DI graph analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		dedup:  DedupMeaning,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.extractor = NewExtractor(a.annotation, a.delegate, a.wrappers)
	return a
}

// Analyze extracts the graph from files. Files are processed in path order
// so "first occurrence wins" rules are reproducible. Per-file failures are
// reported in the result's Errors and never abort the batch. The returned
// error is non-nil only when no node was extracted (wrapping ErrNoNodes) or
// ctx was cancelled; the partial result is returned in both cases.
func (a *Analyzer) Analyze(ctx context.Context, files []models.SourceFile) (*models.AnalysisResult, error) {
	ordered := a.prepare(files)
	assembler := NewAssembler(a.dedup)

	results, errs := fileproc.MapSources(ctx, ordered, a.workers, a.extractFile, a.onProgress)
	for _, r := range results {
		if r.OK {
			assembler.AddFile(r.Value)
		}
	}
	for _, pe := range errs.Sorted() {
		a.logger.Debug("file extraction failed", "path", pe.Path, "error", pe.Err)
		assembler.AddError(pe.Error())
	}

	result := assembler.Result()
	a.logger.Info("knit graph extracted",
		"files", len(ordered),
		"nodes", len(result.Nodes),
		"edges", len(result.Edges),
		"errors", len(result.Errors),
	)

	if err := ctx.Err(); err != nil {
		return result, err
	}
	if len(result.Nodes) == 0 {
		return result, fmt.Errorf("%w: %d files, %d errors", ErrNoNodes, len(ordered), len(result.Errors))
	}
	return result, nil
}

// prepare sorts files by path and drops exact duplicates (same path and content digest).
func (a *Analyzer) prepare(files []models.SourceFile) []models.SourceFile {
	ordered := make([]models.SourceFile, len(files))
	copy(ordered, files)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Path < ordered[j].Path })

	seen := make(map[string]bool, len(ordered))
	out := ordered[:0]
	for _, f := range ordered {
		key := f.Path + "\x00" + cache.HashString(f.Content)
		if seen[key] {
			a.logger.Debug("skipping duplicate input", "path", f.Path)
			continue
		}
		seen[key] = true
		out = append(out, f)
	}
	return out
}

func (a *Analyzer) extractFile(ctx context.Context, p *parser.Parser, file models.SourceFile) (fg *FileGraph, err error) {
	defer recoverFile(file.Path, &err)

	if a.maxFileSize > 0 && int64(len(file.Content)) > a.maxFileSize {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrFileTooLarge, len(file.Content), a.maxFileSize)
	}
	return a.extractor.ExtractFile(ctx, p, file)
}
