// Package analysis wires source collection, graph extraction and graph
// analysis together for the CLI and the MCP server.
package analysis

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/panbanda/knitgraph/internal/cache"
	"github.com/panbanda/knitgraph/internal/fileproc"
	"github.com/panbanda/knitgraph/internal/scanner"
	"github.com/panbanda/knitgraph/internal/vcs"
	"github.com/panbanda/knitgraph/pkg/analyzer/depgraph"
	"github.com/panbanda/knitgraph/pkg/analyzer/knit"
	"github.com/panbanda/knitgraph/pkg/config"
	"github.com/panbanda/knitgraph/pkg/models"
)

// ErrTooManyPaths is returned when a git revision is requested for more than one path.
var ErrTooManyPaths = errors.New("a revision can only be read from a single path")

// defaultMemoSize bounds the number of memoized graph analyses.
const defaultMemoSize = 32

// Service orchestrates graph extraction and analysis.
type Service struct {
	config *config.Config
	memo   *cache.Memo
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithConfig sets the configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.config = cfg
		}
	}
}

// WithMemo shares an analysis memo between services.
func WithMemo(memo *cache.Memo) Option {
	return func(s *Service) {
		if memo != nil {
			s.memo = memo
		}
	}
}

// WithLogger sets the structured logger handed to the extractor.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a new analysis service.
func New(opts ...Option) *Service {
	s := &Service{
		config: config.LoadOrDefault(),
		memo:   cache.NewMemo(defaultMemoSize),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the service configuration.
func (s *Service) Config() *config.Config {
	return s.config
}

// Input describes where Kotlin sources are read from.
type Input struct {
	Paths []string
	// Ref reads the single path from a git revision instead of the working tree.
	Ref string
}

// Sources is the collected input of one run.
type Sources struct {
	Files    []models.SourceFile
	Revision *vcs.Revision
	// Dropped counts files left out by the max_files budget.
	Dropped int
	// Errors holds files that could not be read.
	Errors *fileproc.ProcessingErrors
}

// LoadSources collects Kotlin files from the working tree or a git revision,
// applying the configured exclusions and file-count budget.
func (s *Service) LoadSources(ctx context.Context, in Input) (*Sources, error) {
	paths := in.Paths
	if len(paths) == 0 {
		paths = []string{"."}
	}

	if in.Ref != "" {
		if len(paths) > 1 {
			return nil, ErrTooManyPaths
		}
		files, rev, err := vcs.ReadRevision(ctx, paths[0], in.Ref, s.config.ShouldExclude)
		if err != nil {
			return nil, err
		}
		out := &Sources{Files: files, Revision: rev}
		if limit := s.config.Analysis.MaxFiles; limit > 0 && len(files) > limit {
			out.Dropped = len(files) - limit
			out.Files = files[:limit]
		}
		return out, nil
	}

	sc := scanner.NewScanner(s.config)
	collected, err := sc.Collect(paths)
	if err != nil {
		return nil, err
	}
	kept, dropped := scanner.Limit(collected, s.config.Analysis.MaxFiles)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	files, readErrs := scanner.Read(kept)
	return &Sources{Files: files, Dropped: dropped, Errors: readErrs}, nil
}

// ExtractOptions tunes a single extraction run.
type ExtractOptions struct {
	OnProgress func()
	// Dedup overrides the configured dedup mode when set.
	Dedup string
	// Workers overrides the configured worker count when positive.
	Workers int
}

// ExtractGraph runs the Knit extractor over files. Read failures from
// sources are merged into the result's Errors.
func (s *Service) ExtractGraph(ctx context.Context, src *Sources, opts ExtractOptions) (*models.AnalysisResult, error) {
	dedupName := s.config.Analysis.Dedup
	if opts.Dedup != "" {
		dedupName = opts.Dedup
	}
	dedup, err := knit.ParseDedupMode(dedupName)
	if err != nil {
		return nil, err
	}
	workers := s.config.Analysis.Workers
	if opts.Workers > 0 {
		workers = opts.Workers
	}

	analyzerOpts := []knit.Option{
		knit.WithWorkers(workers),
		knit.WithDedupMode(dedup),
		knit.WithMaxFileSize(s.config.Analysis.MaxFileSize),
		knit.WithLogger(s.logger),
		knit.WithAnnotation(s.config.Knit.Annotation),
		knit.WithDelegate(s.config.Knit.Delegate),
		knit.WithWrappers(s.config.Knit.Wrappers),
	}
	if opts.OnProgress != nil {
		analyzerOpts = append(analyzerOpts, knit.WithProgress(opts.OnProgress))
	}

	result, err := knit.New(analyzerOpts...).Analyze(ctx, src.Files)
	if result != nil && src.Errors.HasErrors() {
		result.Errors = append(src.Errors.Strings(), result.Errors...)
	}
	return result, err
}

// GraphOptions converts the [graph] config section into analysis options.
func (s *Service) GraphOptions() depgraph.Options {
	g := s.config.Graph
	return depgraph.Options{
		TopHeaviest:      g.TopHeaviest,
		TopCritical:      g.TopCritical,
		TopPaths:         g.TopPaths,
		CriticalDepth:    g.CriticalMaxDepth,
		MaxCriticalNodes: g.CriticalMaxNodes,
	}
}

// AnalyzeGraph computes cycles, rankings and summary metrics for a graph.
// Results are memoized by graph content.
func (s *Service) AnalyzeGraph(result *models.AnalysisResult) *models.GraphAnalysis {
	opts := s.GraphOptions()
	return s.memo.GetOrCompute(result.Nodes, result.Edges, func() *models.GraphAnalysis {
		return depgraph.Analyze(result.Nodes, result.Edges, opts)
	})
}

// MemoStats reports analysis memo usage.
func (s *Service) MemoStats() cache.Stats {
	return s.memo.Stats()
}
