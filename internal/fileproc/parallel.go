// Package fileproc provides concurrent file processing utilities.
package fileproc

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/panbanda/knitgraph/pkg/models"
	"github.com/panbanda/knitgraph/pkg/parser"
	"github.com/sourcegraph/conc/pool"
)

// ProcessingError represents an error that occurred while processing a file.
type ProcessingError struct {
	Path string
	Err  error
}

func (e ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// ProcessingErrors collects multiple file processing errors.
type ProcessingErrors struct {
	Errors []ProcessingError
	mu     sync.Mutex
}

// Add appends an error to the collection (thread-safe).
func (e *ProcessingErrors) Add(path string, err error) {
	e.mu.Lock()
	e.Errors = append(e.Errors, ProcessingError{Path: path, Err: err})
	e.mu.Unlock()
}

// HasErrors returns true if any errors were collected.
func (e *ProcessingErrors) HasErrors() bool {
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors) > 0
}

// Len returns the number of collected errors.
func (e *ProcessingErrors) Len() int {
	if e == nil {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors)
}

// Sorted returns the collected errors ordered by path.
func (e *ProcessingErrors) Sorted() []ProcessingError {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	out := make([]ProcessingError, len(e.Errors))
	copy(out, e.Errors)
	e.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Strings flattens the errors into "path: message" lines, ordered by path.
func (e *ProcessingErrors) Strings() []string {
	sorted := e.Sorted()
	if len(sorted) == 0 {
		return nil
	}
	out := make([]string, len(sorted))
	for i, pe := range sorted {
		out[i] = pe.Error()
	}
	return out
}

// Error implements the error interface.
func (e *ProcessingErrors) Error() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d files failed to process (first: %v)", len(e.Errors), e.Errors[0])
}

// Unwrap returns nil (ProcessingErrors doesn't wrap a single error).
func (e *ProcessingErrors) Unwrap() error {
	return nil
}

// DefaultWorkerMultiplier is the multiplier applied to NumCPU for worker count.
const DefaultWorkerMultiplier = 2

// ProgressFunc is called after each file is processed.
type ProgressFunc func()

// SourceFunc extracts a value from one source file using a worker-owned parser.
type SourceFunc[T any] func(ctx context.Context, p *parser.Parser, file models.SourceFile) (T, error)

// Result is the outcome for the file at the same index in the input.
type Result[T any] struct {
	Value T
	OK    bool
}

// DefaultWorkers returns the worker count used when none is configured.
func DefaultWorkers() int {
	return runtime.NumCPU() * DefaultWorkerMultiplier
}

// MapSources processes files with at most maxWorkers goroutines.
// Each running task borrows a parser from a pool, so a parser is never used by
// two goroutines at once. Results come back in input order; failed or
// cancelled files have OK == false and an entry in the returned errors.
// If maxWorkers is <= 0, defaults to 2x NumCPU.
func MapSources[T any](ctx context.Context, files []models.SourceFile, maxWorkers int, fn SourceFunc[T], onProgress ProgressFunc) ([]Result[T], *ProcessingErrors) {
	if len(files) == 0 {
		return nil, nil
	}

	if maxWorkers <= 0 {
		maxWorkers = DefaultWorkers()
	}
	if maxWorkers > len(files) {
		maxWorkers = len(files)
	}

	results := make([]Result[T], len(files))
	errs := &ProcessingErrors{}

	parsers := newParserPool(maxWorkers)
	defer parsers.close()

	p := pool.New().WithMaxGoroutines(maxWorkers).WithContext(ctx)
	for i, file := range files {
		p.Go(func(ctx context.Context) error {
			if onProgress != nil {
				defer onProgress()
			}

			select {
			case <-ctx.Done():
				errs.Add(file.Path, ctx.Err())
				return nil
			default:
			}

			psr := parsers.get()
			defer parsers.put(psr)

			value, err := fn(ctx, psr, file)
			if err != nil {
				errs.Add(file.Path, err)
				return nil
			}

			results[i] = Result[T]{Value: value, OK: true}
			return nil
		})
	}
	_ = p.Wait() // per-file errors are already captured in errs

	if !errs.HasErrors() {
		return results, nil
	}
	return results, errs
}

// parserPool lends parsers to workers, creating them lazily.
type parserPool struct {
	ch  chan *parser.Parser
	mu  sync.Mutex
	all []*parser.Parser
}

func newParserPool(size int) *parserPool {
	return &parserPool{ch: make(chan *parser.Parser, size)}
}

func (pp *parserPool) get() *parser.Parser {
	select {
	case p := <-pp.ch:
		return p
	default:
	}
	p := parser.New()
	pp.mu.Lock()
	pp.all = append(pp.all, p)
	pp.mu.Unlock()
	return p
}

func (pp *parserPool) put(p *parser.Parser) {
	select {
	case pp.ch <- p:
	default:
	}
}

// created reports how many parsers the pool has constructed.
func (pp *parserPool) created() int {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	return len(pp.all)
}

func (pp *parserPool) close() {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	for _, p := range pp.all {
		p.Close()
	}
	pp.all = nil
}
