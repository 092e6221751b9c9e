package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/knitgraph/internal/testutil"
	"github.com/panbanda/knitgraph/pkg/analyzer/depgraph"
	"github.com/panbanda/knitgraph/pkg/analyzer/knit"
	"github.com/panbanda/knitgraph/pkg/config"
	"github.com/panbanda/knitgraph/pkg/models"
)

func TestNew(t *testing.T) {
	cfg := config.DefaultConfig()
	svc := New(WithConfig(cfg))
	assert.Same(t, cfg, svc.Config())
	assert.NotNil(t, svc.memo)
	assert.NotNil(t, svc.logger)

	svc = New(WithConfig(nil), WithMemo(nil), WithLogger(nil))
	assert.NotNil(t, svc.config)
	assert.NotNil(t, svc.memo)
}

func TestLoadExtractAnalyze(t *testing.T) {
	dir := t.TempDir()
	testutil.CreateFileTree(t, dir, testutil.CycleSources)
	testutil.CreateFileTree(t, dir, map[string]string{"build/Gen.kt": "package p\n\nclass Gen\n"})

	svc := New(WithConfig(config.DefaultConfig()))
	ctx := context.Background()

	src, err := svc.LoadSources(ctx, Input{Paths: []string{dir}})
	require.NoError(t, err)
	require.Len(t, src.Files, 3)
	assert.Nil(t, src.Revision)
	assert.Zero(t, src.Dropped)

	ticks := 0
	result, err := svc.ExtractGraph(ctx, src, ExtractOptions{OnProgress: func() { ticks++ }, Workers: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, ticks)
	assert.Len(t, result.Nodes, 3)
	assert.Len(t, result.Edges, 3)

	analysis := svc.AnalyzeGraph(result)
	require.Len(t, analysis.Cycles.Cycles, 1)
	assert.ElementsMatch(t, []string{"p.A", "p.B", "p.C"}, analysis.Cycles.CycleNodes)
	assert.True(t, analysis.Summary.IsCyclic)

	again := svc.AnalyzeGraph(result)
	assert.Same(t, analysis, again)
	assert.Equal(t, 1, svc.MemoStats().Hits)
}

func TestAnalyzeGraphMatchesFreshAnalysis(t *testing.T) {
	svc := New(WithConfig(config.DefaultConfig()))
	forward := &models.AnalysisResult{
		Nodes: []models.GraphNode{{ID: "A"}, {ID: "B"}},
		Edges: []models.Edge{},
	}
	reversed := &models.AnalysisResult{
		Nodes: []models.GraphNode{{ID: "B"}, {ID: "A"}},
		Edges: []models.Edge{},
	}

	for _, result := range []*models.AnalysisResult{forward, reversed} {
		fresh := depgraph.Analyze(result.Nodes, result.Edges, svc.GraphOptions())
		assert.Equal(t, fresh, svc.AnalyzeGraph(result))
	}
	assert.Equal(t, []string{"B", "A"}, svc.AnalyzeGraph(reversed).RootNodes)
	assert.Equal(t, 1, svc.MemoStats().Hits)
}

func TestLoadSourcesMaxFiles(t *testing.T) {
	dir := t.TempDir()
	testutil.CreateFileTree(t, dir, testutil.CycleSources)

	cfg := config.DefaultConfig()
	cfg.Analysis.MaxFiles = 2
	src, err := New(WithConfig(cfg)).LoadSources(context.Background(), Input{Paths: []string{dir}})
	require.NoError(t, err)
	assert.Len(t, src.Files, 2)
	assert.Equal(t, 1, src.Dropped)
}

func TestExtractGraphDedupOverride(t *testing.T) {
	src := &Sources{}
	_, err := New(WithConfig(config.DefaultConfig())).ExtractGraph(context.Background(), src, ExtractOptions{Dedup: "bogus"})
	require.Error(t, err)

	_, err = New(WithConfig(config.DefaultConfig())).ExtractGraph(context.Background(), src, ExtractOptions{})
	assert.True(t, errors.Is(err, knit.ErrNoNodes))
}

func TestLoadSourcesRevision(t *testing.T) {
	dir := t.TempDir()
	testutil.CreateFileTree(t, dir, testutil.CycleSources)
	testutil.CommitAll(t, dir, "Initial commit")

	// Uncommitted files are not part of the revision.
	testutil.CreateFileTree(t, dir, map[string]string{"src/D.kt": "package p\n\nclass D\n"})

	svc := New(WithConfig(config.DefaultConfig()))
	src, err := svc.LoadSources(context.Background(), Input{Paths: []string{dir}, Ref: "HEAD"})
	require.NoError(t, err)
	require.NotNil(t, src.Revision)
	assert.Len(t, src.Files, 3)
	assert.Equal(t, "A.kt", src.Files[0].Path)

	_, err = svc.LoadSources(context.Background(), Input{Paths: []string{dir, dir}, Ref: "HEAD"})
	assert.ErrorIs(t, err, ErrTooManyPaths)
}

func TestGraphOptions(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Graph.CriticalMaxNodes = 2
	cfg.Graph.TopPaths = 1

	opts := New(WithConfig(cfg)).GraphOptions()
	assert.Equal(t, 2, opts.MaxCriticalNodes)
	assert.Equal(t, 1, opts.TopPaths)
	assert.Equal(t, cfg.Graph.CriticalMaxDepth, opts.CriticalDepth)
}
