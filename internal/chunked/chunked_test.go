package chunked

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewforge/kgindex/internal/extractor"
	"github.com/reviewforge/kgindex/internal/graphmodel"
)

func makeSymbols(n int) []extractor.ExtractedSymbol {
	symbols := make([]extractor.ExtractedSymbol, n)
	for i := range symbols {
		symbols[i] = extractor.ExtractedSymbol{
			Kind:          extractor.KindFunction,
			Name:          "f",
			QualifiedName: "f",
			StartLine:     i*3 + 1,
			EndLine:       i*3 + 2,
		}
	}
	return symbols
}

func TestExtractSymbolsChunked_BatchesAndAdvancesNodeID(t *testing.T) {
	e := NewExtractor()
	e.BatchSize = 10

	symbols := makeSymbols(25)
	var batches []Batch
	nextID, err := e.ExtractSymbolsChunked("repo1", "sha1", "big.py", "python", "file0", symbols, 0,
		func(b Batch) error {
			batches = append(batches, b)
			return nil
		})
	require.NoError(t, err)

	// 3 symbol batches (10, 10, 5); makeSymbols produces disjoint spans so
	// there is no containment and thus no trailing hierarchy batch.
	require.Len(t, batches, 3)
	assert.Equal(t, 10, batches[0].SymbolsInBatch)
	assert.Equal(t, 10, batches[1].SymbolsInBatch)
	assert.Equal(t, 5, batches[2].SymbolsInBatch)

	totalNodes := 0
	for _, b := range batches {
		totalNodes += len(b.Nodes)
	}
	assert.Equal(t, 25, totalNodes)
	assert.Equal(t, 25, nextID, "node IDs are allocated sequentially with no gaps")
}

func TestExtractSymbolsChunked_PerSliceContainsSymbolEdgesAreDiscarded(t *testing.T) {
	e := NewExtractor()
	e.BatchSize = 50

	// A class and its method land in the same batch (slice), so
	// BuildCodeFile's own per-slice hierarchy pass DOES find the
	// containment — chunked.go must discard that per-slice edge and rely
	// only on the final whole-file hierarchy batch, since a CONTAINS_SYMBOL
	// edge computed from a mid-stream slice would be fine here but wrong in
	// general once a parent and child land in different slices.
	symbols := []extractor.ExtractedSymbol{
		{Kind: extractor.KindClass, Name: "C", QualifiedName: "C", StartLine: 1, EndLine: 10},
		{Kind: extractor.KindMethod, Name: "m", QualifiedName: "C.m", StartLine: 2, EndLine: 4},
	}

	var sawEdges bool
	_, err := e.ExtractSymbolsChunked("repo1", "sha1", "f.py", "python", "file0", symbols, 0,
		func(b Batch) error {
			if len(b.Nodes) > 0 {
				for _, edge := range b.Edges {
					sawEdges = true
					assert.Equal(t, graphmodel.EdgeHasSymbol, edge.Type)
				}
			}
			return nil
		})
	require.NoError(t, err)
	assert.True(t, sawEdges, "expected HAS_SYMBOL edges in the node-carrying batch")
}

func TestExtractSymbolsChunked_HierarchyEmittedAsFinalBatch(t *testing.T) {
	e := NewExtractor()
	e.BatchSize = 50

	// A class (wide span) followed by a method nested inside it: the
	// hierarchy edge should only appear in the trailing batch, keyed by the
	// real symbol node IDs allocated during the earlier batches.
	symbols := []extractor.ExtractedSymbol{
		{Kind: extractor.KindClass, Name: "C", QualifiedName: "C", StartLine: 1, EndLine: 10},
		{Kind: extractor.KindMethod, Name: "m", QualifiedName: "C.m", StartLine: 2, EndLine: 4},
	}

	var batches []Batch
	_, err := e.ExtractSymbolsChunked("repo1", "sha1", "f.py", "python", "file0", symbols, 0,
		func(b Batch) error {
			batches = append(batches, b)
			return nil
		})
	require.NoError(t, err)

	require.Len(t, batches, 2)
	last := batches[len(batches)-1]
	require.Len(t, last.Edges, 1)
	assert.Equal(t, graphmodel.EdgeContainsSymbol, last.Edges[0].Type)
	assert.Equal(t, batches[0].Nodes[0].NodeID, last.Edges[0].Source)
	assert.Equal(t, batches[0].Nodes[1].NodeID, last.Edges[0].Target)
}

func TestExtractSymbolsChunked_YieldErrorStopsImmediately(t *testing.T) {
	e := NewExtractor()
	e.BatchSize = 5

	symbols := makeSymbols(20)
	yieldErr := errors.New("persist failed")
	callCount := 0

	_, err := e.ExtractSymbolsChunked("repo1", "sha1", "f.py", "python", "file0", symbols, 0,
		func(b Batch) error {
			callCount++
			if callCount == 2 {
				return yieldErr
			}
			return nil
		})

	require.ErrorIs(t, err, yieldErr)
	assert.Equal(t, 2, callCount, "must stop calling yield the instant it errors, leaving the rest unprocessed for the caller to roll back")
}

func TestExtractSymbolsChunked_EmptySymbolsNoOp(t *testing.T) {
	e := NewExtractor()
	called := false
	nextID, err := e.ExtractSymbolsChunked("repo1", "sha1", "f.py", "python", "file0", nil, 7,
		func(b Batch) error { called = true; return nil })

	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, 7, nextID)
}

func TestExtractor_BatchesProcessedAccumulatesAcrossFiles(t *testing.T) {
	e := NewExtractor()
	e.BatchSize = 10

	_, err := e.ExtractSymbolsChunked("repo1", "sha1", "a.py", "python", "f0", makeSymbols(15), 0,
		func(Batch) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, 2, e.BatchesProcessed())

	_, err = e.ExtractSymbolsChunked("repo1", "sha1", "b.py", "python", "f1", makeSymbols(10), 100,
		func(Batch) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, 3, e.BatchesProcessed())
}
