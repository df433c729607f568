// Package chunked implements C3: memory-bounded symbol extraction for files
// over the soft size threshold. It parses a file once, then hands symbols to
// the caller in fixed-size batches via a lazy pull interface so the caller
// can persist and drop each batch before the next is produced.
//
// Grounded on original_source/src/parser/extractor/chunked_extractor.py;
// the Go idiom for "yield a batch, caller drops it, continue" is a callback
// invoked synchronously per batch (ExtractSymbolsChunked's yield parameter)
// rather than a channel+goroutine pair, since the caller (internal/repograph)
// needs to perform rollback on the SAME stack frame that owns its node/edge
// buffers (spec.md §4.3, §9's RAII-style-scope note) — a goroutine producer
// would make that watermark-truncation logic racier for no benefit, as
// nothing here is actually concurrent with the caller.
package chunked

import (
	"runtime"

	"github.com/reviewforge/kgindex/internal/extractor"
	"github.com/reviewforge/kgindex/internal/filegraph"
	"github.com/reviewforge/kgindex/internal/graphmodel"
)

// Batch is one unit of persistable work (spec.md §4.3).
type Batch struct {
	Nodes          []graphmodel.KGNode
	Edges          []graphmodel.Edge
	BatchNumber    int
	SymbolsInBatch int
}

// Extractor streams symbol batches for one large file at a time.
type Extractor struct {
	BatchSize         int // default 50
	GCIntervalBatches int // default 5

	batchesProcessed int
}

// NewExtractor applies spec.md §6 defaults.
func NewExtractor() *Extractor {
	return &Extractor{BatchSize: 50, GCIntervalBatches: 5}
}

// BatchesProcessed returns the running total of symbol batches (the trailing
// hierarchy batch is not counted) across every file this Extractor has
// streamed.
func (e *Extractor) BatchesProcessed() int { return e.batchesProcessed }

// ExtractSymbolsChunked builds the file's SymbolNode subgraph in batches and
// hands each to yield. The hierarchy (CONTAINS_SYMBOL) relations are
// computed against the complete symbol list up front — they cannot be known
// per-batch — and are yielded as a final batch with an empty Nodes slice, per
// spec.md §4.3.
//
// If yield returns an error, ExtractSymbolsChunked stops and returns that
// error immediately; it performs no rollback of its own; the caller
// (internal/repograph), which owns the repo-wide node/edge buffers that
// yield appended into, is responsible for truncating them back to its
// pre-call watermark and restoring next_node_id, so that next_node_id never
// skips values (spec.md §4.3, §4.5).
func (e *Extractor) ExtractSymbolsChunked(
	repoID, commitSHA, relativePath, language, parentNodeID string,
	symbols []extractor.ExtractedSymbol,
	startNodeID int,
	yield func(Batch) error,
) (nextNodeID int, err error) {
	nextNodeID = startNodeID
	if len(symbols) == 0 {
		return nextNodeID, nil
	}

	builder := filegraph.NewBuilder(repoID, commitSHA)
	builder.MaxSymbols = len(symbols) // truncation already applied by caller

	hierarchy := extractor.BuildSymbolHierarchy(symbols)
	symbolNodeIDs := make([]string, 0, len(symbols))

	batchNumber := 0
	for start := 0; start < len(symbols); start += e.BatchSize {
		end := start + e.BatchSize
		if end > len(symbols) {
			end = len(symbols)
		}
		slice := symbols[start:end]

		result := builder.BuildCodeFile(parentNodeID, relativePath, language, slice, nextNodeID)
		nextNodeID = result.NextNodeID
		for _, n := range result.Nodes {
			symbolNodeIDs = append(symbolNodeIDs, n.NodeID)
		}
		// BuildCodeFile also computed hierarchy edges scoped to this slice,
		// which are meaningless across batch boundaries; keep only the
		// HAS_SYMBOL edges here and emit the real hierarchy as a final batch.
		hasSymbolEdges := make([]graphmodel.Edge, 0, len(result.Edges))
		for _, edge := range result.Edges {
			if edge.Type == graphmodel.EdgeHasSymbol {
				hasSymbolEdges = append(hasSymbolEdges, edge)
			}
		}

		if err := yield(Batch{
			Nodes:          result.Nodes,
			Edges:          hasSymbolEdges,
			BatchNumber:    batchNumber,
			SymbolsInBatch: len(slice),
		}); err != nil {
			return nextNodeID, err
		}

		batchNumber++
		e.batchesProcessed++
		if e.GCIntervalBatches > 0 && e.batchesProcessed%e.GCIntervalBatches == 0 {
			runtime.GC()
		}
	}

	if len(hierarchy) > 0 {
		hierarchyEdges := make([]graphmodel.Edge, 0, len(hierarchy))
		for _, h := range hierarchy {
			hierarchyEdges = append(hierarchyEdges, graphmodel.Edge{
				RepoID: repoID, Type: graphmodel.EdgeContainsSymbol,
				Source: symbolNodeIDs[h.ParentIndex], Target: symbolNodeIDs[h.ChildIndex],
			})
		}
		if err := yield(Batch{Edges: hierarchyEdges, BatchNumber: batchNumber}); err != nil {
			return nextNodeID, err
		}
	}

	runtime.GC()
	return nextNodeID, nil
}
