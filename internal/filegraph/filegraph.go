// Package filegraph implements C4: given one file's extracted symbols (or
// raw text for documentation), build its per-file knowledge-graph subgraph —
// SymbolNodes wired to the parent FileNode via HAS_SYMBOL, nested via
// CONTAINS_SYMBOL, or TextNodes chained via NEXT_CHUNK for docs.
//
// Grounded on original_source/src/graph/file_graph_builder.py, adapted from
// the teacher's internal/chunk/hierarchy.go chunk-grouping idiom.
package filegraph

import (
	"strconv"
	"strings"

	"github.com/reviewforge/kgindex/internal/extractor"
	"github.com/reviewforge/kgindex/internal/graphmodel"
	"github.com/reviewforge/kgindex/internal/security"
)

// Builder constructs per-file subgraphs for one repository snapshot.
type Builder struct {
	RepoID       string
	CommitSHA    string
	MaxSymbols   int // default extractor.DefaultMaxSymbolsPerFile
	ChunkSize    int // default 1000
	ChunkOverlap int // default 200

	secrets *security.SecretDetector
}

// NewBuilder applies spec.md §6 defaults for any zero-valued field.
func NewBuilder(repoID, commitSHA string) *Builder {
	return &Builder{
		RepoID:       repoID,
		CommitSHA:    commitSHA,
		MaxSymbols:   extractor.DefaultMaxSymbolsPerFile,
		ChunkSize:    1000,
		ChunkOverlap: 200,
		secrets:      security.NewSecretDetector(),
	}
}

// Result is one file's subgraph plus bookkeeping the repo graph builder
// needs for IndexingStats.
type Result struct {
	Nodes          []graphmodel.KGNode
	Edges          []graphmodel.Edge
	NextNodeID     int
	SymbolCount    int
	SymbolsDropped int
	TextChunks     int
}

// BuildCodeFile wraps symbols (already sorted start_line asc, end_line desc
// by the extractor) into the file's SymbolNode subgraph. parentNodeID must
// be the FileNode this file was created under.
func (b *Builder) BuildCodeFile(parentNodeID, relativePath, language string, symbols []extractor.ExtractedSymbol, nextNodeID int) Result {
	dropped := 0
	if len(symbols) > b.MaxSymbols {
		dropped = len(symbols) - b.MaxSymbols
		symbols = symbols[:b.MaxSymbols]
	}

	var nodes []graphmodel.KGNode
	var edges []graphmodel.Edge
	symbolNodeIDs := make([]string, len(symbols))

	for i, s := range symbols {
		fingerprint := extractor.Fingerprint(s.NodeTypes)
		versionID := extractor.SymbolVersionID(b.CommitSHA, relativePath, s.Kind, s.Name, s.QualifiedName, s.StartLine, s.EndLine)
		stableID := extractor.StableSymbolID(b.RepoID, s.Kind, s.QualifiedName, s.Name, fingerprint)

		nodeID := nodeIDFor(nextNodeID)
		nextNodeID++

		kg := graphmodel.NewSymbolKGNode(b.RepoID, nodeID, graphmodel.SymbolNode{
			SymbolVersionID: versionID,
			StableSymbolID:  stableID,
			Kind:            string(s.Kind),
			Name:            s.Name,
			QualifiedName:   s.QualifiedName,
			Language:        language,
			RelativePath:    relativePath,
			StartLine:       s.StartLine,
			EndLine:         s.EndLine,
			Signature:       s.Signature,
			Docstring:       s.Docstring,
			Fingerprint:     fingerprint,
		})
		nodes = append(nodes, kg)
		symbolNodeIDs[i] = nodeID

		edges = append(edges, graphmodel.Edge{
			RepoID: b.RepoID, Type: graphmodel.EdgeHasSymbol,
			Source: parentNodeID, Target: nodeID,
		})
	}

	for _, h := range extractor.BuildSymbolHierarchy(symbols) {
		edges = append(edges, graphmodel.Edge{
			RepoID: b.RepoID, Type: graphmodel.EdgeContainsSymbol,
			Source: symbolNodeIDs[h.ParentIndex], Target: symbolNodeIDs[h.ChildIndex],
		})
	}

	return Result{
		Nodes: nodes, Edges: edges, NextNodeID: nextNodeID,
		SymbolCount: len(symbols), SymbolsDropped: dropped,
	}
}

// DocExtensions lists the documentation extensions spec.md §4.4 names.
var DocExtensions = map[string]bool{
	".md": true, ".txt": true, ".rst": true, ".markdown": true,
}

// IsDocFile reports whether relativePath should go through BuildDocFile.
func IsDocFile(relativePath string) bool {
	ext := relativePath
	if i := strings.LastIndexByte(relativePath, '.'); i >= 0 {
		ext = relativePath[i:]
	}
	return DocExtensions[strings.ToLower(ext)]
}

// BuildDocFile splits content into TextNodes chained by NEXT_CHUNK and
// anchored to the parent FileNode by HAS_TEXT (spec.md §4.4).
func (b *Builder) BuildDocFile(parentNodeID string, content string, nextNodeID int) Result {
	if strings.TrimSpace(content) == "" {
		return Result{NextNodeID: nextNodeID}
	}

	chunks := splitTextIntoChunks(content, b.ChunkSize, b.ChunkOverlap)

	var nodes []graphmodel.KGNode
	var edges []graphmodel.Edge
	prevNodeID := ""
	currentLine := 0

	for _, chunk := range chunks {
		chunkLines := strings.Count(chunk, "\n")
		startLine := currentLine
		endLine := currentLine + chunkLines

		nodeID := nodeIDFor(nextNodeID)
		nextNodeID++

		nodes = append(nodes, graphmodel.NewTextKGNode(b.RepoID, nodeID, graphmodel.TextNode{
			Text: b.redact(chunk), StartLine: startLine, EndLine: endLine,
		}))

		edges = append(edges, graphmodel.Edge{
			RepoID: b.RepoID, Type: graphmodel.EdgeHasText,
			Source: parentNodeID, Target: nodeID,
		})
		if prevNodeID != "" {
			edges = append(edges, graphmodel.Edge{
				RepoID: b.RepoID, Type: graphmodel.EdgeNextChunk,
				Source: prevNodeID, Target: nodeID,
			})
		}
		prevNodeID = nodeID
		currentLine = endLine
	}

	return Result{Nodes: nodes, Edges: edges, NextNodeID: nextNodeID, TextChunks: len(chunks)}
}

// redact strips any credential-shaped substrings from a documentation chunk
// before it is persisted as a TextNode (spec.md's expanded ambient stack —
// documentation files can carry committed secrets in example snippets).
func (b *Builder) redact(chunk string) string {
	if b.secrets == nil {
		return chunk
	}
	return b.secrets.Scrub(chunk)
}

// splitTextIntoChunks ports file_graph_builder.py's boundary-preferring
// splitter verbatim: prefer breaking at a newline, else a space, within the
// last 20% of the chunk window.
func splitTextIntoChunks(text string, chunkSize, overlap int) []string {
	if len(text) <= chunkSize {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + chunkSize
		if end > len(text) {
			end = len(text)
		}
		if end < len(text) {
			searchStart := end - chunkSize/5
			if searchStart < start {
				searchStart = start
			}
			if nl := strings.LastIndexByte(text[searchStart:end], '\n'); nl >= 0 {
				end = searchStart + nl + 1
			} else if sp := strings.LastIndexByte(text[searchStart:end], ' '); sp >= 0 {
				end = searchStart + sp + 1
			}
		}
		chunks = append(chunks, text[start:end])
		next := end - overlap
		if next <= start || next >= len(text) {
			break
		}
		start = next
	}
	return chunks
}

func nodeIDFor(n int) string {
	// decimal string keeps node IDs human-readable in the graph store, as in
	// original_source (node_id=str(next_node_id)).
	return strconv.Itoa(n)
}
