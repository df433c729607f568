// Package graphmodel defines the tagged node/edge model persisted by C7 (KG
// persistence): one common node envelope (KGNode) wrapping exactly one of
// FileNode, SymbolNode, or TextNode, plus the typed edge set from spec.md §3.2.
//
// Grounded on original_source/src/graph/graph_types.py's KnowledgeGraphNode
// sum type and spec.md §9's design note to replace the Python
// dataclass-over-Union with a Go discriminated union (a Kind tag plus one
// populated payload field, matched at serialization boundaries).
package graphmodel

import "time"

// NodeType discriminates which payload a KGNode carries.
type NodeType string

const (
	NodeTypeFile   NodeType = "file"
	NodeTypeSymbol NodeType = "symbol"
	NodeTypeText   NodeType = "text"
)

// FileNode represents a file or directory (spec.md §3.1). Directories are
// distinguished by having outgoing HAS_FILE edges and no parser-derived
// children; there is no separate IsDir flag — it is derivable from edges.
type FileNode struct {
	Basename     string
	RelativePath string // POSIX, from repo root; "." for the root
}

// SymbolNode represents one extracted code definition (spec.md §3.1).
type SymbolNode struct {
	SymbolVersionID string
	StableSymbolID  string
	Kind            string // extractor.SymbolKind value
	Name            string
	QualifiedName   string
	Language        string
	RelativePath    string
	StartLine       int
	EndLine         int
	Signature       string
	Docstring       string
	Fingerprint     string
}

// TextNode represents one chunk of documentation text (spec.md §3.1).
type TextNode struct {
	Text      string
	StartLine int // 0-indexed, inclusive
	EndLine   int
}

// KGNode is the discriminated union persisted to the graph store. Exactly
// one of File/Symbol/Text is non-nil, selected by Type.
type KGNode struct {
	NodeID string // scoped to one build; unique with RepoID
	RepoID string
	Type   NodeType

	File   *FileNode
	Symbol *SymbolNode
	Text   *TextNode

	LastIndexedAt time.Time
}

// EdgeType enumerates the directed, typed relationships of spec.md §3.2.
type EdgeType string

const (
	EdgeHasFile        EdgeType = "HAS_FILE"
	EdgeHasSymbol      EdgeType = "HAS_SYMBOL"
	EdgeHasText        EdgeType = "HAS_TEXT"
	EdgeNextChunk      EdgeType = "NEXT_CHUNK"
	EdgeContainsSymbol EdgeType = "CONTAINS_SYMBOL"
	EdgeCalls          EdgeType = "CALLS"
	EdgeImports        EdgeType = "IMPORTS"
)

// Edge is a directed, typed relationship between two KGNodes in the same
// repository (spec.md invariant 3.3.1).
type Edge struct {
	RepoID string
	Type   EdgeType
	Source string // NodeID
	Target string // NodeID
}

// Node constructors keep callers from having to zero the unused payload
// fields by hand, and centralize the Type tag assignment.

func NewFileKGNode(repoID, nodeID string, f FileNode) KGNode {
	return KGNode{NodeID: nodeID, RepoID: repoID, Type: NodeTypeFile, File: &f}
}

func NewSymbolKGNode(repoID, nodeID string, s SymbolNode) KGNode {
	return KGNode{NodeID: nodeID, RepoID: repoID, Type: NodeTypeSymbol, Symbol: &s}
}

func NewTextKGNode(repoID, nodeID string, t TextNode) KGNode {
	return KGNode{NodeID: nodeID, RepoID: repoID, Type: NodeTypeText, Text: &t}
}
