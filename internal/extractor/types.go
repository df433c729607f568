// Package extractor defines the language-neutral symbol model (C2: Symbol
// extractor) shared by every per-language walker in internal/parser: the
// ExtractedSymbol record, span-containment hierarchy construction, AST
// fingerprinting, and the dual symbol-identity functions.
//
// Grounded on original_source/src/parser/extractor/base_extractor.py.
package extractor

// SymbolKind enumerates the declaration kinds spec.md §3.1 names. Not every
// language populates every kind; the Python walker emits function, method
// and class, and the JS/TS walker also emits constructor.
type SymbolKind string

const (
	KindFunction    SymbolKind = "function"
	KindMethod      SymbolKind = "method"
	KindClass       SymbolKind = "class"
	KindInterface   SymbolKind = "interface"
	KindEnum        SymbolKind = "enum"
	KindStruct      SymbolKind = "struct"
	KindConstant    SymbolKind = "constant"
	KindVariable    SymbolKind = "variable"
	KindProperty    SymbolKind = "property"
	KindConstructor SymbolKind = "constructor"
	KindDestructor  SymbolKind = "destructor"
)

// DefaultMaxDepth is the hard recursion-depth cap for the pre-order AST walk
// (spec.md §4.2, B3). Exceeding it fails the file with SymbolExtractionError.
const DefaultMaxDepth = 100

// DefaultMaxSymbolsPerFile truncates extraction output (spec.md §4.2, §6).
const DefaultMaxSymbolsPerFile = 500

// ExtractedSymbol is the uniform output of every per-language walker, before
// dual-ID generation and hierarchy linking.
type ExtractedSymbol struct {
	Kind          SymbolKind
	Name          string
	QualifiedName string
	StartLine     int // 1-indexed, inclusive
	EndLine       int
	StartByte     uint32
	EndByte       uint32
	Signature     string
	Docstring     string
	// NodeTypes is the pre-order sequence of grammar node-type strings for
	// this symbol's subtree, used only to compute Fingerprint.
	NodeTypes []string
}

// HierarchyEdge is one CONTAINS_SYMBOL relation, expressed as indices into
// the slice that was passed to BuildSymbolHierarchy (its original order, not
// the sort order used internally).
type HierarchyEdge struct {
	ParentIndex int
	ChildIndex  int
}

// CallSite is one function/method invocation discovered in a file, prior to
// cross-file resolution (C6 consumes these).
type CallSite struct {
	CalleeName string
	Receiver   string // empty means no receiver (direct call)
	LineNumber int    // 1-indexed
}

// ImportReference is one import/from-import statement, prior to resolution.
type ImportReference struct {
	ModulePath    string
	IsRelative    bool
	IsWildcard    bool
	ImportedNames []string // for `from x import a, b`
	Alias         string   // for `import x as y` or `from x import a as b`
}

// References bundles everything the cross-file resolver needs from one file.
type References struct {
	Imports   []ImportReference
	CallSites []CallSite
}
