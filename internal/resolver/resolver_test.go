package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewforge/kgindex/internal/extractor"
	"github.com/reviewforge/kgindex/internal/graphmodel"
)

func TestResolvePythonImport_ModuleShape(t *testing.T) {
	files := []*FileInput{
		{
			RelativePath: "pkg/main.py",
			Language:     "python",
			FileNodeID:   "f1",
			References: extractor.References{
				Imports: []extractor.ImportReference{
					{ModulePath: "pkg.helper", ImportedNames: []string{"do_thing"}},
				},
			},
		},
		{RelativePath: "pkg/helper.py", Language: "python", FileNodeID: "f2"},
	}
	r := NewResolver("repo1", files)
	edges := r.Build()

	require.Len(t, edges, 1)
	assert.Equal(t, graphmodel.EdgeImports, edges[0].Type)
	assert.Equal(t, "f1", edges[0].Source)
	assert.Equal(t, "f2", edges[0].Target)
}

func TestResolvePythonImport_InitPackageShape(t *testing.T) {
	files := []*FileInput{
		{
			RelativePath: "pkg/main.py",
			Language:     "python",
			FileNodeID:   "f1",
			References: extractor.References{
				Imports: []extractor.ImportReference{
					{ModulePath: "pkg.sub", ImportedNames: []string{"Thing"}},
				},
			},
		},
		{RelativePath: "pkg/sub/__init__.py", Language: "python", FileNodeID: "f2"},
	}
	r := NewResolver("repo1", files)
	edges := r.Build()
	require.Len(t, edges, 1)
	assert.Equal(t, "f2", edges[0].Target)
}

func TestResolveJSImport_RelativeWithIndexFallback(t *testing.T) {
	files := []*FileInput{
		{
			RelativePath: "src/main.js",
			Language:     "javascript",
			FileNodeID:   "f1",
			References: extractor.References{
				Imports: []extractor.ImportReference{
					{ModulePath: "./utils", ImportedNames: []string{"helper"}},
				},
			},
		},
		{RelativePath: "src/utils/index.js", Language: "javascript", FileNodeID: "f2"},
	}
	r := NewResolver("repo1", files)
	edges := r.Build()
	require.Len(t, edges, 1)
	assert.Equal(t, "f2", edges[0].Target)
}

func TestResolveJSImport_BareSpecifierUnresolved(t *testing.T) {
	files := []*FileInput{
		{
			RelativePath: "src/main.js",
			Language:     "javascript",
			FileNodeID:   "f1",
			References: extractor.References{
				Imports: []extractor.ImportReference{
					{ModulePath: "lodash", ImportedNames: []string{"map"}},
				},
			},
		},
	}
	r := NewResolver("repo1", files)
	edges := r.Build()
	assert.Empty(t, edges)
}

// No-receiver calls resolve only through the import map (spec.md §4.6 step
// 2; cross_file_edge_builder.py::_resolve_direct_call never consults the
// caller's own file). A same-file sibling call with no import statement at
// all must not produce a CALLS edge — that would be speculative matching.
func TestResolveCallee_NoReceiverSameFileWithoutImportUnresolved(t *testing.T) {
	caller := extractor.ExtractedSymbol{Kind: extractor.KindFunction, Name: "main", QualifiedName: "main", StartLine: 1, EndLine: 5}
	callee := extractor.ExtractedSymbol{Kind: extractor.KindFunction, Name: "helper", QualifiedName: "helper", StartLine: 7, EndLine: 9}

	f := &FileInput{
		RelativePath: "a.py",
		Language:     "python",
		FileNodeID:   "fileA",
		Symbols:      []extractor.ExtractedSymbol{caller, callee},
		SymbolIDs:    []string{"s0", "s1"},
		References: extractor.References{
			CallSites: []extractor.CallSite{{CalleeName: "helper", LineNumber: 3}},
		},
	}

	r := NewResolver("repo1", []*FileInput{f})
	edges := r.Build()
	assert.Empty(t, edges, "same-file call with no import statement must stay unresolved")
}

func TestResolveCallee_ModuleAliasReceiver(t *testing.T) {
	caller := extractor.ExtractedSymbol{Kind: extractor.KindFunction, Name: "main", QualifiedName: "main", StartLine: 1, EndLine: 5}
	target := extractor.ExtractedSymbol{Kind: extractor.KindFunction, Name: "run", QualifiedName: "run", StartLine: 1, EndLine: 3}

	a := &FileInput{
		RelativePath: "a.py",
		Language:     "python",
		FileNodeID:   "fileA",
		Symbols:      []extractor.ExtractedSymbol{caller},
		SymbolIDs:    []string{"sA0"},
		References: extractor.References{
			Imports:   []extractor.ImportReference{{ModulePath: "b"}},
			CallSites: []extractor.CallSite{{Receiver: "b", CalleeName: "run", LineNumber: 3}},
		},
	}
	bFile := &FileInput{
		RelativePath: "b.py",
		Language:     "python",
		FileNodeID:   "fileB",
		Symbols:      []extractor.ExtractedSymbol{target},
		SymbolIDs:    []string{"sB0"},
	}

	r := NewResolver("repo1", []*FileInput{a, bFile})
	edges := r.Build()

	var callEdge *graphmodel.Edge
	for i := range edges {
		if edges[i].Type == graphmodel.EdgeCalls {
			callEdge = &edges[i]
		}
	}
	require.NotNil(t, callEdge)
	assert.Equal(t, "sA0", callEdge.Source)
	assert.Equal(t, "sB0", callEdge.Target)
}

func TestResolveCallee_SelfCallSuppressed(t *testing.T) {
	g := extractor.ExtractedSymbol{Kind: extractor.KindFunction, Name: "g", QualifiedName: "g", StartLine: 1, EndLine: 2}

	f := &FileInput{
		RelativePath: "a.py",
		Language:     "python",
		FileNodeID:   "fileA",
		Symbols:      []extractor.ExtractedSymbol{g},
		SymbolIDs:    []string{"s0"},
		References: extractor.References{
			CallSites: []extractor.CallSite{{CalleeName: "g", LineNumber: 2}},
		},
	}

	r := NewResolver("repo1", []*FileInput{f})
	edges := r.Build()
	assert.Empty(t, edges, "self-call g() inside g must not emit a CALLS edge")
}

func TestResolveCallee_UnknownReceiverYieldsNoEdge(t *testing.T) {
	caller := extractor.ExtractedSymbol{Kind: extractor.KindFunction, Name: "main", QualifiedName: "main", StartLine: 1, EndLine: 5}
	f := &FileInput{
		RelativePath: "a.py",
		Language:     "python",
		FileNodeID:   "fileA",
		Symbols:      []extractor.ExtractedSymbol{caller},
		SymbolIDs:    []string{"sA0"},
		References: extractor.References{
			CallSites: []extractor.CallSite{{Receiver: "unknown_obj", CalleeName: "frob", LineNumber: 3}},
		},
	}
	r := NewResolver("repo1", []*FileInput{f})
	edges := r.Build()
	assert.Empty(t, edges)
}
