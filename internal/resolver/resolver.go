// Package resolver implements C6: the cross-file reference resolver. Given
// every file's extracted symbols and references (imports + call sites), it
// resolves IMPORTS and CALLS edges between SymbolNodes/FileNodes across
// file boundaries.
//
// Grounded on original_source/src/graph/cross_file_edge_builder.py. Resolves
// only what can be matched against the index built from this snapshot; no
// speculative matching is attempted (spec.md §4.6: "emit only on successful
// lookup").
package resolver

import (
	"path"
	"strings"

	"github.com/reviewforge/kgindex/internal/extractor"
	"github.com/reviewforge/kgindex/internal/graphmodel"
)

// FileInput is one file's parse output, as produced by internal/parser and
// internal/repograph for a single build.
type FileInput struct {
	RelativePath string
	Language     string
	FileNodeID   string
	Symbols      []extractor.ExtractedSymbol
	SymbolIDs    []string // parallel to Symbols; the KGNode.NodeID for each
	References   extractor.References
}

// importMap is the per-file name resolution table built from a file's own
// import statements, mirroring cross_file_edge_builder.py's LocalImportMap.
type importMap struct {
	// nameToSource maps an imported identifier (or its alias) to the
	// resolved file's relative path.
	nameToSource map[string]string
	// moduleAliases maps a module alias (Python `import x` / `import x as y`;
	// for a JS/TS import, the last path segment of its specifier) to the
	// resolved file's relative path.
	moduleAliases map[string]string
}

// Resolver indexes one snapshot's files and resolves cross-file edges.
type Resolver struct {
	repoID string

	fileByRelPath        map[string]*FileInput
	symbolsByFile        map[string][]int // file rel path -> indices into that file's Symbols
	symbolsByNameInFile  map[string]map[string][]int
	symbolsByQNameInFile map[string]map[string]int
}

// NewResolver indexes files for lookups performed by Build.
func NewResolver(repoID string, files []*FileInput) *Resolver {
	r := &Resolver{
		repoID:               repoID,
		fileByRelPath:        make(map[string]*FileInput, len(files)),
		symbolsByFile:        make(map[string][]int, len(files)),
		symbolsByNameInFile:  make(map[string]map[string][]int, len(files)),
		symbolsByQNameInFile: make(map[string]map[string]int, len(files)),
	}
	for _, f := range files {
		r.fileByRelPath[f.RelativePath] = f
		byName := make(map[string][]int)
		byQName := make(map[string]int)
		indices := make([]int, len(f.Symbols))
		for i, s := range f.Symbols {
			indices[i] = i
			byName[s.Name] = append(byName[s.Name], i)
			byQName[s.QualifiedName] = i
		}
		r.symbolsByFile[f.RelativePath] = indices
		r.symbolsByNameInFile[f.RelativePath] = byName
		r.symbolsByQNameInFile[f.RelativePath] = byQName
	}
	return r
}

// Build resolves IMPORTS and CALLS edges across every indexed file.
func (r *Resolver) Build() []graphmodel.Edge {
	var edges []graphmodel.Edge
	for _, f := range r.fileByRelPath {
		imports := r.buildImportMap(f)

		for _, imp := range f.References.Imports {
			target := r.resolveImportPath(f.RelativePath, f.Language, imp)
			if target == "" {
				continue
			}
			targetFile, ok := r.fileByRelPath[target]
			if !ok {
				continue
			}
			edges = append(edges, graphmodel.Edge{
				RepoID: r.repoID, Type: graphmodel.EdgeImports,
				Source: f.FileNodeID, Target: targetFile.FileNodeID,
			})
		}

		for _, call := range f.References.CallSites {
			enclosingIdx := extractor.FindEnclosingSymbol(f.Symbols, call.LineNumber)
			if enclosingIdx < 0 {
				continue
			}
			calleeID := r.resolveCallee(f, imports, call)
			if calleeID == "" || calleeID == f.SymbolIDs[enclosingIdx] {
				continue
			}
			edges = append(edges, graphmodel.Edge{
				RepoID: r.repoID, Type: graphmodel.EdgeCalls,
				Source: f.SymbolIDs[enclosingIdx], Target: calleeID,
			})
		}
	}
	return edges
}

// buildImportMap mirrors cross_file_edge_builder.py's per-file LocalImportMap
// construction: for each import statement, resolve its source file once and
// record it under every name/alias that statement introduces.
func (r *Resolver) buildImportMap(f *FileInput) importMap {
	m := importMap{nameToSource: map[string]string{}, moduleAliases: map[string]string{}}

	for _, imp := range f.References.Imports {
		target := r.resolveImportPath(f.RelativePath, f.Language, imp)
		if target == "" {
			continue
		}
		if len(imp.ImportedNames) == 0 {
			alias := imp.Alias
			if alias == "" {
				alias = lastSegment(imp.ModulePath)
			}
			m.moduleAliases[alias] = target
			continue
		}
		for _, name := range imp.ImportedNames {
			key := name
			if imp.Alias != "" {
				key = imp.Alias
			}
			m.nameToSource[key] = target
		}
	}
	return m
}

// resolveImportPath dispatches to the language-specific resolver. Returns ""
// when the import target cannot be matched to a file in this snapshot
// (third-party/stdlib import, or a dynamic import the walker didn't model).
func (r *Resolver) resolveImportPath(fromRelPath, language string, imp extractor.ImportReference) string {
	switch language {
	case "python":
		return r.resolvePythonImport(fromRelPath, imp)
	case "javascript", "typescript":
		return r.resolveJSImport(fromRelPath, imp)
	default:
		return ""
	}
}

// resolvePythonImport handles absolute and relative Python imports, trying
// both the `mod.py` and `mod/__init__.py` file shapes per
// cross_file_edge_builder.py::_resolve_python_import.
func (r *Resolver) resolvePythonImport(fromRelPath string, imp extractor.ImportReference) string {
	var base string
	if imp.IsRelative {
		// One leading dot is the importer's own directory; each further dot
		// climbs one directory.
		rest := strings.TrimLeft(imp.ModulePath, ".")
		dots := len(imp.ModulePath) - len(rest)
		dir := path.Dir(fromRelPath)
		for i := 1; i < dots; i++ {
			dir = path.Dir(dir)
		}
		base = path.Join(dir, strings.ReplaceAll(rest, ".", "/"))
	} else {
		base = strings.ReplaceAll(imp.ModulePath, ".", "/")
	}
	return r.findPythonFile(base)
}

func (r *Resolver) findPythonFile(base string) string {
	candidates := []string{base + ".py", path.Join(base, "__init__.py")}
	for _, c := range candidates {
		if _, ok := r.fileByRelPath[path.Clean(c)]; ok {
			return path.Clean(c)
		}
	}
	return ""
}

// resolveJSImport handles only relative JS/TS imports (bare-specifier
// imports resolve to node_modules, outside this snapshot, per
// cross_file_edge_builder.py::_resolve_js_import).
func (r *Resolver) resolveJSImport(fromRelPath string, imp extractor.ImportReference) string {
	if !strings.HasPrefix(imp.ModulePath, ".") {
		return ""
	}
	dir := path.Dir(fromRelPath)
	base := path.Join(dir, imp.ModulePath)
	return r.findJSFile(base)
}

var jsExtensions = []string{".js", ".ts", ".jsx", ".tsx", ".mjs", ".cjs"}

func (r *Resolver) findJSFile(base string) string {
	if _, ok := r.fileByRelPath[path.Clean(base)]; ok {
		return path.Clean(base)
	}
	for _, ext := range jsExtensions {
		c := path.Clean(base + ext)
		if _, ok := r.fileByRelPath[c]; ok {
			return c
		}
	}
	for _, ext := range jsExtensions {
		c := path.Clean(path.Join(base, "index"+ext))
		if _, ok := r.fileByRelPath[c]; ok {
			return c
		}
	}
	return ""
}

// resolveCallee implements cross_file_edge_builder.py::_resolve_callee's
// decision tree: no-receiver direct call, module-alias receiver, imported
// symbol receiver, then give up. No variable-to-class map is kept, so a call
// on a local variable or a chained access is left unresolved.
//
// The no-receiver branch consults only import_map.name_to_source, per
// spec.md §4.6 step 2 and _resolve_direct_call: a same-file sibling call
// with no import statement is not resolved here — doing so would be
// speculative matching the Confidence Policy rules out.
func (r *Resolver) resolveCallee(f *FileInput, imports importMap, call extractor.CallSite) string {
	if call.Receiver == "" {
		if target, ok := imports.nameToSource[call.CalleeName]; ok {
			return r.lookupExported(target, call.CalleeName)
		}
		return ""
	}

	if target, ok := imports.moduleAliases[call.Receiver]; ok {
		return r.lookupExported(target, call.CalleeName)
	}

	if target, ok := imports.nameToSource[call.Receiver]; ok {
		qname := call.Receiver + "." + call.CalleeName
		if idx, ok := r.symbolsByQNameInFile[target][qname]; ok {
			tf := r.fileByRelPath[target]
			return tf.SymbolIDs[idx]
		}
		return r.lookupExported(target, call.CalleeName)
	}

	return ""
}

func (r *Resolver) lookupExported(targetFile, name string) string {
	tf, ok := r.fileByRelPath[targetFile]
	if !ok {
		return ""
	}
	if idx, ok := r.symbolsByQNameInFile[targetFile][name]; ok {
		return tf.SymbolIDs[idx]
	}
	if indices, ok := r.symbolsByNameInFile[targetFile][name]; ok && len(indices) > 0 {
		return tf.SymbolIDs[indices[0]]
	}
	return ""
}

func lastSegment(modulePath string) string {
	modulePath = strings.TrimRight(modulePath, "/")
	if i := strings.LastIndexAny(modulePath, "./"); i >= 0 {
		return modulePath[i+1:]
	}
	return modulePath
}
