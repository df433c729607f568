// Package repograph implements C5: the repository walker. It drives a
// deterministic depth-first walk of a repo checkout, applies exclusion
// filters and a file-size policy, dispatches each file to the parser façade
// plus C2/C3/C4, and aggregates the resulting nodes/edges and IndexingStats.
//
// Grounded on original_source/src/graph/repo_graph_builder.py, restructured
// from the teacher's internal/indexer/walker.go (doublestar-based exclusion)
// and internal/indexer/module.go (path bookkeeping idiom).
package repograph

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/reviewforge/kgindex/internal/chunked"
	"github.com/reviewforge/kgindex/internal/extractor"
	"github.com/reviewforge/kgindex/internal/filegraph"
	"github.com/reviewforge/kgindex/internal/graphmodel"
	"github.com/reviewforge/kgindex/internal/kgerr"
	"github.com/reviewforge/kgindex/internal/parser"
	"github.com/reviewforge/kgindex/internal/resolver"
)

// Stats mirrors original_source's IndexingStats (spec.md §4.5, P5).
type Stats struct {
	TotalFiles       int
	TotalDirectories int
	IndexedFiles     int
	SkippedFiles     int
	FailedFiles      int

	TotalSymbols           int
	TotalTextChunks        int
	LargeFilesChunked      int
	SymbolBatchesProcessed int

	ImportsEdges int
	CallsEdges   int

	Errors []string
}

// Config tunes the walk; zero-valued fields are replaced by DefaultConfig's
// values in NewBuilder.
type Config struct {
	ExcludedDirs      map[string]bool
	ExcludedDirGlobs  []string
	ExcludedFiles     map[string]bool
	ExcludedFileGlobs []string
	HiddenAllowlist   map[string]bool

	SoftFileLimitBytes int64
	HardFileLimitBytes int64
	MaxSymbolsPerFile  int
	ChunkSize          int
	ChunkOverlap       int
	SymbolBatchSize    int
	GCIntervalBatches  int
}

// DefaultConfig applies spec.md §6's documented defaults.
func DefaultConfig() Config {
	return Config{
		ExcludedDirs:       DefaultExcludedDirs,
		ExcludedDirGlobs:   DefaultExcludedDirGlobs,
		ExcludedFiles:      DefaultExcludedFiles,
		ExcludedFileGlobs:  DefaultExcludedFileGlobs,
		HiddenAllowlist:    DefaultHiddenAllowlist,
		SoftFileLimitBytes: 1_000_000,
		HardFileLimitBytes: 10_000_000,
		MaxSymbolsPerFile:  extractor.DefaultMaxSymbolsPerFile,
		ChunkSize:          1000,
		ChunkOverlap:       200,
		SymbolBatchSize:    50,
		GCIntervalBatches:  5,
	}
}

// Builder drives the walk for one (repo_id, commit_sha) pair rooted at
// RepoRoot (an absolute path to a checked-out working tree).
type Builder struct {
	RepoID    string
	CommitSHA string
	RepoRoot  string
	Config    Config

	fileGraph *filegraph.Builder
	chunker   *chunked.Extractor
	parsers   map[parser.Language]*parser.Parser

	nodes      []graphmodel.KGNode
	edges      []graphmodel.Edge
	nextNodeID int
	stats      Stats

	// files accumulates one resolver.FileInput per parsed code file, for
	// the cross-file resolver (C6) pass that runs once the whole tree has
	// been walked (spec.md §4.6: indices are built once, read-only
	// thereafter).
	files []*resolver.FileInput
}

// NewBuilder constructs a Builder with DefaultConfig values for any
// zero-valued Config field.
func NewBuilder(repoID, commitSHA, repoRoot string, cfg Config) *Builder {
	d := DefaultConfig()
	if cfg.ExcludedDirs == nil {
		cfg.ExcludedDirs = d.ExcludedDirs
	}
	if cfg.ExcludedDirGlobs == nil {
		cfg.ExcludedDirGlobs = d.ExcludedDirGlobs
	}
	if cfg.ExcludedFiles == nil {
		cfg.ExcludedFiles = d.ExcludedFiles
	}
	if cfg.ExcludedFileGlobs == nil {
		cfg.ExcludedFileGlobs = d.ExcludedFileGlobs
	}
	if cfg.HiddenAllowlist == nil {
		cfg.HiddenAllowlist = d.HiddenAllowlist
	}
	if cfg.SoftFileLimitBytes == 0 {
		cfg.SoftFileLimitBytes = d.SoftFileLimitBytes
	}
	if cfg.HardFileLimitBytes == 0 {
		cfg.HardFileLimitBytes = d.HardFileLimitBytes
	}
	if cfg.MaxSymbolsPerFile == 0 {
		cfg.MaxSymbolsPerFile = d.MaxSymbolsPerFile
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = d.ChunkSize
	}
	if cfg.ChunkOverlap == 0 {
		cfg.ChunkOverlap = d.ChunkOverlap
	}
	if cfg.SymbolBatchSize == 0 {
		cfg.SymbolBatchSize = d.SymbolBatchSize
	}
	if cfg.GCIntervalBatches == 0 {
		cfg.GCIntervalBatches = d.GCIntervalBatches
	}

	fg := filegraph.NewBuilder(repoID, commitSHA)
	fg.MaxSymbols = cfg.MaxSymbolsPerFile
	fg.ChunkSize = cfg.ChunkSize
	fg.ChunkOverlap = cfg.ChunkOverlap

	chunker := chunked.NewExtractor()
	chunker.BatchSize = cfg.SymbolBatchSize
	chunker.GCIntervalBatches = cfg.GCIntervalBatches

	return &Builder{
		RepoID: repoID, CommitSHA: commitSHA, RepoRoot: repoRoot, Config: cfg,
		fileGraph: fg, chunker: chunker,
		parsers: make(map[parser.Language]*parser.Parser),
	}
}

// Result is the full output of a Build or BuildForPaths pass.
type Result struct {
	Nodes      []graphmodel.KGNode
	Edges      []graphmodel.Edge
	RootNodeID string
	Stats      Stats
}

// Build walks the entire repository from RepoRoot (spec.md §4.5).
func (b *Builder) Build() (*Result, error) {
	b.reset()

	rootNodeID := b.allocNodeID()
	b.nodes = append(b.nodes, graphmodel.NewFileKGNode(b.RepoID, rootNodeID, graphmodel.FileNode{
		Basename: filepath.Base(b.RepoRoot), RelativePath: ".",
	}))
	b.stats.TotalDirectories++

	if err := b.walkDirectory(b.RepoRoot, rootNodeID); err != nil {
		return nil, err
	}
	b.resolveCrossFileEdges()

	return &Result{Nodes: b.nodes, Edges: b.edges, RootNodeID: rootNodeID, Stats: b.stats}, nil
}

// BuildForPaths processes only the given files (relative to RepoRoot),
// synthesizing the minimum directory chain needed to anchor each under the
// root, deduplicating directory nodes across the subset (spec.md §4.5, R2).
func (b *Builder) BuildForPaths(relPaths []string) (*Result, error) {
	b.reset()

	rootNodeID := b.allocNodeID()
	b.nodes = append(b.nodes, graphmodel.NewFileKGNode(b.RepoID, rootNodeID, graphmodel.FileNode{
		Basename: filepath.Base(b.RepoRoot), RelativePath: ".",
	}))

	dirNodes := map[string]string{".": rootNodeID}

	for _, rel := range relPaths {
		rel = filepath.ToSlash(filepath.Clean(rel))
		absPath := filepath.Join(b.RepoRoot, rel)
		info, err := os.Stat(absPath)
		if err != nil || info.IsDir() {
			continue
		}
		b.stats.TotalFiles++

		parentID := b.ensureDirectoryChain(rel, dirNodes)
		b.processFile(parentID, rel, info)
	}
	b.resolveCrossFileEdges()

	return &Result{Nodes: b.nodes, Edges: b.edges, RootNodeID: rootNodeID, Stats: b.stats}, nil
}

func (b *Builder) reset() {
	b.nodes = nil
	b.edges = nil
	b.nextNodeID = 0
	b.stats = Stats{}
	b.files = nil
}

// resolveCrossFileEdges runs C6 over every file seen during this walk and
// folds the resulting IMPORTS/CALLS edges (and their counts) into the
// builder's buffers, per spec.md §4.6.
func (b *Builder) resolveCrossFileEdges() {
	if len(b.files) == 0 {
		return
	}
	r := resolver.NewResolver(b.RepoID, b.files)
	edges := r.Build()
	b.edges = append(b.edges, edges...)
	for _, e := range edges {
		switch e.Type {
		case graphmodel.EdgeImports:
			b.stats.ImportsEdges++
		case graphmodel.EdgeCalls:
			b.stats.CallsEdges++
		}
	}
}

func (b *Builder) allocNodeID() string {
	id := nodeIDFor(b.nextNodeID)
	b.nextNodeID++
	return id
}

// ensureDirectoryChain walks rel's parent segments, creating and caching a
// FileNode + HAS_FILE edge for any segment not already in dirNodes. Ported
// from repo_graph_builder.py::_ensure_directory_chain.
func (b *Builder) ensureDirectoryChain(rel string, dirNodes map[string]string) string {
	dir := filepath.ToSlash(filepath.Dir(rel))
	if dir == "." {
		return dirNodes["."]
	}

	segments := strings.Split(dir, "/")
	current := "."
	currentID := dirNodes["."]

	for _, seg := range segments {
		next := seg
		if current != "." {
			next = current + "/" + seg
		}
		if id, ok := dirNodes[next]; ok {
			current, currentID = next, id
			continue
		}
		nodeID := b.allocNodeID()
		b.nodes = append(b.nodes, graphmodel.NewFileKGNode(b.RepoID, nodeID, graphmodel.FileNode{
			Basename: seg, RelativePath: next,
		}))
		b.edges = append(b.edges, graphmodel.Edge{
			RepoID: b.RepoID, Type: graphmodel.EdgeHasFile, Source: currentID, Target: nodeID,
		})
		b.stats.TotalDirectories++
		dirNodes[next] = nodeID
		current, currentID = next, nodeID
	}

	return currentID
}

// walkDirectory recurses depth-first, directories first then files, each
// group ordered by lowercased name (spec.md §4.5 "Deterministic ordering").
func (b *Builder) walkDirectory(absDir, parentNodeID string) error {
	entries, err := os.ReadDir(absDir)
	if err != nil {
		b.stats.Errors = append(b.stats.Errors, absDir+": "+err.Error())
		return nil
	}

	sort.Slice(entries, func(i, j int) bool {
		di, dj := entries[i].IsDir(), entries[j].IsDir()
		if di != dj {
			return di // directories first
		}
		return strings.ToLower(entries[i].Name()) < strings.ToLower(entries[j].Name())
	})

	for _, entry := range entries {
		name := entry.Name()
		absPath := filepath.Join(absDir, name)
		relPath, err := filepath.Rel(b.RepoRoot, absPath)
		if err != nil {
			relPath = name
		}
		relPath = filepath.ToSlash(relPath)

		if entry.IsDir() {
			if b.shouldExcludeDir(name) {
				continue
			}
			b.stats.TotalDirectories++
			nodeID := b.allocNodeID()
			b.nodes = append(b.nodes, graphmodel.NewFileKGNode(b.RepoID, nodeID, graphmodel.FileNode{
				Basename: name, RelativePath: relPath,
			}))
			b.edges = append(b.edges, graphmodel.Edge{
				RepoID: b.RepoID, Type: graphmodel.EdgeHasFile, Source: parentNodeID, Target: nodeID,
			})
			if err := b.walkDirectory(absPath, nodeID); err != nil {
				return err
			}
			continue
		}

		if b.shouldExcludeFile(name) {
			continue
		}
		b.stats.TotalFiles++

		info, err := entry.Info()
		if err != nil {
			b.stats.FailedFiles++
			b.stats.Errors = append(b.stats.Errors, relPath+": "+err.Error())
			continue
		}
		b.processFile(parentNodeID, relPath, info)
	}

	return nil
}

func (b *Builder) shouldExcludeDir(name string) bool {
	if b.Config.ExcludedDirs[name] {
		return true
	}
	for _, pat := range b.Config.ExcludedDirGlobs {
		if ok, _ := doublestar.Match(pat, name); ok {
			return true
		}
	}
	return isHidden(name) && !b.Config.HiddenAllowlist[name]
}

func (b *Builder) shouldExcludeFile(name string) bool {
	if b.Config.ExcludedFiles[name] {
		return true
	}
	for _, pat := range b.Config.ExcludedFileGlobs {
		if ok, _ := doublestar.Match(pat, name); ok {
			return true
		}
	}
	return isHidden(name) && !b.Config.HiddenAllowlist[name]
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// processFile applies the size policy (spec.md §4.5, B1) and routes the file
// to the normal, chunked, or skip path.
func (b *Builder) processFile(parentNodeID, relPath string, info os.FileInfo) {
	size := info.Size()
	if size > b.Config.HardFileLimitBytes {
		b.stats.SkippedFiles++
		return
	}

	absPath := filepath.Join(b.RepoRoot, relPath)

	lang, isCode := parser.DetectLanguage(relPath)
	isDoc := filegraph.IsDocFile(relPath)
	if !isCode && !isDoc {
		b.stats.SkippedFiles++
		return
	}

	fileNodeID := b.allocNodeID()
	b.nodes = append(b.nodes, graphmodel.NewFileKGNode(b.RepoID, fileNodeID, graphmodel.FileNode{
		Basename: filepath.Base(relPath), RelativePath: relPath,
	}))
	b.edges = append(b.edges, graphmodel.Edge{
		RepoID: b.RepoID, Type: graphmodel.EdgeHasFile, Source: parentNodeID, Target: fileNodeID,
	})

	if isDoc {
		b.processDocFile(fileNodeID, absPath)
		return
	}

	if size > b.Config.SoftFileLimitBytes {
		b.processLargeFile(fileNodeID, relPath, lang, absPath)
		return
	}
	b.processRegularFile(fileNodeID, relPath, lang, absPath)
}

func (b *Builder) processDocFile(fileNodeID, absPath string) {
	content, err := os.ReadFile(absPath)
	if err != nil {
		b.stats.FailedFiles++
		b.stats.Errors = append(b.stats.Errors, absPath+": "+err.Error())
		return
	}
	result := b.fileGraph.BuildDocFile(fileNodeID, string(content), b.nextNodeID)
	b.nodes = append(b.nodes, result.Nodes...)
	b.edges = append(b.edges, result.Edges...)
	b.nextNodeID = result.NextNodeID
	b.stats.TotalTextChunks += result.TextChunks
	b.stats.IndexedFiles++
}

func (b *Builder) processRegularFile(fileNodeID, relPath string, lang parser.Language, absPath string) {
	source, err := os.ReadFile(absPath)
	if err != nil {
		b.stats.FailedFiles++
		b.stats.Errors = append(b.stats.Errors, relPath+": "+err.Error())
		return
	}

	p, err := b.parserFor(lang)
	if err != nil {
		b.stats.SkippedFiles++
		return
	}

	tree, err := p.Parse(source)
	if err != nil {
		b.stats.FailedFiles++
		b.stats.Errors = append(b.stats.Errors, relPath+": "+err.Error())
		return
	}
	defer tree.Close()

	if tree.HasParseError() {
		// B2: indexed with zero symbols, not a failure.
		b.stats.IndexedFiles++
		return
	}

	symbols, err := p.ExtractSymbols(tree, relPath)
	if err != nil {
		b.stats.FailedFiles++
		b.stats.Errors = append(b.stats.Errors, relPath+": "+err.Error())
		return
	}

	result := b.fileGraph.BuildCodeFile(fileNodeID, relPath, string(lang), symbols, b.nextNodeID)
	b.nodes = append(b.nodes, result.Nodes...)
	b.edges = append(b.edges, result.Edges...)
	b.nextNodeID = result.NextNodeID
	b.stats.TotalSymbols += result.SymbolCount
	b.stats.IndexedFiles++

	b.recordFileInput(p, fileNodeID, relPath, string(lang), symbols, result.Nodes, tree)
}

// recordFileInput builds the resolver.FileInput for one file's symbols
// (cut here to the per-file cap, as the symbol nodes were) and its extracted
// import/call references, for the cross-file resolution pass that runs
// after the whole tree has been walked.
func (b *Builder) recordFileInput(p *parser.Parser, fileNodeID, relPath, language string, symbols []extractor.ExtractedSymbol, symbolNodes []graphmodel.KGNode, tree *parser.Tree) {
	truncated := symbols
	if len(truncated) > b.Config.MaxSymbolsPerFile {
		truncated = truncated[:b.Config.MaxSymbolsPerFile]
	}

	symbolIDs := make([]string, 0, len(truncated))
	for _, n := range symbolNodes {
		if n.Type == graphmodel.NodeTypeSymbol {
			symbolIDs = append(symbolIDs, n.NodeID)
		}
	}
	if len(symbolIDs) != len(truncated) {
		return // defensive: mismatched counts make resolution unsafe, skip this file
	}

	refs, err := p.ExtractReferences(tree, relPath)
	if err != nil {
		return
	}

	b.files = append(b.files, &resolver.FileInput{
		RelativePath: relPath,
		Language:     language,
		FileNodeID:   fileNodeID,
		Symbols:      truncated,
		SymbolIDs:    symbolIDs,
		References:   refs,
	})
}

// processLargeFile runs the chunked path with the rollback-on-failure
// semantics of repo_graph_builder.py::_process_large_file_chunked: both the
// nodes/edges buffers and next_node_id are truncated back to their pre-call
// watermark if extraction fails partway through.
func (b *Builder) processLargeFile(fileNodeID, relPath string, lang parser.Language, absPath string) {
	source, err := os.ReadFile(absPath)
	if err != nil {
		b.stats.FailedFiles++
		b.stats.Errors = append(b.stats.Errors, relPath+": "+err.Error())
		return
	}

	p, err := b.parserFor(lang)
	if err != nil {
		b.stats.SkippedFiles++
		return
	}

	tree, err := p.Parse(source)
	if err != nil {
		b.stats.FailedFiles++
		b.stats.Errors = append(b.stats.Errors, relPath+": "+err.Error())
		return
	}
	defer tree.Close()

	if tree.HasParseError() {
		b.stats.IndexedFiles++
		return
	}

	symbols, err := p.ExtractSymbols(tree, relPath)
	if err != nil {
		b.stats.FailedFiles++
		b.stats.Errors = append(b.stats.Errors, relPath+": "+err.Error())
		return
	}
	if len(symbols) > b.Config.MaxSymbolsPerFile {
		symbols = symbols[:b.Config.MaxSymbolsPerFile]
	}

	initialNodes := len(b.nodes)
	initialEdges := len(b.edges)
	initialBatches := b.stats.SymbolBatchesProcessed
	initialNextID := b.nextNodeID
	symbolCount := 0
	symbolIDs := make([]string, 0, len(symbols))

	finalNextID, err := b.chunker.ExtractSymbolsChunked(
		b.RepoID, b.CommitSHA, relPath, string(lang), fileNodeID,
		symbols, b.nextNodeID,
		func(batch chunked.Batch) error {
			b.nodes = append(b.nodes, batch.Nodes...)
			b.edges = append(b.edges, batch.Edges...)
			symbolCount += batch.SymbolsInBatch
			b.stats.SymbolBatchesProcessed++
			for _, n := range batch.Nodes {
				if n.Type == graphmodel.NodeTypeSymbol {
					symbolIDs = append(symbolIDs, n.NodeID)
				}
			}
			return nil
		},
	)

	if err != nil {
		// Rollback: truncate both buffers to the pre-call watermark so
		// next_node_id never has gaps the caller believes are filled.
		b.nodes = b.nodes[:initialNodes]
		b.edges = b.edges[:initialEdges]
		b.nextNodeID = initialNextID
		b.stats.SymbolBatchesProcessed = initialBatches
		b.stats.FailedFiles++
		b.stats.Errors = append(b.stats.Errors, relPath+": "+err.Error())
		return
	}

	b.nextNodeID = finalNextID
	b.stats.TotalSymbols += symbolCount
	b.stats.LargeFilesChunked++
	b.stats.IndexedFiles++

	if len(symbolIDs) == len(symbols) {
		if refs, err := p.ExtractReferences(tree, relPath); err == nil {
			b.files = append(b.files, &resolver.FileInput{
				RelativePath: relPath,
				Language:     string(lang),
				FileNodeID:   fileNodeID,
				Symbols:      symbols,
				SymbolIDs:    symbolIDs,
				References:   refs,
			})
		}
	}
}

func (b *Builder) parserFor(lang parser.Language) (*parser.Parser, error) {
	if p, ok := b.parsers[lang]; ok {
		return p, nil
	}
	p, err := parser.NewParser(lang)
	if err != nil {
		return nil, kgerr.New(kgerr.UnsupportedLanguage, "parserFor", err)
	}
	b.parsers[lang] = p
	return p, nil
}

func nodeIDFor(n int) string {
	return strconv.Itoa(n)
}
