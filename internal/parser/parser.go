// Package parser is the parser façade (C1): map a file extension to a
// language, drive the matching Tree-sitter grammar, and hand the resulting
// tree to a per-language walker that produces extractor.ExtractedSymbol and
// extractor.References values. Raw AST nodes never leave this package or
// internal/extractor's callers — Tree-sitter trees are ephemeral, owned for
// the duration of one file (spec.md §3.4).
//
// Grounded on the teacher's internal/parser/{parser,python,javascript,relationships}.go,
// restructured per original_source/src/parser/tree_sitter_parser.py and
// src/parser/extractor/{python_extractor,javascript_extractor}.py to emit
// extractor.ExtractedSymbol instead of a flat Symbol record, and to enforce
// the recursion-depth cap from spec.md §4.2/B3.
package parser

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/reviewforge/kgindex/internal/extractor"
	"github.com/reviewforge/kgindex/internal/kgerr"
)

// Language identifies a supported grammar.
type Language string

const (
	LanguagePython     Language = "python"
	LanguageJavaScript Language = "javascript"
	LanguageTypeScript Language = "typescript"
)

// extToLang is consulted by DetectLanguage. Filenames with no match are
// UnsupportedLanguage.
var extToLang = map[string]Language{
	".py":   LanguagePython,
	".js":   LanguageJavaScript,
	".jsx":  LanguageJavaScript,
	".mjs":  LanguageJavaScript,
	".cjs":  LanguageJavaScript,
	".ts":   LanguageTypeScript,
	".tsx":  LanguageTypeScript,
}

// DetectLanguage maps a file extension to a language. The second return
// value is false when no grammar is registered for the extension — the
// caller treats this as UnsupportedLanguage and skips the file.
func DetectLanguage(filePath string) (Language, bool) {
	for ext, lang := range extToLang {
		if strings.HasSuffix(filePath, ext) {
			return lang, true
		}
	}
	return "", false
}

// Tree wraps a parsed Tree-sitter tree. Close must be called once the caller
// is done extracting symbols/references from it.
type Tree struct {
	tree   *sitter.Tree
	source []byte
	lang   Language
}

// Close releases the underlying Tree-sitter tree.
func (t *Tree) Close() { t.tree.Close() }

// HasParseError reports whether the root node is non-actionable per spec.md
// §4.1: an error flag or a childless root means the caller should record the
// file as indexed-no-symbols and continue (B2), not fail it.
func (t *Tree) HasParseError() bool {
	root := t.tree.RootNode()
	return root.HasError() || root.ChildCount() == 0
}

// Parser wraps a Tree-sitter parser configured for one language. Parser
// instances are not safe for concurrent use on the same file (spec.md §5),
// but distinct Parser values for the same or different languages may be used
// concurrently.
type Parser struct {
	language Language
	parser   *sitter.Parser
}

// NewParser creates a parser for lang, or UnsupportedLanguage if lang has no
// registered grammar.
func NewParser(lang Language) (*Parser, error) {
	p := sitter.NewParser()

	var sl *sitter.Language
	switch lang {
	case LanguagePython:
		sl = getPythonLanguage()
	case LanguageJavaScript, LanguageTypeScript:
		sl = getJavaScriptLanguage()
	default:
		return nil, kgerr.New(kgerr.UnsupportedLanguage, "NewParser", fmt.Errorf("unsupported language: %s", lang))
	}
	p.SetLanguage(sl)

	return &Parser{language: lang, parser: p}, nil
}

// Parse runs the grammar over source, wrapping I/O and parser failures as
// ParseError.
func (p *Parser) Parse(source []byte) (*Tree, error) {
	tree, err := p.parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, kgerr.New(kgerr.ParseError, "Parse", err)
	}
	return &Tree{tree: tree, source: source, lang: p.language}, nil
}

// ExtractSymbols walks t and returns the file's symbols in source order,
// sorted by (start_line asc, end_line desc) as spec.md §4.2 requires.
// Exceeding extractor.DefaultMaxDepth fails with SymbolExtractionError.
func (p *Parser) ExtractSymbols(t *Tree, filePath string) ([]extractor.ExtractedSymbol, error) {
	switch p.language {
	case LanguagePython:
		return extractPythonSymbols(t.tree.RootNode(), t.source)
	case LanguageJavaScript, LanguageTypeScript:
		return extractJavaScriptSymbols(t.tree.RootNode(), t.source)
	default:
		return nil, kgerr.New(kgerr.UnsupportedLanguage, "ExtractSymbols", fmt.Errorf("no extractor for %s", p.language))
	}
}

// ExtractReferences walks t and returns the file's import/call references
// for the cross-file resolver (C6).
func (p *Parser) ExtractReferences(t *Tree, filePath string) (extractor.References, error) {
	switch p.language {
	case LanguagePython:
		return extractPythonReferences(t.tree.RootNode(), t.source), nil
	case LanguageJavaScript, LanguageTypeScript:
		return extractJSReferences(t.tree.RootNode(), t.source), nil
	default:
		return extractor.References{}, kgerr.New(kgerr.UnsupportedLanguage, "ExtractReferences", fmt.Errorf("no extractor for %s", p.language))
	}
}

// Helper functions shared by the per-language walkers.

func findChild(node *sitter.Node, nodeType string) *sitter.Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		if child := node.Child(i); child.Type() == nodeType {
			return child
		}
	}
	return nil
}

func nodeContent(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}

func cleanDocstring(s string) string {
	if len(s) >= 6 && (strings.HasPrefix(s, `"""`) || strings.HasPrefix(s, "'''")) {
		return s[3 : len(s)-3]
	}
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}

// collectNodeTypes records the pre-order sequence of grammar node-type
// strings for node's subtree, for fingerprinting (extractor.Fingerprint).
func collectNodeTypes(node *sitter.Node) []string {
	var types []string
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		types = append(types, n.Type())
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(node)
	return types
}
