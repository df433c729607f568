package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewforge/kgindex/internal/extractor"
	"github.com/reviewforge/kgindex/internal/kgerr"
)

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		path     string
		expected Language
		ok       bool
	}{
		{"test.py", LanguagePython, true},
		{"path/to/file.py", LanguagePython, true},
		{"test.js", LanguageJavaScript, true},
		{"test.jsx", LanguageJavaScript, true},
		{"test.mjs", LanguageJavaScript, true},
		{"test.ts", LanguageTypeScript, true},
		{"test.tsx", LanguageTypeScript, true},
		{"test.go", "", false},
		{"test.txt", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			lang, ok := DetectLanguage(tc.path)
			assert.Equal(t, tc.ok, ok)
			if ok {
				assert.Equal(t, tc.expected, lang)
			}
		})
	}
}

func TestNewParser_UnsupportedLanguage(t *testing.T) {
	_, err := NewParser("rust")
	require.Error(t, err)
	assert.True(t, kgerr.Is(err, kgerr.UnsupportedLanguage))
}

func parseAndExtract(t *testing.T, lang Language, code string) []extractor.ExtractedSymbol {
	t.Helper()
	p, err := NewParser(lang)
	require.NoError(t, err)

	tree, err := p.Parse([]byte(code))
	require.NoError(t, err)
	defer tree.Close()
	require.False(t, tree.HasParseError())

	symbols, err := p.ExtractSymbols(tree, "test")
	require.NoError(t, err)
	return symbols
}

func TestPython_FunctionWithDocstringAndSignature(t *testing.T) {
	code := `
def hello(name):
    """Greet someone by name."""
    return "Hello, " + name
`
	symbols := parseAndExtract(t, LanguagePython, code)

	require.Len(t, symbols, 1)
	assert.Equal(t, "hello", symbols[0].Name)
	assert.Equal(t, extractor.KindFunction, symbols[0].Kind)
	assert.Equal(t, 2, symbols[0].StartLine)
	assert.Contains(t, symbols[0].Signature, "def hello")
	assert.Contains(t, symbols[0].Docstring, "Greet someone")
	assert.NotEmpty(t, symbols[0].NodeTypes)
}

func TestPython_ClassWithMethodsNestUnderClass(t *testing.T) {
	code := `
class User:
    """Represents a user."""

    def __init__(self, name):
        self.name = name

    def greet(self):
        return self.name
`
	symbols := parseAndExtract(t, LanguagePython, code)

	require.Len(t, symbols, 3)
	assert.Equal(t, "User", symbols[0].Name)
	assert.Equal(t, extractor.KindClass, symbols[0].Kind)

	assert.Equal(t, "__init__", symbols[1].Name)
	assert.Equal(t, extractor.KindMethod, symbols[1].Kind)
	assert.Equal(t, "User.__init__", symbols[1].QualifiedName)

	assert.Equal(t, "greet", symbols[2].Name)
	assert.Equal(t, extractor.KindMethod, symbols[2].Kind)
	assert.Equal(t, "User.greet", symbols[2].QualifiedName)
}

func TestPython_NestedFunctionsBothExtracted(t *testing.T) {
	code := `
def outer():
    def inner():
        pass
    return inner
`
	symbols := parseAndExtract(t, LanguagePython, code)

	require.Len(t, symbols, 2)
	assert.Equal(t, "outer", symbols[0].Name)
	assert.Equal(t, "inner", symbols[1].Name)
	assert.Equal(t, "outer.inner", symbols[1].QualifiedName)
}

func TestJavaScript_FunctionDeclaration(t *testing.T) {
	code := `
function greet(name) {
    return "Hello, " + name;
}
`
	symbols := parseAndExtract(t, LanguageJavaScript, code)

	require.Len(t, symbols, 1)
	assert.Equal(t, "greet", symbols[0].Name)
	assert.Equal(t, extractor.KindFunction, symbols[0].Kind)
}

func TestJavaScript_ClassWithConstructorAndMethod(t *testing.T) {
	code := `
class User {
    constructor(name) {
        this.name = name;
    }

    greet() {
        return this.name;
    }
}
`
	symbols := parseAndExtract(t, LanguageJavaScript, code)

	require.Len(t, symbols, 3)
	assert.Equal(t, "User", symbols[0].Name)
	assert.Equal(t, extractor.KindClass, symbols[0].Kind)

	assert.Equal(t, "constructor", symbols[1].Name)
	assert.Equal(t, extractor.KindConstructor, symbols[1].Kind)

	assert.Equal(t, "greet", symbols[2].Name)
	assert.Equal(t, extractor.KindMethod, symbols[2].Kind)
}

func TestExtractSymbols_RecursionDepthCapFailsFile(t *testing.T) {
	// 200 levels of nested if-statements walk roughly two AST levels (the
	// if_statement and its block) per nesting level, well past
	// extractor.DefaultMaxDepth — the walker must fail the file with a
	// SymbolExtractionError rather than stack-overflow or silently truncate.
	var b strings.Builder
	b.WriteString("def f():\n")
	indent := "    "
	for i := 0; i < 200; i++ {
		b.WriteString(strings.Repeat(indent, i+1))
		b.WriteString("if True:\n")
	}
	b.WriteString(strings.Repeat(indent, 201))
	b.WriteString("pass\n")

	p, err := NewParser(LanguagePython)
	require.NoError(t, err)

	tree, err := p.Parse([]byte(b.String()))
	require.NoError(t, err)
	defer tree.Close()

	_, err = p.ExtractSymbols(tree, "deep.py")
	require.Error(t, err)
	assert.True(t, kgerr.Is(err, kgerr.SymbolExtraction))
}

func TestHasParseError_EmptySourceHasNoActionableRoot(t *testing.T) {
	p, err := NewParser(LanguagePython)
	require.NoError(t, err)

	tree, err := p.Parse([]byte(""))
	require.NoError(t, err)
	defer tree.Close()

	assert.True(t, tree.HasParseError())
}
