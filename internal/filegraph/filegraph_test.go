package filegraph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewforge/kgindex/internal/extractor"
	"github.com/reviewforge/kgindex/internal/graphmodel"
)

func TestBuildCodeFile_WiresHasSymbolAndContainsSymbol(t *testing.T) {
	b := NewBuilder("repo1", "sha1")
	symbols := []extractor.ExtractedSymbol{
		{Kind: extractor.KindClass, Name: "Widget", QualifiedName: "Widget", StartLine: 1, EndLine: 10},
		{Kind: extractor.KindMethod, Name: "build", QualifiedName: "Widget.build", StartLine: 2, EndLine: 5},
	}

	result := b.BuildCodeFile("file-0", "widget.py", "python", symbols, 1)

	require.Len(t, result.Nodes, 2)
	assert.Equal(t, 2, result.SymbolCount)
	assert.Equal(t, 0, result.SymbolsDropped)

	var hasSymbol, containsSymbol int
	for _, e := range result.Edges {
		switch e.Type {
		case graphmodel.EdgeHasSymbol:
			hasSymbol++
			assert.Equal(t, "file-0", e.Source)
		case graphmodel.EdgeContainsSymbol:
			containsSymbol++
		}
	}
	assert.Equal(t, 2, hasSymbol)
	assert.Equal(t, 1, containsSymbol)
}

func TestBuildCodeFile_TruncatesAtMaxSymbols(t *testing.T) {
	b := NewBuilder("repo1", "sha1")
	b.MaxSymbols = 1
	symbols := []extractor.ExtractedSymbol{
		{Kind: extractor.KindFunction, Name: "a", QualifiedName: "a", StartLine: 1, EndLine: 2},
		{Kind: extractor.KindFunction, Name: "b", QualifiedName: "b", StartLine: 3, EndLine: 4},
	}

	result := b.BuildCodeFile("file-0", "m.py", "python", symbols, 1)

	assert.Equal(t, 1, result.SymbolCount)
	assert.Equal(t, 1, result.SymbolsDropped)
}

func TestBuildDocFile_ChainsChunksWithNextChunk(t *testing.T) {
	b := NewBuilder("repo1", "sha1")
	content := strings.Repeat("line of documentation text\n", 200)

	result := b.BuildDocFile("file-0", content, 1)

	require.Greater(t, len(result.Nodes), 1)
	var nextChunk, hasText int
	for _, e := range result.Edges {
		switch e.Type {
		case graphmodel.EdgeNextChunk:
			nextChunk++
		case graphmodel.EdgeHasText:
			hasText++
			assert.Equal(t, "file-0", e.Source)
		}
	}
	assert.Equal(t, len(result.Nodes)-1, nextChunk)
	assert.Equal(t, len(result.Nodes), hasText)
}

func TestBuildDocFile_EmptyContentYieldsNoNodes(t *testing.T) {
	b := NewBuilder("repo1", "sha1")
	result := b.BuildDocFile("file-0", "   \n  ", 5)
	assert.Empty(t, result.Nodes)
	assert.Equal(t, 5, result.NextNodeID)
}

func TestBuildDocFile_RedactsSecretsFromTextNodes(t *testing.T) {
	b := NewBuilder("repo1", "sha1")
	content := "## Setup\n\napi_key = \"sk-reallylongsecretvaluehere12345\"\n"

	result := b.BuildDocFile("file-0", content, 1)

	require.Len(t, result.Nodes, 1)
	assert.Contains(t, result.Nodes[0].Text.Text, "[REDACTED]")
	assert.NotContains(t, result.Nodes[0].Text.Text, "reallylongsecretvaluehere12345")
}

func TestIsDocFile(t *testing.T) {
	assert.True(t, IsDocFile("README.md"))
	assert.True(t, IsDocFile("notes.TXT"))
	assert.False(t, IsDocFile("main.go"))
}
