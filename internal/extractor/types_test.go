package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultLimits(t *testing.T) {
	// Pinned so a change to either cap is a deliberate, reviewed edit, not an
	// accidental drift (B3's depth cap and §6's per-file symbol cap).
	assert.Equal(t, 100, DefaultMaxDepth)
	assert.Equal(t, 500, DefaultMaxSymbolsPerFile)
}

func TestSymbolKindValues(t *testing.T) {
	kinds := []SymbolKind{
		KindFunction, KindMethod, KindClass, KindInterface, KindEnum,
		KindStruct, KindConstant, KindVariable, KindProperty,
		KindConstructor, KindDestructor,
	}
	seen := make(map[SymbolKind]bool, len(kinds))
	for _, k := range kinds {
		assert.NotEmpty(t, string(k))
		assert.False(t, seen[k], "duplicate SymbolKind value: %s", k)
		seen[k] = true
	}
}
