package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint_DeterministicOnIdenticalShape(t *testing.T) {
	a := Fingerprint([]string{"function_definition", "parameters", "block", "return_statement"})
	b := Fingerprint([]string{"function_definition", "parameters", "block", "return_statement"})

	assert.Equal(t, a, b)
	assert.NotEmpty(t, a)
}

func TestFingerprint_DiffersOnDifferentShape(t *testing.T) {
	a := Fingerprint([]string{"function_definition", "parameters", "block"})
	b := Fingerprint([]string{"function_definition", "parameters", "block", "return_statement"})

	assert.NotEqual(t, a, b)
}

func TestFingerprint_IgnoresNothingButNodeTypeSequence(t *testing.T) {
	// Renaming the identifier or reformatting whitespace never reaches
	// Fingerprint at all — it only ever sees grammar node-type strings, so
	// two structurally identical subtrees with different source text must
	// fingerprint identically.
	shapeA := []string{"function_definition", "identifier", "parameters", "block"}
	shapeB := []string{"function_definition", "identifier", "parameters", "block"}

	assert.Equal(t, Fingerprint(shapeA), Fingerprint(shapeB))
}

func TestFingerprint_EmptyInput(t *testing.T) {
	assert.Equal(t, "", Fingerprint(nil))
	assert.Equal(t, "", Fingerprint([]string{}))
}

func TestSymbolVersionID_DeterministicAndInputSensitive(t *testing.T) {
	id1 := SymbolVersionID("sha1", "a.py", KindFunction, "f", "f", 1, 5)
	id2 := SymbolVersionID("sha1", "a.py", KindFunction, "f", "f", 1, 5)
	assert.Equal(t, id1, id2)

	// Changing any one input field must change the ID (commit, path, kind,
	// name, qualified name, start/end line all participate).
	assert.NotEqual(t, id1, SymbolVersionID("sha2", "a.py", KindFunction, "f", "f", 1, 5))
	assert.NotEqual(t, id1, SymbolVersionID("sha1", "b.py", KindFunction, "f", "f", 1, 5))
	assert.NotEqual(t, id1, SymbolVersionID("sha1", "a.py", KindMethod, "f", "f", 1, 5))
	assert.NotEqual(t, id1, SymbolVersionID("sha1", "a.py", KindFunction, "g", "f", 1, 5))
	assert.NotEqual(t, id1, SymbolVersionID("sha1", "a.py", KindFunction, "f", "Class.f", 1, 5))
	assert.NotEqual(t, id1, SymbolVersionID("sha1", "a.py", KindFunction, "f", "f", 2, 5))
	assert.NotEqual(t, id1, SymbolVersionID("sha1", "a.py", KindFunction, "f", "f", 1, 6))
}

func TestStableSymbolID_StableAcrossCommitsGivenSameFingerprint(t *testing.T) {
	// Two snapshots of the same symbol, differing only by which commit SHA
	// the caller's SymbolVersionID would have used, still resolve to the
	// same StableSymbolID as long as repo, kind, name, and fingerprint match
	// — this is what lets C7 recognize "same symbol, new revision" across
	// commits (spec.md B5).
	fp := Fingerprint([]string{"function_definition", "parameters", "block"})

	id1 := StableSymbolID("repo1", KindFunction, "f", "f", fp)
	id2 := StableSymbolID("repo1", KindFunction, "f", "f", fp)
	assert.Equal(t, id1, id2)
}

func TestStableSymbolID_DiffersOnFingerprintChange(t *testing.T) {
	fpBefore := Fingerprint([]string{"function_definition", "parameters", "block"})
	fpAfter := Fingerprint([]string{"function_definition", "parameters", "block", "return_statement"})

	before := StableSymbolID("repo1", KindFunction, "f", "f", fpBefore)
	after := StableSymbolID("repo1", KindFunction, "f", "f", fpAfter)

	assert.NotEqual(t, before, after)
}

func TestStableSymbolID_DiffersAcrossRepos(t *testing.T) {
	fp := Fingerprint([]string{"function_definition"})
	a := StableSymbolID("repo1", KindFunction, "f", "f", fp)
	b := StableSymbolID("repo2", KindFunction, "f", "f", fp)
	assert.NotEqual(t, a, b)
}

func TestSymbolVersionID_AndStableSymbolID_DoNotCollide(t *testing.T) {
	// The two ID spaces are computed with distinct version prefixes
	// ("v1"/"s1"), so a version ID and a stable ID built from otherwise
	// matching fields never collide.
	v := SymbolVersionID("sha1", "a.py", KindFunction, "f", "f", 1, 5)
	s := StableSymbolID("repo1", KindFunction, "f", "f", "")
	assert.NotEqual(t, v, s)
}
