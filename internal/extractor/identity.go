package extractor

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// Fingerprint hashes the pre-order sequence of AST node-type strings for a
// symbol's subtree. It depends only on grammar node types, never on
// whitespace or identifier text, so structurally identical code produces the
// same fingerprint (spec.md invariant 3.3.9).
func Fingerprint(nodeTypes []string) string {
	if len(nodeTypes) == 0 {
		return ""
	}
	h := sha256.New()
	for _, t := range nodeTypes {
		h.Write([]byte(t))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// SymbolVersionID is the snapshot-scoped identity: deterministic from
// (commit, path, kind, name, qualified_name, start_line, end_line). Two
// symbols with identical inputs collapse into the same ID by definition
// (spec.md §4.4 "Collisions").
func SymbolVersionID(commitSHA, relativePath string, kind SymbolKind, name, qualifiedName string, startLine, endLine int) string {
	return hashFields("v1", commitSHA, relativePath, string(kind), name, qualifiedName, strconv.Itoa(startLine), strconv.Itoa(endLine))
}

// StableSymbolID is the cross-snapshot identity: deterministic from
// (repo_id, kind, qualified_name, name, fingerprint). It is stable across
// commits as long as the symbol's structure does not change (spec.md B5).
func StableSymbolID(repoID string, kind SymbolKind, qualifiedName, name, fingerprint string) string {
	return hashFields("s1", repoID, string(kind), qualifiedName, name, fingerprint)
}

func hashFields(fields ...string) string {
	h := sha256.New()
	h.Write([]byte(strings.Join(fields, "\x1f")))
	return hex.EncodeToString(h.Sum(nil))
}
