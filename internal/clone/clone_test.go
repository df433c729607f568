package clone

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPath_IsDeterministic(t *testing.T) {
	p1 := Path("/tmp", "repo-1", "abc123")
	p2 := Path("/tmp", "repo-1", "abc123")
	assert.Equal(t, p1, p2)
	assert.Equal(t, filepath.Join("/tmp", "repo-1-abc123"), p1)
}

func TestPath_DiffersByCommit(t *testing.T) {
	p1 := Path("/tmp", "repo-1", "abc123")
	p2 := Path("/tmp", "repo-1", "def456")
	assert.NotEqual(t, p1, p2)
}

func TestClone_RequiresCommitSHA(t *testing.T) {
	s := NewService()
	_, err := s.Clone(context.Background(), Options{TmpDir: t.TempDir(), RepoID: "r", RepoURL: "https://example.invalid/r.git"})
	require.Error(t, err)
}

func TestCleanup_RemovesDirectory(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "clone")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "f"), []byte("x"), 0o644))

	require.NoError(t, Cleanup(sub))
	_, err := os.Stat(sub)
	assert.True(t, os.IsNotExist(err))
}

func TestCleanup_EmptyPathIsNoop(t *testing.T) {
	require.NoError(t, Cleanup(""))
}
