package search

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filecrane/filecrane/internal/fsops"
)

func seed(t *testing.T, root string, files ...string) {
	t.Helper()

	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}
}

func names(entries []fsops.FileEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}

	return out
}

func TestRunSubstringCaseInsensitive(t *testing.T) {
	root := t.TempDir()
	seed(t, root, "Report-2024.pdf", "notes/report-draft.txt", "unrelated.txt")

	results, err := Run(root, Options{Query: "REPORT"})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"Report-2024.pdf", "report-draft.txt"}, names(results))
}

func TestRunDefaultIgnores(t *testing.T) {
	root := t.TempDir()
	seed(t, root, "node_modules/foo.txt", "src/foo.txt", ".git/foo.txt")

	results, err := Run(root, Options{Query: "foo"})
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, filepath.Join(root, "src", "foo.txt"), results[0].Path)
}

func TestRunCustomIgnorePatterns(t *testing.T) {
	root := t.TempDir()
	seed(t, root, "a/keep.log", "b/keep.txt")

	results, err := Run(root, Options{
		Query:          "keep",
		IgnorePatterns: []string{"*.log"},
	})
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "keep.txt", results[0].Name)
}

func TestRunDepthLimit(t *testing.T) {
	root := t.TempDir()
	seed(t, root, "hit1.txt", "l1/hit2.txt", "l1/l2/hit3.txt")

	results, err := Run(root, Options{Query: "hit", MaxDepth: 2})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"hit1.txt", "hit2.txt"}, names(results))

	results, err = Run(root, Options{Query: "hit", MaxDepth: 0})
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestRunMaxResultsEarlyExit(t *testing.T) {
	root := t.TempDir()
	seed(t, root, "m1.txt", "m2.txt", "m3.txt", "m4.txt", "m5.txt")

	results, err := Run(root, Options{Query: "m", MaxResults: 2})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestRunTypeFilter(t *testing.T) {
	root := t.TempDir()
	seed(t, root, "match/inner.txt", "match.txt")

	results, err := Run(root, Options{Query: "match", TypeFilter: FilterDirectory})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, fsops.TypeDirectory, results[0].Type)

	results, err = Run(root, Options{Query: "match", TypeFilter: FilterFile})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, fsops.TypeFile, results[0].Type)

	_, err = Run(root, Options{Query: "match", TypeFilter: "folder"})
	assert.ErrorIs(t, err, fsops.ErrBadRequest)
}

func TestRunBlankQueryReturnsNothing(t *testing.T) {
	root := t.TempDir()
	seed(t, root, "a.txt", "b/c.txt")

	for _, query := range []string{"", "   ", "\t"} {
		results, err := Run(root, Options{Query: query})
		require.NoError(t, err)
		assert.Empty(t, results)
	}
}

func TestRunSymlinksNotFollowed(t *testing.T) {
	root := t.TempDir()
	seed(t, root, "real/target.txt")
	require.NoError(t, os.Symlink(filepath.Join(root, "real"), filepath.Join(root, "loop")))

	results, err := Run(root, Options{Query: "target"})
	require.NoError(t, err)

	// Only the real entry, never one discovered through the link.
	require.Len(t, results, 1)
	assert.Equal(t, filepath.Join(root, "real", "target.txt"), results[0].Path)
}

func TestRunBadStart(t *testing.T) {
	root := t.TempDir()
	seed(t, root, "f.txt")

	_, err := Run(filepath.Join(root, "ghost"), Options{})
	assert.ErrorIs(t, err, fsops.ErrNotFound)

	_, err = Run(filepath.Join(root, "f.txt"), Options{})
	assert.ErrorIs(t, err, fsops.ErrNotDirectory)
}

func TestParseIgnoreList(t *testing.T) {
	assert.Nil(t, ParseIgnoreList(""))
	assert.Nil(t, ParseIgnoreList("  "))
	assert.Equal(t, []string{"*.log", "tmp"}, ParseIgnoreList("*.log, tmp,"))
}
