package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFileChecksum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.txt")
	writeFile(t, path, "hello world")

	got, err := FileChecksum(path)
	require.NoError(t, err)

	want := sha256.Sum256([]byte("hello world"))
	assert.Equal(t, hex.EncodeToString(want[:]), got)

	// Deterministic across calls.
	again, err := FileChecksum(path)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestFileChecksum_Missing(t *testing.T) {
	_, err := FileChecksum(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestDirStats(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "aaaa")
	writeFile(t, filepath.Join(dir, "sub", "b.txt"), "bb")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "empty"), 0o755))

	files, bytes := DirStats(dir)
	assert.Equal(t, 2, files)
	assert.Equal(t, int64(6), bytes)
}

func TestVerify_File(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	writeFile(t, src, "content")

	ok, reason := Verify(src, dst, false)
	assert.False(t, ok)
	assert.Contains(t, reason, "does not exist")

	writeFile(t, dst, "content")
	ok, _ = Verify(src, dst, true)
	assert.True(t, ok)

	// Same size, different bytes: only checksum catches it.
	writeFile(t, dst, "CONTENT")
	ok, _ = Verify(src, dst, false)
	assert.True(t, ok)

	ok, reason = Verify(src, dst, true)
	assert.False(t, ok)
	assert.Contains(t, reason, "checksum mismatch")

	writeFile(t, dst, "longer content")
	ok, reason = Verify(src, dst, false)
	assert.False(t, ok)
	assert.Contains(t, reason, "size mismatch")
}

func TestVerify_Directory(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "src")
	dst := filepath.Join(base, "dst")
	writeFile(t, filepath.Join(src, "a.txt"), "aaa")
	writeFile(t, filepath.Join(src, "sub", "b.txt"), "bbb")
	writeFile(t, filepath.Join(dst, "a.txt"), "aaa")
	writeFile(t, filepath.Join(dst, "sub", "b.txt"), "bbb")

	ok, _ := Verify(src, dst, true)
	assert.True(t, ok)

	// Corrupt one destination file with equal size.
	writeFile(t, filepath.Join(dst, "sub", "b.txt"), "xxx")
	ok, _ = Verify(src, dst, false)
	assert.True(t, ok, "size-only verify cannot detect equal-size corruption")

	ok, reason := Verify(src, dst, true)
	assert.False(t, ok)
	assert.Contains(t, reason, "checksum mismatch")

	// Remove a file: count mismatch.
	require.NoError(t, os.Remove(filepath.Join(dst, "a.txt")))
	ok, reason = Verify(src, dst, false)
	assert.False(t, ok)
	assert.Contains(t, reason, "file count mismatch")
}

func TestVerify_CopyRoundTrip(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "src.txt")
	dst := filepath.Join(base, "dst.txt")
	writeFile(t, src, "round trip payload")

	data, err := os.ReadFile(src)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(dst, data, 0o644))

	ok, reason := Verify(src, dst, true)
	assert.True(t, ok, reason)
}
