package fsops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListSortsDirectoriesFirst(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "zz.txt"), []byte("z"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Aa.txt"), []byte("a"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	entries, err := List(dir)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "sub", entries[0].Name)
	assert.Equal(t, TypeDirectory, entries[0].Type)
	assert.Nil(t, entries[0].Size)

	assert.Equal(t, "Aa.txt", entries[1].Name)
	assert.Equal(t, TypeFile, entries[1].Type)
	require.NotNil(t, entries[1].Size)
	assert.Equal(t, int64(1), *entries[1].Size)
	assert.NotNil(t, entries[1].Modified)

	assert.Equal(t, "zz.txt", entries[2].Name)
}

func TestListErrors(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := List(filepath.Join(dir, "nope"))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = List(file)
	assert.ErrorIs(t, err, ErrNotDirectory)
}

func TestPathInfo(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	probe := PathInfo(dir)
	assert.Equal(t, TypeDirectory, probe.Type)
	assert.Empty(t, probe.Parent)

	probe = PathInfo(file)
	assert.Equal(t, TypeFile, probe.Type)

	probe = PathInfo(filepath.Join(dir, "missing", "deep", "x.txt"))
	assert.Equal(t, TypeNotFound, probe.Type)
	assert.Equal(t, dir, probe.Parent)
}

func TestCreateFolder(t *testing.T) {
	dir := t.TempDir()

	target, err := CreateFolder(dir, "new")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "new"), target)

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	_, err = CreateFolder(dir, "new")
	assert.ErrorIs(t, err, ErrExists)

	_, err = CreateFolder(dir, "")
	assert.ErrorIs(t, err, ErrBadRequest)

	_, err = CreateFolder(dir, "a/b")
	assert.ErrorIs(t, err, ErrBadRequest)

	_, err = CreateFolder(dir, "..")
	assert.ErrorIs(t, err, ErrBadRequest)

	_, err = CreateFolder(filepath.Join(dir, "ghost"), "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateFile(t *testing.T) {
	dir := t.TempDir()

	target, err := CreateFile(dir, "note.txt", "hello")
	require.NoError(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	_, err = CreateFile(dir, "note.txt", "other")
	assert.ErrorIs(t, err, ErrExists)
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(file, []byte("old"), 0o600))

	require.NoError(t, WriteFile(file, "new"))

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	// Mode survives the rewrite.
	info, err := os.Stat(file)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	assert.ErrorIs(t, WriteFile(filepath.Join(dir, "nope"), "x"), ErrNotFound)
	assert.ErrorIs(t, WriteFile(dir, "x"), ErrIsDirectory)
}

func TestRenameRoundTrip(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(a, []byte("content"), 0o644))

	b, err := Rename(a, "b.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "b.txt"), b)

	back, err := Rename(b, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, a, back)

	data, err := os.ReadFile(a)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
}

func TestRenameRefusesExistingTarget(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("b"), 0o644))

	_, err := Rename(filepath.Join(dir, "a.txt"), "b.txt")
	assert.ErrorIs(t, err, ErrExists)

	_, err = Rename(filepath.Join(dir, "ghost.txt"), "c.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReadText(t *testing.T) {
	dir := t.TempDir()
	text := filepath.Join(dir, "t.txt")
	binary := filepath.Join(dir, "b.bin")
	require.NoError(t, os.WriteFile(text, []byte("héllo\n"), 0o644))
	require.NoError(t, os.WriteFile(binary, []byte{0xff, 0xfe, 0x00, 0x80}, 0o644))

	content, err := ReadText(text)
	require.NoError(t, err)
	assert.Equal(t, "héllo\n", content)

	_, err = ReadText(binary)
	assert.ErrorIs(t, err, ErrBadRequest)

	_, err = ReadText(dir)
	assert.ErrorIs(t, err, ErrIsDirectory)

	_, err = ReadText(filepath.Join(dir, "nope"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCountFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub", "deep"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.txt"), []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "deep", "c.txt"), []byte("c"), 0o644))

	n, err := CountFiles(dir, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = CountFiles(dir, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = CountFiles(dir, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// A file path counts as one regardless of depth.
	n, err = CountFiles(filepath.Join(dir, "a.txt"), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = CountFiles(filepath.Join(dir, "nope"), 0)
	assert.ErrorIs(t, err, ErrNotFound)
}
