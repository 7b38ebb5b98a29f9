package bulk

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filecrane/filecrane/internal/pathsafe"
	"github.com/filecrane/filecrane/internal/task"
)

func newTestEngine(t *testing.T, root string) (*Engine, *task.Manager) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	resolver, err := pathsafe.NewResolver(root, false)
	require.NoError(t, err)

	manager := task.NewManager(logger)

	eng, err := NewEngine(resolver, manager, nil, Options{Workers: 4}, logger)
	require.NoError(t, err)

	return eng, manager
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCopySingleFile(t *testing.T) {
	root := t.TempDir()
	eng, _ := newTestEngine(t, root)

	writeFile(t, filepath.Join(root, "src", "a.txt"), "hello")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "dst"), 0o755))

	_, result, err := eng.Copy(CopyRequest{
		Sources: []string{"src/a.txt"},
		Dest:    "dst",
	}, false)
	require.NoError(t, err)

	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 0, result.FailCount)

	data, err := os.ReadFile(filepath.Join(root, "dst", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	// The source is untouched.
	_, err = os.Stat(filepath.Join(root, "src", "a.txt"))
	assert.NoError(t, err)
}

func TestCopyDirectoryTree(t *testing.T) {
	root := t.TempDir()
	eng, _ := newTestEngine(t, root)

	writeFile(t, filepath.Join(root, "tree", "a.txt"), "a")
	writeFile(t, filepath.Join(root, "tree", "sub", "b.txt"), "b")
	writeFile(t, filepath.Join(root, "tree", "sub", "deep", "c.txt"), "c")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "tree", "empty"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "dst"), 0o755))

	_, result, err := eng.Copy(CopyRequest{
		Sources:        []string{"tree"},
		Dest:           "dst",
		VerifyChecksum: true,
	}, false)
	require.NoError(t, err)

	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 0, result.FailCount)

	for _, rel := range []string{"a.txt", "sub/b.txt", "sub/deep/c.txt"} {
		_, err := os.Stat(filepath.Join(root, "dst", "tree", rel))
		assert.NoError(t, err, rel)
	}

	info, err := os.Stat(filepath.Join(root, "dst", "tree", "empty"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCopyCollisionWithoutOverwrite(t *testing.T) {
	root := t.TempDir()
	eng, _ := newTestEngine(t, root)

	writeFile(t, filepath.Join(root, "a.txt"), "new")
	writeFile(t, filepath.Join(root, "dst", "a.txt"), "old")

	_, result, err := eng.Copy(CopyRequest{
		Sources: []string{"a.txt"},
		Dest:    "dst",
	}, false)
	require.NoError(t, err)

	assert.Equal(t, 0, result.SuccessCount)
	assert.Equal(t, 1, result.FailCount)
	assert.Equal(t, "error", result.Results[0].Status)
	assert.Contains(t, result.Results[0].Message, "already exists")

	data, err := os.ReadFile(filepath.Join(root, "dst", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}

func TestCopyCollisionWithOverwrite(t *testing.T) {
	root := t.TempDir()
	eng, _ := newTestEngine(t, root)

	writeFile(t, filepath.Join(root, "a.txt"), "new")
	writeFile(t, filepath.Join(root, "dst", "a.txt"), "old")

	_, result, err := eng.Copy(CopyRequest{
		Sources:   []string{"a.txt"},
		Dest:      "dst",
		Overwrite: true,
	}, false)
	require.NoError(t, err)

	assert.Equal(t, 1, result.SuccessCount)

	data, err := os.ReadFile(filepath.Join(root, "dst", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestCopyMixedBatchAccounting(t *testing.T) {
	root := t.TempDir()
	eng, _ := newTestEngine(t, root)

	writeFile(t, filepath.Join(root, "good.txt"), "ok")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "dst"), 0o755))

	sources := []string{"good.txt", "missing.txt", "../escape.txt"}

	_, result, err := eng.Copy(CopyRequest{Sources: sources, Dest: "dst"}, false)
	require.NoError(t, err)

	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 2, result.FailCount)
	assert.LessOrEqual(t, result.SuccessCount+result.FailCount, len(sources))

	// Results come back in request order.
	require.Len(t, result.Results, 3)
	assert.Equal(t, "good.txt", result.Results[0].Path)
	assert.Equal(t, "success", result.Results[0].Status)
	assert.Equal(t, "error", result.Results[1].Status)
	assert.Equal(t, "file not found", result.Results[1].Message)
	assert.Equal(t, "error", result.Results[2].Status)
}

func TestCopySamePathIsError(t *testing.T) {
	root := t.TempDir()
	eng, _ := newTestEngine(t, root)

	writeFile(t, filepath.Join(root, "dst", "a.txt"), "x")

	_, result, err := eng.Copy(CopyRequest{
		Sources: []string{"dst/a.txt"},
		Dest:    "dst",
	}, false)
	require.NoError(t, err)

	assert.Equal(t, 1, result.FailCount)
	assert.Contains(t, result.Results[0].Message, "same file")
}

func TestCopyDirectoryIntoItself(t *testing.T) {
	root := t.TempDir()
	eng, _ := newTestEngine(t, root)

	writeFile(t, filepath.Join(root, "tree", "a.txt"), "x")

	_, result, err := eng.Copy(CopyRequest{
		Sources: []string{"tree"},
		Dest:    "tree",
	}, false)
	require.NoError(t, err)

	assert.Equal(t, 1, result.FailCount)
	assert.Contains(t, result.Results[0].Message, "into itself")
}

func TestCopyMissingDestination(t *testing.T) {
	root := t.TempDir()
	eng, _ := newTestEngine(t, root)

	writeFile(t, filepath.Join(root, "a.txt"), "x")

	_, _, err := eng.Copy(CopyRequest{Sources: []string{"a.txt"}, Dest: "nope"}, false)
	assert.Error(t, err)
}

func TestCopyTaskCompletesWithResult(t *testing.T) {
	root := t.TempDir()
	eng, manager := newTestEngine(t, root)

	writeFile(t, filepath.Join(root, "a.txt"), "x")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "dst"), 0o755))

	id, result, err := eng.Copy(CopyRequest{Sources: []string{"a.txt"}, Dest: "dst"}, false)
	require.NoError(t, err)
	require.NotNil(t, result)

	tk := manager.Get(id)
	require.NotNil(t, tk)

	snap := tk.Snapshot()
	assert.Equal(t, task.StatusCompleted, snap.Status)
	assert.Equal(t, 100, snap.Progress)
	assert.NotNil(t, snap.Result)
}

func TestMoveFile(t *testing.T) {
	root := t.TempDir()
	eng, _ := newTestEngine(t, root)

	writeFile(t, filepath.Join(root, "src", "a.txt"), "payload")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "dst"), 0o755))

	_, result, err := eng.Move(CopyRequest{
		Sources: []string{"src/a.txt"},
		Dest:    "dst",
	}, false)
	require.NoError(t, err)

	assert.Equal(t, 1, result.SuccessCount)

	data, err := os.ReadFile(filepath.Join(root, "dst", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	_, err = os.Stat(filepath.Join(root, "src", "a.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestMoveDirectoryRemovesSource(t *testing.T) {
	root := t.TempDir()
	eng, _ := newTestEngine(t, root)

	writeFile(t, filepath.Join(root, "tree", "a.txt"), "a")
	writeFile(t, filepath.Join(root, "tree", "sub", "b.txt"), "b")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "dst"), 0o755))

	_, result, err := eng.Move(CopyRequest{
		Sources: []string{"tree"},
		Dest:    "dst",
	}, false)
	require.NoError(t, err)

	assert.Equal(t, 1, result.SuccessCount)

	_, err = os.Stat(filepath.Join(root, "dst", "tree", "sub", "b.txt"))
	assert.NoError(t, err)

	_, err = os.Stat(filepath.Join(root, "tree"))
	assert.True(t, os.IsNotExist(err))
}

func TestMoveFailedSourceStaysIntact(t *testing.T) {
	root := t.TempDir()
	eng, _ := newTestEngine(t, root)

	writeFile(t, filepath.Join(root, "a.txt"), "keep me")
	writeFile(t, filepath.Join(root, "dst", "a.txt"), "blocker")

	_, result, err := eng.Move(CopyRequest{
		Sources: []string{"a.txt"},
		Dest:    "dst",
	}, false)
	require.NoError(t, err)

	assert.Equal(t, 1, result.FailCount)

	// The errored source must not be deleted.
	data, err := os.ReadFile(filepath.Join(root, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(data))
}

func TestMoveSamePathIsNoop(t *testing.T) {
	root := t.TempDir()
	eng, _ := newTestEngine(t, root)

	writeFile(t, filepath.Join(root, "dst", "a.txt"), "stay")

	_, result, err := eng.Move(CopyRequest{
		Sources: []string{"dst/a.txt"},
		Dest:    "dst",
	}, false)
	require.NoError(t, err)

	assert.Equal(t, 1, result.SuccessCount)
	assert.Contains(t, result.Results[0].Message, "same")

	data, err := os.ReadFile(filepath.Join(root, "dst", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "stay", string(data))
}

func TestDeleteFiles(t *testing.T) {
	root := t.TempDir()
	eng, _ := newTestEngine(t, root)

	writeFile(t, filepath.Join(root, "a.txt"), "x")
	writeFile(t, filepath.Join(root, "b.txt"), "y")

	_, result, err := eng.Delete([]string{"a.txt", "b.txt"}, false)
	require.NoError(t, err)

	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 0, result.FailCount)

	_, err = os.Stat(filepath.Join(root, "a.txt"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(root, "b.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestDeleteDirectoryTree(t *testing.T) {
	root := t.TempDir()
	eng, _ := newTestEngine(t, root)

	writeFile(t, filepath.Join(root, "tree", "a.txt"), "a")
	writeFile(t, filepath.Join(root, "tree", "sub", "deep", "b.txt"), "b")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "tree", "empty"), 0o755))

	_, result, err := eng.Delete([]string{"tree"}, false)
	require.NoError(t, err)

	assert.Equal(t, 1, result.SuccessCount)

	_, err = os.Stat(filepath.Join(root, "tree"))
	assert.True(t, os.IsNotExist(err))
}

func TestDeleteMissingPath(t *testing.T) {
	root := t.TempDir()
	eng, _ := newTestEngine(t, root)

	_, result, err := eng.Delete([]string{"ghost.txt"}, false)
	require.NoError(t, err)

	assert.Equal(t, 1, result.FailCount)
	assert.Equal(t, "file not found", result.Results[0].Message)
}

func TestDeleteUsesTrasher(t *testing.T) {
	root := t.TempDir()
	eng, _ := newTestEngine(t, root)

	trashed := &recordingTrasher{}
	eng.trasher = trashed

	writeFile(t, filepath.Join(root, "a.txt"), "x")

	_, result, err := eng.Delete([]string{"a.txt"}, false)
	require.NoError(t, err)

	assert.Equal(t, 1, result.SuccessCount)
	require.Len(t, trashed.paths, 1)
	assert.Equal(t, filepath.Join(root, "a.txt"), trashed.paths[0])
}

// recordingTrasher removes the path directly and records it.
type recordingTrasher struct {
	paths []string
}

func (r *recordingTrasher) Trash(path string) error {
	r.paths = append(r.paths, path)
	return os.RemoveAll(path)
}

func TestCancelledTaskLeavesFilesAlone(t *testing.T) {
	root := t.TempDir()
	eng, manager := newTestEngine(t, root)

	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		writeFile(t, filepath.Join(root, name), "x")
	}

	tk := manager.Create(3)
	tk.SetRunning()
	require.True(t, tk.Cancel())

	st := newRunStats()
	scan := func(push func(workItem) bool) {
		for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
			push(workItem{op: opDeleteFile, src: filepath.Join(root, name), root: name, direct: true})
		}
	}

	eng.runPipeline(tk, st, scan)
	result := eng.finish(tk, st, []string{"a.txt", "b.txt", "c.txt"}, "moved to trash")

	assert.Equal(t, task.StatusCancelled, tk.Snapshot().Status)
	require.NotNil(t, result)

	// Workers drained the queue without acting.
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		_, err := os.Stat(filepath.Join(root, name))
		assert.NoError(t, err, name)
	}
}

func TestScannerPanicFailsTask(t *testing.T) {
	root := t.TempDir()
	eng, manager := newTestEngine(t, root)

	tk := manager.Create(1)
	tk.SetRunning()

	st := newRunStats()
	eng.runPipeline(tk, st, func(push func(workItem) bool) {
		panic("boom")
	})

	_ = eng.finish(tk, st, []string{"a"}, "copied")

	snap := tk.Snapshot()
	assert.Equal(t, task.StatusError, snap.Status)
	assert.Contains(t, snap.ErrorMessage, "boom")
}

func TestSortDeepestFirst(t *testing.T) {
	sep := string(pathSeparator)
	dirs := []string{
		filepath.Join("a"),
		filepath.Join("a", "b", "c"),
		filepath.Join("a", "b"),
		filepath.Join("a", "b", "d"),
	}

	sortDeepestFirst(dirs)

	assert.Equal(t, []string{
		"a" + sep + "b" + sep + "c",
		"a" + sep + "b" + sep + "d",
		"a" + sep + "b",
		"a",
	}, dirs)
}

func TestParseBandwidthRate(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"", 0, false},
		{"0", 0, false},
		{"1MB/s", 1000 * 1000, false},
		{"1MiB/s", 1024 * 1024, false},
		{"500KB", 500 * 1000, false},
		{"  10MB/s  ", 10 * 1000 * 1000, false},
		{"fast", 0, true},
	}

	for _, tt := range tests {
		got, err := parseBandwidthRate(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}

		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestBandwidthLimiterNilSafe(t *testing.T) {
	limiter, err := newBandwidthLimiter("")
	require.NoError(t, err)
	require.Nil(t, limiter)

	// A nil limiter passes readers through untouched.
	var r io.Reader = os.Stdin
	assert.Equal(t, r, limiter.reader(r))
}
