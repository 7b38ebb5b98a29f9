// Package integrity provides the verification primitives the bulk engine
// relies on before destroying a source: streaming checksums, directory stat
// aggregation, and copy verification.
package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
)

// checksumBufSize is the read buffer for streaming checksums (64 KiB).
const checksumBufSize = 64 * 1024

// FileChecksum computes the SHA-256 digest of the file at path, reading in
// 64 KiB chunks. Deterministic and side-effect-free.
func FileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("checksum %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, checksumBufSize)

	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("checksum %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// DirStats walks dir and returns the regular-file count and aggregate byte
// size. Unreadable subtrees contribute zero and are silently skipped; the
// caller reports per-root outcomes separately.
func DirStats(dir string) (files int, bytes int64) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}

			return nil
		}

		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				files++
				bytes += info.Size()
			}
		}

		return nil
	})

	return files, bytes
}

// Verify checks that dst is a faithful copy of src. For files: dst must
// exist, sizes must match, and digests must match when useChecksum is set.
// For directories: file counts and aggregate sizes must match, and with
// useChecksum every source file's digest must match the destination file at
// the same relative path. On failure the caller rolls back dst.
func Verify(src, dst string, useChecksum bool) (bool, string) {
	srcInfo, err := os.Lstat(src)
	if err != nil {
		return false, fmt.Sprintf("source unreadable: %v", err)
	}

	dstInfo, err := os.Lstat(dst)
	if err != nil {
		return false, "destination does not exist"
	}

	if srcInfo.IsDir() {
		if !dstInfo.IsDir() {
			return false, "destination is not a directory"
		}

		return verifyDir(src, dst, useChecksum)
	}

	if srcInfo.Size() != dstInfo.Size() {
		return false, fmt.Sprintf("size mismatch (source %s, destination %s)",
			humanize.IBytes(uint64(srcInfo.Size())), humanize.IBytes(uint64(dstInfo.Size())))
	}

	if useChecksum {
		if ok, reason := checksumsMatch(src, dst); !ok {
			return false, reason
		}
	}

	return true, ""
}

func verifyDir(src, dst string, useChecksum bool) (bool, string) {
	srcCount, srcBytes := DirStats(src)
	dstCount, dstBytes := DirStats(dst)

	if srcCount != dstCount {
		return false, fmt.Sprintf("file count mismatch (source %d, destination %d)", srcCount, dstCount)
	}

	if srcBytes != dstBytes {
		return false, fmt.Sprintf("total size mismatch (source %s, destination %s)",
			humanize.IBytes(uint64(srcBytes)), humanize.IBytes(uint64(dstBytes)))
	}

	if !useChecksum {
		return true, ""
	}

	ok := true
	reason := ""

	_ = filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return nil
		}

		dstFile := filepath.Join(dst, rel)
		if _, err := os.Lstat(dstFile); err != nil {
			ok, reason = false, fmt.Sprintf("missing file: %s", rel)
			return fs.SkipAll
		}

		if match, r := checksumsMatch(path, dstFile); !match {
			ok, reason = false, fmt.Sprintf("%s: %s", rel, r)
			return fs.SkipAll
		}

		return nil
	})

	return ok, reason
}

func checksumsMatch(src, dst string) (bool, string) {
	srcSum, err := FileChecksum(src)
	if err != nil {
		return false, fmt.Sprintf("source checksum failed: %v", err)
	}

	dstSum, err := FileChecksum(dst)
	if err != nil {
		return false, fmt.Sprintf("destination checksum failed: %v", err)
	}

	if srcSum != dstSum {
		return false, "checksum mismatch"
	}

	return true, ""
}
