package fsutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/glorpus-work/wheelhouse/pkg/fsutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoveFile(t *testing.T) {
	tempDir := t.TempDir()
	src := filepath.Join(tempDir, "src.txt")
	dst := filepath.Join(tempDir, "sub", "dst.txt")

	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))
	require.NoError(t, fsutil.Move(src, dst))

	_, err := os.Stat(src)
	assert.True(t, os.IsNotExist(err), "source should be gone after move")

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestMoveDirectory(t *testing.T) {
	tempDir := t.TempDir()
	src := filepath.Join(tempDir, "srcdir")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "nested", "f.txt"), []byte("x"), 0o644))

	dst := filepath.Join(tempDir, "dstdir")
	require.NoError(t, fsutil.Move(src, dst))

	data, err := os.ReadFile(filepath.Join(dst, "nested", "f.txt"))
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}

func TestMoveEmptyPaths(t *testing.T) {
	require.Error(t, fsutil.Move("", "dst"))
	require.Error(t, fsutil.Move("src", ""))
}

func TestCopyPreservesMode(t *testing.T) {
	tempDir := t.TempDir()
	src := filepath.Join(tempDir, "script")
	require.NoError(t, os.WriteFile(src, []byte("#!/bin/sh\n"), 0o755))

	dst := filepath.Join(tempDir, "copy")
	require.NoError(t, fsutil.CopyPreserve(src, dst))

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}

func TestTouch(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "a", "b", "REQUESTED")

	require.NoError(t, fsutil.Touch(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())

	// Touching an existing file keeps its contents.
	require.NoError(t, os.WriteFile(path, []byte("keep"), 0o644))
	require.NoError(t, fsutil.Touch(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "keep", string(data))
}

func TestChmodPlusX(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "script")
	require.NoError(t, os.WriteFile(path, []byte("#!python\n"), 0o644))

	require.NoError(t, fsutil.ChmodPlusX(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}

func TestIsCrossDeviceError(t *testing.T) {
	assert.False(t, fsutil.IsCrossDeviceError(nil))
	assert.False(t, fsutil.IsCrossDeviceError(os.ErrNotExist))
}
