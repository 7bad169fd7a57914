package atomicdir_test

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/glorpus-work/wheelhouse/pkg/atomicdir"
	"github.com/glorpus-work/wheelhouse/pkg/fslock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func populateMarker(t *testing.T, content string) atomicdir.PopulateFunc {
	t.Helper()
	return func(workDir string) error {
		return os.WriteFile(filepath.Join(workDir, "marker"), []byte(content), 0o644)
	}
}

func TestPopulateOnce(t *testing.T) {
	target := filepath.Join(t.TempDir(), "slot")

	var calls int32
	populate := func(workDir string) error {
		atomic.AddInt32(&calls, 1)
		return populateMarker(t, "first")(workDir)
	}

	dir, err := atomicdir.WithExclusive(target, fslock.StylePOSIX, "", populate)
	require.NoError(t, err)
	assert.True(t, dir.IsFinalized())

	// The second call short-circuits on the finalized check.
	_, err = atomicdir.WithExclusive(target, fslock.StylePOSIX, "", populate)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	data, err := os.ReadFile(filepath.Join(target, "marker"))
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))
}

func TestConcurrentPopulators(t *testing.T) {
	target := filepath.Join(t.TempDir(), "slot")

	const populators = 8
	var calls int32
	var wg sync.WaitGroup
	errs := make([]error, populators)

	for i := 0; i < populators; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// BSD flocks conflict between descriptors within one process, so
			// goroutines model independent processes here.
			_, errs[i] = atomicdir.WithExclusive(target, fslock.StyleBSD, "", func(workDir string) error {
				atomic.AddInt32(&calls, 1)
				return os.WriteFile(filepath.Join(workDir, "marker"), []byte("winner"), 0o644)
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "populator %d", i)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "exactly one populator must run")

	data, err := os.ReadFile(filepath.Join(target, "marker"))
	require.NoError(t, err)
	assert.Equal(t, "winner", string(data))
}

func TestPopulateErrorLeavesNoTrace(t *testing.T) {
	parent := t.TempDir()
	target := filepath.Join(parent, "slot")

	boom := errors.New("boom")
	_, err := atomicdir.WithExclusive(target, fslock.StylePOSIX, "", func(string) error {
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, statErr := os.Stat(target)
	assert.True(t, os.IsNotExist(statErr), "target must not exist after a failed populate")

	entries, err := os.ReadDir(parent)
	require.NoError(t, err)
	for _, entry := range entries {
		assert.False(t, entry.IsDir(), "no residual work directory expected, found %s", entry.Name())
	}
}

func TestFinalizeSourceSubpath(t *testing.T) {
	target := filepath.Join(t.TempDir(), "slot")

	_, err := atomicdir.WithExclusive(target, fslock.StylePOSIX, "out", func(workDir string) error {
		if err := os.MkdirAll(filepath.Join(workDir, "out"), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(workDir, "out", "payload"), []byte("x"), 0o644); err != nil {
			return err
		}
		// Scratch content outside the published subpath is discarded.
		return os.WriteFile(filepath.Join(workDir, "scratch"), []byte("y"), 0o644)
	})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(target, "payload"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(target, "scratch"))
	assert.True(t, os.IsNotExist(err))
}

func TestNonExclusive(t *testing.T) {
	target := filepath.Join(t.TempDir(), "slot")

	dir, err := atomicdir.WithNonExclusive(target, "", populateMarker(t, "idempotent"))
	require.NoError(t, err)
	assert.True(t, dir.IsFinalized())

	var calls int32
	_, err = atomicdir.WithNonExclusive(target, "", func(string) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestFinalizeLosingRaceIsSwallowed(t *testing.T) {
	target := filepath.Join(t.TempDir(), "slot")

	dir := atomicdir.New(target)
	require.NoError(t, os.MkdirAll(dir.WorkDir(), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir.WorkDir(), "loser"), []byte("x"), 0o644))

	// Another populator wins the race before we finalize.
	require.NoError(t, os.MkdirAll(target, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(target, "winner"), []byte("y"), 0o644))

	require.NoError(t, dir.Finalize(""))

	_, err := os.Stat(filepath.Join(target, "winner"))
	assert.NoError(t, err, "race winner's contents must be preserved")
	_, err = os.Stat(dir.WorkDir())
	assert.True(t, os.IsNotExist(err), "work dir must be cleaned up")
}

func TestLockfilePlacement(t *testing.T) {
	parent := t.TempDir()
	target := filepath.Join(parent, "slot")

	_, err := atomicdir.WithExclusive(target, fslock.StylePOSIX, "", populateMarker(t, "z"))
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(parent, ".slot.atomic_directory.lck"))
	assert.NoError(t, err, "lockfile named from the target basename must sit in its parent")
}
