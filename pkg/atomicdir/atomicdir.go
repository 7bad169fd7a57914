// Package atomicdir provides the atomic, lock-guarded cache-slot primitive: a
// target directory is populated in a sibling work directory and published with
// a single atomic rename, so no reader ever observes a partial write and at
// most one concurrent populator does the work.
package atomicdir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/glorpus-work/wheelhouse/internal/logger"
	"github.com/glorpus-work/wheelhouse/pkg/fslock"
	"github.com/glorpus-work/wheelhouse/pkg/fsutil"
	"github.com/google/uuid"
)

// PopulateFunc fills the yielded work directory with the slot's contents. A
// returned error aborts publication: the target is left untouched and the
// work directory is removed.
type PopulateFunc func(workDir string) error

// Dir is a target/work-directory pairing. The work directory is a sibling of
// the target (same filesystem, required for an atomic rename) with a name
// unique to this construction.
type Dir struct {
	targetDir string
	workDir   string
}

// New creates a Dir for targetDir with a fresh unique work directory name.
func New(targetDir string) Dir {
	return Dir{
		targetDir: targetDir,
		workDir:   fmt.Sprintf("%s.%s.work", targetDir, uuid.NewString()),
	}
}

// TargetDir returns the directory this slot publishes to.
func (d Dir) TargetDir() string { return d.targetDir }

// WorkDir returns the private directory populated before publication.
func (d Dir) WorkDir() string { return d.workDir }

// IsFinalized reports whether the target has been published.
func (d Dir) IsFinalized() bool {
	_, err := os.Stat(d.targetDir)
	return err == nil
}

// Finalize atomically renames the work directory (or the source subpath of it,
// when non-empty) onto the target directory. Losing the publication race is
// not an error: an existing, non-empty target is left unchanged. The work
// directory is removed regardless of outcome.
func (d Dir) Finalize(source string) error {
	if d.IsFinalized() {
		return nil
	}
	defer d.Cleanup()

	from := d.workDir
	if source != "" {
		from = filepath.Join(d.workDir, source)
	}
	// The work directory is arranged as a sibling of the target, so the
	// rename stays on one filesystem and is atomic.
	if err := os.Rename(from, d.targetDir); err != nil {
		if errors.Is(err, os.ErrExist) || errors.Is(err, syscall.ENOTEMPTY) || errors.Is(err, syscall.EEXIST) {
			return nil
		}
		return fmt.Errorf("failed to publish %s: %w", d.targetDir, err)
	}
	return nil
}

// Cleanup removes any residual work directory.
func (d Dir) Cleanup() {
	_ = os.RemoveAll(d.workDir)
}

func lockfilePath(targetDir string) string {
	head, tail := filepath.Split(filepath.Clean(targetDir))
	if tail == "" {
		tail = "here"
	}
	return filepath.Join(head, fmt.Sprintf(".%s.atomic_directory.lck", tail))
}

// WithExclusive guards population of targetDir with double-checked locking:
// the fast finalized check runs without any lock, then an exclusive blocking
// file lock is taken on a lockfile named after the target's basename in its
// parent directory, and the check is repeated under the lock. populate runs
// only if the target is still unpopulated; on success the slot is published
// atomically (source, when non-empty, selects a subpath of the work directory
// to publish). The lock is released and the work directory removed on every
// exit path.
//
// The exclusive variant is mandatory whenever a target's contents may be read
// non-atomically by other processes while being replaced. Blocking is
// indefinite: population for one cache key is strictly serialized.
func WithExclusive(targetDir string, style fslock.Style, source string, populate PopulateFunc) (Dir, error) {
	dir := New(targetDir)
	if dir.IsFinalized() {
		// Our work is already done for us so exit early.
		return dir, nil
	}

	if head := filepath.Dir(targetDir); head != "" {
		if err := fsutil.EnsureDir(head); err != nil {
			return dir, fmt.Errorf("failed to create parent of %s: %w", targetDir, err)
		}
	}
	lock, err := fslock.Acquire(lockfilePath(targetDir), style)
	if err != nil {
		return dir, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warnf("Failed to release lock for %s: %v", targetDir, err)
		}
	}()

	if dir.IsFinalized() {
		// We lost the double-checked locking race and our work was done for
		// us by the race winner.
		return dir, nil
	}

	if err := makeWorkDir(dir); err != nil {
		return dir, err
	}
	defer dir.Cleanup()

	if err := populate(dir.WorkDir()); err != nil {
		return dir, err
	}
	return dir, dir.Finalize(source)
}

// WithNonExclusive populates targetDir without any inter-process lock: racing
// populators each do the work independently and the last successful rename
// wins. Only valid when the payload is immutable or idempotent across all
// populators.
func WithNonExclusive(targetDir string, source string, populate PopulateFunc) (Dir, error) {
	dir := New(targetDir)
	if dir.IsFinalized() {
		return dir, nil
	}

	if err := makeWorkDir(dir); err != nil {
		return dir, err
	}
	defer dir.Cleanup()

	if err := populate(dir.WorkDir()); err != nil {
		return dir, err
	}
	return dir, dir.Finalize(source)
}

// makeWorkDir establishes the work directory. Work directory names are unique
// per construction, so an existing directory means either the locking
// guarantees failed or a prior holder of a reused name crashed; rather than
// abort, the directory is forcibly cleared and reused.
func makeWorkDir(dir Dir) error {
	if err := fsutil.EnsureDir(filepath.Dir(dir.WorkDir())); err != nil {
		return fmt.Errorf("failed to create parent of work directory %s: %w", dir.WorkDir(), err)
	}
	err := os.Mkdir(dir.WorkDir(), fsutil.DirModeDefault)
	if err == nil {
		return nil
	}
	if !errors.Is(err, os.ErrExist) {
		return fmt.Errorf("failed to establish work directory %s: %w", dir.WorkDir(), err)
	}
	logger.Warnf(
		"[pid:%d] Found a stale work directory at %s; forcibly re-creating it.",
		os.Getpid(), dir.WorkDir(),
	)
	if err := fsutil.CleanDir(dir.WorkDir()); err != nil {
		return fmt.Errorf("failed to re-create work directory %s: %w", dir.WorkDir(), err)
	}
	return nil
}
