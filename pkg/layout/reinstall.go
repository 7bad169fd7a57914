package layout

import (
	"context"
	"errors"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/glorpus-work/wheelhouse/pkg/fsutil"
	"github.com/glorpus-work/wheelhouse/pkg/install"
	"github.com/glorpus-work/wheelhouse/pkg/provenance"
	"github.com/glorpus-work/wheelhouse/pkg/python"
	"github.com/glorpus-work/wheelhouse/pkg/record"
)

// yieldFunc receives each (source, destination) copy of a re-materialization,
// or a terminal error.
type yieldFunc = func(install.Copy, error) bool

// ReinstallFlat re-materializes the chroot into a flat target directory.
//
// The returned sequence is lazy and single-pass: it must be drained to
// completion to drive the installation, and a partially consumed sequence
// leaves an inconsistent RECORD at the target. A non-nil error terminates the
// sequence.
//
// Re-installing a file that already exists in the target is suppressed, not
// failed; callers detect overlap by auditing the yielded copies through
// Provenance.
func (l *Layout) ReinstallFlat(ctx context.Context, dist install.Distribution, targetDir string, opts install.Options) iter.Seq2[install.Copy, error] {
	return func(yield yieldFunc) {
		if l.Version >= 1 {
			opts.Compile = false
			recording, err := install.InstallFlat(ctx, dist, l.Payload(), targetDir, opts)
			if err != nil {
				yield(install.Copy{}, err)
				return
			}
			yieldCopies(recording, yield)
			return
		}
		l.legacyReinstall(targetDir, targetDir, "", opts.Symlink, yield)
	}
}

// ReinstallVenv re-materializes the chroot into a virtual environment. The
// sequence contract matches ReinstallFlat.
func (l *Layout) ReinstallVenv(ctx context.Context, dist install.Distribution, venv *python.VirtualEnv, opts install.Options) iter.Seq2[install.Copy, error] {
	return func(yield yieldFunc) {
		if l.Version >= 1 {
			opts.Compile = false
			recording, err := install.InstallInterpreter(ctx, dist, l.Payload(), venv.Interpreter, opts)
			if err != nil {
				yield(install.Copy{}, err)
				return
			}
			yieldCopies(recording, yield)
			return
		}

		sitePackages := venv.SitePackages
		if opts.RelExtraPath != "" {
			sitePackages = filepath.Join(sitePackages, opts.RelExtraPath)
		}
		l.legacyReinstall(venv.Dir, sitePackages, venv.Interpreter.VersionTag(), opts.Symlink, yield)
	}
}

func yieldCopies(recording *install.Recording, yield yieldFunc) {
	for _, cp := range recording.Copies {
		if !yield(cp, nil) {
			return
		}
	}
}

// legacyReinstall re-materializes a version-0 chroot: the stash's staged
// files go to stashDest and the remaining top-level entries to sitePackages.
// A fresh RECORD is written at sitePackages once both walks complete.
func (l *Layout) legacyReinstall(stashDest, sitePackages, versionTag string, symlink bool, yield yieldFunc) {
	recorder := install.NewRecorder(sitePackages, l.RecordRelPath)
	emit := func(src, dst string) bool {
		if _, err := recorder.RecordFile(dst); err != nil {
			yield(install.Copy{}, err)
			return false
		}
		return yield(install.Copy{Source: provenance.File(src), Dest: dst}, nil)
	}

	link := true
	if !l.reinstallStash(stashDest, versionTag, &link, emit, yield) {
		return
	}
	if !l.reinstallSitePackages(sitePackages, symlink, &link, emit, yield) {
		return
	}

	recording, err := recorder.Recording()
	if err != nil {
		yield(install.Copy{}, err)
		return
	}
	if err := recording.Record.Write(true); err != nil {
		yield(install.Copy{}, err)
	}
}

func fail(yield yieldFunc, err error) bool {
	yield(install.Copy{}, err)
	return false
}

// reinstallStash hardlinks every staged file from the stash into destDir,
// falling back permanently to copying after the first cross-device failure.
// versionTag, when non-empty, denormalizes legacy pythonX.Y placeholder path
// segments to the target interpreter's version.
func (l *Layout) reinstallStash(destDir, versionTag string, link *bool, emit func(src, dst string) bool, yield yieldFunc) bool {
	stashAbs := filepath.Join(l.PrefixDir, l.StashDir)
	if _, err := os.Stat(stashAbs); os.IsNotExist(err) {
		return true
	}

	drained := true
	err := filepath.WalkDir(stashAbs, func(src string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		srcRelPath, err := filepath.Rel(stashAbs, src)
		if err != nil {
			return err
		}
		dst := filepath.Join(destDir, srcRelPath)
		if versionTag != "" {
			dst = record.DenormalizePath(dst, versionTag)
		}
		if err := fsutil.EnsureFileDir(dst); err != nil {
			return err
		}
		if err := linkOrCopy(src, dst, link); err != nil {
			return err
		}
		if !emit(src, dst) {
			drained = false
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return fail(yield, err)
	}
	return drained
}

// reinstallSitePackages places every remaining installed entry into
// sitePackages, per entry either symlinking, hardlinking or copying.
// Package-metadata directories are never symlinked; their contents are
// placed entry by entry instead.
func (l *Layout) reinstallSitePackages(sitePackages string, symlink bool, link *bool, emit func(src, dst string) bool, yield yieldFunc) bool {
	return l.walkReinstall(l.PrefixDir, sitePackages, true, symlink, link, emit, yield)
}

func (l *Layout) walkReinstall(srcDir, dstDir string, topLevel, symlink bool, link *bool, emit func(src, dst string) bool, yield yieldFunc) bool {
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return fail(yield, err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if topLevel && (name == l.StashDir || name == install.LayoutFile || record.IsPycPath(name)) {
			continue
		}
		src := filepath.Join(srcDir, name)
		dst := filepath.Join(dstDir, name)

		if symlink && !(entry.IsDir() && strings.HasSuffix(name, record.MetadataDirSuffix)) {
			if err := fsutil.EnsureFileDir(dst); err != nil {
				return fail(yield, err)
			}
			relSrc, err := filepath.Rel(filepath.Dir(dst), src)
			if err != nil {
				return fail(yield, err)
			}
			if err := os.Symlink(relSrc, dst); err != nil && !errors.Is(err, fs.ErrExist) {
				return fail(yield, err)
			}
			if !entry.IsDir() && !emit(src, dst) {
				return false
			}
			continue
		}

		if entry.IsDir() {
			if err := fsutil.EnsureDir(dst); err != nil {
				return fail(yield, err)
			}
			if !l.walkReinstall(src, dst, false, symlink, link, emit, yield) {
				return false
			}
			continue
		}

		if err := linkOrCopy(src, dst, link); err != nil {
			return fail(yield, err)
		}
		if !emit(src, dst) {
			return false
		}
	}
	return true
}

// linkOrCopy hardlinks src to dst, degrading permanently to copies once a
// cross-device link fails. An already existing destination is left alone.
// Symlinked sources are always copied, since hardlinking a symlink can leave
// the destination dangling if the link target later disappears.
func linkOrCopy(src, dst string, link *bool) error {
	if *link {
		info, err := os.Lstat(src)
		if err != nil {
			return err
		}
		if info.Mode()&os.ModeSymlink == 0 {
			err := os.Link(src, dst)
			if err == nil || errors.Is(err, fs.ErrExist) {
				return nil
			}
			if !fsutil.IsCrossDeviceError(err) {
				return err
			}
			*link = false
		}
	}
	return fsutil.CopyPreserve(src, dst)
}
