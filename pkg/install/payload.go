package install

import (
	"context"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/glorpus-work/wheelhouse/pkg/fsutil"
	"github.com/glorpus-work/wheelhouse/pkg/provenance"
	"github.com/mholt/archives"
)

// Payload is the physical form a wheel's files arrive in: a .whl archive or a
// previously installed chroot being re-installed. Each form knows how to
// unpack itself into an extraction root.
type Payload interface {
	// Location returns the payload's on-disk path for error context.
	Location() string

	recordRelPath(dist Distribution) string
	dataRelPath(dist Distribution) string
	unpack(ctx context.Context, dist Distribution, paths InstallPaths, opts Options, rec *Recorder, dataSources map[string]provenance.Source) error
	entryPointsSource(ctx context.Context, dist Distribution) provenance.Source
}

// WheelArchive is a wheel payload backed by a .whl zip file.
type WheelArchive struct {
	path string
}

// NewWheelArchive creates a Payload reading the .whl file at path.
func NewWheelArchive(path string) *WheelArchive {
	return &WheelArchive{path: path}
}

// Location returns the .whl file path.
func (w *WheelArchive) Location() string { return w.path }

func (w *WheelArchive) recordRelPath(dist Distribution) string {
	return path.Join(dist.MetadataDir(), "RECORD")
}

func (w *WheelArchive) dataRelPath(dist Distribution) string {
	return dist.DataDir()
}

func (w *WheelArchive) entryPointsSource(ctx context.Context, dist Distribution) provenance.Source {
	return provenance.ArchiveEntry(ctx, w.path, path.Join(dist.MetadataDir(), "entry_points.txt"))
}

func (w *WheelArchive) unpack(ctx context.Context, dist Distribution, paths InstallPaths, _ Options, rec *Recorder, dataSources map[string]provenance.Source) error {
	fsys, err := archives.FileSystem(ctx, w.path, nil)
	if err != nil {
		return fmt.Errorf("failed to open wheel %s: %w", w.path, err)
	}
	defer func() {
		if closer, ok := fsys.(io.Closer); ok {
			_ = closer.Close()
		}
	}()

	dataRel := dist.DataDir()
	return iofs.WalkDir(fsys, ".", func(name string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		dst := filepath.Join(paths.ExtractDir, filepath.FromSlash(name))
		if err := extractEntry(fsys, name, d, dst); err != nil {
			return fmt.Errorf("failed to extract %s from %s: %w", name, w.path, err)
		}
		source := provenance.ArchiveEntry(ctx, w.path, name)
		if name == dataRel || strings.HasPrefix(name, dataRel+"/") {
			dataSources[dst] = source
			return nil
		}
		return rec.RecordCopy(source, dst)
	})
}

func extractEntry(fsys iofs.FS, name string, d iofs.DirEntry, dst string) error {
	src, err := fsys.Open(name)
	if err != nil {
		return err
	}
	defer src.Close()

	info, err := d.Info()
	if err != nil {
		return err
	}
	mode := info.Mode().Perm()
	if mode == 0 {
		mode = fsutil.FileModeDefault
	}

	if err := fsutil.EnsureFileDir(dst); err != nil {
		return err
	}
	out, err := fsutil.CreateFilePerm(dst, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return err
	}
	return out.Close()
}

// Chroot is a wheel payload backed by a previously installed chroot.
type Chroot struct {
	path           string
	stashDir       string
	recordRelpath  string
	dataDirRelpath string
}

// NewChroot creates a Payload re-installing the installed chroot at path.
// stashDir and recordRelpath come from the chroot's layout sidecar;
// dataDirRelpath may be empty when the chroot carries no data dir.
func NewChroot(path, stashDir, recordRelpath, dataDirRelpath string) *Chroot {
	return &Chroot{
		path:           path,
		stashDir:       stashDir,
		recordRelpath:  recordRelpath,
		dataDirRelpath: dataDirRelpath,
	}
}

// Location returns the chroot directory path.
func (c *Chroot) Location() string { return c.path }

func (c *Chroot) recordRelPath(Distribution) string { return c.recordRelpath }

func (c *Chroot) dataRelPath(Distribution) string { return c.dataDirRelpath }

func (c *Chroot) entryPointsSource(_ context.Context, dist Distribution) provenance.Source {
	return provenance.File(filepath.Join(c.path, filepath.FromSlash(dist.MetadataDir()), "entry_points.txt"))
}

func (c *Chroot) unpack(_ context.Context, _ Distribution, paths InstallPaths, opts Options, rec *Recorder, dataSources map[string]provenance.Source) error {
	exclude := map[string]bool{
		c.stashDir: true,
		LayoutFile: true,
	}

	if c.path != paths.ExtractDir {
		if err := placeTree(c.path, paths.ExtractDir, exclude, opts.Symlink); err != nil {
			return fmt.Errorf("failed to unpack chroot %s: %w", c.path, err)
		}
	}

	// The placement above may have been coarse-grained (top-level symlinks)
	// or skipped entirely for in-place installs; recording is always per
	// source file.
	var dataAbs string
	if c.dataDirRelpath != "" {
		dataAbs = filepath.Join(paths.ExtractDir, c.dataDirRelpath)
	}
	return filepath.WalkDir(c.path, func(srcPath string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		relPath, err := filepath.Rel(c.path, srcPath)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if relPath != "." && exclude[relPath] {
				return filepath.SkipDir
			}
			return nil
		}
		if exclude[relPath] {
			return nil
		}
		dst := filepath.Join(paths.ExtractDir, relPath)
		source := provenance.File(srcPath)
		if dataAbs != "" && (dst == dataAbs || strings.HasPrefix(dst, dataAbs+string(filepath.Separator))) {
			dataSources[dst] = source
			return nil
		}
		return rec.RecordCopy(source, dst)
	})
}

// placeTree places src's top-level entries into dst, either as relative
// symlinks or as full copies.
func placeTree(src, dst string, exclude map[string]bool, symlink bool) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	if err := fsutil.EnsureDir(dst); err != nil {
		return err
	}
	for _, entry := range entries {
		if exclude[entry.Name()] {
			continue
		}
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())
		if symlink {
			relSrc, err := filepath.Rel(dst, srcPath)
			if err != nil {
				return err
			}
			if err := os.Symlink(relSrc, dstPath); err != nil {
				return err
			}
		} else if entry.IsDir() {
			if err := fsutil.CopyTree(srcPath, dstPath); err != nil {
				return err
			}
		} else if err := fsutil.CopyPreserve(srcPath, dstPath); err != nil {
			return err
		}
	}
	return nil
}
