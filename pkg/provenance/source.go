// Package provenance tracks which sources contributed each installed file and
// detects content collisions between competing sources for one destination.
package provenance

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	iofs "io/fs"
	"os"

	"github.com/glorpus-work/wheelhouse/pkg/hashing"
	"github.com/mholt/archives"
)

// Source is a capability pair: a human-readable label plus a function
// producing a fresh readable stream on demand. Content is never read eagerly;
// Fingerprint is only invoked when a collision is suspected since it requires
// a full content read.
type Source struct {
	Display string
	open    func() (io.ReadCloser, error)
}

// NewSource creates a Source from a label and a stream opener.
func NewSource(display string, open func() (io.ReadCloser, error)) Source {
	return Source{Display: display, open: open}
}

// File creates a Source reading a plain file.
func File(path string) Source {
	return Source{
		Display: path,
		open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
}

// archiveEntryReader closes the backing archive filesystem along with the
// entry (important on Windows).
type archiveEntryReader struct {
	io.ReadCloser
	fsys iofs.FS
}

func (r *archiveEntryReader) Close() error {
	err := r.ReadCloser.Close()
	if closer, ok := r.fsys.(io.Closer); ok {
		if closeErr := closer.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}

// ArchiveEntry creates a Source reading one member of an archive without
// extracting the whole archive.
func ArchiveEntry(ctx context.Context, archivePath, entryName string) Source {
	return Source{
		Display: fmt.Sprintf("%s:%s", archivePath, entryName),
		open: func() (io.ReadCloser, error) {
			fsys, err := archives.FileSystem(ctx, archivePath, nil)
			if err != nil {
				return nil, fmt.Errorf("failed to open archive %s: %w", archivePath, err)
			}
			entry, err := fsys.Open(entryName)
			if err != nil {
				if closer, ok := fsys.(io.Closer); ok {
					_ = closer.Close()
				}
				return nil, fmt.Errorf("failed to open %s in %s: %w", entryName, archivePath, err)
			}
			return &archiveEntryReader{ReadCloser: entry, fsys: fsys}, nil
		},
	}
}

// Open returns a fresh stream over the source's content.
func (s Source) Open() (io.ReadCloser, error) {
	return s.open()
}

// Fingerprint streams the source's full content through a digest and returns
// the hex form. newHash defaults to sha1, which is plenty for collision
// comparison.
func (s Source) Fingerprint(newHash func() hash.Hash) (string, error) {
	if newHash == nil {
		newHash = sha1.New
	}
	r, err := s.Open()
	if err != nil {
		return "", err
	}
	defer r.Close()

	digest := newHash()
	if err := hashing.UpdateHash(r, digest); err != nil {
		return "", fmt.Errorf("failed to fingerprint %s: %w", s.Display, err)
	}
	return hex.EncodeToString(digest.Sum(nil)), nil
}
