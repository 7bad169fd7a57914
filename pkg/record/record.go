// Package record implements the per-package RECORD ledger of an installed
// wheel: one CSV row per installed file carrying its path relative to the
// install root, a sha256 content hash and its size.
package record

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/csv"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/glorpus-work/wheelhouse/pkg/fsutil"
	"github.com/glorpus-work/wheelhouse/pkg/hashing"
)

const (
	// MetadataDirSuffix is the reserved suffix identifying a wheel's
	// package-metadata directory.
	MetadataDirSuffix = ".dist-info"
	// DataDirSuffix is the reserved suffix identifying a wheel's auxiliary
	// data directory.
	DataDirSuffix = ".data"

	// RequestedMarker records that an install was directly requested rather
	// than pulled in as a dependency.
	RequestedMarker = "REQUESTED"

	// SizeUnknown marks an InstalledFile whose size column is empty.
	SizeUnknown int64 = -1
)

// Common record errors.
var (
	ErrRecordPath = fmt.Errorf("RECORD relative path must include its containing .dist-info directory")
)

// HashOf encodes a finalized digest in the RECORD fingerprint form
// "<algorithm>=<urlsafe-base64-nopad-digest>".
func HashOf(digest hash.Hash, algorithm string) string {
	return fmt.Sprintf("%s=%s", algorithm, base64.RawURLEncoding.EncodeToString(digest.Sum(nil)))
}

// InstalledFile is the record of a single installed file.
type InstalledFile struct {
	Path string // relative to the install root
	Hash string // "<algorithm>=<urlsafe-base64-nopad-digest>", empty when unrecorded
	Size int64  // bytes, SizeUnknown when unrecorded
}

// NewInstalledFile hashes the file at path (sha256) and returns its record
// entry with the path relativized to base.
func NewInstalledFile(path, base string) (InstalledFile, error) {
	digest := sha256.New()
	if err := hashing.FileHash(path, digest); err != nil {
		return InstalledFile{}, fmt.Errorf("failed to hash %s: %w", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return InstalledFile{}, err
	}
	relPath, err := filepath.Rel(base, path)
	if err != nil {
		return InstalledFile{}, err
	}
	return InstalledFile{
		Path: filepath.ToSlash(relPath),
		Hash: HashOf(digest, "sha256"),
		Size: info.Size(),
	}, nil
}

// IsPycPath reports whether path is a compiled-bytecode cache file or sits in
// a bytecode cache directory. Such files are always excluded from the RECORD.
func IsPycPath(path string) bool {
	if strings.HasSuffix(path, ".pyc") || strings.HasSuffix(path, ".pyo") {
		return true
	}
	for _, component := range strings.Split(filepath.ToSlash(path), "/") {
		if component == "__pycache__" {
			return true
		}
	}
	return false
}

// Record is the RECORD of one installed wheel: the install root, the RECORD
// file's own relative path and the ordered set of installed files.
type Record struct {
	base    string
	relPath string
	files   []InstalledFile
}

// New creates a Record rooted at base. relPath is the RECORD file's path
// relative to base; its parent directory name must carry the .dist-info
// suffix.
func New(base, relPath string, files []InstalledFile) (*Record, error) {
	if !strings.HasSuffix(filepath.Dir(relPath), MetadataDirSuffix) {
		return nil, fmt.Errorf("%w: given %s", ErrRecordPath, relPath)
	}
	return &Record{base: base, relPath: relPath, files: files}, nil
}

// Base returns the install root the recorded paths are relative to.
func (r *Record) Base() string { return r.base }

// RelPath returns the RECORD file's path relative to the install root.
func (r *Record) RelPath() string { return r.relPath }

// Files returns the recorded installed files.
func (r *Record) Files() []InstalledFile { return r.files }

// Write emits the RECORD CSV sorted by path. When requested is true an empty
// REQUESTED marker file is created beside it and recorded. A final
// self-referential row for the RECORD file itself is always appended with
// empty hash and size columns: a RECORD cannot meaningfully hash itself
// mid-write.
func (r *Record) Write(requested bool) error {
	files := make([]InstalledFile, len(r.files))
	copy(files, r.files)

	if requested {
		requestedPath := filepath.Join(r.base, filepath.Dir(r.relPath), RequestedMarker)
		if err := fsutil.Touch(requestedPath); err != nil {
			return fmt.Errorf("failed to create %s marker: %w", RequestedMarker, err)
		}
		entry, err := NewInstalledFile(requestedPath, r.base)
		if err != nil {
			return err
		}
		files = append(files, entry)
	}
	files = append(files, InstalledFile{Path: filepath.ToSlash(r.relPath), Size: SizeUnknown})

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	recordPath := filepath.Join(r.base, r.relPath)
	if err := fsutil.EnsureFileDir(recordPath); err != nil {
		return err
	}
	f, err := os.Create(recordPath)
	if err != nil {
		return fmt.Errorf("failed to create RECORD at %s: %w", recordPath, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for _, file := range files {
		size := ""
		if file.Size != SizeUnknown {
			size = strconv.FormatInt(file.Size, 10)
		}
		if err := w.Write([]string{file.Path, file.Hash, size}); err != nil {
			return fmt.Errorf("failed to write RECORD row for %s: %w", file.Path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write RECORD at %s: %w", recordPath, err)
	}
	return f.Close()
}

// Read parses RECORD rows from r. exclude, when non-nil, drops rows whose
// path it reports true for.
func Read(r io.Reader, exclude func(path string) bool) ([]InstalledFile, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 3

	var files []InstalledFile
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse RECORD: %w", err)
		}
		if exclude != nil && exclude(row[0]) {
			continue
		}
		size := SizeUnknown
		if row[2] != "" {
			size, err = strconv.ParseInt(row[2], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid RECORD size for %s: %w", row[0], err)
			}
		}
		files = append(files, InstalledFile{Path: row[0], Hash: row[1], Size: size})
	}
	return files, nil
}
