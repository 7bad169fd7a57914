package install

import (
	"path/filepath"
	"strings"

	"github.com/glorpus-work/wheelhouse/pkg/provenance"
	"github.com/glorpus-work/wheelhouse/pkg/record"
)

// Copy pairs a contributing source with the absolute destination it was
// placed at.
type Copy struct {
	Source provenance.Source
	Dest   string
}

// Recording is the outcome of one install: the RECORD plus every (source,
// destination) copy for collision auditing.
type Recording struct {
	Record *record.Record
	Copies []Copy
}

// DataRelPath returns the wheel data dir name implied by the RECORD's
// metadata dir.
func (r *Recording) DataRelPath() string {
	metadataDir := filepath.Dir(r.Record.RelPath())
	return strings.TrimSuffix(metadataDir, record.MetadataDirSuffix) + record.DataDirSuffix
}

// Recorder accumulates installed files and copies during an install.
type Recorder struct {
	base          string
	recordRelPath string
	files         []record.InstalledFile
	copies        []Copy
}

// NewRecorder creates a Recorder for files landing under base whose RECORD
// will live at recordRelPath.
func NewRecorder(base, recordRelPath string) *Recorder {
	return &Recorder{base: base, recordRelPath: recordRelPath}
}

// RecordFile hashes and records the installed file at path, which may be
// absolute or base-relative. Bytecode cache files and a pre-existing RECORD
// are skipped, reported by an empty returned path.
func (r *Recorder) RecordFile(path string) (string, error) {
	if record.IsPycPath(path) {
		return "", nil
	}

	relPath := path
	absPath := path
	if filepath.IsAbs(path) {
		rel, err := filepath.Rel(r.base, path)
		if err != nil {
			return "", err
		}
		relPath = rel
	} else {
		absPath = filepath.Join(r.base, path)
	}
	if filepath.ToSlash(relPath) == filepath.ToSlash(r.recordRelPath) {
		return "", nil
	}

	entry, err := record.NewInstalledFile(absPath, r.base)
	if err != nil {
		return "", err
	}
	r.files = append(r.files, entry)
	return absPath, nil
}

// RecordCopy records the installed file at dest and notes source as its
// contributor.
func (r *Recorder) RecordCopy(source provenance.Source, dest string) error {
	absPath, err := r.RecordFile(dest)
	if err != nil {
		return err
	}
	if absPath != "" {
		r.copies = append(r.copies, Copy{Source: source, Dest: absPath})
	}
	return nil
}

// RecordSource notes source as a logical contributor of dest without
// re-recording the file itself.
func (r *Recorder) RecordSource(source provenance.Source, dest string) {
	r.copies = append(r.copies, Copy{Source: source, Dest: dest})
}

// PythonFiles returns the absolute paths of all recorded .py files.
func (r *Recorder) PythonFiles() []string {
	var paths []string
	for _, file := range r.files {
		if strings.HasSuffix(file.Path, ".py") {
			paths = append(paths, filepath.Join(r.base, filepath.FromSlash(file.Path)))
		}
	}
	return paths
}

// Recording seals the accumulated state into a Recording.
func (r *Recorder) Recording() (*Recording, error) {
	rec, err := record.New(r.base, r.recordRelPath, r.files)
	if err != nil {
		return nil, err
	}
	return &Recording{Record: rec, Copies: r.copies}, nil
}
