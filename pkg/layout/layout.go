// Package layout persists the descriptor of an installed wheel chroot and
// re-materializes the chroot into flat directories or virtual environments.
package layout

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/glorpus-work/wheelhouse/pkg/fsutil"
	"github.com/glorpus-work/wheelhouse/pkg/hashing"
	"github.com/glorpus-work/wheelhouse/pkg/install"
)

// CurrentVersion is the layout format version written by Save. Version 0
// chroots predate the stashed data-dir layout and take the legacy
// re-materialization path.
const CurrentVersion = 1

// LoadError indicates a directory did not hold a loadable installed wheel
// layout. Callers treat it as a cache miss.
type LoadError struct {
	LayoutFile string
	Reason     string
	Err        error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to load an installed wheel layout from %s: %v", e.LayoutFile, e.Err)
	}
	return fmt.Sprintf("failed to load an installed wheel layout from %s: %s", e.LayoutFile, e.Reason)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Layout describes one installed wheel chroot.
type Layout struct {
	// PrefixDir is the chroot's root directory.
	PrefixDir string
	// Version is the layout format version; 0 is the legacy layout.
	Version int
	// StashDir is the stash subdirectory name.
	StashDir string
	// RecordRelPath is the RECORD's path relative to PrefixDir.
	RecordRelPath string
	// Fingerprint is the whole-tree content fingerprint computed at save time.
	Fingerprint string
	// DataDir is the wheel data dir name, empty when the wheel had none.
	DataDir string
	// Size is the chroot's total size in bytes at save time.
	Size int64
}

type document struct {
	Version       int    `json:"version"`
	StashDir      string `json:"stash_dir"`
	RecordRelPath string `json:"record_relpath"`
	Fingerprint   string `json:"fingerprint,omitempty"`
	DataDir       string `json:"data_dir,omitempty"`
	Size          int64  `json:"size,omitempty"`
}

// File returns the path of the layout sidecar for a chroot.
func File(prefixDir string) string {
	return filepath.Join(prefixDir, install.LayoutFile)
}

// Save fingerprints the chroot at prefixDir and writes its layout sidecar.
// Fingerprinting a whole tree is expensive, so this happens exactly once, at
// install-finalize time.
func Save(prefixDir, recordRelPath, dataDir string) (*Layout, error) {
	layoutFile := File(prefixDir)
	// The sidecar must never contribute to its own fingerprint.
	if err := os.Remove(layoutFile); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	fingerprint, err := hashing.DirHash(prefixDir)
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint %s: %w", prefixDir, err)
	}
	size, err := hashing.DirSize(prefixDir)
	if err != nil {
		return nil, err
	}

	doc := document{
		Version:       CurrentVersion,
		StashDir:      install.StashDir,
		RecordRelPath: recordRelPath,
		Fingerprint:   fingerprint,
		DataDir:       dataDir,
		Size:          size,
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(layoutFile, data, fsutil.FileModeDefault); err != nil {
		return nil, fmt.Errorf("failed to save layout to %s: %w", layoutFile, err)
	}

	return &Layout{
		PrefixDir:     prefixDir,
		Version:       CurrentVersion,
		StashDir:      install.StashDir,
		RecordRelPath: recordRelPath,
		Fingerprint:   fingerprint,
		DataDir:       dataDir,
		Size:          size,
	}, nil
}

// Load reads the layout sidecar of the chroot at prefixDir. Load is strict: a
// missing sidecar, malformed JSON, or absent stash/record fields all produce
// a LoadError. A missing version field defaults to the legacy layout.
func Load(prefixDir string) (*Layout, error) {
	layoutFile := File(prefixDir)
	data, err := os.ReadFile(layoutFile)
	if err != nil {
		return nil, &LoadError{LayoutFile: layoutFile, Err: err}
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &LoadError{LayoutFile: layoutFile, Err: err}
	}
	if doc.StashDir == "" || doc.RecordRelPath == "" {
		return nil, &LoadError{
			LayoutFile: layoutFile,
			Reason:     fmt.Sprintf("must contain an object with both `stash_dir` and `record_relpath` attributes, found: %s", data),
		}
	}

	return &Layout{
		PrefixDir:     prefixDir,
		Version:       doc.Version,
		StashDir:      doc.StashDir,
		RecordRelPath: doc.RecordRelPath,
		Fingerprint:   doc.Fingerprint,
		DataDir:       doc.DataDir,
		Size:          doc.Size,
	}, nil
}

// MaybeLoad returns the chroot's layout, or nil when prefixDir does not hold
// a loadable one.
func MaybeLoad(prefixDir string) *Layout {
	layout, err := Load(prefixDir)
	if err != nil {
		return nil
	}
	return layout
}

// Payload returns the wheel payload re-installing this chroot.
func (l *Layout) Payload() install.Payload {
	return install.NewChroot(l.PrefixDir, l.StashDir, l.RecordRelPath, l.DataDir)
}

// StashedPath joins components below the chroot's stash.
func (l *Layout) StashedPath(components ...string) string {
	return filepath.Join(append([]string{l.PrefixDir, l.StashDir}, components...)...)
}

// SupportsRedirectorScripts reports whether the chroot's reified scripts
// carry the sh redirector shebang.
func (l *Layout) SupportsRedirectorScripts() bool {
	return l.Version >= 1
}

// ScriptPath returns the reified script of the given name, or "" when the
// chroot has no such executable script.
func (l *Layout) ScriptPath(name string) string {
	script := filepath.Join(install.StashedScriptsDir(l.StashedPath()), name)
	if isExecutableFile(script) {
		return script
	}
	return ""
}

// Scripts returns the chroot's reified executable scripts, sorted by path.
func (l *Layout) Scripts() ([]string, error) {
	scriptsDir := install.StashedScriptsDir(l.StashedPath())
	entries, err := os.ReadDir(scriptsDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var scripts []string
	for _, entry := range entries {
		script := filepath.Join(scriptsDir, entry.Name())
		if isExecutableFile(script) {
			scripts = append(scripts, script)
		}
	}
	sort.Strings(scripts)
	return scripts, nil
}

// Entry pairs an installed chroot path with its destination under a target.
type Entry struct {
	Src string
	Dst string
}

// TopLevel enumerates the chroot's top-level entries with their destinations
// under targetDir. Legacy chroots have no stash separation, so the whole
// prefix maps to the target.
func (l *Layout) TopLevel(targetDir string) ([]Entry, error) {
	if l.Version < 1 {
		return []Entry{{Src: l.PrefixDir, Dst: targetDir}}, nil
	}
	dirEntries, err := os.ReadDir(l.PrefixDir)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for _, entry := range dirEntries {
		if entry.Name() == l.StashDir {
			continue
		}
		entries = append(entries, Entry{
			Src: filepath.Join(l.PrefixDir, entry.Name()),
			Dst: filepath.Join(targetDir, entry.Name()),
		})
	}
	return entries, nil
}

// Files enumerates every installed file with its destination under targetDir.
func (l *Layout) Files(targetDir string) ([]Entry, error) {
	var entries []Entry
	err := filepath.WalkDir(l.PrefixDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		relPath, relErr := filepath.Rel(l.PrefixDir, path)
		if relErr != nil {
			return relErr
		}
		if d.IsDir() {
			if l.Version >= 1 && relPath == l.StashDir {
				return filepath.SkipDir
			}
			return nil
		}
		entries = append(entries, Entry{Src: path, Dst: filepath.Join(targetDir, relPath)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func isExecutableFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Mode()&0o111 != 0
}
