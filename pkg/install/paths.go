package install

import (
	"fmt"
	"path/filepath"

	"github.com/glorpus-work/wheelhouse/pkg/python"
)

const (
	// StashDir is the holding area inside an installed chroot preserving a
	// wheel's spread contents for later re-materialization.
	StashDir = ".stash"
	// LayoutFile is the sidecar document saved beside an installed chroot
	// describing its layout.
	LayoutFile = ".layout.json"
	// InstallerName is the single-line content of the INSTALLER marker.
	InstallerName = "wheelhouse"
)

// StashedScriptsDir returns the reified scripts directory for a stash. Old
// chroot layouts fixed this to the stash's bin subdir, so it stays pinned
// there for compatibility.
func StashedScriptsDir(stashDir string) string {
	return filepath.Join(stashDir, "bin")
}

// InstallPaths carries the per-category destination directories of one
// install.
type InstallPaths struct {
	// ExtractDir is the root the wheel's namespace is unpacked into.
	ExtractDir string
	Purelib    string
	Platlib    string
	Headers    string
	Scripts    string
	Data       string
}

// ChrootPaths builds InstallPaths targeting a bare chroot at destination: the
// data-dir categories stay inside the wheel's data dir and scripts are reified
// under the stash.
func ChrootPaths(dist Distribution, destination string) (InstallPaths, error) {
	installTo, err := filepath.Abs(destination)
	if err != nil {
		return InstallPaths{}, err
	}
	dataDir := filepath.Join(installTo, dist.DataDir())
	return InstallPaths{
		ExtractDir: installTo,
		Purelib:    filepath.Join(dataDir, "purelib"),
		Platlib:    filepath.Join(dataDir, "platlib"),
		Headers:    filepath.Join(dataDir, "headers"),
		Scripts:    StashedScriptsDir(filepath.Join(installTo, StashDir)),
		Data:       filepath.Join(dataDir, "data"),
	}, nil
}

// FlatPaths builds InstallPaths collapsing every category onto destination,
// with scripts reified under destination's bin subdir.
func FlatPaths(destination string) (InstallPaths, error) {
	installTo, err := filepath.Abs(destination)
	if err != nil {
		return InstallPaths{}, err
	}
	return InstallPaths{
		ExtractDir: installTo,
		Purelib:    installTo,
		Platlib:    installTo,
		Headers:    installTo,
		Scripts:    StashedScriptsDir(installTo),
		Data:       installTo,
	}, nil
}

// InterpreterPaths builds InstallPaths targeting a concrete interpreter's
// installation scheme. relExtraPath, when non-empty, nests the extraction root
// below the scheme's library directory.
func InterpreterPaths(dist Distribution, interp *python.Interpreter, relExtraPath string) (InstallPaths, error) {
	purelib, err := interp.SchemePath(python.SchemePurelib)
	if err != nil {
		return InstallPaths{}, err
	}
	platlib, err := interp.SchemePath(python.SchemePlatlib)
	if err != nil {
		return InstallPaths{}, err
	}
	scripts, err := interp.SchemePath(python.SchemeScripts)
	if err != nil {
		return InstallPaths{}, err
	}
	data, err := interp.SchemePath(python.SchemeData)
	if err != nil {
		return InstallPaths{}, err
	}

	extractDir := platlib
	if dist.RootIsPurelib() {
		extractDir = purelib
	}
	if relExtraPath != "" {
		extractDir = filepath.Join(extractDir, relExtraPath)
	}

	var headers string
	if interp.Venv {
		// The venv install scheme has no usable headers path; match the
		// location pip concocts under the venv prefix.
		headers = interp.SiteHeadersPath(dist.ProjectName())
	} else {
		headers, err = interp.SchemePath(python.SchemeInclude)
		if err != nil {
			return InstallPaths{}, err
		}
	}

	return InstallPaths{
		ExtractDir: extractDir,
		Purelib:    purelib,
		Platlib:    platlib,
		Headers:    headers,
		Scripts:    scripts,
		Data:       data,
	}, nil
}

// ByCategory returns the destination directory for a wheel data category.
func (p InstallPaths) ByCategory(category string) (string, error) {
	switch category {
	case "purelib":
		return p.Purelib, nil
	case "platlib":
		return p.Platlib, nil
	case "headers":
		return p.Headers, nil
	case "scripts":
		return p.Scripts, nil
	case "data":
		return p.Data, nil
	}
	return "", fmt.Errorf("not a known install path: %s", category)
}
