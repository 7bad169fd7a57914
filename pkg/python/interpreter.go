// Package python models the external interpreter abstraction the installer
// targets: a concrete interpreter binary, its version, its installation
// scheme paths and whether it lives in a virtual environment.
package python

import (
	"fmt"
	"path/filepath"

	goversion "github.com/hashicorp/go-version"
)

// Install scheme path categories.
const (
	SchemePurelib = "purelib"
	SchemePlatlib = "platlib"
	SchemeInclude = "include"
	SchemeScripts = "scripts"
	SchemeData    = "data"
)

// Interpreter describes one Python interpreter installation.
type Interpreter struct {
	// Binary is the absolute path of the interpreter executable.
	Binary string
	// Version is the interpreter version.
	Version *goversion.Version
	// Prefix is the interpreter's installation prefix.
	Prefix string
	// Venv reports whether the interpreter belongs to a virtual environment.
	Venv bool
	// SchemePaths maps install scheme categories (purelib, platlib, include,
	// scripts, data) to their absolute directories.
	SchemePaths map[string]string
}

// NewInterpreter creates an Interpreter, parsing version (e.g. "3.11.4").
func NewInterpreter(binary, version string, venv bool, prefix string, schemePaths map[string]string) (*Interpreter, error) {
	parsed, err := goversion.NewVersion(version)
	if err != nil {
		return nil, fmt.Errorf("invalid interpreter version %q for %s: %w", version, binary, err)
	}
	return &Interpreter{
		Binary:      binary,
		Version:     parsed,
		Prefix:      prefix,
		Venv:        venv,
		SchemePaths: schemePaths,
	}, nil
}

// SchemePath returns the scheme directory for the given category.
func (i *Interpreter) SchemePath(category string) (string, error) {
	path, ok := i.SchemePaths[category]
	if !ok {
		return "", fmt.Errorf("interpreter %s has no %q scheme path", i.Binary, category)
	}
	return path, nil
}

// VersionTag returns the "pythonX.Y" tag for this interpreter, the form used
// in installation-scheme path segments.
func (i *Interpreter) VersionTag() string {
	segments := i.Version.Segments()
	return fmt.Sprintf("python%d.%d", segments[0], segments[1])
}

// SiteHeadersPath returns the venv headers directory for a project, matching
// the layout pip concocts since the standard venv install scheme has no
// usable headers path.
func (i *Interpreter) SiteHeadersPath(projectName string) string {
	return filepath.Join(i.Prefix, "include", "site", i.VersionTag(), projectName)
}

// VirtualEnv couples a virtual environment directory with its interpreter.
type VirtualEnv struct {
	// Dir is the venv root.
	Dir string
	// SitePackages is the venv's site-packages directory.
	SitePackages string
	// Interpreter is the venv's interpreter.
	Interpreter *Interpreter
}
