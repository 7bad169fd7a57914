package record

import (
	"fmt"
	"path/filepath"
	"strings"
)

// PythonVerPlaceholder is the path segment old chroot layouts used in place
// of the concrete interpreter version directory (e.g. "python3.11").
const PythonVerPlaceholder = "pythonX.Y"

// FindAndReplacePathComponents replaces components of path that are exactly
// find with replace.
func FindAndReplacePathComponents(path, find, replace string) (string, error) {
	if find == "" || replace == "" {
		return "", fmt.Errorf("both find and replace must be non-empty strings, given find=%q replace=%q", find, replace)
	}
	if path == "" {
		return path, nil
	}
	components := strings.Split(filepath.ToSlash(path), "/")
	for i, component := range components {
		if component == find {
			components[i] = replace
		}
	}
	return filepath.FromSlash(strings.Join(components, "/")), nil
}

// DenormalizePath rewrites any pythonX.Y placeholder components of path to
// the given concrete version tag. Old installed chroot layouts normalized
// interpreter-version path segments in their stash; this is retained to read
// those caches back.
func DenormalizePath(path, pythonVersionTag string) string {
	denormalized, err := FindAndReplacePathComponents(path, PythonVerPlaceholder, pythonVersionTag)
	if err != nil {
		return path
	}
	return denormalized
}
