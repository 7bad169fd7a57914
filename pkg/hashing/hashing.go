// Package hashing provides the incremental content-hashing utilities used for
// cache keys and collision detection: stream, file and whole-directory-tree
// variants.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// UpdateHash streams r into digest.
func UpdateHash(r io.Reader, digest hash.Hash) error {
	_, err := io.Copy(digest, r)
	return err
}

// FileHash streams the contents of path into digest.
func FileHash(path string, digest hash.Hash) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return UpdateHash(f, digest)
}

// FileHashHex returns the lowercase hex sha256 digest of the file at path.
func FileHashHex(path string) (string, error) {
	digest := sha256.New()
	if err := FileHash(path, digest); err != nil {
		return "", err
	}
	return hex.EncodeToString(digest.Sum(nil)), nil
}

// DirHash returns a deterministic lowercase hex sha256 fingerprint of the
// directory tree rooted at dir. The fingerprint covers the slash-normalized
// relative path and contents of every regular file, visited in sorted order,
// so it is stable across machines and walk implementations.
func DirHash(dir string) (string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to walk %s: %w", dir, err)
	}
	sort.Strings(files)

	digest := sha256.New()
	for _, path := range files {
		relPath, err := filepath.Rel(dir, path)
		if err != nil {
			return "", err
		}
		io.WriteString(digest, filepath.ToSlash(relPath))
		digest.Write([]byte{0})
		if err := FileHash(path, digest); err != nil {
			return "", err
		}
		digest.Write([]byte{0})
	}
	return hex.EncodeToString(digest.Sum(nil)), nil
}

// DirSize returns the total size in bytes of all regular files under dir.
func DirSize(dir string) (int64, error) {
	var size int64
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			size += info.Size()
		}
		return nil
	})
	return size, err
}
