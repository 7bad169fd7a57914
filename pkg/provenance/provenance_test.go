package provenance_test

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/glorpus-work/wheelhouse/pkg/provenance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFileSourceLazyOpen(t *testing.T) {
	tempDir := t.TempDir()
	path := writeFile(t, tempDir, "a.txt", "content")

	src := provenance.File(path)
	assert.Equal(t, path, src.Display)

	r, err := src.Open()
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "content", string(data))
}

func TestArchiveEntrySource(t *testing.T) {
	tempDir := t.TempDir()
	zipPath := filepath.Join(tempDir, "dist.zip")

	zf, err := os.Create(zipPath)
	require.NoError(t, err)
	zw := zip.NewWriter(zf)
	w, err := zw.Create("pkg/mod.py")
	require.NoError(t, err)
	_, err = w.Write([]byte("x = 1\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, zf.Close())

	src := provenance.ArchiveEntry(context.Background(), zipPath, "pkg/mod.py")
	assert.Equal(t, zipPath+":pkg/mod.py", src.Display)

	r, err := src.Open()
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "x = 1\n", string(data))

	fp1, err := src.Fingerprint(nil)
	require.NoError(t, err)
	fp2, err := provenance.File(writeFile(t, tempDir, "same.py", "x = 1\n")).Fingerprint(nil)
	require.NoError(t, err)
	assert.Equal(t, fp1, fp2, "fingerprints are content-based regardless of source kind")
}

func TestCheckCollisionsDiffering(t *testing.T) {
	tempDir := t.TempDir()
	one := writeFile(t, tempDir, "one.py", "one")
	two := writeFile(t, tempDir, "two.py", "two")

	prov := provenance.New("/dst")
	prov.Record(provenance.File(one), "/dst/mod.py")
	prov.Record(provenance.File(two), "/dst/mod.py")

	err := prov.CheckCollisions(false, "example-1.0")
	require.Error(t, err)

	var collisionErr *provenance.CollisionError
	require.ErrorAs(t, err, &collisionErr)
	require.Len(t, collisionErr.Collisions, 1)
	assert.Equal(t, "/dst/mod.py", collisionErr.Collisions[0].Dest)
	assert.Len(t, collisionErr.Collisions[0].Fingerprints, 2)
	assert.Contains(t, err.Error(), "example-1.0")
	assert.Contains(t, err.Error(), one)
	assert.Contains(t, err.Error(), two)
}

func TestCheckCollisionsIdenticalContent(t *testing.T) {
	tempDir := t.TempDir()
	one := writeFile(t, tempDir, "one.py", "same")
	two := writeFile(t, tempDir, "two.py", "same")

	prov := provenance.New("/dst")
	prov.Record(provenance.File(one), "/dst/mod.py")
	prov.Record(provenance.File(two), "/dst/mod.py")

	assert.NoError(t, prov.CheckCollisions(false, ""))
}

func TestCheckCollisionsSingleSources(t *testing.T) {
	tempDir := t.TempDir()
	one := writeFile(t, tempDir, "one.py", "one")

	prov := provenance.New("/dst")
	prov.Record(provenance.File(one), "/dst/a.py")
	prov.Record(provenance.File(one), "/dst/b.py")

	assert.NoError(t, prov.CheckCollisions(false, ""))
}

func TestCheckCollisionsDowngradedToWarning(t *testing.T) {
	tempDir := t.TempDir()
	one := writeFile(t, tempDir, "one.py", "one")
	two := writeFile(t, tempDir, "two.py", "two")

	prov := provenance.New("/dst")
	prov.Record(provenance.File(one), "/dst/mod.py")
	prov.Record(provenance.File(two), "/dst/mod.py")

	assert.NoError(t, prov.CheckCollisions(true, ""))
}
