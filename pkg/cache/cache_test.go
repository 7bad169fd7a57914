package cache_test

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/glorpus-work/wheelhouse/pkg/cache"
	"github.com/glorpus-work/wheelhouse/pkg/fslock"
	"github.com/glorpus-work/wheelhouse/pkg/hashing"
	"github.com/glorpus-work/wheelhouse/pkg/install"
	"github.com/glorpus-work/wheelhouse/pkg/install/mocks"
	"github.com/glorpus-work/wheelhouse/pkg/python"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func buildWheel(t *testing.T, files map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "example-1.0-py3-none-any.whl")
	f, err := os.Create(path)
	require.NoError(t, err)

	w := zip.NewWriter(f)
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		entry, err := w.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(files[name]))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
	return path
}

func exampleDist(t *testing.T) *mocks.MockDistribution {
	t.Helper()
	ctrl := gomock.NewController(t)
	dist := mocks.NewMockDistribution(ctrl)
	dist.EXPECT().ProjectName().Return("example").AnyTimes()
	dist.EXPECT().Version().Return("1.0").AnyTimes()
	dist.EXPECT().MetadataDir().Return("example-1.0.dist-info").AnyTimes()
	dist.EXPECT().DataDir().Return("example-1.0.data").AnyTimes()
	dist.EXPECT().RootIsPurelib().Return(true).AnyTimes()
	dist.EXPECT().EntryPoints().Return([]install.EntryPoint{{Name: "launch", Object: "example:main"}}).AnyTimes()
	return dist
}

func exampleWheel(t *testing.T) string {
	t.Helper()
	return buildWheel(t, map[string]string{
		"example/__init__.py":                    "def main():\n    return 0\n",
		"example-1.0.dist-info/WHEEL":            "Wheel-Version: 1.0\nRoot-Is-Purelib: true\n",
		"example-1.0.dist-info/entry_points.txt": "[console_scripts]\nlaunch = example:main\n",
		"example-1.0.data/scripts/tool":          "#!python\nprint('tool')\n",
	})
}

func TestInstalledChrootIsContentKeyedAndPopulatedOnce(t *testing.T) {
	wheelPath := exampleWheel(t)
	dist := exampleDist(t)
	manager := cache.NewManagerAt(t.TempDir(), fslock.StyleBSD)

	installed, err := manager.InstalledChroot(context.Background(), dist, wheelPath)
	require.NoError(t, err)

	// The slot is keyed by the wheel's content fingerprint.
	fingerprint, err := hashing.FileHashHex(wheelPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(installed.PrefixDir, filepath.Join(manager.Directory(), fingerprint)))

	assert.FileExists(t, filepath.Join(installed.PrefixDir, "example", "__init__.py"))
	assert.NotEmpty(t, installed.ScriptPath("tool"))

	// A second call short-circuits on the finalized slot.
	marker := filepath.Join(installed.PrefixDir, "marker")
	require.NoError(t, os.WriteFile(marker, []byte("x"), 0o644))

	again, err := manager.InstalledChroot(context.Background(), dist, wheelPath)
	require.NoError(t, err)
	assert.Equal(t, installed.PrefixDir, again.PrefixDir)
	assert.Equal(t, installed.Fingerprint, again.Fingerprint)
	assert.FileExists(t, marker)
}

func TestReinstallFlatFromCache(t *testing.T) {
	wheelPath := exampleWheel(t)
	dist := exampleDist(t)
	manager := cache.NewManagerAt(t.TempDir(), fslock.StyleBSD)

	installed, err := manager.InstalledChroot(context.Background(), dist, wheelPath)
	require.NoError(t, err)

	target := t.TempDir()
	require.NoError(t, manager.ReinstallFlat(context.Background(), dist, installed, target))

	assert.FileExists(t, filepath.Join(target, "example", "__init__.py"))
	assert.FileExists(t, filepath.Join(target, "bin", "tool"))
	assert.FileExists(t, filepath.Join(target, "bin", "launch"))
	assert.FileExists(t, filepath.Join(target, "example-1.0.dist-info", "RECORD"))

	// The cache chroot is untouched by the re-materialization.
	assert.FileExists(t, filepath.Join(installed.PrefixDir, "example-1.0.data", "scripts", "tool"))
}

func TestReinstallVenvFromCache(t *testing.T) {
	wheelPath := exampleWheel(t)
	dist := exampleDist(t)
	manager := cache.NewManagerAt(t.TempDir(), fslock.StyleBSD)

	installed, err := manager.InstalledChroot(context.Background(), dist, wheelPath)
	require.NoError(t, err)

	venvDir := t.TempDir()
	sitePackages := filepath.Join(venvDir, "lib", "python3.11", "site-packages")
	interp, err := python.NewInterpreter(
		filepath.Join(venvDir, "bin", "python3"), "3.11.4", true, venvDir,
		map[string]string{
			python.SchemePurelib: sitePackages,
			python.SchemePlatlib: sitePackages,
			python.SchemeScripts: filepath.Join(venvDir, "bin"),
			python.SchemeData:    venvDir,
		})
	require.NoError(t, err)
	venv := &python.VirtualEnv{Dir: venvDir, SitePackages: sitePackages, Interpreter: interp}

	require.NoError(t, manager.ReinstallVenv(context.Background(), dist, installed, venv))

	assert.FileExists(t, filepath.Join(sitePackages, "example", "__init__.py"))
	assert.FileExists(t, filepath.Join(sitePackages, "example-1.0.dist-info", "RECORD"))

	// Scripts target the venv's interpreter.
	tool, err := os.ReadFile(filepath.Join(venvDir, "bin", "tool"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(tool), "#!"+interp.Binary))
}
