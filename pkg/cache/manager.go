// Package cache manages the shared on-disk installed-wheel cache: one
// content-keyed, atomically published chroot per wheel, populated at most
// once across all racing processes.
package cache

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/glorpus-work/wheelhouse/pkg/atomicdir"
	"github.com/glorpus-work/wheelhouse/pkg/config"
	"github.com/glorpus-work/wheelhouse/pkg/errors"
	"github.com/glorpus-work/wheelhouse/pkg/fslock"
	"github.com/glorpus-work/wheelhouse/pkg/hashing"
	"github.com/glorpus-work/wheelhouse/pkg/install"
	"github.com/glorpus-work/wheelhouse/pkg/layout"
	"github.com/glorpus-work/wheelhouse/pkg/provenance"
	"github.com/glorpus-work/wheelhouse/pkg/python"
)

// Manager materializes wheels into the cache and re-materializes the cached
// chroots into new targets.
type Manager struct {
	directory          string
	lockStyle          fslock.Style
	opts               install.Options
	tolerateCollisions bool
}

// NewManager creates a cache manager from the application configuration.
func NewManager(cfg *config.Config) *Manager {
	return &Manager{
		directory:          cfg.InstalledWheelsDir(),
		lockStyle:          cfg.LockStyle(),
		opts:               cfg.InstallOptions(),
		tolerateCollisions: cfg.Settings.TolerateCollisions,
	}
}

// NewManagerAt creates a cache manager rooted at an explicit directory with
// default install options.
func NewManagerAt(directory string, style fslock.Style) *Manager {
	return &Manager{
		directory: directory,
		lockStyle: style,
		opts:      install.DefaultOptions(),
	}
}

// Directory returns the cache root holding installed wheel chroots.
func (m *Manager) Directory() string {
	return m.directory
}

// slotDir keys a wheel's cache slot by its content fingerprint so distinct
// builds of the same wheel name never share a slot.
func (m *Manager) slotDir(wheelPath, fingerprint string) string {
	name := strings.TrimSuffix(filepath.Base(wheelPath), ".whl")
	return filepath.Join(m.directory, fingerprint, name)
}

// InstalledChroot returns the finalized cache chroot for the wheel at
// wheelPath, installing it under the exclusive slot guard on first use. The
// exclusive guard is mandatory here: readers may compile the chroot's
// sources to companion bytecode files while a populate is in flight.
func (m *Manager) InstalledChroot(ctx context.Context, dist install.Distribution, wheelPath string) (*layout.Layout, error) {
	fingerprint, err := hashing.FileHashHex(wheelPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fingerprint wheel %s", wheelPath)
	}

	slot := m.slotDir(wheelPath, fingerprint)
	_, err = atomicdir.WithExclusive(slot, m.lockStyle, "", func(workDir string) error {
		_, err := layout.InstallChroot(ctx, dist, install.NewWheelArchive(wheelPath), workDir, m.opts.Compile)
		return err
	})
	if err != nil {
		return nil, err
	}

	installed, err := layout.Load(slot)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCacheMiss, "finalized slot %s has no loadable layout: %v", slot, err)
	}
	return installed, nil
}

// ReinstallFlat re-materializes a cached chroot into a flat target directory,
// auditing every placed file for content collisions.
func (m *Manager) ReinstallFlat(ctx context.Context, dist install.Distribution, installed *layout.Layout, targetDir string) error {
	prov := provenance.New(targetDir)
	for cp, err := range installed.ReinstallFlat(ctx, dist, targetDir, m.opts) {
		if err != nil {
			return err
		}
		prov.Record(cp.Source, cp.Dest)
	}
	return prov.CheckCollisions(m.tolerateCollisions, installed.PrefixDir)
}

// ReinstallVenv re-materializes a cached chroot into a virtual environment,
// auditing every placed file for content collisions.
func (m *Manager) ReinstallVenv(ctx context.Context, dist install.Distribution, installed *layout.Layout, venv *python.VirtualEnv) error {
	prov := provenance.New(venv.SitePackages)
	for cp, err := range installed.ReinstallVenv(ctx, dist, venv, m.opts) {
		if err != nil {
			return err
		}
		prov.Record(cp.Source, cp.Dest)
	}
	return prov.CheckCollisions(m.tolerateCollisions, installed.PrefixDir)
}
