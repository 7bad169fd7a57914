package layout

import (
	"context"

	"github.com/glorpus-work/wheelhouse/pkg/install"
)

// InstallChroot installs a wheel payload into a durable chroot at destination
// and saves its layout sidecar. The install is not finalized: the chroot
// keeps its data dir pristine so it can be re-spread into other targets
// later, and no RECORD is left behind to go stale.
func InstallChroot(ctx context.Context, dist install.Distribution, payload install.Payload, destination string, compile bool) (*Layout, error) {
	paths, err := install.ChrootPaths(dist, destination)
	if err != nil {
		return nil, err
	}

	opts := install.DefaultOptions()
	opts.Compile = compile
	opts.Finalize = false

	recording, err := install.Install(ctx, dist, payload, paths, opts)
	if err != nil {
		return nil, err
	}
	return Save(paths.ExtractDir, recording.Record.RelPath(), recording.DataRelPath())
}
