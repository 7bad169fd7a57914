// Package install implements the wheel install algorithm: unpack a wheel
// payload into an extraction root, spread its data-category contents to their
// per-category destinations, rewrite template-script shebangs, synthesize
// entry-point launchers and emit the RECORD.
package install

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/glorpus-work/wheelhouse/internal/logger"
	"github.com/glorpus-work/wheelhouse/pkg/fsutil"
	"github.com/glorpus-work/wheelhouse/pkg/provenance"
	"github.com/glorpus-work/wheelhouse/pkg/python"
)

// Options threads every install-time policy toggle through one value.
type Options struct {
	// Symlink re-links chroot payload entries instead of copying them.
	Symlink bool
	// TargetPython is the interpreter path rewritten scripts and launchers
	// target. When empty, scripts get the sh redirector shebang.
	TargetPython string
	// HermeticScripts forces the "s" and "E" isolation switches onto script
	// shebangs.
	HermeticScripts bool
	// Compile pre-compiles installed .py files with the target interpreter.
	Compile bool
	// Finalize writes the INSTALLER marker and RECORD and removes the spread
	// data dir. When false any partial RECORD on disk is deleted instead.
	Finalize bool
	// Requested creates the REQUESTED marker recording a direct install.
	Requested bool
	// RelExtraPath nests the extraction root below the interpreter scheme's
	// library directory.
	RelExtraPath string
}

// DefaultOptions returns the standard install policy: hermetic scripts, full
// finalization, directly requested, no bytecode compilation.
func DefaultOptions() Options {
	return Options{
		HermeticScripts: true,
		Finalize:        true,
		Requested:       true,
	}
}

// InstallFlat installs a wheel payload into a flat destination directory.
func InstallFlat(ctx context.Context, dist Distribution, payload Payload, destination string, opts Options) (*Recording, error) {
	paths, err := FlatPaths(destination)
	if err != nil {
		return nil, err
	}
	return Install(ctx, dist, payload, paths, opts)
}

// InstallInterpreter installs a wheel payload into an interpreter's
// installation scheme. Scripts target the interpreter binary unless opts
// names a different target python.
func InstallInterpreter(ctx context.Context, dist Distribution, payload Payload, interp *python.Interpreter, opts Options) (*Recording, error) {
	paths, err := InterpreterPaths(dist, interp, opts.RelExtraPath)
	if err != nil {
		return nil, err
	}
	if opts.TargetPython == "" {
		opts.TargetPython = interp.Binary
	}
	return Install(ctx, dist, payload, paths, opts)
}

// Install runs the full unpack and spread algorithm for one wheel payload
// against the given InstallPaths and returns the resulting Recording.
func Install(ctx context.Context, dist Distribution, payload Payload, paths InstallPaths, opts Options) (*Recording, error) {
	recorder := NewRecorder(paths.ExtractDir, payload.recordRelPath(dist))
	dataSources := make(map[string]provenance.Source)

	if err := payload.unpack(ctx, dist, paths, opts, recorder, dataSources); err != nil {
		return nil, err
	}

	var dataScripts map[string]provenance.Source
	if dataRel := payload.dataRelPath(dist); dataRel != "" {
		dataAbs := filepath.Join(paths.ExtractDir, filepath.FromSlash(dataRel))
		if info, err := os.Stat(dataAbs); err == nil && info.IsDir() {
			var spreadErr error
			dataScripts, spreadErr = spread(dataAbs, payload.Location(), paths, opts, recorder, dataSources)
			if opts.Finalize {
				if err := os.RemoveAll(dataAbs); err != nil && spreadErr == nil {
					spreadErr = err
				}
			}
			if spreadErr != nil {
				return nil, spreadErr
			}
		}
	}

	if opts.Compile {
		compileBytecode(ctx, payload.Location(), paths.ExtractDir, opts.TargetPython, recorder)
	}

	if err := synthesizeEntryPoints(ctx, dist, payload, paths, opts, recorder, dataScripts); err != nil {
		return nil, err
	}

	if !opts.Finalize {
		recording, err := recorder.Recording()
		if err != nil {
			return nil, err
		}
		recordPath := filepath.Join(paths.ExtractDir, filepath.FromSlash(recording.Record.RelPath()))
		if err := os.Remove(recordPath); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		return recording, nil
	}

	installerPath := filepath.Join(paths.ExtractDir, filepath.FromSlash(dist.MetadataDir()), "INSTALLER")
	if err := fsutil.EnsureFileDir(installerPath); err != nil {
		return nil, err
	}
	if err := os.WriteFile(installerPath, []byte(InstallerName+"\n"), fsutil.FileModeDefault); err != nil {
		return nil, fmt.Errorf("failed to write INSTALLER marker: %w", err)
	}
	if _, err := recorder.RecordFile(installerPath); err != nil {
		return nil, err
	}

	recording, err := recorder.Recording()
	if err != nil {
		return nil, err
	}
	if err := recording.Record.Write(opts.Requested); err != nil {
		return nil, err
	}
	return recording, nil
}

// spread moves each data category's staged contents to its InstallPaths
// destination, rewriting template scripts along the way. Returns the spread
// script destinations with their originating sources so entry-point synthesis
// can detect same-named data scripts.
func spread(dataAbs, wheel string, paths InstallPaths, opts Options, rec *Recorder, dataSources map[string]provenance.Source) (map[string]provenance.Source, error) {
	dataScripts := make(map[string]provenance.Source)

	entries, err := os.ReadDir(dataAbs)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		entryPath := filepath.Join(dataAbs, entry.Name())
		destDir, err := paths.ByCategory(entry.Name())
		if err != nil {
			return nil, fmt.Errorf("%w: the wheel at %s cannot be installed: %v", ErrInvalidWheel, wheel, err)
		}

		var processor *scriptProcessor
		if entry.Name() == "scripts" {
			processor = &scriptProcessor{hermetic: opts.HermeticScripts, targetPython: opts.TargetPython}
		}
		if entryPath == destDir && processor == nil {
			continue
		}

		type stagedScript struct {
			src      string
			dst      string
			switches string
		}
		var scripts []stagedScript

		err = filepath.WalkDir(entryPath, func(srcPath string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			relPath, err := filepath.Rel(entryPath, srcPath)
			if err != nil {
				return err
			}
			dst := filepath.Join(destDir, relPath)
			if entryPath != destDir {
				if err := fsutil.CopyPreserve(srcPath, dst); err != nil {
					return err
				}
			}
			if processor != nil {
				isTemplate, switches, err := processor.classify(dst)
				if err != nil {
					return err
				}
				if isTemplate {
					scripts = append(scripts, stagedScript{src: srcPath, dst: dst, switches: switches})
					return nil
				}
			}
			return rec.RecordCopy(dataSources[srcPath], dst)
		})
		if err != nil {
			return nil, err
		}

		for _, script := range scripts {
			if err := processor.process(script.dst, script.switches); err != nil {
				return nil, err
			}
			source := dataSources[script.src]
			dataScripts[script.dst] = source
			if err := rec.RecordCopy(source, script.dst); err != nil {
				return nil, err
			}
		}
	}
	return dataScripts, nil
}

const launcherBody = `%s
# -*- coding: utf-8 -*-
import sys

import %s

if __name__ == '__main__':
    sys.exit(%s.%s())
`

// synthesizeEntryPoints writes launcher scripts for the distribution's
// console and GUI entry points. A launcher whose name is already claimed by a
// spread data script is suppressed, but the entry-points metadata is still
// recorded as a logical source of that destination for collision auditing.
func synthesizeEntryPoints(ctx context.Context, dist Distribution, payload Payload, paths InstallPaths, opts Options, rec *Recorder, dataScripts map[string]provenance.Source) error {
	for _, entryPoint := range dist.EntryPoints() {
		module, function, found := strings.Cut(entryPoint.Object, ":")
		if !found {
			return fmt.Errorf("%w: %q defined in wheel %s must separate the module name to import "+
				"from the function name to execute with a ':', given %q",
				ErrEntryPoint, entryPoint.Name, payload.Location(), entryPoint.Object)
		}

		scriptDst := filepath.Join(paths.Scripts, entryPoint.Name)
		entryPointsSource := payload.entryPointsSource(ctx, dist)

		if dataScript, ok := dataScripts[scriptDst]; ok {
			logger.Debugf("The %s %s distribution provides script %s via both %s and entry_points.txt. "+
				"Using %s instead of generating a console script from entry_points.txt metadata.",
				dist.ProjectName(), dist.Version(), entryPoint.Name, dataScript.Display, dataScript.Display)
			rec.RecordSource(entryPointsSource, scriptDst)
			continue
		}

		args := python.ScriptArgs("", opts.HermeticScripts)
		var shebang string
		if opts.TargetPython != "" {
			shebang = python.Shebang(opts.TargetPython, args)
		} else {
			shebang = python.RedirectorShebang(args)
		}

		if err := fsutil.EnsureFileDir(scriptDst); err != nil {
			return err
		}
		body := fmt.Sprintf(launcherBody, shebang, module, module, function)
		if err := os.WriteFile(scriptDst, []byte(body), fsutil.FileModeExec); err != nil {
			return fmt.Errorf("failed to write entry point script %s: %w", scriptDst, err)
		}
		if err := rec.RecordCopy(entryPointsSource, scriptDst); err != nil {
			return err
		}
	}
	return nil
}

// compileBytecode pre-compiles every recorded .py file with the target
// interpreter. Compilation failure is reported as a warning and never blocks
// the install. Bytecode cache files stay out of the RECORD.
func compileBytecode(ctx context.Context, wheel, extractDir, targetPython string, rec *Recorder) {
	pyFiles := rec.PythonFiles()
	if len(pyFiles) == 0 {
		return
	}
	if targetPython == "" {
		logger.Debugf("No target python for install of %s to %s; skipping bytecode compilation.", wheel, extractDir)
		return
	}
	args := append([]string{"-sE", "-m", "compileall"}, pyFiles...)
	output, err := exec.CommandContext(ctx, targetPython, args...).CombinedOutput()
	if err != nil {
		logger.Warnf("Failed to compile some .py files for install of %s to %s:\n%s", wheel, extractDir, output)
	}
}
