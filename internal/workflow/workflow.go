package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shinji-kodama/starsplit/internal/imaging"
	"github.com/shinji-kodama/starsplit/internal/model"
	"github.com/shinji-kodama/starsplit/internal/siril"
	"github.com/shinji-kodama/starsplit/internal/starnet"
)

// Session is the subset of siril.Session the workflow drives.
type Session interface {
	Open(ctx context.Context) error
	Exec(ctx context.Context, cmds ...siril.Command) error
	Close() error
}

// Options tunes a run.
type Options struct {
	// WorkDir is where the tools run and relative paths resolve.
	// Empty means the process working directory.
	WorkDir string

	// Naming controls derived artifact names.
	Naming model.NamingOptions

	// Stride is passed to StarNet++.
	Stride int

	// KeepTIFF keeps the 16-bit intermediate TIFF.
	KeepTIFF bool

	// StarsTIFF also exports the stars image as a 16-bit TIFF.
	StarsTIFF bool

	// Stats computes pixel statistics of both output FITS files.
	Stats bool
}

// Runner executes the star-split workflow.
type Runner struct {
	session Session
	starnet starnet.Runner
	opts    Options
	logger  *slog.Logger

	// now is replaced in tests.
	now func() time.Time
}

// New creates a Runner. The session must not be open yet; Run opens and
// closes it.
func New(session Session, remover starnet.Runner, opts Options, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Naming.FITSExt == "" {
		opts.Naming.FITSExt = model.DefaultFITSExt
	}
	return &Runner{
		session: session,
		starnet: remover,
		opts:    opts,
		logger:  logger,
		now:     time.Now,
	}
}

// Run processes source. The returned report is non-nil whenever the
// source passed validation, even if a later step failed, so callers can
// show what was produced.
func (r *Runner) Run(ctx context.Context, source string) (*Report, error) {
	artifacts, err := model.DeriveArtifacts(source, r.opts.Naming)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitUsage, "ABORTED: source file is not a FIT/FITS file", err)
	}

	workDir, err := r.workDir()
	if err != nil {
		return nil, err
	}

	report := &Report{
		Artifacts: artifacts,
		WorkDir:   workDir,
		StartedAt: r.now(),
	}
	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(workDir, p)
	}

	if _, err := os.Stat(resolve(artifacts.Source)); err != nil {
		return nil, model.WrapCLIError(model.ExitUsage,
			fmt.Sprintf("source file %q not found", artifacts.Source), err)
	}
	r.inspectSource(report, resolve(artifacts.Source))

	r.logger.Info("processing started",
		"at", report.StartedAt.Format(time.DateTime),
		"source", artifacts.Source,
		"workdir", workDir)

	if err := r.session.Open(ctx); err != nil {
		return report, err
	}
	defer func() {
		if cerr := r.session.Close(); cerr != nil {
			r.logger.Error("error terminating siril session", "error", cerr)
		}
	}()

	ext := r.opts.Naming.FITSExt

	err = r.phase(report, PhaseSetup, func() error {
		return r.session.Exec(ctx, siril.Cd(workDir), siril.SetExt(ext))
	})
	if err != nil {
		return report, err
	}

	// 32-bit FITS -> 16-bit TIFF with the same basename.
	err = r.phase(report, PhaseExport, func() error {
		return r.session.Exec(ctx,
			siril.Load(artifacts.Source),
			siril.Set16Bits(),
			siril.SaveTIF(artifacts.Base))
	})
	if err != nil {
		return report, err
	}

	if err := r.checkTIFF(report, resolve); err != nil {
		return report, err
	}

	err = r.phase(report, PhaseStarNet, func() error {
		return r.removeStars(ctx, report, workDir, resolve)
	})
	if err != nil {
		return report, err
	}

	// Starless TIFF -> 32-bit FITS. The explicit .tif avoids picking up a
	// starless FITS left by an earlier run.
	err = r.phase(report, PhaseStarless, func() error {
		return r.session.Exec(ctx,
			siril.Load(artifacts.StarlessTIFF),
			siril.Set32Bits(),
			siril.Fmul(1.0),
			siril.Save(artifacts.StarlessName))
	})
	if err != nil {
		return report, err
	}

	err = r.phase(report, PhaseStars, func() error {
		cmds := []siril.Command{
			siril.Load(artifacts.Source),
			siril.Isub(artifacts.StarlessName),
			siril.Save(artifacts.StarsName),
		}
		if r.opts.StarsTIFF {
			cmds = append(cmds, siril.Set16Bits(), siril.SaveTIF(artifacts.StarsName))
		}
		return r.session.Exec(ctx, cmds...)
	})
	if err != nil {
		return report, err
	}
	report.StarsTIFF = r.opts.StarsTIFF
	if !r.opts.StarsTIFF {
		r.logger.Info("stars TIFF not exported; rerun with --stars-tiff to get one for external editing",
			"stars", artifacts.StarsFITS)
	}

	for _, out := range []string{artifacts.StarlessFITS, artifacts.StarsFITS} {
		if _, err := os.Stat(resolve(out)); err != nil {
			return report, model.WrapCLIError(model.ExitSirilFailed,
				fmt.Sprintf("siril did not produce %s", out), err)
		}
	}

	_ = r.phase(report, PhaseCleanup, func() error {
		r.cleanup(report, resolve)
		return nil
	})

	if r.opts.Stats {
		r.computeStats(report, resolve)
	}

	report.FinishedAt = r.now()
	r.logger.Info("processing completed",
		"at", report.FinishedAt.Format(time.DateTime),
		"starless", artifacts.StarlessFITS,
		"stars", artifacts.StarsFITS,
		"elapsed", report.Duration().Round(time.Millisecond))

	return report, nil
}

func (r *Runner) workDir() (string, error) {
	dir := r.opts.WorkDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to determine working directory: %w", err)
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve working directory %q: %w", dir, err)
	}
	return abs, nil
}

// inspectSource records the source BITPIX. The input is expected to be a
// 32-bit FITS, but Siril converts anything it can load, so a mismatch is
// only a warning.
func (r *Runner) inspectSource(report *Report, path string) {
	info, err := imaging.InspectFITS(path)
	if err != nil {
		r.logger.Warn("could not read source FITS header", "source", path, "error", err)
		return
	}
	report.SourceBitpix = info.Bitpix
	if !info.Is32Bit() {
		r.logger.Warn("source is not a 32-bit FITS; continuing", "bitpix", info.Bitpix)
	}
}

// checkTIFF gates the StarNet++ input: no spaces in the path, and a
// grayscale-16 or RGB layout.
func (r *Runner) checkTIFF(report *Report, resolve func(string) string) error {
	tiffPath := report.Artifacts.TIFF

	// Only the path as handed to StarNet++ matters; it runs inside workDir.
	if model.HasSpace(tiffPath) {
		return model.NewCLIError(model.ExitUnsupportedTIFF,
			fmt.Sprintf("FAILURE: no space allowed in file name or file path (%q)", tiffPath))
	}

	if _, err := os.Stat(resolve(tiffPath)); err != nil {
		return model.WrapCLIError(model.ExitSirilFailed,
			fmt.Sprintf("siril did not produce %s", tiffPath), err)
	}

	info, err := imaging.InspectTIFF(resolve(tiffPath))
	report.TIFFMode = info.Mode
	if err != nil {
		return model.WrapCLIError(model.ExitUnsupportedTIFF, "not a TIF/16bit file", err)
	}
	if !info.Mode.AcceptedByStarNet() {
		return model.NewCLIError(model.ExitUnsupportedTIFF,
			fmt.Sprintf("not a TIF/16bit file: mode %s is not accepted by StarNet++ (need gray16 or rgb)", info.Mode))
	}

	r.logger.Debug("intermediate TIFF accepted", "tiff", tiffPath, "mode", info.Mode,
		"width", info.Width, "height", info.Height)
	return nil
}

func (r *Runner) removeStars(ctx context.Context, report *Report, workDir string, resolve func(string) string) error {
	inv := starnet.Invocation{
		Input:  report.Artifacts.TIFF,
		Output: report.Artifacts.StarlessTIFF,
		Stride: r.opts.Stride,
		Dir:    workDir,
	}

	r.logger.Info("StarNet++ is running...", "input", inv.Input, "output", inv.Output, "stride", inv.Stride)

	res, err := r.starnet.Run(ctx, inv)
	report.StarNetExitCode = res.ExitCode
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		r.logger.Warn("StarNet++ exited with non-zero status", "exit_code", res.ExitCode)
	}

	if _, err := os.Stat(resolve(inv.Output)); err != nil {
		return model.WrapCLIError(model.ExitStarNetFailed,
			fmt.Sprintf("star removal produced no output %s", inv.Output), err)
	}
	return nil
}

// cleanup removes the intermediate TIFF. Failure is logged: the outputs
// already exist and nothing is rolled back.
func (r *Runner) cleanup(report *Report, resolve func(string) string) {
	if r.opts.KeepTIFF {
		r.logger.Debug("keeping intermediate TIFF", "tiff", report.Artifacts.TIFF)
		return
	}
	err := os.Remove(resolve(report.Artifacts.TIFF))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		r.logger.Warn("failed to remove intermediate TIFF", "tiff", report.Artifacts.TIFF, "error", err)
		return
	}
	report.IntermediateRemoved = true
}

func (r *Runner) computeStats(report *Report, resolve func(string) string) {
	report.Stats = make(map[string]imaging.Stats, 2)
	for key, path := range map[string]string{
		"starless": report.Artifacts.StarlessFITS,
		"stars":    report.Artifacts.StarsFITS,
	} {
		s, err := imaging.FITSStats(resolve(path))
		if err != nil {
			r.logger.Warn("failed to compute statistics", "file", path, "error", err)
			continue
		}
		report.Stats[key] = s
	}
}

// phase runs fn and records its duration when it succeeds.
func (r *Runner) phase(report *Report, name string, fn func() error) error {
	start := r.now()
	r.logger.Debug("phase started", "phase", name)
	if err := fn(); err != nil {
		r.logger.Debug("phase failed", "phase", name, "error", err)
		return err
	}
	report.Phases = append(report.Phases, PhaseTiming{Name: name, Duration: r.now().Sub(start)})
	return nil
}
