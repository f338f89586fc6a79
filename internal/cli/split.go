package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/starsplit/internal/config"
	"github.com/shinji-kodama/starsplit/internal/logging"
	"github.com/shinji-kodama/starsplit/internal/model"
	"github.com/shinji-kodama/starsplit/internal/siril"
	"github.com/shinji-kodama/starsplit/internal/starnet"
	"github.com/shinji-kodama/starsplit/internal/workflow"
)

// splitFlags holds the flag values for the root (split) command.
// Every field except source overrides the configuration file when the
// corresponding flag is set explicitly.
type splitFlags struct {
	source    string
	keepTIFF  bool
	starsTIFF bool
	stats     bool
	stride    int
	siril     string
	starnet   string
	runner    string
	image     string
}

func bindSplitFlags(cmd *cobra.Command, flags *splitFlags) {
	f := cmd.Flags()
	f.StringVarP(&flags.source, "sourcefile", "s", "", "Source 32-bit FITS image (.fits or .fit)")
	f.BoolVar(&flags.keepTIFF, "keep-tiff", false, "Keep the 16-bit intermediate TIFF")
	f.BoolVar(&flags.starsTIFF, "stars-tiff", false, "Also export the stars-only image as a 16-bit TIFF")
	f.BoolVar(&flags.stats, "stats", false, "Print pixel statistics of both outputs")
	f.IntVar(&flags.stride, "stride", config.DefaultStride, "StarNet++ tile stride")
	f.StringVar(&flags.siril, "siril", "", "siril-cli executable (default from config: siril-cli)")
	f.StringVar(&flags.starnet, "starnet", "", "StarNet++ executable for the local runner (default from config: ./starnet++)")
	f.StringVar(&flags.runner, "runner", "", "StarNet++ runner: local or docker")
	f.StringVar(&flags.image, "image", "", "Container image for the docker runner")
}

// runSplit is the main logic of the root command.
func runSplit(cmd *cobra.Command, flags *splitFlags) error {
	if cmd.Flags().NFlag() == 0 {
		_ = cmd.Usage()
		return model.NewCLIError(model.ExitNoArgs, "no arguments given")
	}
	if flags.source == "" {
		_ = cmd.Usage()
		return model.NewCLIError(model.ExitUsage, "a source file is required (-s <image.fits>)")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyOverrides(cmd, flags, cfg)
	if err := cfg.Validate(); err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "invalid configuration", err)
	}

	logger := slog.New(logging.NewTerminalHandler(logging.LevelFor(verbose)))

	session := siril.NewSession(siril.Options{
		Binary:   cfg.Siril.Binary,
		Requires: cfg.Siril.Requires,
		Verbose:  cfg.Siril.Verbose,
		Logger:   logger,
	})

	wf := workflow.New(session, newStarNetRunner(cfg, logger), workflow.Options{
		Naming:    cfg.Naming(),
		Stride:    cfg.StarNet.Stride,
		KeepTIFF:  cfg.Output.KeepTIFF,
		StarsTIFF: cfg.Output.StarsTIFF,
		Stats:     cfg.Output.Stats,
	}, logger)

	report, err := wf.Run(cmd.Context(), flags.source)
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		return printJSON(cmd.OutOrStdout(), newReportJSON(report))
	}
	printReportText(cmd.OutOrStdout(), report)
	return nil
}

// loadConfig resolves the configuration from --config or the
// environment, falling back to the defaults.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Resolve(configPath, os.Getenv)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError, "failed to load configuration", err)
	}
	return cfg, nil
}

// applyOverrides copies explicitly set flags onto cfg. Flags left at
// their defaults do not override the configuration file.
func applyOverrides(cmd *cobra.Command, flags *splitFlags, cfg *config.Config) {
	changed := cmd.Flags().Changed

	if changed("keep-tiff") {
		cfg.Output.KeepTIFF = flags.keepTIFF
	}
	if changed("stars-tiff") {
		cfg.Output.StarsTIFF = flags.starsTIFF
	}
	if changed("stats") {
		cfg.Output.Stats = flags.stats
	}
	if changed("stride") {
		cfg.StarNet.Stride = flags.stride
	}
	if changed("siril") {
		cfg.Siril.Binary = flags.siril
	}
	if changed("starnet") {
		cfg.StarNet.Binary = flags.starnet
	}
	if changed("runner") {
		cfg.StarNet.Runner = flags.runner
	}
	if changed("image") {
		cfg.StarNet.Image = flags.image
	}
}

// newStarNetRunner selects the star-removal runner. cfg must be valid.
func newStarNetRunner(cfg *config.Config, logger *slog.Logger) starnet.Runner {
	if cfg.StarNet.Runner == config.RunnerDocker {
		return starnet.NewDockerRunner(cfg.StarNet.Image, cfg.StarNet.ContainerBinary, logger)
	}
	return starnet.NewLocalRunner(cfg.StarNet.Binary, logger)
}

// reportJSON is the JSON output of a successful run. It adds a
// human-readable elapsed time to the workflow report.
type reportJSON struct {
	*workflow.Report
	Elapsed string `json:"elapsed"`
}

func newReportJSON(r *workflow.Report) reportJSON {
	return reportJSON{Report: r, Elapsed: r.Duration().Round(time.Millisecond).String()}
}

// printReportText outputs the run summary as aligned "label value" lines,
// followed by a statistics table when statistics were computed.
//
//	Starless FITS   m42_starless.fit
//	Stars FITS      m42_stars.fit
//	Starless TIFF   m42_starless.tif
//	Intermediate    m42.tif (removed)
//	TIFF mode       gray16
//	Elapsed         42.1s
func printReportText(w io.Writer, r *workflow.Report) {
	a := r.Artifacts
	line := func(label, value string) {
		_, _ = fmt.Fprintf(w, "%-16s%s\n", label, value)
	}

	line("Starless FITS", a.StarlessFITS)
	line("Stars FITS", a.StarsFITS)
	line("Starless TIFF", a.StarlessTIFF)
	if r.StarsTIFF {
		line("Stars TIFF", a.StarsTIFF)
	}
	if r.IntermediateRemoved {
		line("Intermediate", a.TIFF+" (removed)")
	} else {
		line("Intermediate", a.TIFF+" (kept)")
	}
	line("TIFF mode", r.TIFFMode.String())
	if r.StarNetExitCode != 0 {
		line("StarNet++ exit", fmt.Sprintf("%d", r.StarNetExitCode))
	}
	line("Elapsed", r.Duration().Round(time.Millisecond).String())

	if len(r.Stats) == 0 {
		return
	}

	keys := make([]string, 0, len(r.Stats))
	for k := range r.Stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	_, _ = fmt.Fprintln(w)
	printStatsHeader(w)
	for _, k := range keys {
		printStatsRow(w, k, r.Stats[k])
	}
}
