package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/starsplit/internal/imaging"
	"github.com/shinji-kodama/starsplit/internal/model"
)

// inspectFlags holds the flag values for the inspect command.
type inspectFlags struct {
	stats bool
}

// NewInspectCommand creates the "inspect" cobra command. It reports what
// the workflow would see in a TIFF or FITS file: the TIFF mode and
// whether StarNet++ accepts it, or the FITS BITPIX and axes.
func NewInspectCommand() *cobra.Command {
	flags := &inspectFlags{}

	cmd := &cobra.Command{
		Use:   "inspect <file>...",
		Short: "Show the TIFF mode or FITS layout of image files",
		Long: `Inspect TIFF and FITS files the way starsplit checks them.

For TIFF files the colour mode is shown along with whether StarNet++
accepts it (16-bit grayscale or RGB). For FITS files the BITPIX and
axes of the primary image are shown.

Examples:
  starsplit inspect m42.tif
  starsplit inspect m42_starless.fit m42_stars.fit --stats
  starsplit inspect m42.fits --json`,

		Args: usageArgs(cobra.MinimumNArgs(1)),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd.OutOrStdout(), args, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.stats, "stats", false, "Also compute pixel statistics")

	return cmd
}

// inspectResult is the outcome for one file. Exactly one of TIFF and
// FITS is set.
type inspectResult struct {
	Path     string            `json:"path"`
	Format   string            `json:"format"`
	TIFF     *imaging.TIFFInfo `json:"tiff,omitempty"`
	Accepted *bool             `json:"starnetAccepted,omitempty"`
	FITS     *imaging.FITSInfo `json:"fits,omitempty"`
	Stats    *imaging.Stats    `json:"stats,omitempty"`
}

func runInspect(w io.Writer, paths []string, flags *inspectFlags) error {
	results := make([]inspectResult, 0, len(paths))
	for _, p := range paths {
		res, err := inspectFile(p, flags.stats)
		if err != nil {
			return err
		}
		results = append(results, res)
	}

	if IsJSONOutput() {
		type resultJSON struct {
			Files []inspectResult `json:"files"`
		}
		return printJSON(w, resultJSON{Files: results})
	}

	for i, res := range results {
		if i > 0 {
			_, _ = fmt.Fprintln(w)
		}
		printInspectText(w, res)
	}
	return nil
}

func inspectFile(path string, withStats bool) (inspectResult, error) {
	res := inspectResult{Path: path}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".tif", ".tiff":
		res.Format = "tiff"
		info, err := imaging.InspectTIFF(path)
		if err != nil {
			return res, model.WrapCLIError(model.ExitGeneralError, fmt.Sprintf("failed to inspect %s", path), err)
		}
		accepted := info.Mode.AcceptedByStarNet()
		res.TIFF = &info
		res.Accepted = &accepted

		if withStats {
			img, err := imaging.DecodeTIFF(path)
			if err != nil {
				return res, model.WrapCLIError(model.ExitGeneralError, fmt.Sprintf("failed to decode %s", path), err)
			}
			s := imaging.ImageStats(img)
			res.Stats = &s
		}

	case ".fit", ".fits", ".fts":
		res.Format = "fits"
		if withStats {
			samples, info, err := imaging.ReadFITSPixels(path)
			if err != nil {
				return res, model.WrapCLIError(model.ExitGeneralError, fmt.Sprintf("failed to read %s", path), err)
			}
			s := imaging.ComputeStats(samples)
			res.FITS = &info
			res.Stats = &s
			break
		}
		info, err := imaging.InspectFITS(path)
		if err != nil {
			return res, model.WrapCLIError(model.ExitGeneralError, fmt.Sprintf("failed to inspect %s", path), err)
		}
		res.FITS = &info

	default:
		return res, model.NewCLIError(model.ExitUsage,
			fmt.Sprintf("cannot inspect %s: expected .tif, .tiff, .fit, .fits or .fts", path))
	}

	return res, nil
}

func printInspectText(w io.Writer, res inspectResult) {
	line := func(label, value string) {
		_, _ = fmt.Fprintf(w, "%-16s%s\n", label, value)
	}

	line("File", res.Path)
	switch {
	case res.TIFF != nil:
		line("Format", "TIFF")
		line("Mode", res.TIFF.Mode.String())
		line("Size", fmt.Sprintf("%dx%d", res.TIFF.Width, res.TIFF.Height))
		if *res.Accepted {
			line("StarNet++", "accepted")
		} else {
			line("StarNet++", "rejected (need 16-bit grayscale or RGB)")
		}
	case res.FITS != nil:
		line("Format", "FITS")
		line("BITPIX", fmt.Sprintf("%d", res.FITS.Bitpix))
		line("Axes", formatAxes(res.FITS.Axes))
	}

	if res.Stats != nil {
		_, _ = fmt.Fprintln(w)
		printStatsHeader(w)
		printStatsRow(w, filepath.Base(res.Path), *res.Stats)
	}
}

// formatAxes renders NAXISn values as "W x H [x C]".
func formatAxes(axes []int) string {
	if len(axes) == 0 {
		return "-"
	}
	parts := make([]string, len(axes))
	for i, a := range axes {
		parts[i] = fmt.Sprintf("%d", a)
	}
	return strings.Join(parts, " x ")
}

// printStatsHeader and printStatsRow render pixel statistics as a table
// with fixed-width columns:
//
//	IMAGE          PIXELS     MIN        MAX        MEAN       STDDEV     MEDIAN
//	stars          1048576    0          0.8123     0.0021     0.0103     0.0004
func printStatsHeader(w io.Writer) {
	_, _ = fmt.Fprintf(w, "%-20s %-10s %-10s %-10s %-10s %-10s %s\n",
		"IMAGE", "PIXELS", "MIN", "MAX", "MEAN", "STDDEV", "MEDIAN")
}

func printStatsRow(w io.Writer, name string, s imaging.Stats) {
	_, _ = fmt.Fprintf(w, "%-20s %-10d %-10.4g %-10.4g %-10.4g %-10.4g %.4g\n",
		name, s.Count, s.Min, s.Max, s.Mean, s.StdDev, s.Median)
}
