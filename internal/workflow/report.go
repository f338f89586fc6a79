package workflow

import (
	"time"

	"github.com/shinji-kodama/starsplit/internal/imaging"
	"github.com/shinji-kodama/starsplit/internal/model"
)

// Phase names, in execution order.
const (
	PhaseSetup    = "setup"
	PhaseExport   = "export-tiff"
	PhaseStarNet  = "starnet"
	PhaseStarless = "starless-fits"
	PhaseStars    = "stars-fits"
	PhaseCleanup  = "cleanup"
)

// PhaseTiming records how long one phase took.
type PhaseTiming struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
}

// Report describes a completed (or partially completed) run.
type Report struct {
	// Artifacts lists every path derived from the source.
	Artifacts model.Artifacts `json:"artifacts"`

	// WorkDir is the directory the external tools ran in.
	WorkDir string `json:"workDir"`

	// SourceBitpix is the BITPIX of the source FITS; 0 if unreadable.
	SourceBitpix int `json:"sourceBitpix"`

	// TIFFMode is the mode of the intermediate TIFF fed to StarNet++.
	TIFFMode model.TIFFMode `json:"tiffMode,omitempty"`

	// StarNetExitCode is StarNet++'s exit status.
	StarNetExitCode int `json:"starnetExitCode"`

	// IntermediateRemoved is true when the 16-bit TIFF was deleted.
	IntermediateRemoved bool `json:"intermediateRemoved"`

	// StarsTIFF is true when the stars image was also exported as TIFF.
	StarsTIFF bool `json:"starsTiff"`

	// StartedAt and FinishedAt bracket the run.
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`

	// Phases lists completed phases with their durations.
	Phases []PhaseTiming `json:"phases"`

	// Stats holds pixel statistics keyed by output ("starless", "stars")
	// when requested.
	Stats map[string]imaging.Stats `json:"stats,omitempty"`
}

// Duration returns the wall-clock time of the run.
func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
