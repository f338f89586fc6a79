// Package config holds the starsplit tool configuration: where the
// external binaries live, how StarNet++ is run, and how output files are
// named.
//
// Configuration is layered:
//  1. DefaultConfig() provides working defaults for the classic layout
//     (siril-cli on PATH, ./starnet++ in the working directory).
//  2. An optional file (YAML or JSON with comments) overrides the defaults.
//  3. Command-line flags override the file (applied by the cli package).
//
// Validate must be called after the last layer is applied.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/starsplit/internal/model"
)

// EnvConfigPath names the environment variable consulted when no
// --config flag is given.
const EnvConfigPath = "STARSPLIT_CONFIG"

// Runner kinds for StarNetConfig.Runner.
const (
	// RunnerLocal runs the StarNet++ binary as a child process.
	RunnerLocal = "local"

	// RunnerDocker runs StarNet++ inside a container via the Docker Engine API.
	RunnerDocker = "docker"
)

// DefaultStride is the StarNet++ tile stride recommended by its author.
const DefaultStride = 256

// Config is the complete tool configuration.
type Config struct {
	// Siril configures the Siril command-line session.
	Siril SirilConfig `yaml:"siril" json:"siril"`

	// StarNet configures the star-removal step.
	StarNet StarNetConfig `yaml:"starnet" json:"starnet"`

	// Output controls artifact naming and optional outputs.
	Output OutputConfig `yaml:"output" json:"output"`
}

// SirilConfig configures how siril-cli is launched.
type SirilConfig struct {
	// Binary is the siril-cli executable name or path.
	Binary string `yaml:"binary" json:"binary"`

	// Requires is the minimum Siril version written at the top of every
	// generated script ("requires" command).
	Requires string `yaml:"requires" json:"requires"`

	// Verbose forwards Siril's console output at info level instead of debug.
	Verbose bool `yaml:"verbose" json:"verbose"`
}

// StarNetConfig configures the star-removal runner.
type StarNetConfig struct {
	// Runner selects "local" (subprocess) or "docker" (container).
	Runner string `yaml:"runner" json:"runner"`

	// Binary is the StarNet++ executable for the local runner. Relative
	// paths resolve against the working directory.
	Binary string `yaml:"binary" json:"binary"`

	// Stride is the tile stride passed as the third argument.
	Stride int `yaml:"stride" json:"stride"`

	// Image is the container image for the docker runner.
	Image string `yaml:"image" json:"image"`

	// ContainerBinary is the StarNet++ executable inside the image.
	ContainerBinary string `yaml:"containerBinary" json:"containerBinary"`
}

// OutputConfig controls artifact naming and optional outputs.
type OutputConfig struct {
	// FITSExt is the extension Siril uses when saving FITS ("fit", "fits" or "fts").
	FITSExt string `yaml:"fitsExt" json:"fitsExt"`

	// StarlessSuffix is appended to the basename for starless outputs.
	StarlessSuffix string `yaml:"starlessSuffix" json:"starlessSuffix"`

	// StarsSuffix is appended to the basename for the stars-only output.
	StarsSuffix string `yaml:"starsSuffix" json:"starsSuffix"`

	// KeepTIFF keeps the 16-bit intermediate TIFF instead of deleting it.
	KeepTIFF bool `yaml:"keepTiff" json:"keepTiff"`

	// StarsTIFF additionally exports the stars-only image as a 16-bit TIFF.
	StarsTIFF bool `yaml:"starsTiff" json:"starsTiff"`

	// Stats computes pixel statistics of the output FITS files.
	Stats bool `yaml:"stats" json:"stats"`
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		Siril: SirilConfig{
			Binary:   "siril-cli",
			Requires: "1.2.0",
		},
		StarNet: StarNetConfig{
			Runner:          RunnerLocal,
			Binary:          "./starnet++",
			Stride:          DefaultStride,
			ContainerBinary: "starnet++",
		},
		Output: OutputConfig{
			FITSExt:        model.DefaultFITSExt,
			StarlessSuffix: model.DefaultStarlessSuffix,
			StarsSuffix:    model.DefaultStarsSuffix,
		},
	}
}

// Naming returns the artifact naming options derived from the output section.
func (c *Config) Naming() model.NamingOptions {
	return model.NamingOptions{
		StarlessSuffix: c.Output.StarlessSuffix,
		StarsSuffix:    c.Output.StarsSuffix,
		FITSExt:        strings.TrimPrefix(c.Output.FITSExt, "."),
	}
}

// Validate checks that the configuration is complete and self-consistent.
func (c *Config) Validate() error {
	var errs []error

	if c.Siril.Binary == "" {
		errs = append(errs, errors.New("siril.binary must not be empty"))
	}

	switch c.StarNet.Runner {
	case RunnerLocal:
		if c.StarNet.Binary == "" {
			errs = append(errs, errors.New("starnet.binary must not be empty for the local runner"))
		}
	case RunnerDocker:
		if c.StarNet.Image == "" {
			errs = append(errs, errors.New("starnet.image must be set for the docker runner"))
		}
		if c.StarNet.ContainerBinary == "" {
			errs = append(errs, errors.New("starnet.containerBinary must not be empty for the docker runner"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid starnet.runner %q (valid: %s, %s)", c.StarNet.Runner, RunnerLocal, RunnerDocker))
	}

	if c.StarNet.Stride <= 0 {
		errs = append(errs, fmt.Errorf("starnet.stride must be positive, got %d", c.StarNet.Stride))
	}

	switch strings.TrimPrefix(c.Output.FITSExt, ".") {
	case "fit", "fits", "fts":
	default:
		errs = append(errs, fmt.Errorf("invalid output.fitsExt %q (valid: fit, fits, fts)", c.Output.FITSExt))
	}

	if c.Output.StarlessSuffix == "" || c.Output.StarsSuffix == "" {
		errs = append(errs, errors.New("output suffixes must not be empty"))
	} else if c.Output.StarlessSuffix == c.Output.StarsSuffix {
		errs = append(errs, fmt.Errorf("output.starlessSuffix and output.starsSuffix must differ (both %q)", c.Output.StarsSuffix))
	}

	return errors.Join(errs...)
}

// Load reads a configuration file on top of DefaultConfig. The format is
// chosen by extension: .yaml/.yml use YAML; .json/.jsonc use JSON with
// comments and trailing commas allowed. Fields absent from the file keep
// their default values; unknown fields are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		// Unknown keys are errors so that a misspelt key does not silently
		// fall back to its default.
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case ".json", ".jsonc":
		// Strip // and /* */ comments and trailing commas before parsing.
		dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format %q (use .yaml, .yml, .json or .jsonc)", filepath.Ext(path))
	}

	return cfg, nil
}

// Resolve loads the configuration from the explicit path, falling back to
// the STARSPLIT_CONFIG environment variable, then to the defaults.
// getenv is injected so tests do not depend on the process environment.
func Resolve(path string, getenv func(string) string) (*Config, error) {
	if path == "" && getenv != nil {
		path = getenv(EnvConfigPath)
	}
	if path == "" {
		return DefaultConfig(), nil
	}
	return Load(path)
}

// ToYAML renders the configuration as YAML, for "config show".
func (c *Config) ToYAML() ([]byte, error) {
	return yaml.Marshal(c)
}
