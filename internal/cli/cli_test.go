package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/starsplit/internal/config"
	"github.com/shinji-kodama/starsplit/internal/imaging"
	"github.com/shinji-kodama/starsplit/internal/imaging/imagingtest"
	"github.com/shinji-kodama/starsplit/internal/model"
	"github.com/shinji-kodama/starsplit/internal/workflow"
)

// execute runs a fresh root command with args and returns the exit code
// together with what was written to stdout and stderr.
func execute(t *testing.T, args ...string) (model.ExitCode, string, string) {
	t.Helper()
	t.Setenv(config.EnvConfigPath, "")

	var stdout, stderr bytes.Buffer
	rootCmd := NewRootCommand()
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)

	code := run(context.Background(), rootCmd, &stderr)
	return code, stdout.String(), stderr.String()
}

// TestExitCodes verifies the argument handling contract of the root
// command. None of these cases reach Siril or StarNet++.
func TestExitCodes(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		args []string
		want model.ExitCode
	}{
		{name: "no arguments", args: nil, want: model.ExitNoArgs},
		{name: "help", args: []string{"--help"}, want: model.ExitUsage},
		{name: "short help", args: []string{"-h"}, want: model.ExitUsage},
		{name: "version", args: []string{"--version"}, want: model.ExitSuccess},
		{name: "positional argument", args: []string{"m42.fits"}, want: model.ExitUsage},
		{name: "unknown flag", args: []string{"--bogus"}, want: model.ExitUsage},
		{name: "flags without source", args: []string{"--stats"}, want: model.ExitUsage},
		{name: "not a FITS extension", args: []string{"-s", filepath.Join(dir, "m42.tif")}, want: model.ExitUsage},
		{name: "uppercase extension", args: []string{"-s", filepath.Join(dir, "m42.FITS")}, want: model.ExitUsage},
		{name: "missing source", args: []string{"--sourcefile", filepath.Join(dir, "absent.fits")}, want: model.ExitUsage},
		{name: "invalid runner", args: []string{"-s", "m42.fits", "--runner", "kubernetes"}, want: model.ExitGeneralError},
		{name: "invalid stride", args: []string{"-s", "m42.fits", "--stride", "0"}, want: model.ExitGeneralError},
		{name: "missing config file", args: []string{"-s", "m42.fits", "--config", filepath.Join(dir, "none.yaml")}, want: model.ExitGeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, _ := execute(t, tt.args...)
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestErrorOutput_Text(t *testing.T) {
	code, _, stderr := execute(t, "-s", "m42.png")
	assert.Equal(t, model.ExitUsage, code)
	assert.Contains(t, stderr, "Error: ABORTED: source file is not a FIT/FITS file")
}

func TestErrorOutput_JSON(t *testing.T) {
	code, _, stderr := execute(t, "--json", "-s", "m42.png")
	assert.Equal(t, model.ExitUsage, code)

	var got struct {
		Error struct {
			Message string `json:"message"`
			Detail  string `json:"detail"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(stderr), &got))
	assert.Equal(t, "ABORTED: source file is not a FIT/FITS file", got.Error.Message)
	assert.NotEmpty(t, got.Error.Detail)
}

// TestApplyOverrides verifies that only explicitly set flags replace
// configuration values.
func TestApplyOverrides(t *testing.T) {
	flags := &splitFlags{}
	cmd := &cobra.Command{Use: "starsplit"}
	bindSplitFlags(cmd, flags)
	require.NoError(t, cmd.ParseFlags([]string{"-s", "m42.fits", "--stride", "64", "--runner", "docker", "--image", "starnet:2"}))

	cfg := config.DefaultConfig()
	cfg.Output.KeepTIFF = true
	cfg.Siril.Binary = "/opt/siril/bin/siril-cli"

	applyOverrides(cmd, flags, cfg)

	assert.Equal(t, 64, cfg.StarNet.Stride)
	assert.Equal(t, config.RunnerDocker, cfg.StarNet.Runner)
	assert.Equal(t, "starnet:2", cfg.StarNet.Image)
	assert.True(t, cfg.Output.KeepTIFF, "unset --keep-tiff must not reset the file value")
	assert.Equal(t, "/opt/siril/bin/siril-cli", cfg.Siril.Binary)
	assert.Equal(t, "./starnet++", cfg.StarNet.Binary)
}

func TestConfigShow(t *testing.T) {
	code, stdout, _ := execute(t, "config", "show")
	require.Equal(t, model.ExitSuccess, code)
	assert.Contains(t, stdout, "stride: 256")
	assert.Contains(t, stdout, "binary: siril-cli")
	assert.Contains(t, stdout, "starlessSuffix: _starless")
}

func TestConfigShow_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "starsplit.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`{
  // tuned for a slow laptop
  "starnet": {"stride": 128},
  "output": {"fitsExt": "fits",},
}`), 0o644))

	code, stdout, _ := execute(t, "config", "show", "--config", path, "--json")
	require.Equal(t, model.ExitSuccess, code)

	var cfg config.Config
	require.NoError(t, json.Unmarshal([]byte(stdout), &cfg))
	assert.Equal(t, 128, cfg.StarNet.Stride)
	assert.Equal(t, "fits", cfg.Output.FITSExt)
	assert.Equal(t, config.RunnerLocal, cfg.StarNet.Runner)
}

func TestConfigShow_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "starsplit.yaml")
	require.NoError(t, os.WriteFile(path, []byte("starnet:\n  runner: ssh\n"), 0o644))

	code, _, stderr := execute(t, "config", "show", "--config", path)
	assert.Equal(t, model.ExitGeneralError, code)
	assert.Contains(t, stderr, "invalid starnet.runner")
}

func TestInspect_FITS(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m42.fits")
	imagingtest.WriteFITS32(t, path, 3, 2, []float32{0, 1, 2, 3, 4, 5})

	code, stdout, _ := execute(t, "inspect", path, "--stats")
	require.Equal(t, model.ExitSuccess, code)
	assert.Contains(t, stdout, "BITPIX          -32")
	assert.Contains(t, stdout, "Axes            3 x 2")
	assert.Contains(t, stdout, "MEDIAN")
}

func TestInspect_TIFFJSON(t *testing.T) {
	dir := t.TempDir()
	gray8 := filepath.Join(dir, "l.tif")
	gray16 := filepath.Join(dir, "i16.tif")
	imagingtest.WriteTIFF(t, gray8, imagingtest.Gray8(2, 2))
	imagingtest.WriteTIFF(t, gray16, imagingtest.Gray16(2, 2))

	code, stdout, _ := execute(t, "--json", "inspect", gray8, gray16)
	require.Equal(t, model.ExitSuccess, code)

	var got struct {
		Files []struct {
			Format   string `json:"format"`
			Accepted bool   `json:"starnetAccepted"`
			TIFF     struct {
				Mode string `json:"mode"`
			} `json:"tiff"`
		} `json:"files"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	require.Len(t, got.Files, 2)
	assert.Equal(t, "gray8", got.Files[0].TIFF.Mode)
	assert.False(t, got.Files[0].Accepted)
	assert.Equal(t, "gray16", got.Files[1].TIFF.Mode)
	assert.True(t, got.Files[1].Accepted)
}

func TestInspect_Errors(t *testing.T) {
	code, _, _ := execute(t, "inspect")
	assert.Equal(t, model.ExitUsage, code)

	code, _, _ = execute(t, "inspect", "m42.png")
	assert.Equal(t, model.ExitUsage, code)

	code, _, stderr := execute(t, "inspect", filepath.Join(t.TempDir(), "absent.tif"))
	assert.Equal(t, model.ExitGeneralError, code)
	assert.Contains(t, stderr, "failed to inspect")
}

func TestPrintReportText(t *testing.T) {
	artifacts, err := model.DeriveArtifacts("m42.fits", model.NamingOptions{})
	require.NoError(t, err)

	start := time.Date(2024, 3, 1, 22, 0, 0, 0, time.UTC)
	report := &workflow.Report{
		Artifacts:           artifacts,
		TIFFMode:            model.ModeGray16,
		IntermediateRemoved: true,
		StarNetExitCode:     1,
		StartedAt:           start,
		FinishedAt:          start.Add(42 * time.Second),
		Stats: map[string]imaging.Stats{
			"stars":    {Count: 4, Max: 0.5},
			"starless": {Count: 4, Max: 0.25},
		},
	}

	var buf bytes.Buffer
	printReportText(&buf, report)
	out := buf.String()

	assert.Contains(t, out, "Starless FITS   m42_starless.fit\n")
	assert.Contains(t, out, "Stars FITS      m42_stars.fit\n")
	assert.Contains(t, out, "Intermediate    m42.tif (removed)\n")
	assert.Contains(t, out, "StarNet++ exit  1\n")
	assert.Contains(t, out, "Elapsed         42s\n")
	assert.NotContains(t, out, "Stars TIFF")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("starless ")), bytes.Index(buf.Bytes(), []byte("stars ")))
}

func TestFormatAxes(t *testing.T) {
	assert.Equal(t, "-", formatAxes(nil))
	assert.Equal(t, "4096 x 2048 x 3", formatAxes([]int{4096, 2048, 3}))
}
