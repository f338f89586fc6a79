package starnet

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/shinji-kodama/starsplit/internal/docker"
	"github.com/shinji-kodama/starsplit/internal/logging"
	"github.com/shinji-kodama/starsplit/internal/model"
)

// ContainerWorkDir is where the invocation directory is mounted.
const ContainerWorkDir = "/data"

// DockerRunner runs StarNet++ in a container with the invocation directory
// bind-mounted at ContainerWorkDir.
type DockerRunner struct {
	// Image is the container image providing StarNet++.
	Image string

	// Binary is the StarNet++ executable inside the image.
	Binary string

	// Logger receives the container's output and lifecycle records.
	Logger *slog.Logger

	// connect creates the Docker client; replaced in tests.
	connect func() (*docker.Client, error)
}

// NewDockerRunner returns a DockerRunner using the default Docker host.
func NewDockerRunner(image, binary string, logger *slog.Logger) *DockerRunner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DockerRunner{Image: image, Binary: binary, Logger: logger, connect: docker.NewClient}
}

// Run executes StarNet++ in a fresh container and removes it afterwards.
func (r *DockerRunner) Run(ctx context.Context, inv Invocation) (Result, error) {
	cmd, err := r.command(inv)
	if err != nil {
		return Result{ExitCode: -1}, err
	}

	cli, err := r.connect()
	if err != nil {
		return Result{ExitCode: -1}, err
	}
	defer func() { _ = cli.Close() }()

	if err := cli.Ping(ctx); err != nil {
		return Result{ExitCode: -1}, err
	}
	if n := docker.RemoveStale(ctx, cli, r.Logger); n > 0 {
		r.Logger.Info("removed containers left by earlier runs", "count", n)
	}

	out := logging.NewLineWriter(r.Logger, slog.LevelInfo, "source", "starnet", "image", r.Image)
	code, err := docker.RunToCompletion(ctx, cli, docker.RunSpec{
		Image:     r.Image,
		Cmd:       cmd,
		HostDir:   inv.Dir,
		MountPath: ContainerWorkDir,
		Labels:    docker.BuildLabels(inv.Input, inv.Dir, time.Now()),
		Stdout:    out,
		Stderr:    out,
		Logger:    r.Logger,
	})
	out.Flush()
	return Result{ExitCode: code}, err
}

// command builds the in-container command line, translating host paths
// to paths under ContainerWorkDir.
func (r *DockerRunner) command(inv Invocation) ([]string, error) {
	if inv.Dir == "" || !filepath.IsAbs(inv.Dir) {
		return nil, model.NewCLIError(model.ExitStarNetFailed,
			fmt.Sprintf("docker runner needs an absolute working directory, got %q", inv.Dir))
	}

	in, err := containerPath(inv.Dir, inv.Input)
	if err != nil {
		return nil, err
	}
	out, err := containerPath(inv.Dir, inv.Output)
	if err != nil {
		return nil, err
	}

	translated := Invocation{Input: in, Output: out, Stride: inv.Stride}
	return append([]string{r.Binary}, translated.Args()...), nil
}

// containerPath maps a host path (absolute, or relative to dir) to the
// corresponding path inside the container. Paths outside dir cannot be
// reached through the mount and are rejected.
func containerPath(dir, p string) (string, error) {
	abs := p
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(dir, p)
	}

	rel, err := filepath.Rel(dir, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", model.NewCLIError(model.ExitStarNetFailed,
			fmt.Sprintf("path %q is outside the mounted directory %q", p, dir))
	}
	return path.Join(ContainerWorkDir, filepath.ToSlash(rel)), nil
}
