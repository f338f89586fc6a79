package docker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/shinji-kodama/starsplit/internal/model"
)

// RunSpec describes a one-shot container run.
type RunSpec struct {
	// Image is the image reference to run. Pulled when missing locally.
	Image string

	// Cmd is the command and arguments executed in the container.
	Cmd []string

	// HostDir is bind-mounted read-write at MountPath and used as the
	// container's working directory.
	HostDir string

	// MountPath is the mount target inside the container.
	MountPath string

	// Labels are attached to the container.
	Labels map[string]string

	// Stdout and Stderr receive the container's demultiplexed output.
	// Nil discards it.
	Stdout io.Writer
	Stderr io.Writer

	// Logger receives lifecycle records. Nil discards them.
	Logger *slog.Logger
}

// containerConfig builds the create-request structs for spec. Files written
// into the bind mount are owned by the invoking user where the platform
// exposes one.
func containerConfig(spec RunSpec) (*container.Config, *container.HostConfig) {
	cfg := &container.Config{
		Image:      spec.Image,
		Cmd:        spec.Cmd,
		WorkingDir: spec.MountPath,
		Labels:     spec.Labels,
	}
	if runtime.GOOS != "windows" {
		if uid, gid := os.Getuid(), os.Getgid(); uid >= 0 && gid >= 0 {
			cfg.User = fmt.Sprintf("%d:%d", uid, gid)
		}
	}

	hostCfg := &container.HostConfig{
		Mounts: []mount.Mount{{
			Type:   mount.TypeBind,
			Source: spec.HostDir,
			Target: spec.MountPath,
		}},
	}
	return cfg, hostCfg
}

// RunToCompletion creates the container, starts it, streams its output,
// waits for it to stop and removes it. The container's exit status is
// returned; a non-nil error means the container could not be run at all.
func RunToCompletion(ctx context.Context, cli *Client, spec RunSpec) (int, error) {
	logger := spec.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	stdout, stderr := spec.Stdout, spec.Stderr
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	cfg, hostCfg := containerConfig(spec)

	created, err := cli.inner.ContainerCreate(ctx, cfg, hostCfg, nil, nil, "")
	if cerrdefs.IsNotFound(err) {
		if pullErr := pullImage(ctx, cli, spec.Image, logger); pullErr != nil {
			return -1, pullErr
		}
		created, err = cli.inner.ContainerCreate(ctx, cfg, hostCfg, nil, nil, "")
	}
	if err != nil {
		return -1, model.WrapCLIError(model.ExitStarNetFailed,
			fmt.Sprintf("failed to create container from image %q", spec.Image), err)
	}
	for _, w := range created.Warnings {
		logger.Warn("docker warning", "warning", w)
	}

	id := created.ID
	logger.Debug("container created", "id", shortID(id), "image", spec.Image)

	// Remove even when ctx was cancelled, hence a fresh context.
	defer func() {
		if err := cli.inner.ContainerRemove(context.WithoutCancel(ctx), id, container.RemoveOptions{Force: true}); err != nil {
			logger.Warn("failed to remove container", "id", shortID(id), "error", err)
		}
	}()

	if err := cli.inner.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return -1, model.WrapCLIError(model.ExitStarNetFailed,
			fmt.Sprintf("failed to start container %s", shortID(id)), err)
	}

	logs, err := cli.inner.ContainerLogs(ctx, id, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
	})
	if err != nil {
		return -1, model.WrapCLIError(model.ExitStarNetFailed,
			fmt.Sprintf("failed to attach to container %s logs", shortID(id)), err)
	}
	defer logs.Close()

	// Logs end when the container stops; StdCopy returns at EOF.
	if _, err := stdcopy.StdCopy(stdout, stderr, logs); err != nil && ctx.Err() == nil {
		logger.Warn("container log stream interrupted", "id", shortID(id), "error", err)
	}

	statusCh, errCh := cli.inner.ContainerWait(ctx, id, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		return -1, model.WrapCLIError(model.ExitStarNetFailed,
			fmt.Sprintf("failed waiting for container %s", shortID(id)), err)
	case status := <-statusCh:
		if status.Error != nil {
			return int(status.StatusCode), model.NewCLIError(model.ExitStarNetFailed,
				fmt.Sprintf("container %s failed: %s", shortID(id), status.Error.Message))
		}
		return int(status.StatusCode), nil
	}
}

// pullImage pulls ref, draining the progress stream.
func pullImage(ctx context.Context, cli *Client, ref string, logger *slog.Logger) error {
	logger.Info("pulling image", "image", ref)

	rc, err := cli.inner.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return model.WrapCLIError(model.ExitStarNetFailed, fmt.Sprintf("failed to pull image %q", ref), err)
	}
	defer rc.Close()

	if _, err := io.Copy(io.Discard, rc); err != nil {
		return model.WrapCLIError(model.ExitStarNetFailed, fmt.Sprintf("failed to pull image %q", ref), err)
	}
	return nil
}

// shortID truncates a container ID to the 12 characters Docker shows.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
