package docker

import (
	"context"
	"fmt"
	"net"
	"os"
	"runtime"
	"time"

	"github.com/docker/docker/client"

	"github.com/shinji-kodama/starsplit/internal/model"
)

// defaultPingTimeout bounds the daemon health check. Docker Desktop on
// macOS can take a few seconds to answer after waking up.
const defaultPingTimeout = 5 * time.Second

// Client wraps the Docker Engine SDK client. It handles socket detection
// across platforms and exposes only the calls the container runner needs.
//
// Usage:
//
//	c, err := docker.NewClient()
//	if err != nil { /* handle */ }
//	defer c.Close()
//	if err := c.Ping(ctx); err != nil { /* Docker not running */ }
type Client struct {
	inner *client.Client
}

// NewClient creates a Docker client. DOCKER_HOST wins when set; otherwise
// the platform's default socket locations are probed:
//   - Linux: /var/run/docker.sock
//   - macOS: /var/run/docker.sock, then ~/.docker/run/docker.sock
//   - Windows: npipe:////./pipe/docker_engine
//
// Failures are reported as model.CLIError with ExitStarNetFailed, since
// the container runner is the only consumer.
func NewClient() (*Client, error) {
	if dockerHost := os.Getenv("DOCKER_HOST"); dockerHost != "" {
		return newClientWithHost(dockerHost)
	}

	host, err := detectDockerHost()
	if err != nil {
		return nil, model.WrapCLIError(model.ExitStarNetFailed, "Docker socket not found", err)
	}
	return newClientWithHost(host)
}

func newClientWithHost(host string) (*Client, error) {
	c, err := client.NewClientWithOpts(
		client.WithHost(host),
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitStarNetFailed,
			fmt.Sprintf("failed to create Docker client for host %q", host), err)
	}
	return &Client{inner: c}, nil
}

// detectDockerHost returns the Docker host URI for the current platform.
// Unix sockets are checked for existence only; Ping verifies the daemon.
func detectDockerHost() (string, error) {
	switch runtime.GOOS {
	case "linux":
		return detectUnixSocket([]string{"/var/run/docker.sock"})

	case "darwin":
		paths := []string{"/var/run/docker.sock"}
		if homeDir, err := os.UserHomeDir(); err == nil {
			paths = append(paths, homeDir+"/.docker/run/docker.sock")
		}
		return detectUnixSocket(paths)

	case "windows":
		// os.Stat does not work on named pipes, so dial briefly instead.
		pipePath := `//./pipe/docker_engine`
		conn, err := net.DialTimeout("pipe", pipePath, 1*time.Second)
		if err == nil {
			conn.Close()
			return "npipe://" + pipePath, nil
		}
		return "", fmt.Errorf("Docker named pipe not found at %s: %w", pipePath, err)

	default:
		return "", fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// detectUnixSocket returns the URI of the first existing socket in paths.
func detectUnixSocket(paths []string) (string, error) {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return "unix://" + path, nil
		}
	}
	return "", fmt.Errorf("Docker socket not found at any of: %v (is Docker running?)", paths)
}

// Ping verifies that the Docker daemon is reachable, waiting at most
// defaultPingTimeout.
func (c *Client) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	if _, err := c.inner.Ping(pingCtx); err != nil {
		return model.WrapCLIError(model.ExitStarNetFailed,
			"Docker daemon is not responding (is Docker running?)", err)
	}
	return nil
}

// Close releases the client's resources. Safe to call multiple times.
func (c *Client) Close() error {
	if c.inner != nil {
		return c.inner.Close()
	}
	return nil
}
