package starnet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/shinji-kodama/starsplit/internal/logging"
	"github.com/shinji-kodama/starsplit/internal/model"
)

// LocalRunner runs StarNet++ as a child process in the invocation's
// working directory, inheriting the environment.
type LocalRunner struct {
	// Binary is the executable. Paths containing a separator but not
	// absolute (like the default "./starnet++") resolve against the
	// invocation directory; bare names are looked up in PATH.
	Binary string

	// Logger receives the tool's console output at info level.
	Logger *slog.Logger
}

// NewLocalRunner returns a LocalRunner for binary.
func NewLocalRunner(binary string, logger *slog.Logger) *LocalRunner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LocalRunner{Binary: binary, Logger: logger}
}

// Run executes the binary with inv.Args().
func (r *LocalRunner) Run(ctx context.Context, inv Invocation) (Result, error) {
	bin := r.resolveBinary(inv.Dir)

	// #nosec G204 -- the binary comes from configuration; arguments are derived paths
	cmd := exec.CommandContext(ctx, bin, inv.Args()...)
	cmd.Dir = inv.Dir

	out := logging.NewLineWriter(r.Logger, slog.LevelInfo, "source", "starnet")
	cmd.Stdout = out
	cmd.Stderr = out

	r.Logger.Debug("starting star removal", "binary", bin, "args", inv.Args(), "dir", inv.Dir)

	err := cmd.Run()
	out.Flush()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return Result{ExitCode: -1}, model.WrapCLIError(model.ExitStarNetFailed, "star removal interrupted", ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return Result{ExitCode: exitErr.ExitCode()}, nil
	}
	if err != nil {
		return Result{ExitCode: -1}, model.WrapCLIError(model.ExitStarNetFailed,
			fmt.Sprintf("failed to run star removal binary %q", bin), err)
	}
	return Result{ExitCode: 0}, nil
}

func (r *LocalRunner) resolveBinary(dir string) string {
	bin := r.Binary
	if filepath.IsAbs(bin) || !strings.ContainsAny(bin, `/\`) || dir == "" {
		return bin
	}
	return filepath.Join(dir, bin)
}
