package siril

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/shinji-kodama/starsplit/internal/logging"
	"github.com/shinji-kodama/starsplit/internal/model"
)

// Options configures a Session.
type Options struct {
	// Binary is the siril-cli executable name or path.
	Binary string

	// Requires is the minimum Siril version declared in each script.
	// Empty omits the "requires" line.
	Requires string

	// Verbose logs Siril's console output at info instead of debug level.
	Verbose bool

	// Logger receives Siril's console output. Nil discards it.
	Logger *slog.Logger
}

// Session is a logical Siril session spanning several siril-cli
// processes. It must be opened before use and closed afterwards.
//
// Usage:
//
//	s := siril.NewSession(opts)
//	if err := s.Open(ctx); err != nil { /* handle */ }
//	defer s.Close()
//	err := s.Exec(ctx, siril.Cd(dir), siril.SetExt("fit"))
type Session struct {
	opts Options

	// binPath is the resolved siril-cli path, set by Open.
	binPath string

	// scratch holds generated scripts. Empty when the session is not open.
	scratch string

	// sticky holds the latest cd/setext commands, replayed in every batch.
	sticky []Command

	// batches counts executed scripts, used to name script files.
	batches int
}

// NewSession creates an unopened Session.
func NewSession(opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Session{opts: opts}
}

// Open resolves the siril-cli binary and creates the scratch directory
// for scripts. Opening an already open session is a no-op.
func (s *Session) Open(_ context.Context) error {
	if s.scratch != "" {
		return nil
	}

	binPath, err := exec.LookPath(s.opts.Binary)
	if err != nil {
		return model.WrapCLIError(model.ExitSirilFailed,
			fmt.Sprintf("siril binary %q not found", s.opts.Binary), err)
	}

	scratch, err := os.MkdirTemp("", "starsplit-siril-")
	if err != nil {
		return model.WrapCLIError(model.ExitSirilFailed,
			"failed to create siril script directory", err)
	}

	s.binPath = binPath
	s.scratch = scratch
	s.opts.Logger.Debug("siril session opened", "binary", binPath, "scratch", scratch)
	return nil
}

// Exec runs the commands as one Siril script. cd and setext commands are
// remembered and replayed at the top of every later batch.
func (s *Session) Exec(ctx context.Context, cmds ...Command) error {
	if s.scratch == "" {
		return model.NewCLIError(model.ExitSirilFailed, "siril session is not open")
	}

	var body []Command
	for _, c := range cmds {
		if c.sticky() {
			s.remember(c)
			continue
		}
		body = append(body, c)
	}

	script := s.buildScript(body)
	s.batches++
	scriptPath := filepath.Join(s.scratch, fmt.Sprintf("batch-%03d.ssf", s.batches))
	if err := os.WriteFile(scriptPath, []byte(script), 0o600); err != nil {
		return model.WrapCLIError(model.ExitSirilFailed, "failed to write siril script", err)
	}

	s.opts.Logger.Debug("running siril script", "script", scriptPath, "commands", describe(body))

	// #nosec G204 -- the binary comes from configuration and the script is generated here
	cmd := exec.CommandContext(ctx, s.binPath, "-s", scriptPath)
	cmd.Dir = s.workDir()

	out := logging.NewLineWriter(s.opts.Logger, s.outputLevel(), "source", "siril")
	cmd.Stdout = out
	cmd.Stderr = out

	err := cmd.Run()
	out.Flush()
	if err != nil {
		message := fmt.Sprintf("siril script failed (%s)", describe(body))
		if tail := out.Tail(); tail != "" {
			message = fmt.Sprintf("%s: %s", message, tail)
		}
		return model.WrapCLIError(model.ExitSirilFailed, message, err)
	}
	return nil
}

// Close removes the scratch directory. It is safe to call multiple times.
func (s *Session) Close() error {
	if s.scratch == "" {
		return nil
	}
	dir := s.scratch
	s.scratch = ""
	s.sticky = nil
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove siril script directory %s: %w", dir, err)
	}
	s.opts.Logger.Debug("siril session closed")
	return nil
}

// remember stores a sticky command, replacing an earlier one of the same name.
func (s *Session) remember(c Command) {
	for i := range s.sticky {
		if s.sticky[i].Name == c.Name {
			s.sticky[i] = c
			return
		}
	}
	s.sticky = append(s.sticky, c)
}

// buildScript renders the full script text for one batch.
func (s *Session) buildScript(body []Command) string {
	var b strings.Builder
	if s.opts.Requires != "" {
		b.WriteString(Requires(s.opts.Requires).String())
		b.WriteByte('\n')
	}
	for _, c := range s.sticky {
		b.WriteString(c.String())
		b.WriteByte('\n')
	}
	for _, c := range body {
		b.WriteString(c.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// workDir returns the directory of the sticky cd command, if any, so that
// relative paths in the script and in Siril's own lookups agree.
func (s *Session) workDir() string {
	for _, c := range s.sticky {
		if c.Name == "cd" && len(c.Args) == 1 {
			return c.Args[0]
		}
	}
	return ""
}

func (s *Session) outputLevel() slog.Level {
	if s.opts.Verbose {
		return slog.LevelInfo
	}
	return slog.LevelDebug
}

func describe(cmds []Command) string {
	names := make([]string, 0, len(cmds))
	for _, c := range cmds {
		names = append(names, c.Name)
	}
	if len(names) == 0 {
		return "setup"
	}
	return strings.Join(names, ", ")
}
