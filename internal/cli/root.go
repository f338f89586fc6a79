// Package cli implements the cobra-based command line for starsplit.
//
// The root command runs the star-split workflow on one source file. The
// inspect and config subcommands are defined in their own files.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/starsplit/internal/config"
	"github.com/shinji-kodama/starsplit/internal/model"
)

// Global flag variables shared across all subcommands.
// These are bound to cobra persistent flags on the root command.
var (
	// jsonOutput formats command output and errors as JSON.
	jsonOutput bool

	// verbose lowers the log level to debug.
	verbose bool

	// configPath names an explicit configuration file.
	configPath string

	// helpShown records that usage was printed on request, which exits
	// with ExitUsage like any other usage display.
	helpShown bool
)

// Version, Commit and Date are set at build time via ldflags and injected
// from the main package.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
func NewRootCommand() *cobra.Command {
	flags := &splitFlags{}
	helpShown = false

	rootCmd := &cobra.Command{
		Use:   "starsplit -s <image.fits>",
		Short: "Split a FITS image into starless and stars-only images",
		Long: `starsplit converts a 32-bit FITS image to a 16-bit TIFF with Siril,
removes the stars with StarNet++, and writes two FITS files next to the
source: <name>_starless.fit and <name>_stars.fit (original minus starless).

The StarNet++ binary and its weights must be in the working directory
(or configured with --starnet / --runner docker).

Examples:
  starsplit -s m42.fits
  starsplit -s m42.fits --stride 128 --stars-tiff
  starsplit -s m42.fits --runner docker --image starnet:2.0`,

		// Usage is printed explicitly where it belongs; cobra must not
		// print it for every error.
		SilenceUsage:  true,
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		Args: noPositionalArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runSplit(cmd, flags)
		},
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Configuration file (.yaml, .yml, .json, .jsonc); defaults to $"+config.EnvConfigPath)

	bindSplitFlags(rootCmd, flags)

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		_ = cmd.Usage()
		return model.WrapCLIError(model.ExitUsage, "invalid arguments", err)
	})

	defaultHelp := rootCmd.HelpFunc()
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		helpShown = true
		defaultHelp(cmd, args)
	})

	rootCmd.AddCommand(NewInspectCommand())
	rootCmd.AddCommand(NewConfigCommand())

	return rootCmd
}

// noPositionalArgs rejects positional arguments with a usage error; the
// source is passed with -s only.
func noPositionalArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		_ = cmd.Usage()
		return model.NewCLIError(model.ExitUsage, fmt.Sprintf("unexpected argument %q", args[0]))
	}
	return nil
}

// usageArgs wraps a cobra positional-argument validator so its failures
// exit with ExitUsage.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			_ = cmd.Usage()
			return model.WrapCLIError(model.ExitUsage, "invalid arguments", err)
		}
		return nil
	}
}

// Execute runs the root command and exits the process with the code
// carried by the returned error. It is the main entry point called from
// main.go.
func Execute(rootCmd *cobra.Command) {
	// Cancelling the context interrupts Siril and StarNet++ on Ctrl-C.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, rootCmd, os.Stderr)
	stop()

	if code != model.ExitSuccess {
		os.Exit(int(code))
	}
}

// run executes rootCmd, reports any error on stderr, and returns the exit
// code the process should terminate with.
func run(ctx context.Context, rootCmd *cobra.Command, stderr io.Writer) model.ExitCode {
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		if helpShown {
			return model.ExitUsage
		}
		return model.ExitSuccess
	}

	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		printError(stderr, cliErr.Message, cliErr.Err)
		return cliErr.Code
	}

	printError(stderr, err.Error(), nil)
	return model.ExitGeneralError
}

// printError outputs an error message in the appropriate format
// (JSON or text) based on the --json global flag.
func printError(w io.Writer, message string, underlying error) {
	if jsonOutput {
		errObj := map[string]any{
			"error": map[string]any{
				"message": message,
			},
		}
		if underlying != nil {
			if errMap, ok := errObj["error"].(map[string]any); ok {
				errMap["detail"] = underlying.Error()
			}
		}
		// stdout is reserved for successful command output.
		data, _ := json.MarshalIndent(errObj, "", "  ")
		_, _ = fmt.Fprintln(w, string(data))
		return
	}

	if underlying != nil {
		_, _ = fmt.Fprintf(w, "Error: %s: %v\n", message, underlying)
	} else {
		_, _ = fmt.Fprintf(w, "Error: %s\n", message)
	}
}

// IsJSONOutput returns whether the --json flag is set.
func IsJSONOutput() bool {
	return jsonOutput
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
