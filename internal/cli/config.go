package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/starsplit/internal/model"
)

// NewConfigCommand creates the "config" command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the starsplit configuration",
		Args:  usageArgs(cobra.NoArgs),
	}
	cmd.AddCommand(newConfigShowCommand())
	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Print the configuration starsplit would run with: the defaults merged
with the file named by --config or $STARSPLIT_CONFIG. The output is YAML
and can be saved as a starting point for a configuration file.

Examples:
  starsplit config show > starsplit.yaml
  starsplit config show --config ~/.config/starsplit.jsonc --json`,

		Args: usageArgs(cobra.NoArgs),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd.OutOrStdout())
		},
	}
}

func runConfigShow(w io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "invalid configuration", err)
	}

	if IsJSONOutput() {
		return printJSON(w, cfg)
	}

	data, err := cfg.ToYAML()
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	_, err = w.Write(data)
	return err
}
