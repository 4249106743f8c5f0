package configcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/docrag/pkg/cliui"
	"github.com/papercomputeco/docrag/pkg/config"
)

const setLongDesc string = `Set a configuration value.

Writes the key to config.toml in the .docrag/ directory, creating the file
when needed. Numeric and boolean keys are validated before anything is
written.

Examples:
  docrag config set llm.provider anthropic
  docrag config set reranker.provider none
  docrag config set embedding.dimensions 768`

const setShortDesc string = "Set a configuration value"

func newSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "set <key> <value>",
		Short:             setShortDesc,
		Long:              setLongDesc,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: completeKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			if err := validateKey(key); err != nil {
				return err
			}

			configDir, _ := cmd.Flags().GetString("config-dir")
			cfger, err := config.NewConfiger(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			previous, err := cfger.GetConfigValue(key)
			if err != nil {
				return err
			}

			if err := cfger.SetConfigValue(key, value); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n  %s Set %s = %s",
				cliui.SuccessMark,
				cliui.KeyStyle.Render(key),
				cliui.ValueStyle.Render(display(key, value)),
			)
			if previous != "" && previous != value {
				fmt.Fprintf(out, " %s", cliui.DimStyle.Render("(was "+display(key, previous)+")"))
			}
			fmt.Fprintf(out, "\n  %s\n\n", cliui.DimStyle.Render(cfger.GetTarget()))
			return nil
		},
	}

	return cmd
}
