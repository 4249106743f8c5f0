package configcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/docrag/pkg/cliui"
	"github.com/papercomputeco/docrag/pkg/config"
)

const listLongDesc string = `List all configuration values.

Shows every key with its value from config.toml, falling back to the
defaults. With --effective the DOCRAG_* environment variables are applied as
well. Credentials are always masked.

Examples:
  docrag config list
  DOCRAG_LLM_PROVIDER=openai docrag config list --effective`

const listShortDesc string = "List all configuration values"

func newListCmd() *cobra.Command {
	var effective bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, target, err := resolve(cmd, effective)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if target != "" {
				fmt.Fprintf(out, "\n  %s %s\n\n", cliui.KeyStyle.Render("Config file:"), cliui.DimStyle.Render(target))
			} else {
				fmt.Fprintf(out, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
			}

			keys := config.ValidConfigKeys()
			width := 0
			for _, k := range keys {
				width = max(width, len(k))
			}

			for _, key := range keys {
				value, err := config.Value(cfg, key)
				if err != nil {
					return err
				}

				rendered := cliui.DimStyle.Render("<not set>")
				if value != "" {
					rendered = cliui.ValueStyle.Render(display(key, value))
				}
				fmt.Fprintf(out, "  %s  %s\n", cliui.KeyStyle.Render(fmt.Sprintf("%-*s", width, key)), rendered)
			}
			fmt.Fprintln(out)

			return nil
		},
	}

	cmd.Flags().BoolVar(&effective, "effective", false, "Apply environment variables and defaults")

	return cmd
}
