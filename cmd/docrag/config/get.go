package configcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/docrag/pkg/config"
)

const getLongDesc string = `Get a configuration value.

Prints the value of the given key, and nothing else, so the output can be
used in scripts. Unset keys print an empty line. Credentials are masked
unless --reveal is given.

Examples:
  docrag config get llm.provider
  docrag config get embedding.model --effective`

const getShortDesc string = "Get a configuration value"

func newGetCmd() *cobra.Command {
	var effective, reveal bool

	cmd := &cobra.Command{
		Use:               "get <key>",
		Short:             getShortDesc,
		Long:              getLongDesc,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if err := validateKey(key); err != nil {
				return err
			}

			cfg, _, err := resolve(cmd, effective)
			if err != nil {
				return err
			}

			value, err := config.Value(cfg, key)
			if err != nil {
				return err
			}
			if !reveal {
				value = display(key, value)
			}

			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}

	cmd.Flags().BoolVar(&effective, "effective", false, "Apply environment variables and defaults")
	cmd.Flags().BoolVar(&reveal, "reveal", false, "Print credentials unmasked")

	return cmd
}
