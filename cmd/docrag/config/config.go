// Package configcmder provides the config command for managing persistent
// docrag configuration stored in the .docrag/ directory.
package configcmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/docrag/pkg/config"
)

const configLongDesc string = `Manage persistent docrag configuration.

Configuration is stored as config.toml in the .docrag/ directory and provides
default values for command flags. CLI flags and DOCRAG_* environment
variables always take precedence over config file values; pass --effective
to get or list to see the values after those layers are applied.

Keys use dotted notation matching the TOML section structure, for example
vector_store.provider, embedding.model, reranker.top_k or llm.provider.
Use "docrag config list" to see every key.

Examples:
  docrag config set vector_store.provider sqlite
  docrag config set llm.model llama-3.1-8b-instant
  docrag config get embedding.model
  docrag config list --effective`

const configShortDesc string = "Manage persistent docrag configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

// completeKeys completes the first argument with the known config keys.
func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func validateKey(key string) error {
	if config.IsValidConfigKey(key) {
		return nil
	}
	return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
		key, strings.Join(config.ValidConfigKeys(), ", "))
}

// resolve loads the file configuration, or the fully layered one when
// effective is set.
func resolve(cmd *cobra.Command, effective bool) (*config.Config, string, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}

	if effective {
		cfg, err := config.ForCommand(cmd, nil)
		if err != nil {
			return nil, "", fmt.Errorf("loading config: %w", err)
		}
		return cfg, cfger.GetTarget(), nil
	}

	cfg, err := cfger.LoadConfig()
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}
	return cfg, cfger.GetTarget(), nil
}

func display(key, value string) string {
	if value != "" && config.IsSecretKey(key) {
		return config.MaskSecret(value)
	}
	return value
}
