// Package initcmder provides the init command for initializing a local
// .docrag directory in the current working directory.
package initcmder

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/docrag/pkg/config"
	"github.com/papercomputeco/docrag/pkg/dotdir"
)

const initLongDesc string = `Initialize a new .docrag/ directory in the current working directory.

Creates a local .docrag/ directory that takes precedence over the default
~/.docrag/ directory for configuration, credentials, the embedded sqlite
vector store and the saved chat session.

A config.toml is written with default values. Use --preset to start from a
provider preset or from a config.toml served at a URL. Re-running init with
--preset overwrites the existing config.toml.

Presets: groq (default), openai, anthropic, ollama

Examples:
  docrag init
  docrag init --preset ollama
  docrag init --preset https://example.com/docrag/config.toml`

const initShortDesc string = "Initialize a local .docrag/ directory"

const remoteTimeout = 30 * time.Second

type initCommander struct {
	preset string
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "", "Provider preset name or URL of a config.toml")

	return cmd
}

func (c *initCommander) run(ctx context.Context, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dotdir.DirName)
	configPath := filepath.Join(dir, "config.toml")

	var cfg *config.Config
	switch {
	case c.preset == "":
		cfg = config.NewDefaultConfig()
	case isURL(c.preset):
		cfg, err = fetchRemoteConfig(ctx, c.preset)
	default:
		cfg, err = config.PresetConfig(c.preset)
	}
	if err != nil {
		return err
	}

	info, statErr := os.Stat(dir)
	initialized := statErr == nil && info.IsDir()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating .docrag directory: %w", err)
	}

	_, configErr := os.Stat(configPath)
	if c.preset != "" || configErr != nil {
		cfger, err := config.NewConfiger(dir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := cfger.SaveConfig(cfg); err != nil {
			return err
		}
	}

	if initialized {
		fmt.Fprintf(out, "Already initialized: %s\n", dir)
		return nil
	}

	fmt.Fprintf(out, "Initialized .docrag directory: %s\n", dir)
	return nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func fetchRemoteConfig(ctx context.Context, url string) (*config.Config, error) {
	ctx, cancel := context.WithTimeout(ctx, remoteTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading remote config: %w", err)
	}

	return config.ParseConfigTOML(data)
}
