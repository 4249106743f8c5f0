// Package authcmder provides the auth command for storing provider API keys.
package authcmder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/docrag/pkg/cliui"
	"github.com/papercomputeco/docrag/pkg/credentials"
)

const authLongDesc string = `Store API keys for LLM, embedding and reranking providers.

Keys are stored in credentials.toml in the .docrag/ directory. They are used
when the matching config key (llm.api_key, embedding.api_key,
reranker.api_key) and the provider's environment variable are both unset.

Supported providers: anthropic, cohere, groq, openai

Examples:
  docrag auth groq              Prompt for a Groq API key
  docrag auth cohere            Prompt for a Cohere API key
  docrag auth --list            List stored credentials
  docrag auth --remove openai   Remove stored OpenAI credentials
  echo $KEY | docrag auth groq  Pipe API key from stdin`

const authShortDesc string = "Store API keys for providers"

func NewAuthCmd() *cobra.Command {
	var listFlag bool
	var removeFlag string

	cmd := &cobra.Command{
		Use:   "auth [provider]",
		Short: authShortDesc,
		Long:  authLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			out := cmd.OutOrStdout()

			switch {
			case listFlag:
				return runList(out, configDir)
			case removeFlag != "":
				return runRemove(out, removeFlag, configDir)
			default:
				if len(args) == 0 {
					return fmt.Errorf("provider argument required\n\nSupported providers: %s",
						strings.Join(credentials.SupportedProviders(), ", "))
				}
				return runAuth(out, cmd.InOrStdin(), args[0], configDir)
			}
		},
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return credentials.SupportedProviders(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
	}

	cmd.Flags().BoolVar(&listFlag, "list", false, "List stored credentials")
	cmd.Flags().StringVar(&removeFlag, "remove", "", "Remove stored credentials for a provider")

	return cmd
}

func runAuth(out io.Writer, in io.Reader, provider, configDir string) error {
	provider = strings.ToLower(strings.TrimSpace(provider))

	if !credentials.IsSupportedProvider(provider) {
		return fmt.Errorf("unsupported provider: %q\n\nSupported providers: %s",
			provider, strings.Join(credentials.SupportedProviders(), ", "))
	}

	apiKey, err := readAPIKey(out, in, provider)
	if err != nil {
		return err
	}

	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return errors.New("API key cannot be empty")
	}

	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := mgr.SetKey(provider, apiKey); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n  %s Stored %s credentials %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(provider),
		cliui.DimStyle.Render("(overridden by "+credentials.EnvVarForProvider(provider)+")"),
	)

	return nil
}

// runList shows where each supported provider's key would be resolved from.
func runList(out io.Writer, configDir string) error {
	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	fmt.Fprintf(out, "\n  %s %s\n\n", cliui.KeyStyle.Render("Credentials:"), cliui.DimStyle.Render(mgr.GetTarget()))

	found := 0
	for _, p := range credentials.SupportedProviders() {
		key, err := mgr.Lookup(p, "")
		if err != nil {
			return err
		}

		mark, source := cliui.DimStyle.Render("●"), cliui.DimStyle.Render("<not set>")
		switch key.Source {
		case credentials.SourceEnv:
			mark, source = cliui.SuccessMark, cliui.ValueStyle.Render("env "+key.EnvVar)
		case credentials.SourceStored:
			mark, source = cliui.SuccessMark, cliui.ValueStyle.Render("stored")
			if !key.UpdatedAt.IsZero() {
				source += " " + cliui.DimStyle.Render(key.UpdatedAt.Format(time.DateOnly))
			}
		}
		if key.Source != credentials.SourceNone {
			found++
		}

		uses := cliui.DimStyle.Render("(" + strings.Join(credentials.UsesForProvider(p), ", ") + ")")
		fmt.Fprintf(out, "  %s  %-10s %s %s\n", mark, p, source, uses)
	}

	if found == 0 {
		fmt.Fprintf(out, "\n  Use 'docrag auth <provider>' to store credentials.\n")
	}
	fmt.Fprintln(out)

	return nil
}

func runRemove(out io.Writer, provider, configDir string) error {
	provider = strings.ToLower(strings.TrimSpace(provider))

	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := mgr.RemoveKey(provider); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n  %s Removed %s credentials.\n\n", cliui.SuccessMark, cliui.NameStyle.Render(provider))

	return nil
}

// readAPIKey reads an API key from in. Piped input is read up to the first
// line; an interactive terminal gets a prompt with hidden input.
func readAPIKey(out io.Writer, in io.Reader, provider string) (string, error) {
	f, isFile := in.(*os.File)
	if !isFile || !term.IsTerminal(int(f.Fd())) {
		scanner := bufio.NewScanner(in)
		if scanner.Scan() {
			return scanner.Text(), nil
		}
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return "", errors.New("no input received on stdin")
	}

	fmt.Fprintf(out, "Enter API key for %s (%s): ", provider, credentials.EnvVarForProvider(provider))

	keyBytes, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("reading API key: %w", err)
	}

	return string(keyBytes), nil
}
