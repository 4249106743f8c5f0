// Package askcmder provides the ask command for one-off questions.
package askcmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/docrag/api/client"
	"github.com/papercomputeco/docrag/pkg/cliui"
	"github.com/papercomputeco/docrag/pkg/config"
)

type askCommander struct {
	apiTarget  string
	collection string
	sessionID  string
	jsonOutput bool
}

var askFlagKeys = []string{
	config.FlagAPITarget,
	config.FlagCollection,
}

const askLongDesc string = `Ask a single question about a document collection.

The answer is printed followed by the documents it was grounded on. Without
--session the question is asked in a throwaway session that is cleared
afterwards, so no history carries over.

Examples:
  docrag ask "What is the notice period?"
  docrag ask "Summarize the warranty terms" --collection contracts
  docrag ask "What changed in v2?" --json | jq .ai_response`

const askShortDesc string = "Ask a one-off question"

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: askShortDesc,
		Long:  askLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.ForCommand(cmd, askFlagKeys)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			cmder.apiTarget = cfg.Client.APITarget
			cmder.collection = cfg.Client.Collection

			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return fmt.Errorf("question cannot be empty")
			}

			return cmder.run(cmd.Context(), cmd.OutOrStdout(), question)
		},
	}

	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagAPITarget, &cmder.apiTarget)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagCollection, &cmder.collection)
	cmd.Flags().StringVarP(&cmder.sessionID, "session", "s", "", "Continue an existing session")
	cmd.Flags().BoolVar(&cmder.jsonOutput, "json", false, "Print the raw JSON response")

	return cmd
}

func (c *askCommander) run(ctx context.Context, out io.Writer, question string) error {
	cl := client.New(c.apiTarget, 0)

	sessionID := c.sessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
		defer func() { _ = cl.ResetSession(context.WithoutCancel(ctx), sessionID) }()
	}

	resp, err := cl.Chat(ctx, c.collection, sessionID, question)
	if err != nil {
		return err
	}

	if c.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	fmt.Fprintf(out, "\n%s\n\n", strings.TrimSpace(cliui.RenderAnswer(out, resp.AIResponse)))
	cliui.PrintSources(out, resp.SearchResults)
	fmt.Fprintln(out)
	return nil
}
