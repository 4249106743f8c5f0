// Package chatcmder provides the chat command for an interactive
// conversation with a docrag collection.
package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/docrag/api/client"
	"github.com/papercomputeco/docrag/pkg/cliui"
	"github.com/papercomputeco/docrag/pkg/config"
	"github.com/papercomputeco/docrag/pkg/dotdir"
	"github.com/papercomputeco/docrag/pkg/utils"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("assistant> ")
)

type chatCommander struct {
	apiTarget  string
	collection string
	newSession bool
	configDir  string

	client *client.Client
	dotdir *dotdir.Manager
	state  *dotdir.SessionState

	in  io.Reader
	out io.Writer
	err io.Writer
}

var chatFlagKeys = []string{
	config.FlagAPITarget,
	config.FlagCollection,
}

const chatLongDesc string = `Start an interactive conversation with a docrag collection.

Each message is reformulated against the conversation so far, answered from
the most relevant chunks of the collection, and followed by the documents it
was grounded on.

The session is remembered in .docrag/session.json and resumed by the next
"docrag chat" against the same collection. Use --new to start over.

Commands inside the chat:
  /reset   Clear the conversation history on the server
  /new     Start a new session
  /exit    Quit (Ctrl+D also works)

Examples:
  docrag chat
  docrag chat --collection manuals --new
  docrag chat --api-target http://rag.internal:8000`

const chatShortDesc string = "Chat with a document collection"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			cfg, err := config.ForCommand(cmd, chatFlagKeys)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			cmder.apiTarget = cfg.Client.APITarget
			cmder.collection = cfg.Client.Collection
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			cmder.err = cmd.ErrOrStderr()
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagAPITarget, &cmder.apiTarget)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagCollection, &cmder.collection)
	cmd.Flags().BoolVar(&cmder.newSession, "new", false, "Start a new session instead of resuming")

	return cmd
}

func (c *chatCommander) run(ctx context.Context) error {
	c.client = client.New(c.apiTarget, 0)
	c.dotdir = dotdir.NewManager()

	state, err := c.dotdir.LoadSession(c.configDir)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}

	fmt.Fprintln(c.out)
	if c.newSession || state == nil || state.Collection != c.collection {
		if err := c.startSession(); err != nil {
			return err
		}
	} else {
		c.state = state
		c.printResume(ctx)
	}

	fmt.Fprintf(c.out, "  %s %s\n\n",
		cliui.KeyStyle.Render("Collection:"),
		cliui.NameStyle.Render(c.collection),
	)
	fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render("Type your question and press Enter. /reset, /new, /exit or Ctrl+D."))

	scanner := bufio.NewScanner(c.in)

	for {
		fmt.Fprint(c.out, userPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		switch input {
		case "/exit", "/quit":
			fmt.Fprintln(c.out)
			return nil
		case "/reset":
			c.reset(ctx)
			continue
		case "/new":
			if err := c.startSession(); err != nil {
				return err
			}
			continue
		}

		resp, err := c.client.Chat(ctx, c.collection, c.state.SessionID, input)
		if err != nil {
			fmt.Fprintf(c.err, "  %s %v\n", cliui.FailMark, err)
			continue
		}

		fmt.Fprintf(c.out, "%s%s\n\n", assistantPrompt, strings.TrimSpace(cliui.RenderAnswer(c.out, resp.AIResponse)))
		cliui.PrintSources(c.out, resp.SearchResults)
		fmt.Fprintln(c.out)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(c.out)
	return nil
}

// startSession creates and remembers a fresh session id.
func (c *chatCommander) startSession() error {
	c.state = &dotdir.SessionState{
		SessionID:  uuid.NewString(),
		Collection: c.collection,
	}
	if err := c.dotdir.SaveSession(c.state, c.configDir); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}

	fmt.Fprintf(c.out, "  %s New conversation %s\n",
		cliui.DimStyle.Render("●"),
		cliui.DimStyle.Render(utils.Truncate(c.state.SessionID, 8)),
	)
	return nil
}

func (c *chatCommander) printResume(ctx context.Context) {
	turns := 0
	session, err := c.client.Session(ctx, c.state.SessionID)
	switch {
	case err == nil:
		turns = len(session.Turns)
	case client.IsStatus(err, http.StatusNotFound):
	default:
		fmt.Fprintf(c.err, "  %s %v\n", cliui.FailMark, err)
	}

	fmt.Fprintf(c.out, "  %s Resuming %s %s\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(utils.Truncate(c.state.SessionID, 8)),
		cliui.DimStyle.Render(fmt.Sprintf("(%d turns)", turns)),
	)
}

func (c *chatCommander) reset(ctx context.Context) {
	err := c.client.ResetSession(ctx, c.state.SessionID)
	if err != nil && !client.IsStatus(err, http.StatusNotFound) {
		fmt.Fprintf(c.err, "  %s %v\n", cliui.FailMark, err)
		return
	}
	fmt.Fprintf(c.out, "  %s Conversation cleared\n\n", cliui.SuccessMark)
}
