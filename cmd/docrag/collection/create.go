package collectioncmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/docrag/api/client"
	"github.com/papercomputeco/docrag/pkg/cliui"
	"github.com/papercomputeco/docrag/pkg/config"
)

type createCommander struct {
	apiTarget  string
	dimensions uint
}

var createFlagKeys = []string{
	config.FlagAPITarget,
	config.FlagEmbeddingDims,
}

const createLongDesc string = `Create a vector collection.

The collection uses cosine distance. Its vector size defaults to the
configured embedding dimensions and must match the embedder the server uses.`

const createShortDesc string = "Create a vector collection"

func newCreateCmd() *cobra.Command {
	cmder := &createCommander{}

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: createShortDesc,
		Long:  createLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.ForCommand(cmd, createFlagKeys)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			cmder.apiTarget = cfg.Client.APITarget
			cmder.dimensions = cfg.Embedding.Dimensions

			return cmder.run(cmd, args[0])
		},
	}

	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagAPITarget, &cmder.apiTarget)
	config.AddUintFlag(cmd, config.DefaultFlags, config.FlagEmbeddingDims, &cmder.dimensions)

	return cmd
}

func (c *createCommander) run(cmd *cobra.Command, name string) error {
	out := cmd.OutOrStdout()
	cl := client.New(c.apiTarget, 0)

	var msg string
	err := cliui.Step(out, fmt.Sprintf("Creating collection %s", cliui.NameStyle.Render(name)), func() error {
		resp, err := cl.CreateCollection(context.Background(), name, c.dimensions)
		if err != nil {
			return err
		}
		msg = resp.Message
		return nil
	})
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", name, err)
	}

	fmt.Fprintf(out, "\n  %s\n\n", msg)
	return nil
}
