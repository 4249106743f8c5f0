// Package watchcmder provides the watch command for ingesting files as they
// appear in a directory.
package watchcmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/docrag/pkg/config"
	"github.com/papercomputeco/docrag/pkg/credentials"
	"github.com/papercomputeco/docrag/pkg/logger"
	"github.com/papercomputeco/docrag/pkg/rag"
)

type watchCommander struct {
	collection        string
	vectorProvider    string
	vectorTarget      string
	embeddingProvider string
	embeddingTarget   string
	embeddingModel    string
	ocrProvider       string
	chunkSize         uint
	chunkOverlap      uint
	workers           uint
	eventsProvider    string
	docType           string
}

var watchFlagKeys = []string{
	config.FlagCollection,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagOCRProvider,
	config.FlagChunkSize,
	config.FlagChunkOverlap,
	config.FlagWorkers,
	config.FlagEventsProvider,
}

const watchLongDesc string = `Watch a directory and ingest PDF files as they appear.

Files are queued once they stop changing for ingest.settle_delay and then
extracted, chunked, embedded and stored by a pool of workers. The watch runs
against the configured backends directly; no API server is needed.

Examples:
  docrag watch ./inbox
  docrag watch ./scans --collection scans --ocr-provider tesseract --workers 2`

const watchShortDesc string = "Ingest files as they appear in a directory"

func NewWatchCmd() *cobra.Command {
	cmder := &watchCommander{}

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: watchShortDesc,
		Long:  watchLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			debug, err := cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			configDir, _ := cmd.Flags().GetString("config-dir")

			info, err := os.Stat(args[0])
			if err != nil {
				return err
			}
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", args[0])
			}

			cfg, err := config.ForCommand(cmd, watchFlagKeys)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			return cmder.run(cmd.Context(), cfg, configDir, args[0], debug)
		},
	}

	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagCollection, &cmder.collection)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagVectorStoreProv, &cmder.vectorProvider)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagVectorStoreTgt, &cmder.vectorTarget)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagEmbeddingProv, &cmder.embeddingProvider)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagEmbeddingTgt, &cmder.embeddingTarget)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagOCRProvider, &cmder.ocrProvider)
	config.AddUintFlag(cmd, config.DefaultFlags, config.FlagChunkSize, &cmder.chunkSize)
	config.AddUintFlag(cmd, config.DefaultFlags, config.FlagChunkOverlap, &cmder.chunkOverlap)
	config.AddUintFlag(cmd, config.DefaultFlags, config.FlagWorkers, &cmder.workers)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagEventsProvider, &cmder.eventsProvider)
	cmd.Flags().StringVar(&cmder.docType, "doc-type", "", "Document type stored with every chunk")

	return cmd
}

func (c *watchCommander) run(ctx context.Context, cfg *config.Config, configDir, dir string, debug bool) error {
	l := logger.New(logger.WithDebug(debug), logger.WithPretty(true))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := rag.Options{Config: cfg, Logger: l}
	if keys, err := credentials.NewManager(configDir); err == nil {
		opts.Keys = keys
	}

	r, err := rag.New(ctx, opts)
	if err != nil {
		return err
	}
	defer r.Close()

	if err := r.Watch(ctx, dir, cfg.Client.Collection, c.docType); err != nil {
		return err
	}

	l.Info("watch stopped")
	return nil
}
