// Package servecmder provides the serve command running the API and MCP
// servers over a locally assembled pipeline.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/docrag/api"
	"github.com/papercomputeco/docrag/api/mcp"
	"github.com/papercomputeco/docrag/pkg/config"
	"github.com/papercomputeco/docrag/pkg/credentials"
	"github.com/papercomputeco/docrag/pkg/logger"
	"github.com/papercomputeco/docrag/pkg/rag"
)

type serveCommander struct {
	flags serveFlags

	watchDir  string
	docType   string
	jsonLogs  bool
	configDir string
	debug     bool

	logger *slog.Logger
}

// serveFlags are flag targets only. Effective values are read back through
// viper so config.toml and DOCRAG_* variables apply.
type serveFlags struct {
	listen, collection                   string
	vectorProvider, vectorTarget         string
	embeddingProvider, embeddingTarget   string
	embeddingModel                       string
	embeddingDims                        uint
	rerankerProvider, rerankerTarget     string
	topK                                 uint
	llmProvider, llmTarget, llmModel     string
	ocrProvider                          string
	chunkSize, chunkOverlap, searchLimit uint
	scoreThreshold                       float64
	workers                              uint
	eventsProvider                       string
}

var serveFlagKeys = []string{
	config.FlagAPIListen,
	config.FlagCollection,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagRerankerProv,
	config.FlagRerankerTgt,
	config.FlagTopK,
	config.FlagLLMProvider,
	config.FlagLLMTarget,
	config.FlagLLMModel,
	config.FlagOCRProvider,
	config.FlagChunkSize,
	config.FlagChunkOverlap,
	config.FlagScoreThreshold,
	config.FlagSearchLimit,
	config.FlagWorkers,
	config.FlagEventsProvider,
}

const serveLongDesc string = `Run the docrag API server.

The server exposes collection creation, document upload and chat under /v1
and an MCP endpoint with "ask" and "search" tools under /mcp. Every backend
(vector store, embedder, reranker, LLM, OCR, events) is selected through
config.toml, DOCRAG_* environment variables or the flags below.

With --watch, PDF files created in the given directory are ingested into the
default collection while the server runs.

Examples:
  docrag serve
  docrag serve --listen :9000 --vector-store-provider memory
  docrag serve --watch ./inbox --collection manuals
  docrag serve --json-logs`

const serveShortDesc string = "Run the docrag API server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			cfg, err := config.ForCommand(cmd, serveFlagKeys)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			return cmder.run(cfg)
		},
	}

	f := &cmder.flags
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagAPIListen, &f.listen)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagCollection, &f.collection)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagVectorStoreProv, &f.vectorProvider)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagVectorStoreTgt, &f.vectorTarget)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagEmbeddingProv, &f.embeddingProvider)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagEmbeddingTgt, &f.embeddingTarget)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagEmbeddingModel, &f.embeddingModel)
	config.AddUintFlag(cmd, config.DefaultFlags, config.FlagEmbeddingDims, &f.embeddingDims)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagRerankerProv, &f.rerankerProvider)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagRerankerTgt, &f.rerankerTarget)
	config.AddUintFlag(cmd, config.DefaultFlags, config.FlagTopK, &f.topK)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagLLMProvider, &f.llmProvider)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagLLMTarget, &f.llmTarget)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagLLMModel, &f.llmModel)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagOCRProvider, &f.ocrProvider)
	config.AddUintFlag(cmd, config.DefaultFlags, config.FlagChunkSize, &f.chunkSize)
	config.AddUintFlag(cmd, config.DefaultFlags, config.FlagChunkOverlap, &f.chunkOverlap)
	config.AddFloatFlag(cmd, config.DefaultFlags, config.FlagScoreThreshold, &f.scoreThreshold)
	config.AddUintFlag(cmd, config.DefaultFlags, config.FlagSearchLimit, &f.searchLimit)
	config.AddUintFlag(cmd, config.DefaultFlags, config.FlagWorkers, &f.workers)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagEventsProvider, &f.eventsProvider)

	cmd.Flags().StringVar(&cmder.watchDir, "watch", "", "Directory to watch for new PDF files")
	cmd.Flags().StringVar(&cmder.docType, "doc-type", "", "Document type recorded for watched files")
	cmd.Flags().BoolVar(&cmder.jsonLogs, "json-logs", false, "Emit logs as JSON")

	return cmd
}

func (c *serveCommander) run(cfg *config.Config) error {
	c.logger = logger.New(
		logger.WithDebug(c.debug),
		logger.WithPretty(!c.jsonLogs),
		logger.WithJSON(c.jsonLogs),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := rag.Options{Config: cfg, Logger: c.logger}
	if keys, err := credentials.NewManager(c.configDir); err == nil {
		opts.Keys = keys
	} else {
		c.logger.Warn("stored credentials unavailable", logger.Err(err))
	}

	r, err := rag.New(ctx, opts)
	if err != nil {
		return err
	}
	defer r.Close()

	mcpServer, err := mcp.NewServer(mcp.Config{
		Retriever:         r.Query,
		Answerer:          r.Query,
		Sessions:          r.Sessions,
		DefaultCollection: cfg.Client.Collection,
		Logger:            c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	apiServer, err := api.NewServer(api.Config{
		ListenAddr: cfg.API.Listen,
		VectorSize: cfg.Embedding.Dimensions,
	}, api.Deps{
		Driver:   r.Driver,
		Uploader: r.Uploader,
		Answerer: r.Query,
		Sessions: r.Sessions,
		MCP:      mcpServer.Handler(),
	}, c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	errChan := make(chan error, 2)

	go func() {
		if err := apiServer.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	if c.watchDir != "" {
		go func() {
			if err := r.Watch(ctx, c.watchDir, cfg.Client.Collection, c.docType); err != nil {
				errChan <- fmt.Errorf("watcher error: %w", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err = <-errChan:
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
	}

	cancel()
	if shutdownErr := apiServer.Shutdown(); shutdownErr != nil {
		c.logger.Warn("API server shutdown", logger.Err(shutdownErr))
	}

	return err
}
