// Package docragcmder
package docragcmder

import (
	"github.com/spf13/cobra"

	askcmder "github.com/papercomputeco/docrag/cmd/docrag/ask"
	authcmder "github.com/papercomputeco/docrag/cmd/docrag/auth"
	chatcmder "github.com/papercomputeco/docrag/cmd/docrag/chat"
	collectioncmder "github.com/papercomputeco/docrag/cmd/docrag/collection"
	configcmder "github.com/papercomputeco/docrag/cmd/docrag/config"
	ingestcmder "github.com/papercomputeco/docrag/cmd/docrag/ingest"
	initcmder "github.com/papercomputeco/docrag/cmd/docrag/init"
	servecmder "github.com/papercomputeco/docrag/cmd/docrag/serve"
	watchcmder "github.com/papercomputeco/docrag/cmd/docrag/watch"
	versioncmder "github.com/papercomputeco/docrag/cmd/version"
)

const docragLongDesc string = `docrag answers questions about your documents.

PDFs are extracted (with OCR for scanned pages), chunked, embedded and stored
in a vector collection. Questions are reformulated against the conversation,
matched against the collection, re-ranked and answered by an LLM from the
best matching chunks.

Get started:
  docrag init                      Create a local .docrag/ directory
  docrag serve                     Run the API server
  docrag collection create docs    Create a collection
  docrag ingest ./pdfs -c docs     Upload documents
  docrag chat -c docs              Chat with the collection`

const docragShortDesc string = "docrag - chat with your documents"

func NewDocragCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "docrag",
		Short:        docragShortDesc,
		Long:         docragLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .docrag/ config directory")

	// Add subcommands
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(collectioncmder.NewCollectionCmd())
	cmd.AddCommand(ingestcmder.NewIngestCmd())
	cmd.AddCommand(watchcmder.NewWatchCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
