// Package ingestcmder provides the ingest command for uploading documents
// to a running docrag server.
package ingestcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/docrag/api"
	"github.com/papercomputeco/docrag/api/client"
	"github.com/papercomputeco/docrag/pkg/cliui"
	"github.com/papercomputeco/docrag/pkg/config"
)

type ingestCommander struct {
	apiTarget  string
	collection string
	workers    uint
	docType    string
	name       string
}

var ingestFlagKeys = []string{
	config.FlagAPITarget,
	config.FlagCollection,
	config.FlagWorkers,
}

const ingestLongDesc string = `Upload documents to a running docrag API server.

Each path may be a PDF file or a directory; directories are walked for .pdf
files. Documents are uploaded concurrently and each is extracted, chunked,
embedded and stored independently, so one failure does not stop the rest.

Examples:
  docrag ingest report.pdf
  docrag ingest ./manuals --collection manuals --workers 8
  docrag ingest scan.pdf --name "Q3 report" --doc-type report`

const ingestShortDesc string = "Upload documents for ingestion"

func NewIngestCmd() *cobra.Command {
	cmder := &ingestCommander{}

	cmd := &cobra.Command{
		Use:   "ingest <paths...>",
		Short: ingestShortDesc,
		Long:  ingestLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.ForCommand(cmd, ingestFlagKeys)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			cmder.apiTarget = cfg.Client.APITarget
			cmder.collection = cfg.Client.Collection
			cmder.workers = cfg.Ingest.Workers

			files, err := collectFiles(args)
			if err != nil {
				return err
			}
			if cmder.name != "" && len(files) > 1 {
				return errors.New("--name can only be used with a single file")
			}

			return cmder.run(cmd.Context(), cmd.OutOrStdout(), files)
		},
	}

	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagAPITarget, &cmder.apiTarget)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagCollection, &cmder.collection)
	config.AddUintFlag(cmd, config.DefaultFlags, config.FlagWorkers, &cmder.workers)
	cmd.Flags().StringVar(&cmder.docType, "doc-type", "", "Document type stored with every chunk")
	cmd.Flags().StringVar(&cmder.name, "name", "", "Document name (defaults to the file name)")

	return cmd
}

func (c *ingestCommander) run(ctx context.Context, out io.Writer, files []string) error {
	if len(files) == 0 {
		fmt.Fprintf(out, "\n  %s No PDF files found.\n\n", cliui.DimStyle.Render("●"))
		return nil
	}

	cl := client.New(c.apiTarget, 0)

	fmt.Fprintf(out, "\n  Ingesting %d document(s) into %s\n\n", len(files), cliui.NameStyle.Render(c.collection))

	var (
		mu     sync.Mutex
		failed int
	)

	g, ctx := errgroup.WithContext(ctx)
	if c.workers > 0 {
		g.SetLimit(int(c.workers))
	}

	for _, path := range files {
		g.Go(func() error {
			res, err := c.upload(ctx, cl, path)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				failed++
				fmt.Fprintf(out, "  %s %s %s\n", cliui.FailMark, path, cliui.DimStyle.Render(err.Error()))
				return nil
			}
			fmt.Fprintf(out, "  %s %s %s\n", cliui.SuccessMark, path,
				cliui.DimStyle.Render(fmt.Sprintf("(%d chunks, %s)", res.Chunks, res.DocumentID)))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	fmt.Fprintln(out)

	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(files))
	}
	return nil
}

func (c *ingestCommander) upload(ctx context.Context, cl *client.Client, path string) (*api.UploadResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	name := c.name
	if name == "" {
		name = filepath.Base(path)
	}

	return cl.Upload(ctx, c.collection, name, c.docType, f)
}

// collectFiles expands directories into the PDF files beneath them. Files
// named explicitly are kept whatever their extension.
func collectFiles(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}

		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".pdf") {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", p, err)
		}
	}
	return files, nil
}
