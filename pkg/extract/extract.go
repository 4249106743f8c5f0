// Package extract turns raw document bytes into plain text. Direct text
// extraction is attempted first; when it fails or yields nothing, every page
// is rendered to an image and run through optical character recognition.
package extract

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"strings"

	"github.com/papercomputeco/docrag/pkg/logger"
)

// TextSource extracts the text layer of a document, one entry per page.
type TextSource interface {
	Pages(ctx context.Context, data []byte) ([]string, error)
}

// PageRenderer produces one image per page of a document.
type PageRenderer interface {
	RenderPages(ctx context.Context, data []byte) ([]image.Image, error)
}

// Recognizer runs optical character recognition over a single page image.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
}

// Source reports which extraction path produced a Result.
type Source string

const (
	SourceDirect Source = "direct"
	SourceOCR    Source = "ocr"

	// SourceNone means neither path produced text.
	SourceNone Source = "none"
)

// Result is the outcome of Extract.
type Result struct {
	Text   string
	Source Source
}

// Empty reports whether the result carries no usable text.
func (r *Result) Empty() bool {
	return strings.TrimSpace(r.Text) == ""
}

// Config configures an Extractor.
type Config struct {
	TextSource TextSource

	// Renderer and Recognizer enable the OCR fallback. Both are optional;
	// without them a failed direct extraction yields empty text.
	Renderer   PageRenderer
	Recognizer Recognizer

	// MaxPageDimension bounds the longest side of a page image before
	// recognition. Zero disables scaling.
	MaxPageDimension int

	Logger *slog.Logger
}

// Extractor runs the DIRECT_EXTRACT then OCR_FALLBACK state machine.
type Extractor struct {
	text       TextSource
	renderer   PageRenderer
	recognizer Recognizer
	maxDim     int
	logger     *slog.Logger
}

// New builds an Extractor.
func New(c Config) *Extractor {
	l := c.Logger
	if l == nil {
		l = logger.Nop()
	}

	return &Extractor{
		text:       c.TextSource,
		renderer:   c.Renderer,
		recognizer: c.Recognizer,
		maxDim:     c.MaxPageDimension,
		logger:     l,
	}
}

// Extract returns the document text. An empty Result is the normal outcome
// for a document with no recoverable content; the only error returned is a
// canceled context.
func (e *Extractor) Extract(ctx context.Context, data []byte) (*Result, error) {
	text, err := e.Direct(ctx, data)
	if err == nil {
		return &Result{Text: text, Source: SourceDirect}, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	e.logger.Debug("direct extraction yielded no text, falling back to ocr", logger.Err(err))

	text, err = e.OCR(ctx, data)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		e.logger.Warn("ocr fallback failed", logger.Err(err))
		return &Result{Source: SourceNone}, nil
	}

	if strings.TrimSpace(text) == "" {
		return &Result{Source: SourceNone}, nil
	}

	return &Result{Text: text, Source: SourceOCR}, nil
}

// Direct concatenates the text layer of every page. Parse failures, panics
// from the underlying parser, and whitespace-only output all return
// ErrExtraction.
func (e *Extractor) Direct(ctx context.Context, data []byte) (text string, err error) {
	if e.text == nil {
		return "", fmt.Errorf("%w: no text source configured", ErrExtraction)
	}

	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: parser panic: %v", ErrExtraction, r)
		}
	}()

	pages, err := e.text.Pages(ctx, data)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	text = strings.Join(pages, "\n")
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: no text layer", ErrExtraction)
	}

	return text, nil
}

// OCR renders every page, normalizes it to grayscale and recognizes each page
// independently. A page that fails recognition contributes nothing. The
// result is the newline-joined non-empty page texts.
func (e *Extractor) OCR(ctx context.Context, data []byte) (string, error) {
	if e.renderer == nil || e.recognizer == nil {
		return "", fmt.Errorf("%w: ocr not configured", ErrOCR)
	}

	pages, err := e.renderer.RenderPages(ctx, data)
	if err != nil {
		return "", fmt.Errorf("%w: rendering pages: %w", ErrOCR, err)
	}

	texts := make([]string, 0, len(pages))
	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		text, err := e.recognizePage(ctx, page)
		if err != nil {
			e.logger.Warn("page recognition failed",
				"page", i+1,
				logger.Err(err),
			)
			continue
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		texts = append(texts, text)
	}

	return strings.Join(texts, "\n"), nil
}

func (e *Extractor) recognizePage(ctx context.Context, page image.Image) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: recognizer panic: %v", ErrOCR, r)
		}
	}()

	if page == nil {
		return "", fmt.Errorf("%w: nil page image", ErrOCR)
	}

	gray := Grayscale(Fit(page, e.maxDim))
	return e.recognizer.Recognize(ctx, gray)
}
