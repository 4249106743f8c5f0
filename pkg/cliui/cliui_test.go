package cliui_test

import (
	"bytes"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docrag/pkg/cliui"
	"github.com/papercomputeco/docrag/pkg/document"
)

var _ = Describe("Step", func() {
	It("prints a single result line when not on a terminal", func() {
		var buf bytes.Buffer
		err := cliui.Step(&buf, "Uploading", func() error { return nil })
		Expect(err).NotTo(HaveOccurred())
		Expect(buf.String()).To(ContainSubstring("Uploading"))
		Expect(buf.String()).To(ContainSubstring(cliui.SuccessMark))
		Expect(buf.String()).NotTo(ContainSubstring("\r"))
	})

	It("returns the function's error", func() {
		var buf bytes.Buffer
		boom := errors.New("boom")
		Expect(cliui.Step(&buf, "Uploading", func() error { return boom })).To(MatchError(boom))
		Expect(buf.String()).To(ContainSubstring(cliui.FailMark))
	})
})

var _ = Describe("FormatDuration", func() {
	It("uses milliseconds below a second", func() {
		Expect(cliui.FormatDuration(12 * time.Millisecond)).To(Equal("12ms"))
	})

	It("uses seconds above a second", func() {
		Expect(cliui.FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
	})
})

var _ = Describe("RenderAnswer", func() {
	It("leaves non-terminal output plain", func() {
		var buf bytes.Buffer
		Expect(cliui.RenderAnswer(&buf, "**five** days")).To(Equal("**five** days"))
	})
})

var _ = Describe("PrintSources", func() {
	It("lists sources in order with their scores", func() {
		var buf bytes.Buffer
		cliui.PrintSources(&buf, []document.SearchResult{
			{DocumentID: "d1", DocumentName: "handbook.pdf", DocType: "policy", Score: 0.91},
			{DocumentID: "d2", Score: 0.5},
		})

		out := buf.String()
		Expect(out).To(ContainSubstring("Sources"))
		Expect(out).To(ContainSubstring("handbook.pdf"))
		Expect(out).To(ContainSubstring("[policy]"))
		Expect(out).To(ContainSubstring("0.91"))
		Expect(out).To(ContainSubstring("2. d2"))
	})

	It("prints nothing without results", func() {
		var buf bytes.Buffer
		cliui.PrintSources(&buf, nil)
		Expect(buf.Len()).To(BeZero())
	})
})
