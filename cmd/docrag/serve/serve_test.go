package servecmder_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	servecmder "github.com/papercomputeco/docrag/cmd/docrag/serve"
)

var _ = Describe("NewServeCmd", func() {
	It("creates a command with expected properties", func() {
		cmd := servecmder.NewServeCmd()
		Expect(cmd.Use).To(Equal("serve"))
		Expect(cmd.Short).NotTo(BeEmpty())
	})

	DescribeTable("registers backend flags",
		func(name, def string) {
			f := servecmder.NewServeCmd().Flags().Lookup(name)
			Expect(f).NotTo(BeNil())
			Expect(f.DefValue).To(Equal(def))
		},
		Entry("listen", "listen", ":8000"),
		Entry("collection", "collection", "documents"),
		Entry("vector store", "vector-store-provider", "qdrant"),
		Entry("embedding dimensions", "embedding-dimensions", "768"),
		Entry("reranker", "reranker-provider", "tei"),
		Entry("top k", "top-k", "5"),
		Entry("llm", "llm-provider", "groq"),
		Entry("ocr", "ocr-provider", "tesseract"),
		Entry("workers", "workers", "3"),
		Entry("events", "events-provider", "none"),
	)

	It("has watch and logging flags", func() {
		cmd := servecmder.NewServeCmd()
		Expect(cmd.Flags().Lookup("watch")).NotTo(BeNil())
		Expect(cmd.Flags().Lookup("doc-type")).NotTo(BeNil())
		Expect(cmd.Flags().Lookup("json-logs")).NotTo(BeNil())
	})

	It("rejects positional arguments", func() {
		cmd := servecmder.NewServeCmd()
		Expect(cmd.Args(cmd, []string{"extra"})).To(HaveOccurred())
	})
})
