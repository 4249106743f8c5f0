package chunker_test

import (
	"fmt"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docrag/pkg/chunker"
)

// reconstruct concatenates each chunk's tail past the previous chunk's end.
func reconstruct(text string, spans []chunker.Span) string {
	runes := []rune(text)
	var b strings.Builder
	end := 0
	for _, sp := range spans {
		from := max(sp.Start, end)
		b.WriteString(string(runes[from:sp.End]))
		end = sp.End
	}
	return b.String()
}

func words(n int) string {
	parts := make([]string, 0, n)
	for i := range n {
		parts = append(parts, fmt.Sprintf("word%d", i))
	}
	return strings.Join(parts, " ")
}

var _ = Describe("RecursiveSplitter", func() {
	Describe("New", func() {
		It("rejects an overlap equal to the chunk size", func() {
			_, err := chunker.New(10, 10, nil)
			Expect(err).To(MatchError(chunker.ErrInvalidConfig))
		})

		It("rejects a non-positive chunk size", func() {
			_, err := chunker.New(0, 0, nil)
			Expect(err).To(MatchError(chunker.ErrInvalidConfig))
		})

		It("rejects empty separators", func() {
			_, err := chunker.New(10, 2, []string{" ", ""})
			Expect(err).To(MatchError(chunker.ErrInvalidConfig))
		})

		It("uses the defaults", func() {
			s := chunker.NewDefault()
			Expect(s.ChunkSize()).To(Equal(chunker.DefaultChunkSize))
			Expect(s.Overlap()).To(Equal(chunker.DefaultOverlap))
		})
	})

	Describe("Split", func() {
		It("returns nothing for empty text", func() {
			Expect(chunker.NewDefault().Split("")).To(BeEmpty())
		})

		It("returns short text as a single chunk", func() {
			Expect(chunker.NewDefault().Split("hello world")).To(Equal([]string{"hello world"}))
		})

		It("drops whitespace-only text", func() {
			Expect(chunker.NewDefault().Split("   \n ")).To(BeEmpty())
		})

		It("keeps separators with the text that follows them", func() {
			s, err := chunker.New(6, 0, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Split("aa bb cc dd")).To(Equal([]string{"aa bb", " cc dd"}))
		})

		It("passes an unsplittable token through whole", func() {
			s, err := chunker.New(10, 2, nil)
			Expect(err).NotTo(HaveOccurred())

			token := strings.Repeat("x", 25)
			chunks := s.Split("ab " + token + " cd")
			Expect(chunks).To(ContainElement(" " + token))
		})

		It("falls through to the next separator for long pieces", func() {
			s, err := chunker.New(8, 0, []string{" ", ","})
			Expect(err).NotTo(HaveOccurred())

			chunks := s.Split("aaaa,bbbb,cccc dd")
			for _, c := range chunks {
				Expect(len([]rune(c))).To(BeNumerically("<=", 8))
			}
			Expect(strings.Join(chunks, "")).To(Equal("aaaa,bbbb,cccc dd"))
		})

		It("measures length in runes", func() {
			s, err := chunker.New(5, 0, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Split("日本語 日本")).To(Equal([]string{"日本語", " 日本"}))
		})
	})

	Describe("Spans", func() {
		var (
			s    *chunker.RecursiveSplitter
			text string
		)

		BeforeEach(func() {
			var err error
			s, err = chunker.New(50, 20, nil)
			Expect(err).NotTo(HaveOccurred())
			text = words(200)
		})

		It("reconstructs the source from non-overlapping tails", func() {
			Expect(reconstruct(text, s.Spans(text))).To(Equal(text))
		})

		It("bounds chunk size and overlap and preserves order", func() {
			spans := s.Spans(text)
			Expect(len(spans)).To(BeNumerically(">", 1))

			for i, sp := range spans {
				Expect(sp.Len()).To(BeNumerically("<=", 50))
				if i == 0 {
					Expect(sp.Start).To(Equal(0))
					continue
				}
				prev := spans[i-1]
				Expect(sp.Start).To(BeNumerically("<=", prev.End))
				Expect(prev.End - sp.Start).To(BeNumerically("<=", 20))
				Expect(sp.End).To(BeNumerically(">", prev.End))
			}
			Expect(spans[len(spans)-1].End).To(Equal(len([]rune(text))))
		})

		It("makes adjacent chunks share text when overlap is set", func() {
			spans := s.Spans(text)
			shared := 0
			for i := 1; i < len(spans); i++ {
				if spans[i].Start < spans[i-1].End {
					shared++
				}
			}
			Expect(shared).To(BeNumerically(">", 0))
		})

		It("reconstructs with the default configuration", func() {
			d := chunker.NewDefault()
			long := words(1500)
			Expect(reconstruct(long, d.Spans(long))).To(Equal(long))
		})
	})
})
