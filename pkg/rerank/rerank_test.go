package rerank_test

import (
	"context"
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docrag/pkg/document"
	"github.com/papercomputeco/docrag/pkg/rerank"
	testutils "github.com/papercomputeco/docrag/pkg/utils/test"
)

func hits(texts ...string) []document.Hit {
	out := make([]document.Hit, len(texts))
	for i, t := range texts {
		out[i] = document.Hit{Payload: document.Payload{Text: t}, Score: 0.5}
	}
	return out
}

func texts(hs []document.Hit) []string {
	out := make([]string, len(hs))
	for i, h := range hs {
		out[i] = h.Payload.Text
	}
	return out
}

var _ = Describe("Reranker", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("orders by descending relevance and truncates to top-K", func() {
		scorer := testutils.NewMockScorer(map[string]float64{"a": 0.1, "b": 0.9, "c": 0.5, "d": 0.7})
		r := rerank.New(scorer, nil)

		out, err := r.Rerank(ctx, "q", hits("a", "b", "c", "d"), 3)
		Expect(err).NotTo(HaveOccurred())
		Expect(texts(out)).To(Equal([]string{"b", "d", "c"}))
		Expect(out[0].Score).To(BeNumerically("~", 0.9, 1e-6))
	})

	It("returns every hit when top-K exceeds the candidate count", func() {
		r := rerank.New(testutils.NewMockScorer(map[string]float64{"a": 1, "b": 2}), nil)

		out, err := r.Rerank(ctx, "q", hits("a", "b"), 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(HaveLen(2))
	})

	It("defaults top-K when none is given", func() {
		r := rerank.New(testutils.NewMockScorer(map[string]float64{}), nil)

		out, err := r.Rerank(ctx, "q", hits("a", "b", "c", "d", "e", "f", "g"), 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(HaveLen(rerank.DefaultTopK))
	})

	It("keeps input order on ties", func() {
		scorer := testutils.NewMockScorer(map[string]float64{"a": 1, "b": 2, "c": 1, "d": 2})
		r := rerank.New(scorer, nil)

		out, err := r.Rerank(ctx, "q", hits("a", "b", "c", "d"), 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(texts(out)).To(Equal([]string{"b", "d", "a", "c"}))
	})

	It("does not call the scorer for empty input", func() {
		scorer := testutils.NewMockScorer(nil)
		r := rerank.New(scorer, nil)

		out, err := r.Rerank(ctx, "q", nil, 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).NotTo(BeNil())
		Expect(out).To(BeEmpty())
		Expect(scorer.Calls()).To(Equal(0))
	})

	It("scores pairs individually when the batch call fails", func() {
		scorer := testutils.NewMockScorer(map[string]float64{"a": 0.2, "b": 0.8, "c": 0.5})
		scorer.FailBatch = true
		scorer.FailTexts["b"] = true
		r := rerank.New(scorer, nil)

		out, err := r.Rerank(ctx, "q", hits("a", "b", "c"), 3)
		Expect(err).NotTo(HaveOccurred())
		Expect(texts(out)).To(Equal([]string{"c", "a", "b"}))
		Expect(math.IsInf(float64(out[2].Score), -1)).To(BeTrue())
		Expect(scorer.Calls()).To(Equal(4))
	})

	It("returns ErrRerank when every pair fails", func() {
		scorer := testutils.NewMockScorer(nil)
		scorer.FailTexts["a"] = true
		scorer.FailTexts["b"] = true
		r := rerank.New(scorer, nil)

		_, err := r.Rerank(ctx, "q", hits("a", "b"), 2)
		Expect(errors.Is(err, rerank.ErrRerank)).To(BeTrue())
	})

	It("treats a wrong score count as a batch failure", func() {
		calls := 0
		scorer := rerank.ScorerFunc(func(_ context.Context, _ string, ts []string) ([]float64, error) {
			calls++
			if len(ts) > 1 {
				return []float64{1}, nil
			}
			if ts[0] == "a" {
				return []float64{0.1}, nil
			}
			return []float64{0.9}, nil
		})
		r := rerank.New(scorer, nil)

		out, err := r.Rerank(ctx, "q", hits("a", "b"), 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(texts(out)).To(Equal([]string{"b", "a"}))
		Expect(calls).To(Equal(3))
	})

	It("returns the context error when cancelled", func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		scorer := rerank.ScorerFunc(func(ctx context.Context, _ string, _ []string) ([]float64, error) {
			return nil, ctx.Err()
		})

		_, err := rerank.New(scorer, nil).Rerank(cctx, "q", hits("a"), 1)
		Expect(err).To(MatchError(context.Canceled))
	})

	Context("without a scorer", func() {
		It("keeps vector order and scores", func() {
			in := []document.Hit{
				{Payload: document.Payload{Text: "a"}, Score: 0.9},
				{Payload: document.Payload{Text: "b"}, Score: 0.6},
				{Payload: document.Payload{Text: "c"}, Score: 0.3},
			}

			out, err := rerank.New(nil, nil).Rerank(ctx, "q", in, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal(in[:2]))
		})
	})
})
