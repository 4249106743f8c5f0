package reformulate_test

import (
	"context"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docrag/pkg/llm"
	"github.com/papercomputeco/docrag/pkg/reformulate"
	testutils "github.com/papercomputeco/docrag/pkg/utils/test"
)

var _ = Describe("Reformulator", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("returns the trimmed model output", func() {
		completer := testutils.NewMockCompleter("  What is the refund policy for orders?\n")
		r := reformulate.New(completer, nil)

		history := []llm.Message{
			llm.NewMessage(llm.RoleUser, "tell me about orders"),
			llm.NewMessage(llm.RoleAssistant, "orders ship in 2 days"),
		}
		out, err := r.Reformulate(ctx, "and refunds?", history)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("What is the refund policy for orders?"))

		calls := completer.Calls()
		Expect(calls).To(HaveLen(1))
		Expect(calls[0].Messages).To(HaveLen(2))
		Expect(calls[0].Messages[0]).To(Equal(llm.NewMessage(llm.RoleSystem, reformulate.SystemPrompt)))
		Expect(calls[0].Messages[1].Content).To(ContainSubstring("orders ship in 2 days"))
		Expect(calls[0].Messages[1].Content).To(HaveSuffix("rewrite the following query into a standalone question: 'and refunds?'"))
	})

	It("sends only the last five history turns", func() {
		completer := testutils.NewMockCompleter("q")
		history := make([]llm.Message, 8)
		for i := range history {
			history[i] = llm.NewMessage(llm.RoleUser, fmt.Sprintf("turn-%d", i))
		}

		_, err := reformulate.New(completer, nil).Reformulate(ctx, "q", history)
		Expect(err).NotTo(HaveOccurred())

		prompt := completer.Calls()[0].Messages[1].Content
		Expect(prompt).NotTo(ContainSubstring("turn-2"))
		Expect(prompt).To(ContainSubstring("turn-3"))
		Expect(prompt).To(ContainSubstring("turn-7"))
	})

	It("renders empty history as an empty list", func() {
		prompt, err := reformulate.UserPrompt("hello", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(prompt).To(Equal("Given this conversation history [] , rewrite the following query into a standalone question: 'hello'"))
	})

	It("wraps completion failures in ErrReformulation", func() {
		completer := testutils.NewMockCompleter()
		completer.Err = errors.New("rate limited")

		_, err := reformulate.New(completer, nil).Reformulate(ctx, "q", nil)
		Expect(errors.Is(err, reformulate.ErrReformulation)).To(BeTrue())
		Expect(errors.Is(err, llm.ErrCompletion)).To(BeTrue())
	})

	It("treats empty output as a failure", func() {
		_, err := reformulate.New(testutils.NewMockCompleter("   "), nil).Reformulate(ctx, "q", nil)
		Expect(errors.Is(err, reformulate.ErrReformulation)).To(BeTrue())
	})
})
