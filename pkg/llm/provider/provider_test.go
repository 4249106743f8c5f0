package provider_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docrag/pkg/llm"
	"github.com/papercomputeco/docrag/pkg/llm/provider"
)

// capture records the last request a fake provider received.
type capture struct {
	path    string
	headers http.Header
	body    map[string]any
}

func fakeServer(c *capture, status int, reply string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.path = r.URL.Path
		c.headers = r.Header.Clone()
		_ = json.NewDecoder(r.Body).Decode(&c.body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
}

var conversation = []llm.Message{
	llm.NewMessage(llm.RoleSystem, "be brief"),
	llm.NewMessage(llm.RoleUser, "hi"),
}

var _ = Describe("New", func() {
	It("rejects unknown providers", func() {
		_, err := provider.New(provider.Config{Provider: "bedrock"})
		Expect(err).To(MatchError(ContainSubstring("unknown provider type")))
	})

	It("lists supported providers", func() {
		Expect(provider.SupportedProviders()).To(ConsistOf("groq", "openai", "anthropic", "ollama"))
	})
})

var _ = Describe("OpenAI-compatible completer", func() {
	It("posts chat completions with max_tokens and bearer auth", func() {
		c := &capture{}
		server := fakeServer(c, http.StatusOK, `{"choices":[{"message":{"content":"hello there"}}]}`)
		defer server.Close()

		completer, err := provider.New(provider.Config{Provider: provider.Groq, BaseURL: server.URL, APIKey: "gsk"})
		Expect(err).NotTo(HaveOccurred())

		out, err := completer.Complete(context.Background(), conversation, llm.CompleteOptions{MaxTokens: 500})
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("hello there"))
		Expect(c.path).To(Equal("/v1/chat/completions"))
		Expect(c.headers.Get("Authorization")).To(Equal("Bearer gsk"))
		Expect(c.body["model"]).To(Equal("llama3-70b-8192"))
		Expect(c.body["max_tokens"]).To(BeNumerically("==", 500))
		Expect(c.body["messages"]).To(HaveLen(2))
	})

	It("wraps API errors in ErrCompletion", func() {
		c := &capture{}
		server := fakeServer(c, http.StatusTooManyRequests, `{"error":{"message":"rate limited"}}`)
		defer server.Close()

		completer, _ := provider.New(provider.Config{Provider: provider.OpenAI, BaseURL: server.URL})
		_, err := completer.Complete(context.Background(), conversation, llm.CompleteOptions{})
		Expect(err).To(MatchError(llm.ErrCompletion))
		Expect(err.Error()).To(ContainSubstring("429"))
	})

	It("fails on empty choices", func() {
		c := &capture{}
		server := fakeServer(c, http.StatusOK, `{"choices":[]}`)
		defer server.Close()

		completer, _ := provider.New(provider.Config{Provider: provider.OpenAI, BaseURL: server.URL})
		_, err := completer.Complete(context.Background(), conversation, llm.CompleteOptions{})
		Expect(err).To(MatchError(llm.ErrCompletion))
	})
})

var _ = Describe("Anthropic completer", func() {
	It("lifts system messages and joins text blocks", func() {
		c := &capture{}
		server := fakeServer(c, http.StatusOK, `{"content":[{"type":"text","text":"hel"},{"type":"text","text":"lo"}]}`)
		defer server.Close()

		completer, _ := provider.New(provider.Config{Provider: provider.Anthropic, BaseURL: server.URL, APIKey: "ak"})
		out, err := completer.Complete(context.Background(), conversation, llm.CompleteOptions{})
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("hello"))

		Expect(c.path).To(Equal("/v1/messages"))
		Expect(c.headers.Get("x-api-key")).To(Equal("ak"))
		Expect(c.body["system"]).To(Equal("be brief"))
		Expect(c.body["messages"]).To(HaveLen(1))
		Expect(c.body["max_tokens"]).To(BeNumerically("==", 1024))
	})
})

var _ = Describe("Ollama completer", func() {
	It("maps max tokens to num_predict", func() {
		c := &capture{}
		server := fakeServer(c, http.StatusOK, `{"message":{"role":"assistant","content":"ok"},"done":true}`)
		defer server.Close()

		completer, _ := provider.New(provider.Config{Provider: provider.Ollama, BaseURL: server.URL})
		out, err := completer.Complete(context.Background(), conversation, llm.CompleteOptions{MaxTokens: 42})
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("ok"))

		Expect(c.path).To(Equal("/api/chat"))
		Expect(c.body["stream"]).To(BeFalse())
		Expect(c.body["options"]).To(HaveKeyWithValue("num_predict", BeNumerically("==", 42)))
	})

	It("surfaces ollama errors", func() {
		c := &capture{}
		server := fakeServer(c, http.StatusOK, `{"error":"model not found"}`)
		defer server.Close()

		completer, _ := provider.New(provider.Config{Provider: provider.Ollama, BaseURL: server.URL})
		_, err := completer.Complete(context.Background(), conversation, llm.CompleteOptions{})
		Expect(err).To(MatchError(llm.ErrCompletion))
	})
})
