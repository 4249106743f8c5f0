package credentials_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docrag/pkg/credentials"
)

var _ = Describe("Manager", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "credentials-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("NewManager", func() {
		It("creates a manager with an override directory", func() {
			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(mgr).NotTo(BeNil())
			Expect(mgr.GetTarget()).To(Equal(filepath.Join(tmpDir, "credentials.toml")))
		})
	})

	Describe("Load", func() {
		It("returns empty credentials when no file exists", func() {
			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			creds, err := mgr.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(creds).NotTo(BeNil())
			Expect(creds.Providers).To(BeEmpty())
		})

		It("loads existing credentials", func() {
			data := `version = 0

[providers.openai]
api_key = "sk-test-key"
`
			err := os.WriteFile(filepath.Join(tmpDir, "credentials.toml"), []byte(data), 0o600)
			Expect(err).NotTo(HaveOccurred())

			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			creds, err := mgr.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(creds.Providers).To(HaveKey("openai"))
			Expect(creds.Providers["openai"].APIKey).To(Equal("sk-test-key"))
		})

		It("returns error for malformed TOML", func() {
			err := os.WriteFile(filepath.Join(tmpDir, "credentials.toml"), []byte("not valid [[["), 0o600)
			Expect(err).NotTo(HaveOccurred())

			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			creds, err := mgr.Load()
			Expect(err).To(HaveOccurred())
			Expect(creds).To(BeNil())
		})
	})

	Describe("Save", func() {
		It("persists credentials to disk with restricted permissions", func() {
			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			creds := &credentials.Credentials{
				Providers: map[string]credentials.ProviderCredential{
					"openai": {APIKey: "sk-test"},
				},
			}
			err = mgr.Save(creds)
			Expect(err).NotTo(HaveOccurred())

			info, err := os.Stat(filepath.Join(tmpDir, "credentials.toml"))
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))
		})

		It("returns error for nil credentials", func() {
			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			err = mgr.Save(nil)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("SetKey", func() {
		It("stores a new API key", func() {
			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			err = mgr.SetKey("openai", "sk-new-key")
			Expect(err).NotTo(HaveOccurred())

			key, err := mgr.GetKey("openai")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("sk-new-key"))
		})

		It("overwrites an existing key", func() {
			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			err = mgr.SetKey("openai", "sk-old")
			Expect(err).NotTo(HaveOccurred())

			err = mgr.SetKey("openai", "sk-new")
			Expect(err).NotTo(HaveOccurred())

			key, err := mgr.GetKey("openai")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("sk-new"))
		})

		It("preserves other provider keys", func() {
			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			err = mgr.SetKey("openai", "sk-openai")
			Expect(err).NotTo(HaveOccurred())

			err = mgr.SetKey("anthropic", "sk-anthropic")
			Expect(err).NotTo(HaveOccurred())

			key, err := mgr.GetKey("openai")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("sk-openai"))

			key, err = mgr.GetKey("anthropic")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("sk-anthropic"))
		})
	})

	Describe("GetKey", func() {
		It("returns empty string for unknown provider", func() {
			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			key, err := mgr.GetKey("nonexistent")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(BeEmpty())
		})
	})

	Describe("Resolve", func() {
		It("prefers an explicit key", func() {
			GinkgoT().Setenv("GROQ_API_KEY", "from-env")
			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			key, err := mgr.Resolve("groq", "explicit")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("explicit"))
		})

		It("falls back to the environment before the stored key", func() {
			GinkgoT().Setenv("GROQ_API_KEY", "from-env")
			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(mgr.SetKey("groq", "stored")).To(Succeed())

			key, err := mgr.Resolve("groq", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("from-env"))
		})

		It("uses the stored key last", func() {
			GinkgoT().Setenv("COHERE_API_KEY", "")
			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(mgr.SetKey("cohere", "stored")).To(Succeed())

			key, err := mgr.Resolve("cohere", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("stored"))
		})
	})

	Describe("Lookup", func() {
		It("reports the source of every key", func() {
			GinkgoT().Setenv("GROQ_API_KEY", "gsk-env")
			GinkgoT().Setenv("COHERE_API_KEY", "")
			GinkgoT().Setenv("OPENAI_API_KEY", "")

			stamp := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
			restore := credentials.SetNow(func() time.Time { return stamp })
			defer restore()

			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(mgr.SetKey("cohere", "co-stored")).To(Succeed())

			key, err := mgr.Lookup("groq", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal(credentials.Key{
				Provider: "groq", Value: "gsk-env", Source: credentials.SourceEnv, EnvVar: "GROQ_API_KEY",
			}))

			key, err = mgr.Lookup("cohere", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(key.Source).To(Equal(credentials.SourceStored))
			Expect(key.Value).To(Equal("co-stored"))
			Expect(key.UpdatedAt).To(BeTemporally("==", stamp))

			key, err = mgr.Lookup("openai", "sk-config")
			Expect(err).NotTo(HaveOccurred())
			Expect(key.Source).To(Equal(credentials.SourceExplicit))

			key, err = mgr.Lookup("openai", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(key.Source).To(Equal(credentials.SourceNone))
			Expect(key.Value).To(BeEmpty())
			Expect(key.EnvVar).To(Equal("OPENAI_API_KEY"))
		})

		It("surfaces unreadable credentials", func() {
			GinkgoT().Setenv("GROQ_API_KEY", "")
			Expect(os.WriteFile(filepath.Join(tmpDir, "credentials.toml"), []byte("not = [valid"), 0o600)).To(Succeed())

			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = mgr.Lookup("groq", "")
			Expect(err).To(MatchError(ContainSubstring("parsing credentials")))
		})
	})

	Describe("RemoveKey", func() {
		It("removes an existing key", func() {
			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			err = mgr.SetKey("openai", "sk-test")
			Expect(err).NotTo(HaveOccurred())

			err = mgr.RemoveKey("openai")
			Expect(err).NotTo(HaveOccurred())

			key, err := mgr.GetKey("openai")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(BeEmpty())
		})

		It("is a no-op for nonexistent provider", func() {
			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			err = mgr.RemoveKey("nonexistent")
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("ListProviders", func() {
		It("returns empty list when no credentials stored", func() {
			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			providers, err := mgr.ListProviders()
			Expect(err).NotTo(HaveOccurred())
			Expect(providers).To(BeEmpty())
		})

		It("returns stored providers in sorted order", func() {
			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			err = mgr.SetKey("openai", "sk-1")
			Expect(err).NotTo(HaveOccurred())
			err = mgr.SetKey("anthropic", "sk-2")
			Expect(err).NotTo(HaveOccurred())

			providers, err := mgr.ListProviders()
			Expect(err).NotTo(HaveOccurred())
			Expect(providers).To(Equal([]string{"anthropic", "openai"}))
		})
	})
})

var _ = DescribeTable("EnvVarForProvider",
	func(provider, envVar string) {
		Expect(credentials.EnvVarForProvider(provider)).To(Equal(envVar))
	},
	Entry("openai", "openai", "OPENAI_API_KEY"),
	Entry("anthropic", "anthropic", "ANTHROPIC_API_KEY"),
	Entry("groq", "groq", "GROQ_API_KEY"),
	Entry("cohere", "cohere", "COHERE_API_KEY"),
	Entry("keyless provider", "ollama", ""),
)

var _ = Describe("UsesForProvider", func() {
	It("names the config sections a key serves", func() {
		Expect(credentials.UsesForProvider("openai")).To(Equal([]string{"llm", "embedding"}))
		Expect(credentials.UsesForProvider("cohere")).To(Equal([]string{"reranker"}))
		Expect(credentials.UsesForProvider("ollama")).To(BeEmpty())
	})
})

var _ = Describe("SupportedProviders", func() {
	It("returns every provider that takes an API key", func() {
		providers := credentials.SupportedProviders()
		Expect(providers).To(ConsistOf("anthropic", "cohere", "groq", "openai"))
	})
})

var _ = Describe("IsSupportedProvider", func() {
	It("returns true for supported providers", func() {
		Expect(credentials.IsSupportedProvider("openai")).To(BeTrue())
		Expect(credentials.IsSupportedProvider("anthropic")).To(BeTrue())
	})

	It("returns false for unsupported providers", func() {
		Expect(credentials.IsSupportedProvider("ollama")).To(BeFalse())
		Expect(credentials.IsSupportedProvider("unknown")).To(BeFalse())
	})
})
