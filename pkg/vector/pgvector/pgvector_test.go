package pgvector_test

import (
	"context"
	"os"
	"strings"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docrag/pkg/document"
	"github.com/papercomputeco/docrag/pkg/logger"
	"github.com/papercomputeco/docrag/pkg/vector"
	"github.com/papercomputeco/docrag/pkg/vector/pgvector"
)

// connStr returns the PostgreSQL connection string from environment or skips the test.
func connStr() string {
	dsn := os.Getenv("DOCRAG_TEST_POSTGRES_DSN")
	if dsn == "" {
		Skip("DOCRAG_TEST_POSTGRES_DSN not set, skipping pgvector tests")
	}
	return dsn
}

var _ = Describe("TableName", func() {
	It("quotes the prefixed collection name", func() {
		Expect(pgvector.TableName("manuals")).To(Equal(`"docrag_manuals"`))
	})

	It("escapes embedded quotes", func() {
		Expect(pgvector.TableName(`a"b`)).To(Equal(`"docrag_a""b"`))
	})
})

var _ = Describe("Driver", func() {
	var (
		ctx    context.Context
		driver *pgvector.Driver
		name   string
	)

	BeforeEach(func() {
		ctx = context.Background()
		dsn := connStr()

		var err error
		driver, err = pgvector.NewDriver(ctx, dsn, logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		name = "t_" + strings.ReplaceAll(uuid.NewString()[:8], "-", "")
		Expect(driver.CreateCollection(ctx, name, 3)).To(Succeed())
	})

	AfterEach(func() {
		if driver != nil {
			driver.Close()
		}
	})

	It("rejects invalid names and duplicates", func() {
		Expect(driver.CreateCollection(ctx, "no spaces", 3)).To(MatchError(vector.ErrVectorStore))
		Expect(driver.CreateCollection(ctx, name, 3)).To(MatchError(vector.ErrCollectionExists))
	})

	It("reports unknown collections", func() {
		_, err := driver.Search(ctx, "missing_collection", []float32{1, 0, 0}, vector.DefaultSearchParams())
		Expect(err).To(MatchError(vector.ErrCollectionNotFound))
	})

	It("searches above the threshold in descending order", func() {
		Expect(driver.Upsert(ctx, name, []document.Point{
			{ID: uuid.New(), Vector: []float32{0, 1, 0}, Payload: document.Payload{Text: "orthogonal"}},
			{ID: uuid.New(), Vector: []float32{1, 0.2, 0}, Payload: document.Payload{Text: "close"}},
			{ID: uuid.New(), Vector: []float32{1, 0, 0}, Payload: document.Payload{Text: "exact"}},
		})).To(Succeed())

		hits, err := driver.Search(ctx, name, []float32{1, 0, 0}, vector.DefaultSearchParams())
		Expect(err).NotTo(HaveOccurred())
		Expect(hits).To(HaveLen(2))
		Expect(hits[0].Payload.Text).To(Equal("exact"))
		Expect(hits[1].Payload.Text).To(Equal("close"))
	})
})
