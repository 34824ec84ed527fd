package elasticsearch

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/mfenderov/ragchat/internal/filter"
	"github.com/mfenderov/ragchat/pkg/models"
)

func skipIfNoES(t *testing.T) {
	if os.Getenv("SKIP_ES_TESTS") == "1" {
		t.Skip("Skipping ES tests (SKIP_ES_TESTS=1)")
	}

	client, err := New(Config{
		Addresses: []string{"http://localhost:9200"},
		Index:     "test-skip-check",
	})
	if err != nil {
		t.Skipf("Skipping ES tests: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if !client.Ping(ctx) {
		t.Skip("Skipping ES tests: Elasticsearch not available")
	}
}

func newTestClient(t *testing.T, index string) *Client {
	t.Helper()
	client, err := New(Config{
		Addresses: []string{"http://localhost:9200"},
		Index:     index,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()
	client.DeleteIndex(ctx)
	if err := client.CreateIndex(ctx); err != nil {
		t.Fatalf("CreateIndex() error = %v", err)
	}
	t.Cleanup(func() { client.DeleteIndex(context.Background()) })
	return client
}

func TestNew_RequiresIndex(t *testing.T) {
	if _, err := New(Config{Addresses: []string{"http://localhost:9200"}}); err == nil {
		t.Error("New() without index should fail")
	}
}

func TestClient_CreateIndexIdempotent(t *testing.T) {
	skipIfNoES(t)

	client := newTestClient(t, "ragchat-test-create")

	if err := client.CreateIndex(context.Background()); err != nil {
		t.Fatalf("CreateIndex() second call error = %v", err)
	}
}

func TestClient_QueryIsScoped(t *testing.T) {
	skipIfNoES(t)

	client := newTestClient(t, "ragchat-test-query")
	ctx := context.Background()

	docs := []models.Document{
		{
			DocumentID: "documents/u1/aaaa1111-refunds.md",
			SourceURI:  "s3://bucket/documents/u1/aaaa1111-refunds.md",
			Owner:      "u1",
			Title:      "Refund Policy",
			Content:    "Refunds are issued within 30 days of purchase.",
		},
		{
			DocumentID: "documents/u2/bbbb2222-refunds.md",
			SourceURI:  "s3://bucket/documents/u2/bbbb2222-refunds.md",
			Owner:      "u2",
			Title:      "Other Refund Policy",
			Content:    "Refunds are never issued.",
		},
	}
	for _, doc := range docs {
		if err := client.IndexDocument(ctx, doc); err != nil {
			t.Fatalf("IndexDocument() error = %v", err)
		}
	}
	client.Refresh(ctx)

	f := filter.Contains{Field: filter.DocumentIDField, Values: []string{"documents/u1/"}}
	hits, err := client.Query(ctx, "refunds", 5, f)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(hits) != 1 || hits[0].DocumentID != docs[0].DocumentID {
		t.Fatalf("Query() = %+v, want only u1's document", hits)
	}
	if hits[0].Excerpt == "" {
		t.Error("hit should carry an excerpt")
	}

	if err := client.DeleteDocument(ctx, docs[0].DocumentID); err != nil {
		t.Fatalf("DeleteDocument() error = %v", err)
	}
	client.Refresh(ctx)

	got, err := client.GetDocument(ctx, docs[0].DocumentID)
	if err != nil {
		t.Fatalf("GetDocument() error = %v", err)
	}
	if got != nil {
		t.Error("document should be gone after DeleteDocument()")
	}

	if err := client.DeleteDocument(ctx, "documents/u1/never-indexed.md"); err != nil {
		t.Errorf("deleting a missing document should succeed, got %v", err)
	}
}
