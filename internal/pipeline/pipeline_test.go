package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mfenderov/ragchat/internal/apierr"
	"github.com/mfenderov/ragchat/internal/filter"
	"github.com/mfenderov/ragchat/internal/reference"
	"github.com/mfenderov/ragchat/pkg/models"
)

type fakeSearcher struct {
	hits    []models.SearchHit
	err     error
	calls   int
	filter  filter.Expression
	query   string
	perPage int
}

func (f *fakeSearcher) Query(_ context.Context, text string, pageSize int, expr filter.Expression) ([]models.SearchHit, error) {
	f.calls++
	f.query = text
	f.perPage = pageSize
	f.filter = expr
	return f.hits, f.err
}

type fakeGenerator struct {
	answer string
	err    error
	prompt string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.answer, f.err
}

type discardCounter map[string]int

func (d discardCounter) HitsDiscarded(reason string, n int) { d[reason] += n }

var (
	locator = reference.Locator{Bucket: "docs"}
	u1      = models.Identity{UserID: "u1", Email: "u1@example.com"}
)

func TestAsk_RefundPolicySingleEntry(t *testing.T) {
	search := &fakeSearcher{hits: []models.SearchHit{
		{DocumentID: "documents/u1/1a2b3c4d-policy.md", Title: "Policy", Excerpt: "  Refunds are issued within 30 days.  "},
		{DocumentID: "documents/u1/2b3c4d5e-faq.md", Title: "FAQ"},
	}}
	gen := &fakeGenerator{answer: "Within 30 days."}

	resp, err := New(Config{Locator: locator}, search, gen).Ask(context.Background(), u1, models.ChatRequest{
		Message: "What is the refund policy?",
	})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	wantContext := "Document: Policy\nRefunds are issued within 30 days."
	if resp.Context != wantContext {
		t.Errorf("Context = %q, want %q", resp.Context, wantContext)
	}
	if len(resp.Documents) != 1 || resp.Documents[0] != wantContext {
		t.Errorf("Documents = %v, want one entry", resp.Documents)
	}
	if resp.Response != "Within 30 days." || resp.TargetDocumentID != nil {
		t.Errorf("Ask() = %+v", resp)
	}
	if search.perPage != DefaultPageSize || search.query != "What is the refund policy?" {
		t.Errorf("search called with %q, page size %d", search.query, search.perPage)
	}
	if _, ok := search.filter.(filter.Or); !ok {
		t.Errorf("scope filter = %#v, want an Or over the normalized scope", search.filter)
	}
	if !strings.Contains(gen.prompt, wantContext) || !strings.Contains(gen.prompt, "What is the refund policy?") {
		t.Errorf("prompt does not carry context and question:\n%s", gen.prompt)
	}
}

func TestAsk_FocusDiscardsOtherDocument(t *testing.T) {
	focus := "documents/u1/ab12cd34-policy.pdf"
	search := &fakeSearcher{hits: []models.SearchHit{
		{DocumentID: "documents/u1/ffff0000-other.pdf", Excerpt: "Unrelated."},
		{DocumentID: focus, Title: "Policy", Excerpt: "Refunds within 30 days."},
	}}
	rec := discardCounter{}

	resp, err := New(Config{Locator: locator}, search, &fakeGenerator{answer: "ok"}).
		WithRecorder(rec).
		Ask(context.Background(), u1, models.ChatRequest{
			Message:            "refunds?",
			TargetDocumentID:   focus,
			TargetDocumentName: "policy.pdf",
		})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	if len(resp.Documents) != 1 || !strings.Contains(resp.Documents[0], "Refunds within 30 days.") {
		t.Errorf("Documents = %v, want only the focus document", resp.Documents)
	}
	if rec["focus"] != 1 || rec["tenant"] != 0 {
		t.Errorf("discards = %v, want one focus discard", rec)
	}
	if resp.TargetDocumentID == nil || *resp.TargetDocumentID != focus {
		t.Errorf("TargetDocumentID = %v, want %s", resp.TargetDocumentID, focus)
	}
}

func TestAsk_DropsHitsOutsideTenant(t *testing.T) {
	search := &fakeSearcher{hits: []models.SearchHit{
		{DocumentID: "documents/u2/1a2b3c4d-secret.md", DocumentURI: "s3://docs/documents/u2/1a2b3c4d-secret.md", Excerpt: "secret"},
		{DocumentID: "documents/u10/x.md", Excerpt: "also secret"},
	}}
	rec := discardCounter{}

	resp, err := New(Config{Locator: locator}, search, &fakeGenerator{}).
		WithRecorder(rec).
		Ask(context.Background(), u1, models.ChatRequest{Message: "secrets?"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	if resp.Context != "" || len(resp.Documents) != 0 {
		t.Errorf("foreign hits leaked into context: %+v", resp)
	}
	if resp.Documents == nil {
		t.Error("Documents should be an empty list, not nil")
	}
	if rec["tenant"] != 2 {
		t.Errorf("discards = %v, want two tenant discards", rec)
	}
	if resp.Response != InsufficientContextAnswer {
		t.Errorf("Response = %q, want the insufficient-context answer", resp.Response)
	}
}

func TestAsk_ForbiddenFocusSkipsSearch(t *testing.T) {
	search := &fakeSearcher{}

	_, err := New(Config{Locator: locator}, search, &fakeGenerator{}).Ask(context.Background(), u1, models.ChatRequest{
		Message:          "what?",
		TargetDocumentID: "documents/u2/1a2b3c4d-theirs.pdf",
	})

	if apierr.KindOf(err) != apierr.Forbidden {
		t.Fatalf("Ask() error = %v, want forbidden", err)
	}
	if apierr.PublicMessage(err) != "You are not allowed to access this document" {
		t.Errorf("message = %q", apierr.PublicMessage(err))
	}
	if search.calls != 0 {
		t.Errorf("search was called %d times, want none", search.calls)
	}
}

func TestAsk_EmptyAnswerWithContext(t *testing.T) {
	search := &fakeSearcher{hits: []models.SearchHit{
		{DocumentID: "documents/u1/1a2b3c4d-policy.md", Excerpt: "Refunds."},
	}}

	resp, err := New(Config{Locator: locator}, search, &fakeGenerator{answer: ""}).Ask(context.Background(), u1, models.ChatRequest{Message: "q"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if resp.Response != EmptyAnswer {
		t.Errorf("Response = %q, want %q", resp.Response, EmptyAnswer)
	}
}

func TestAsk_Errors(t *testing.T) {
	searchErr := errors.New("index unavailable")
	modelErr := errors.New("throttled")

	tests := []struct {
		name      string
		searcher  Searcher
		generator Generator
		id        models.Identity
		message   string
		kind      apierr.Kind
		status    int
	}{
		{"missing message", &fakeSearcher{}, &fakeGenerator{}, u1, "   ", apierr.Validation, 400},
		{"search not configured", nil, &fakeGenerator{}, u1, "q", apierr.Configuration, 500},
		{"model not configured", &fakeSearcher{}, nil, u1, "q", apierr.Configuration, 500},
		{"no identity", &fakeSearcher{}, &fakeGenerator{}, models.Identity{}, "q", apierr.Authorization, 401},
		{"search failure", &fakeSearcher{err: searchErr}, &fakeGenerator{}, u1, "q", apierr.Provider, 500},
		{"model failure", &fakeSearcher{}, &fakeGenerator{err: modelErr}, u1, "q", apierr.Provider, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(Config{Locator: locator}, tt.searcher, tt.generator).Ask(context.Background(), tt.id, models.ChatRequest{Message: tt.message})
			if apierr.KindOf(err) != tt.kind {
				t.Fatalf("Ask() error = %v, want kind %s", err, tt.kind)
			}
			if apierr.Status(err) != tt.status {
				t.Errorf("Status = %d, want %d", apierr.Status(err), tt.status)
			}
		})
	}
}

func TestAsk_ProviderErrorKeepsCause(t *testing.T) {
	modelErr := errors.New("throttled")

	_, err := New(Config{Locator: locator}, &fakeSearcher{}, &fakeGenerator{err: modelErr}).Ask(context.Background(), u1, models.ChatRequest{Message: "q"})

	if !errors.Is(err, modelErr) {
		t.Errorf("error chain should include the model failure, got %v", err)
	}
	if apierr.PublicMessage(err) != "Internal server error" {
		t.Errorf("provider detail leaked: %q", apierr.PublicMessage(err))
	}
}
