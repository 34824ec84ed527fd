package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/mfenderov/ragchat/internal/access"
	"github.com/mfenderov/ragchat/internal/apierr"
	"github.com/mfenderov/ragchat/internal/filter"
	"github.com/mfenderov/ragchat/internal/prompt"
	"github.com/mfenderov/ragchat/internal/reference"
	"github.com/mfenderov/ragchat/internal/retrieval"
	"github.com/mfenderov/ragchat/pkg/models"
)

// DefaultPageSize is the number of hits requested from the search index.
const DefaultPageSize = 5

// Answers substituted for an empty model output.
const (
	InsufficientContextAnswer = "I could not find enough context in the knowledge base to answer that."
	EmptyAnswer               = "I could not generate a response. Please try again."
)

// Searcher queries the search index.
type Searcher interface {
	Query(ctx context.Context, text string, pageSize int, f filter.Expression) ([]models.SearchHit, error)
}

// Generator produces text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Recorder observes discarded hits.
type Recorder interface {
	HitsDiscarded(reason string, n int)
}

// Config holds pipeline configuration.
type Config struct {
	Locator         reference.Locator
	PageSize        int
	MaxContextChars int
}

// Pipeline answers questions from the caller's own documents.
type Pipeline struct {
	config    Config
	searcher  Searcher
	generator Generator
	recorder  Recorder
}

// New creates a Pipeline. A nil searcher or generator makes Ask fail with
// a configuration error.
func New(config Config, searcher Searcher, generator Generator) *Pipeline {
	if config.PageSize <= 0 {
		config.PageSize = DefaultPageSize
	}
	if config.MaxContextChars == 0 {
		config.MaxContextChars = retrieval.DefaultMaxContextChars
	}
	return &Pipeline{
		config:    config,
		searcher:  searcher,
		generator: generator,
	}
}

// WithRecorder attaches a discard observer.
func (p *Pipeline) WithRecorder(r Recorder) *Pipeline {
	p.recorder = r
	return p
}

// Ask answers req for the caller id. Steps run strictly in order: scope,
// filter, search, validation, context assembly, prompt, generation.
func (p *Pipeline) Ask(ctx context.Context, id models.Identity, req models.ChatRequest) (*models.ChatResponse, error) {
	start := time.Now()

	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, apierr.New(apierr.Validation, "Message is required")
	}
	if p.searcher == nil {
		return nil, apierr.New(apierr.Configuration, "Search index is not configured")
	}
	if p.generator == nil {
		return nil, apierr.New(apierr.Configuration, "Model is not configured")
	}

	scope := access.ScopeFor(id)
	if scope == "" {
		return nil, apierr.New(apierr.Authorization, "Authorization token missing")
	}

	focus := strings.TrimSpace(req.TargetDocumentID)
	if focus != "" && !scope.Owns(p.config.Locator, focus) {
		return nil, apierr.New(apierr.Forbidden, "You are not allowed to access this document")
	}

	hits, err := p.searcher.Query(ctx, message, p.config.PageSize, filter.Build(p.config.Locator, scope, focus))
	if err != nil {
		return nil, apierr.Wrap(apierr.Provider, "search failed", err)
	}

	var focusRefs reference.Set
	if focus != "" {
		focusRefs = p.config.Locator.Normalize(focus)
	}
	validated := retrieval.Validate(hits, scope, focusRefs)
	p.discarded("tenant", validated.DroppedTenant)
	p.discarded("focus", validated.DroppedFocus)
	if validated.DroppedTenant > 0 {
		slog.Warn("discarded hits outside tenant scope", "scope", scope, "count", validated.DroppedTenant)
	}

	grounding := retrieval.Assemble(validated.Hits, p.config.MaxContextChars)

	text := prompt.Build(prompt.Input{
		Message:       message,
		History:       req.History,
		FocusID:       focus,
		FocusName:     strings.TrimSpace(req.TargetDocumentName),
		GroundingText: grounding.Text,
	})

	answer, err := p.generator.Generate(ctx, text)
	if err != nil {
		return nil, apierr.Wrap(apierr.Provider, "model invocation failed", err)
	}

	if answer == "" {
		if grounding.Text == "" {
			answer = InsufficientContextAnswer
		} else {
			slog.Warn("model returned an empty answer despite context", "entries", len(grounding.Entries))
			answer = EmptyAnswer
		}
	}

	documents := grounding.Entries
	if documents == nil {
		documents = []string{}
	}
	var target *string
	if focus != "" {
		target = &focus
	}

	slog.Debug("question answered",
		"hits", len(hits),
		"kept", len(validated.Hits),
		"entries", len(documents),
		"duration", time.Since(start))

	return &models.ChatResponse{
		Response:         answer,
		Context:          grounding.Text,
		Documents:        documents,
		TargetDocumentID: target,
	}, nil
}

func (p *Pipeline) discarded(reason string, n int) {
	if p.recorder != nil && n > 0 {
		p.recorder.HitsDiscarded(reason, n)
	}
}
