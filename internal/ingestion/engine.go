package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mfenderov/ragchat/internal/access"
	"github.com/mfenderov/ragchat/internal/events"
	"github.com/mfenderov/ragchat/internal/markdown"
	"github.com/mfenderov/ragchat/internal/processor"
	"github.com/mfenderov/ragchat/internal/reference"
	"github.com/mfenderov/ragchat/pkg/models"
)

// Objects is the read side of the documents bucket.
type Objects interface {
	ListObjects(ctx context.Context, prefix string) ([]models.StoredObject, error)
	GetObject(ctx context.Context, key string) ([]byte, models.StoredObject, error)
}

// Index is the write side of the search index.
type Index interface {
	CreateIndex(ctx context.Context) error
	IndexDocument(ctx context.Context, doc models.Document) error
	DeleteDocument(ctx context.Context, key string) error
	Refresh(ctx context.Context) error
}

// Recorder observes index synchronizations.
type Recorder interface {
	IndexSync(operation, outcome string)
}

// Result holds bulk reindex results.
type Result struct {
	Prefix      string
	DocsIndexed int
	Skipped     int
	Duration    time.Duration
	Errors      []string
}

// Engine keeps the search index in step with the documents bucket.
type Engine struct {
	objects   Objects
	index     Index
	processor *processor.Processor
	locator   reference.Locator
	recorder  Recorder
	now       func() time.Time
}

// New creates a new ingestion engine.
func New(objects Objects, index Index, locator reference.Locator) *Engine {
	return &Engine{
		objects:   objects,
		index:     index,
		processor: processor.New(),
		locator:   locator,
		now:       time.Now,
	}
}

// WithRecorder attaches a synchronization observer.
func (e *Engine) WithRecorder(r Recorder) *Engine {
	e.recorder = r
	return e
}

// Sync applies one bucket change to the index.
func (e *Engine) Sync(ctx context.Context, ev events.DocumentChanged) (events.SyncCompleteEvent, error) {
	start := e.now()
	done := events.SyncCompleteEvent{SyncID: uuid.NewString(), Key: ev.Key}

	var err error
	switch ev.Operation {
	case events.Uploaded:
		done.Indexed, err = e.upsert(ctx, ev.Key, ev.Owner)
	case events.Deleted:
		err = e.index.DeleteDocument(ctx, ev.Key)
	default:
		err = fmt.Errorf("unknown operation %q", ev.Operation)
	}

	e.observe(string(ev.Operation), err)
	if err != nil {
		return events.SyncCompleteEvent{}, fmt.Errorf("sync %s %s: %w", ev.Operation, ev.Key, err)
	}

	if err := e.index.Refresh(ctx); err != nil {
		slog.Warn("index refresh failed", "key", ev.Key, "error", err)
	}

	done.Duration = e.now().Sub(start)
	slog.Info("index synchronized",
		"sync_id", done.SyncID,
		"operation", ev.Operation,
		"key", ev.Key,
		"indexed", done.Indexed,
		"duration", done.Duration)
	return done, nil
}

// Reindex indexes every object under prefix.
func (e *Engine) Reindex(ctx context.Context, prefix string) (*Result, error) {
	start := e.now()
	result := &Result{Prefix: prefix}

	slog.Info("starting reindex", "prefix", prefix)

	if err := e.index.CreateIndex(ctx); err != nil {
		return nil, err
	}

	objects, err := e.objects.ListObjects(ctx, prefix)
	if err != nil {
		return nil, err
	}

	slog.Info("found objects to index", "count", len(objects))

	for _, obj := range objects {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, "context cancelled")
			break
		}

		indexed, err := e.upsert(ctx, obj.Key, "")
		e.observe(string(events.Uploaded), err)
		switch {
		case err != nil:
			slog.Error("failed to index document", "key", obj.Key, "error", err)
			result.Errors = append(result.Errors, err.Error())
		case indexed:
			result.DocsIndexed++
		default:
			result.Skipped++
		}
	}

	e.index.Refresh(ctx)

	result.Duration = e.now().Sub(start)
	slog.Info("reindex complete",
		"prefix", prefix,
		"docs_indexed", result.DocsIndexed,
		"skipped", result.Skipped,
		"duration", result.Duration,
		"errors", len(result.Errors))

	return result, nil
}

// upsert indexes the object stored under key. It reports false without an
// error when the content is not indexable.
func (e *Engine) upsert(ctx context.Context, key, owner string) (bool, error) {
	data, info, err := e.objects.GetObject(ctx, key)
	if err != nil {
		return false, err
	}

	name := reference.DisplayName(reference.StoredName(key))
	kind := markdown.Classify(name, info.ContentType, string(data))
	if !kind.Indexable() {
		slog.Info("skipping content that is not indexable", "key", key, "content_type", info.ContentType)
		return false, nil
	}

	text, err := e.processor.Render(kind, string(data), name)
	if err != nil {
		return false, err
	}

	if owner == "" {
		owner = access.OwnerOf(key)
	}
	uploadedAt := info.LastModified
	if uploadedAt.IsZero() {
		uploadedAt = e.now()
	}

	doc := models.Document{
		ID:          models.GenerateDocumentID(key),
		DocumentID:  key,
		SourceURI:   e.locator.URI(key),
		PublicURL:   e.locator.URL(key),
		Owner:       owner,
		FileName:    name,
		Title:       text.Title,
		Content:     text.Body,
		ContentType: info.ContentType,
		UploadedAt:  uploadedAt.UTC(),
	}

	slog.Debug("indexing document", "id", doc.ID, "key", key, "kind", kind)
	if err := e.index.IndexDocument(ctx, doc); err != nil {
		return false, err
	}
	return true, nil
}

func (e *Engine) observe(operation string, err error) {
	if e.recorder == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	e.recorder.IndexSync(operation, outcome)
}
