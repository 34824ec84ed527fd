package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mfenderov/ragchat/internal/auth"
	"github.com/mfenderov/ragchat/internal/config"
	"github.com/mfenderov/ragchat/internal/documents"
	"github.com/mfenderov/ragchat/internal/elasticsearch"
	"github.com/mfenderov/ragchat/internal/ingestion"
	"github.com/mfenderov/ragchat/internal/llm"
	"github.com/mfenderov/ragchat/internal/metrics"
	"github.com/mfenderov/ragchat/internal/pipeline"
	"github.com/mfenderov/ragchat/internal/reference"
	"github.com/mfenderov/ragchat/internal/storage"
	goredis "github.com/redis/go-redis/v9"
)

// app holds the wired services shared by the commands.
type app struct {
	cfg      config.Config
	locator  reference.Locator
	metrics  *metrics.Metrics
	es       *elasticsearch.Client
	store    *storage.Client
	model    *llm.Client
	engine   *ingestion.Engine
	docs     *documents.Service
	accounts *auth.Service
	pipeline *pipeline.Pipeline
	redis    goredis.UniversalClient
}

// newApp connects every configured backend. Search and the model are
// optional: without them questions fail with a configuration error while
// the rest of the service keeps working.
func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	a := &app{
		cfg:     cfg,
		locator: reference.NewLocator(cfg.Storage.Bucket, cfg.Storage.Region, cfg.Storage.PublicBaseURL),
		metrics: metrics.New(),
	}

	store, err := storage.New(storage.Config{
		Endpoint:        cfg.Storage.Endpoint,
		Bucket:          cfg.Storage.Bucket,
		Region:          cfg.Storage.Region,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
		UseSSL:          cfg.Storage.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	a.store = store

	if cfg.Elasticsearch.Index != "" && len(cfg.Elasticsearch.Addresses) > 0 {
		es, err := elasticsearch.New(elasticsearch.Config{
			Addresses: cfg.Elasticsearch.Addresses,
			Index:     cfg.Elasticsearch.Index,
			Username:  cfg.Elasticsearch.Username,
			Password:  cfg.Elasticsearch.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create ES client: %w", err)
		}
		a.es = es
		a.engine = ingestion.New(store, es, a.locator).WithRecorder(a.metrics)
	} else {
		slog.Warn("search index not configured; questions will be rejected")
	}

	if cfg.Model.Primary != "" {
		model, err := llm.New(ctx, llm.Config{
			Region:          cfg.Model.Region,
			Endpoint:        cfg.Model.Endpoint,
			AccessKeyID:     cfg.Model.AccessKeyID,
			SecretAccessKey: cfg.Model.SecretAccessKey,
			PrimaryModel:    cfg.Model.Primary,
			FallbackModel:   cfg.Model.Fallback,
			MaxTokens:       cfg.Model.MaxTokens,
			Temperature:     cfg.Model.Temperature,
			TopP:            cfg.Model.TopP,
			Policy: llm.FallbackPolicy{
				Codes:   cfg.Model.FallbackCodes,
				Markers: cfg.Model.FallbackMarkers,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create model client: %w", err)
		}
		a.model = model.WithRecorder(a.metrics)
	} else {
		slog.Warn("model not configured; questions will be rejected")
	}

	// Interface values stay nil when a backend is absent.
	var searcher pipeline.Searcher
	if a.es != nil {
		searcher = a.es
	}
	var generator pipeline.Generator
	if a.model != nil {
		generator = a.model
	}
	a.pipeline = pipeline.New(pipeline.Config{
		Locator:         a.locator,
		PageSize:        cfg.Elasticsearch.PageSize,
		MaxContextChars: cfg.Server.MaxContextChars,
	}, searcher, generator).WithRecorder(a.metrics)

	var syncer documents.Syncer
	if a.engine != nil {
		syncer = a.engine
	}
	a.docs = documents.New(store, syncer, a.locator)

	redis, err := auth.NewRedisClient(ctx, auth.RedisConfig{
		Addr:     cfg.Auth.RedisAddr,
		Password: cfg.Auth.RedisPassword,
		DB:       cfg.Auth.RedisDB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session store: %w", err)
	}
	a.redis = redis
	a.accounts = auth.New(auth.NewRedisStore(redis, ""), cfg.Auth.SessionTTL)

	return a, nil
}

// prepare creates the bucket and the index when missing. Failures are
// logged so the service can start before its backends.
func (a *app) prepare(ctx context.Context) {
	if err := a.store.EnsureBucket(ctx); err != nil {
		slog.Warn("failed to ensure bucket", "bucket", a.cfg.Storage.Bucket, "error", err)
	}
	if a.es == nil {
		return
	}
	if err := a.es.CreateIndex(ctx); err != nil {
		slog.Warn("failed to ensure index", "index", a.cfg.Elasticsearch.Index, "error", err)
	}
}

func (a *app) Close() error {
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}
