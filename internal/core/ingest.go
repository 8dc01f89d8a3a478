package core

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"aspada.com/assistant/internal/store"
)

// DefaultIngestInterval keeps embedding calls under 1500 requests per minute.
const DefaultIngestInterval = 40 * time.Millisecond

type IngestStore interface {
	UpsertProject(ctx context.Context, p *store.Project) error
	FindCacheEntryByQuestion(ctx context.Context, question string) (*store.CacheEntry, error)
	CreateCacheEntry(ctx context.Context, entry *store.CacheEntry) error
}

type IngestResult struct {
	Projects   int
	FAQCreated int
	FAQSkipped int
	FAQFailed  int
}

// Ingester loads listings and pre-answered questions from a seed file.
type Ingester struct {
	store    IngestStore
	embedder Embedder
	interval time.Duration
	logger   *zap.Logger

	// Progress, if set, is called once per FAQ item processed.
	Progress func()
}

func NewIngester(st IngestStore, embedder Embedder, interval time.Duration, logger *zap.Logger) *Ingester {
	if interval <= 0 {
		interval = DefaultIngestInterval
	}
	return &Ingester{store: st, embedder: embedder, interval: interval, logger: logger}
}

// Ingest upserts every project, then embeds and caches each FAQ item whose
// normalized question is not cached yet. Items that fail to embed or store
// are logged and skipped.
func (in *Ingester) Ingest(ctx context.Context, seed *store.Seed) (IngestResult, error) {
	var res IngestResult

	for i := range seed.Projects {
		if err := in.store.UpsertProject(ctx, &seed.Projects[i]); err != nil {
			return res, err
		}
		res.Projects++
	}
	in.logger.Info("projects ingested", zap.Int("count", res.Projects))

	ticker := time.NewTicker(in.interval)
	defer ticker.Stop()

	for i, item := range seed.FAQ {
		if in.Progress != nil {
			in.Progress()
		}

		question := NormalizeQuestion(item.Question)
		if question == "" || item.Answer == "" {
			in.logger.Warn("skipping incomplete FAQ item", zap.Int("index", i+1))
			res.FAQFailed++
			continue
		}

		existing, err := in.store.FindCacheEntryByQuestion(ctx, question)
		if err != nil {
			return res, fmt.Errorf("failed to check FAQ %d: %w", i+1, err)
		}
		if existing != nil {
			res.FAQSkipped++
			continue
		}

		select {
		case <-ctx.Done():
			return res, ctx.Err()
		case <-ticker.C:
		}

		embedding, err := in.embedder.GetEmbedding(ctx, question)
		if err != nil {
			in.logger.Warn("failed to embed FAQ item, skipping", zap.Int("index", i+1), zap.Error(err))
			res.FAQFailed++
			continue
		}

		entry := &store.CacheEntry{Question: question, Answer: item.Answer, Embedding: embedding}
		if err := in.store.CreateCacheEntry(ctx, entry); err != nil {
			in.logger.Warn("failed to store FAQ item, skipping", zap.Int("index", i+1), zap.Error(err))
			res.FAQFailed++
			continue
		}
		res.FAQCreated++
	}

	in.logger.Info("FAQ ingested",
		zap.Int("created", res.FAQCreated),
		zap.Int("skipped", res.FAQSkipped),
		zap.Int("failed", res.FAQFailed))
	return res, nil
}
