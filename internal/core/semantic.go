package core

import (
	"math"

	"go.uber.org/zap"

	"aspada.com/assistant/internal/store"
	"aspada.com/assistant/internal/utils"
)

const DefaultSemanticThreshold = 0.9

// SemanticMatcher scans cached entries for the closest embedding. It is a
// full linear scan on every call, which is fine while the cache stays small.
type SemanticMatcher struct {
	threshold float64
	logger    *zap.Logger
}

type SemanticMatch struct {
	Entry *store.CacheEntry
	Score float64
	Hit   bool
}

func NewSemanticMatcher(threshold float64, logger *zap.Logger) *SemanticMatcher {
	if threshold <= 0 {
		threshold = DefaultSemanticThreshold
	}
	return &SemanticMatcher{threshold: threshold, logger: logger}
}

// Best returns the most similar entry. The earliest entry wins ties, entries
// scoring NaN (zero vectors) are never chosen, and Hit requires a score
// strictly above the threshold.
func (m *SemanticMatcher) Best(query []float32, entries []store.CacheEntry) SemanticMatch {
	best := SemanticMatch{Score: math.Inf(-1)}

	for i := range entries {
		entry := &entries[i]
		if len(entry.Embedding) == 0 {
			continue
		}
		similarity, err := utils.CosineSimilarity(query, entry.Embedding)
		if err != nil {
			m.logger.Warn("skipping cache entry in semantic scan",
				zap.String("cacheId", entry.ID), zap.Error(err))
			continue
		}
		if math.IsNaN(similarity) {
			continue
		}
		if similarity > best.Score {
			best.Entry = entry
			best.Score = similarity
		}
	}

	best.Hit = best.Entry != nil && best.Score > m.threshold
	return best
}
