package render

import (
	"fmt"

	"github.com/couchcryptid/road-event-map/internal/domain"
	"github.com/couchcryptid/road-event-map/internal/observability"
	lru "github.com/hashicorp/golang-lru/v2"
)

// HighlightCache memoizes domain.Highlight per description text. It is
// shared by all sessions and safe for concurrent use.
type HighlightCache struct {
	cache   *lru.Cache[string, []domain.Span]
	metrics *observability.Metrics
}

// NewHighlightCache creates a cache holding up to size descriptions.
func NewHighlightCache(size int, metrics *observability.Metrics) (*HighlightCache, error) {
	c, err := lru.New[string, []domain.Span](size)
	if err != nil {
		return nil, fmt.Errorf("create highlight cache: %w", err)
	}
	return &HighlightCache{cache: c, metrics: metrics}, nil
}

// Highlight returns the spans for text. Callers must not mutate the result.
func (h *HighlightCache) Highlight(text string) []domain.Span {
	if spans, ok := h.cache.Get(text); ok {
		h.metrics.HighlightCache.WithLabelValues("hit").Inc()
		return spans
	}
	h.metrics.HighlightCache.WithLabelValues("miss").Inc()
	spans := domain.Highlight(text)
	h.cache.Add(text, spans)
	return spans
}

// Len reports the number of cached descriptions.
func (h *HighlightCache) Len() int {
	return h.cache.Len()
}
