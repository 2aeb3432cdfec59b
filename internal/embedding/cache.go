package embedding

import (
	"strings"
	"sync"

	"github.com/guestradar/guestradar/pkg/models"
)

// Cache memoizes embeddings per run, keyed by normalized phrase — the same
// key the persistent vector cache uses, so seeded vectors are found again
// regardless of capitalization. A generation cycle scores the same candidate
// pool against many reference examples, so repeated lookups are the common
// case.
type Cache struct {
	svc *Service

	mu      sync.Mutex
	vectors map[string][]float32
	hits    int64
	misses  int64
}

// CacheStats reports cache effectiveness for cycle-summary logging.
type CacheStats struct {
	Hits   int64
	Misses int64
}

// NewCache creates a memoizing wrapper around svc.
func NewCache(svc *Service) *Cache {
	return &Cache{
		svc:     svc,
		vectors: make(map[string][]float32),
	}
}

// Embed returns the embedding for text, computing it at most once per run.
// Texts empty after trimming fail with ErrEmptyInput.
func (c *Cache) Embed(text string) ([]float32, error) {
	key := models.NormalizePhrase(text)
	if key == "" {
		return nil, ErrEmptyInput
	}

	c.mu.Lock()
	if vec, ok := c.vectors[key]; ok {
		c.hits++
		c.mu.Unlock()
		return vec, nil
	}
	c.mu.Unlock()

	// The provider sees the original casing; only the lookup key folds.
	vec, err := c.svc.Embed(strings.TrimSpace(text))
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.vectors[key] = vec
	c.misses++
	c.mu.Unlock()
	return vec, nil
}

// Seed preloads the cache with already-known vectors (e.g. from the
// persistent vector cache) so they never hit the provider.
func (c *Cache) Seed(text string, vec []float32) {
	key := models.NormalizePhrase(text)
	if key == "" || len(vec) == 0 {
		return
	}
	c.mu.Lock()
	c.vectors[key] = vec
	c.mu.Unlock()
}

// Stats returns hit/miss counters.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Hits: c.hits, Misses: c.misses}
}

// Dimensions returns the underlying model's embedding vector size.
func (c *Cache) Dimensions() int { return c.svc.Dimensions() }

// Version returns the underlying model's version string.
func (c *Cache) Version() string { return c.svc.Version() }
