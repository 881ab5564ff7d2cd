package realtime

import (
	"sort"
	"sync"

	"github.com/dharsanguruparan/TalentFlow/internal/model"
)

// Cache is the local view of candidate state used by the UI layer. Merge is a
// field-level patch; Replace swaps the whole record.
type Cache interface {
	Get(id string) (model.Candidate, bool)
	List() []model.Candidate
	Merge(id string, patch model.CandidatePatch) bool
	Replace(c model.Candidate)
	Remove(id string)
	SetLoading(id string, loading bool)
	Loading(id string) bool
}

// MemoryCache is a mutex guarded Cache.
type MemoryCache struct {
	mu         sync.RWMutex
	candidates map[string]model.Candidate
	loading    map[string]int
}

// NewMemoryCache constructs an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		candidates: make(map[string]model.Candidate),
		loading:    make(map[string]int),
	}
}

func (c *MemoryCache) Get(id string) (model.Candidate, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cand, ok := c.candidates[id]
	if !ok {
		return model.Candidate{}, false
	}
	return cand.Clone(), true
}

// List returns every cached candidate ordered by creation time.
func (c *MemoryCache) List() []model.Candidate {
	c.mu.RLock()
	out := make([]model.Candidate, 0, len(c.candidates))
	for _, cand := range c.candidates {
		out = append(out, cand.Clone())
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Merge applies patch to a cached candidate and reports whether it existed.
func (c *MemoryCache) Merge(id string, patch model.CandidatePatch) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	cand, ok := c.candidates[id]
	if !ok {
		return false
	}
	patch.Apply(&cand)
	c.candidates[id] = cand
	return true
}

func (c *MemoryCache) Replace(cand model.Candidate) {
	if cand.ID == "" {
		return
	}
	c.mu.Lock()
	c.candidates[cand.ID] = cand.Clone()
	c.mu.Unlock()
}

func (c *MemoryCache) Remove(id string) {
	c.mu.Lock()
	delete(c.candidates, id)
	delete(c.loading, id)
	c.mu.Unlock()
}

// SetLoading counts overlapping fetches: the flag clears only once every
// caller that set it has cleared it.
func (c *MemoryCache) SetLoading(id string, loading bool) {
	c.mu.Lock()
	if loading {
		c.loading[id]++
	} else if c.loading[id] <= 1 {
		delete(c.loading, id)
	} else {
		c.loading[id]--
	}
	c.mu.Unlock()
}

func (c *MemoryCache) Loading(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading[id] > 0
}
