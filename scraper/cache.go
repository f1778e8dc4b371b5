package scraper

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/aluiziolira/go-train-punctuality/models"
)

// DatasetCache keeps recently extracted datasets by report URL for a
// fixed time-to-live. A nil *DatasetCache is a disabled cache.
type DatasetCache struct {
	lru *expirable.LRU[string, models.Dataset]
}

// NewDatasetCache returns a cache holding up to size datasets, or nil when
// size is not positive.
func NewDatasetCache(size int, ttl time.Duration) *DatasetCache {
	if size <= 0 {
		return nil
	}
	return &DatasetCache{lru: expirable.NewLRU[string, models.Dataset](size, nil, ttl)}
}

// Get returns a copy of the cached dataset for url.
func (c *DatasetCache) Get(url string) (models.Dataset, bool) {
	if c == nil {
		return nil, false
	}
	d, ok := c.lru.Get(url)
	if !ok {
		return nil, false
	}
	return cloneDataset(d), true
}

// Add stores a copy of d under url.
func (c *DatasetCache) Add(url string, d models.Dataset) {
	if c == nil {
		return
	}
	c.lru.Add(url, cloneDataset(d))
}

// Purge drops every entry.
func (c *DatasetCache) Purge() {
	if c == nil {
		return
	}
	c.lru.Purge()
}

// Len returns the number of live entries.
func (c *DatasetCache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

func cloneDataset(d models.Dataset) models.Dataset {
	out := make(models.Dataset, len(d))
	for i, r := range d {
		copied := *r
		out[i] = &copied
	}
	return out
}
