package orchestrator

import (
	"sync"

	"github.com/broadcomms/brainstormx/internal/provider"
)

// PayloadCache holds the last activated phase payload per workshop so late
// joiners and reconnecting clients can fetch the current phase content
// without replaying the generation.
type PayloadCache struct {
	mu        sync.RWMutex
	byWorkshop map[int64]provider.Payload
}

// NewPayloadCache creates an empty cache.
func NewPayloadCache() *PayloadCache {
	return &PayloadCache{byWorkshop: make(map[int64]provider.Payload)}
}

// Put stores the payload for a workshop, replacing any previous one.
func (c *PayloadCache) Put(workshopID int64, p provider.Payload) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byWorkshop[workshopID] = p
}

// Get returns the cached payload for a workshop.
func (c *PayloadCache) Get(workshopID int64) (provider.Payload, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.byWorkshop[workshopID]
	return p, ok
}

// Remove drops the cached payload, if any.
func (c *PayloadCache) Remove(workshopID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byWorkshop, workshopID)
}
