package cache

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
)

// RistrettoDeliveryCache remembers ids of messages that were already recorded,
// so a redelivery of the same message is acknowledged without recording it twice.
type RistrettoDeliveryCache struct {
	cache *ristretto.Cache
}

const defaultMaxItems = 10000

func NewDeliveryCache(maxItems int64) (*RistrettoDeliveryCache, error) {
	if maxItems <= 0 {
		maxItems = defaultMaxItems
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10 * maxItems,
		MaxCost:     maxItems,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create delivery cache failed: %w", err)
	}
	return &RistrettoDeliveryCache{cache: c}, nil
}

func (c *RistrettoDeliveryCache) Seen(messageID string) bool {
	if messageID == "" {
		return false
	}
	_, ok := c.cache.Get(messageID)
	return ok
}

func (c *RistrettoDeliveryCache) Remember(messageID string, ttl time.Duration) {
	if messageID == "" {
		return
	}
	c.cache.SetWithTTL(messageID, struct{}{}, 1, ttl)
	// make the id visible to the next delivery right away
	c.cache.Wait()
}

func (c *RistrettoDeliveryCache) Close() { c.cache.Close() }
