package order

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/allegro/bigcache/v3"
)

// productDetails is what enrichment copies onto order items
type productDetails struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// productCache keeps catalog lookups for a short while so listing orders does
// not hit the catalog once per item
type productCache struct {
	local *bigcache.BigCache
}

func newProductCache(ttl time.Duration, maxMB int) (*productCache, error) {
	cfg := bigcache.DefaultConfig(ttl)
	cfg.Shards = 64
	cfg.MaxEntriesInWindow = 10000
	cfg.MaxEntrySize = 256
	cfg.CleanWindow = ttl
	cfg.HardMaxCacheSize = maxMB
	cfg.Verbose = false

	local, err := bigcache.New(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create product cache: %w", err)
	}
	return &productCache{local: local}, nil
}

func (c *productCache) get(productID uint64) (*productDetails, bool) {
	data, err := c.local.Get(strconv.FormatUint(productID, 10))
	if err != nil {
		return nil, false
	}
	var details productDetails
	if err := json.Unmarshal(data, &details); err != nil {
		return nil, false
	}
	return &details, true
}

func (c *productCache) set(productID uint64, details *productDetails) {
	data, err := json.Marshal(details)
	if err != nil {
		return
	}
	_ = c.local.Set(strconv.FormatUint(productID, 10), data)
}

func (c *productCache) close() error {
	return c.local.Close()
}
