// Package pricecache is a small persistent cache for token price lookups,
// backed by Badger so a restart doesn't cold-start every mint the indexer has
// already priced. It deliberately knows nothing about the price provider —
// callers decide what counts as a miss and what to store.
package pricecache

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/shopspring/decimal"
)

type entry struct {
	Price     string `json:"price"`
	ExpiresAt int64  `json:"expires_at"`
}

// Cache is a TTL'd key-value store for decimal prices.
type Cache struct {
	db  *badger.DB
	ttl time.Duration
}

// Open opens (creating if necessary) a Badger price cache at path.
func Open(path string, ttl time.Duration) (*Cache, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("pricecache: path is required")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	db, err := badger.Open(badger.DefaultOptions(path).WithLogger(nil))
	if err != nil {
		return nil, err
	}
	return &Cache{db: db, ttl: ttl}, nil
}

func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Get returns the cached price for mint, if present and not expired.
func (c *Cache) Get(mint string) (decimal.Decimal, bool) {
	if c == nil || c.db == nil {
		return decimal.Zero, false
	}
	var e entry
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(mint))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &e)
		})
	})
	if err != nil {
		return decimal.Zero, false
	}
	if time.Now().Unix() > e.ExpiresAt {
		return decimal.Zero, false
	}
	price, err := decimal.NewFromString(e.Price)
	if err != nil {
		return decimal.Zero, false
	}
	return price, true
}

// Set stores price for mint with the cache's configured TTL.
func (c *Cache) Set(mint string, price decimal.Decimal) {
	if c == nil || c.db == nil {
		return
	}
	e := entry{Price: price.String(), ExpiresAt: time.Now().Add(c.ttl).Unix()}
	buf, err := json.Marshal(e)
	if err != nil {
		return
	}
	_ = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(mint), buf)
	})
}
