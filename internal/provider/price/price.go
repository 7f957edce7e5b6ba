// Package price provides best-effort token price lookups. It must never
// block the ingestion path: any failure collapses to (zero, false) rather
// than an error the caller has to handle specially.
package price

import (
	"context"
	"time"

	"github.com/cortexlabs/cortexd/pkg/logger"
	"github.com/cortexlabs/cortexd/pkg/pricecache"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// Client issues a single best-effort GET per mint, backed by a persistent
// cache so repeated lookups within the cache's TTL don't re-hit the network.
type Client struct {
	http  *resty.Client
	cache *pricecache.Cache
}

func NewClient(baseURL string, cache *pricecache.Cache) *Client {
	return &Client{
		http:  resty.New().SetBaseURL(baseURL).SetTimeout(5 * time.Second),
		cache: cache,
	}
}

type priceResponse struct {
	Price float64 `json:"price"`
}

// Price returns mint's current USD price, or (0, false) on any failure —
// cache miss followed by a failed/empty GET, a non-200 response, or a
// malformed body. Never returns an error: enrichment is always optional.
func (c *Client) Price(ctx context.Context, mint string) (decimal.Decimal, bool) {
	if mint == "" {
		return decimal.Zero, false
	}
	if cached, ok := c.cache.Get(mint); ok {
		return cached, true
	}

	var body priceResponse
	resp, err := c.http.R().SetContext(ctx).SetResult(&body).Get("/price/" + mint)
	if err != nil {
		logger.Debugf("price: lookup failed for %s: %v", mint, err)
		return decimal.Zero, false
	}
	if resp.StatusCode() != 200 || body.Price <= 0 {
		return decimal.Zero, false
	}

	d := decimal.NewFromFloat(body.Price)
	c.cache.Set(mint, d)
	return d, true
}
