// Package history pages a Helius-shaped enhanced-transaction REST endpoint
// into the normaliser's HeliusEnhancedTx shape, using the same resty
// request/retry conventions as this module's other HTTP clients.
package history

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/cortexlabs/cortexd/internal/apperr"
	"github.com/cortexlabs/cortexd/internal/normaliser"
	"github.com/cortexlabs/cortexd/pkg/logger"
	"github.com/cortexlabs/cortexd/pkg/ratelimit"
	"github.com/go-resty/resty/v2"
)

const (
	pageSize      = 100
	interPageWait = 100 * time.Millisecond
)

// Client fetches a wallet's transaction history from the REST history
// provider (Helius-shaped: GET /addresses/{wallet}/transactions).
type Client struct {
	http   *resty.Client
	apiKey string
}

func NewClient(baseURL, apiKey string) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)
	return &Client{http: c, apiKey: apiKey}
}

// FetchHistory pages up to max records in reverse chronological order,
// sleeping interPageWait between pages. It terminates when a page comes
// back empty or max is reached. 4xx responses are fatal for this fetch (no
// retry, classified InvalidInput); 5xx/transport errors are returned as
// caller-observable Transport errors so the history producer can log and
// exit without tearing down the subscription.
func (c *Client) FetchHistory(ctx context.Context, wallet string, max int) ([]normaliser.HeliusEnhancedTx, error) {
	var out []normaliser.HeliusEnhancedTx
	before := ""

	for len(out) < max {
		limit := pageSize
		if remaining := max - len(out); remaining < limit {
			limit = remaining
		}

		page, err := c.fetchPage(ctx, wallet, limit, before)
		if err != nil {
			return out, err
		}
		if len(page) == 0 {
			break
		}
		out = append(out, page...)
		before = page[len(page)-1].Signature

		if len(out) >= max {
			break
		}
		if err := ratelimit.Delay(ctx, interPageWait); err != nil {
			return out, apperr.Cancelled("history fetch for %s cancelled", wallet)
		}
	}

	if len(out) > max {
		out = out[:max]
	}
	return out, nil
}

func (c *Client) fetchPage(ctx context.Context, wallet string, limit int, before string) ([]normaliser.HeliusEnhancedTx, error) {
	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("api-key", c.apiKey).
		SetQueryParam("limit", strconv.Itoa(limit))
	if before != "" {
		req.SetQueryParam("before", before)
	}

	var page []normaliser.HeliusEnhancedTx
	resp, err := req.SetResult(&page).Get("/addresses/" + wallet + "/transactions")
	if err != nil {
		return nil, apperr.Transport(err, "fetch history page for %s", wallet)
	}
	if resp.StatusCode() >= 400 && resp.StatusCode() < 500 {
		return nil, apperr.InvalidInput("history endpoint rejected wallet %s: %s", wallet, resp.Status())
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, apperr.Transport(nil, "history endpoint returned %s for %s", resp.Status(), wallet)
	}

	page = sanitizePage(page)
	return page, nil
}

// sanitizePage drops records with no signature — a defensively-parsed page
// can contain partial entries the provider couldn't fully populate.
func sanitizePage(page []normaliser.HeliusEnhancedTx) []normaliser.HeliusEnhancedTx {
	out := page[:0]
	for _, tx := range page {
		if tx.Signature == "" {
			logger.Debugf("history: dropping record with empty signature")
			continue
		}
		out = append(out, tx)
	}
	return out
}
