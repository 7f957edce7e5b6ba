// Package polymarket fetches a wallet's prediction-market exposure and a
// market's bettor list, trying Polymarket's richer Gamma API first and
// falling back to the CLOB API. Read-only: order placement is out of scope
// (see DESIGN.md for the go-order-utils drop).
package polymarket

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/cortexlabs/cortexd/internal/apperr"
	"github.com/cortexlabs/cortexd/internal/domain"
	"github.com/cortexlabs/cortexd/pkg/logger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const maxBettors = 50

// Client talks to the Gamma and CLOB Polymarket APIs.
type Client struct {
	gamma *resty.Client
	clob  *resty.Client
}

func NewClient(gammaBaseURL, clobBaseURL string) *Client {
	newHTTP := func(base string) *resty.Client {
		return resty.New().SetBaseURL(base).SetTimeout(15 * time.Second)
	}
	return &Client{gamma: newHTTP(gammaBaseURL), clob: newHTTP(clobBaseURL)}
}

// gammaPosition and clobPosition are the two wire shapes Positions tries, in
// order. Field names differ between the two APIs; both map onto the same
// domain.PredictionMarketBet.
type gammaPosition struct {
	Market struct {
		Slug     string `json:"slug"`
		Title    string `json:"question"`
		Category string `json:"category"`
	} `json:"market"`
	Outcome       string  `json:"outcome"`
	Size          float64 `json:"size"`
	AvgPrice      float64 `json:"avgPrice"`
	CurPrice      float64 `json:"curPrice"`
	CurrentValue  float64 `json:"currentValue"`
	CashPnl       float64 `json:"cashPnl"`
	ClosedMarket  bool    `json:"closed"`
}

type clobPosition struct {
	Asset         string  `json:"asset"`
	Market        string  `json:"market"`
	Title         string  `json:"title"`
	Outcome       string  `json:"outcome"`
	Size          float64 `json:"size"`
	AvgPrice      float64 `json:"avgPrice"`
	CurPrice      float64 `json:"curPrice"`
	CurrentValue  float64 `json:"currentValue"`
	CashPnl       float64 `json:"cashPnl"`
}

// Positions returns address's Polymarket bets, normalized. Gamma is tried
// first; any Gamma failure, a 404 included, falls back to CLOB, and a CLOB
// 404 means "no positions" (empty slice, not an error). address must already
// be a well-formed 0x-prefixed EVM address, checked here as a cheap
// precondition.
func (c *Client) Positions(ctx context.Context, address string) ([]domain.PredictionMarketBet, error) {
	if !common.IsHexAddress(address) {
		return nil, apperr.InvalidInput("polymarket: %q is not a valid EVM address", address)
	}

	bets, err := c.positionsFromGamma(ctx, address)
	if err == nil {
		return bets, nil
	}
	if apperr.KindOf(err) != apperr.KindNotFound {
		logger.WithField("wallet", address).Debugf("polymarket: gamma positions failed, falling back to clob: %v", err)
	}

	return c.positionsFromCLOB(ctx, address)
}

func (c *Client) positionsFromGamma(ctx context.Context, address string) ([]domain.PredictionMarketBet, error) {
	var raw []gammaPosition
	resp, err := c.gamma.R().SetContext(ctx).
		SetQueryParam("user", address).
		SetResult(&raw).
		Get("/positions")
	if err != nil {
		return nil, apperr.Transport(err, "gamma positions for %s", address)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, apperr.NotFound("gamma positions for %s", address)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, apperr.Transport(nil, "gamma positions returned %s", resp.Status())
	}

	out := make([]domain.PredictionMarketBet, 0, len(raw))
	for _, p := range raw {
		out = append(out, domain.PredictionMarketBet{
			Wallet:        address,
			MarketTitle:   p.Market.Title,
			Category:      p.Market.Category,
			Outcome:       p.Outcome,
			AmountUsd:     decimal.NewFromFloat(p.CurrentValue),
			CurrentPrice:  decimal.NewFromFloat(p.CurPrice),
			AvgPrice:      decimal.NewFromFloat(p.AvgPrice),
			UnrealizedPnl: decimal.NewFromFloat(p.CashPnl),
			Status:        marketStatus(p.ClosedMarket),
		})
	}
	return out, nil
}

func (c *Client) positionsFromCLOB(ctx context.Context, address string) ([]domain.PredictionMarketBet, error) {
	var raw []clobPosition
	resp, err := c.clob.R().SetContext(ctx).
		SetQueryParam("user", address).
		SetResult(&raw).
		Get("/positions")
	if err != nil {
		return nil, apperr.Transport(err, "clob positions for %s", address)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, apperr.Transport(nil, "clob positions returned %s", resp.Status())
	}

	out := make([]domain.PredictionMarketBet, 0, len(raw))
	for _, p := range raw {
		out = append(out, domain.PredictionMarketBet{
			Wallet:        address,
			MarketTitle:   p.Title,
			Outcome:       p.Outcome,
			AmountUsd:     decimal.NewFromFloat(p.CurrentValue),
			CurrentPrice:  decimal.NewFromFloat(p.CurPrice),
			AvgPrice:      decimal.NewFromFloat(p.AvgPrice),
			UnrealizedPnl: decimal.NewFromFloat(p.CashPnl),
			Status:        domain.MarketOpen,
		})
	}
	return out, nil
}

func marketStatus(closed bool) domain.MarketStatus {
	if closed {
		return domain.MarketClosed
	}
	return domain.MarketOpen
}

// Bettors returns up to maxBettors addresses that have traded a market, or
// an empty slice on error — this is an enrichment signal for the conviction
// engine, never a hard dependency.
func (c *Client) Bettors(ctx context.Context, marketSlug string) []string {
	var raw []struct {
		ProxyWallet string `json:"proxyWallet"`
	}
	resp, err := c.gamma.R().SetContext(ctx).
		SetResult(&raw).
		Get("/markets/" + marketSlug + "/traders")
	if err != nil || resp.StatusCode() != http.StatusOK {
		return nil
	}

	seen := make(map[string]struct{}, len(raw))
	var out []string
	for _, t := range raw {
		addr := strings.TrimSpace(t.ProxyWallet)
		if addr == "" || !common.IsHexAddress(addr) {
			continue
		}
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
		if len(out) >= maxBettors {
			break
		}
	}
	return out
}
