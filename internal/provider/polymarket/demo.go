package polymarket

import (
	"context"

	"github.com/cortexlabs/cortexd/internal/domain"
	"github.com/cortexlabs/cortexd/pkg/persistence"
	"github.com/shopspring/decimal"
)

// DemoClient serves canned bets instead of calling Polymarket, used when
// CORTEX_DEMO_MODE is set. It implements the same Positions/Bettors shape
// as Client so the conviction engine doesn't need to know which one it's
// talking to.
type DemoClient struct {
	store persistence.Store
}

// NewDemoClient scopes a persistence store for the canned bets document. svc
// is typically a pkg/persistence.JSONFileService rooted at the engine's data
// directory; Save a document under the same key to customize the demo data
// without touching code.
func NewDemoClient(svc persistence.Service) *DemoClient {
	return &DemoClient{store: svc.NewStore("conviction", "demo", "bets")}
}

func (d *DemoClient) Positions(_ context.Context, address string) ([]domain.PredictionMarketBet, error) {
	var bets []domain.PredictionMarketBet
	err := d.store.Load(&bets)
	if err == nil {
		return bets, nil
	}
	if err != persistence.ErrNotExists {
		return nil, err
	}
	return defaultDemoBets(address), nil
}

func (d *DemoClient) Bettors(_ context.Context, _ string) []string {
	return nil
}

// defaultDemoBets seeds demo mode with a plausible bet even before anyone
// has saved a custom canned-data file, so the conviction walkthrough works
// out of the box.
func defaultDemoBets(address string) []domain.PredictionMarketBet {
	return []domain.PredictionMarketBet{
		{
			Wallet:        address,
			MarketTitle:   "Will SOL flip ETH by market cap in 2026?",
			Category:      "crypto",
			Outcome:       "YES",
			AmountUsd:     decimal.NewFromInt(500),
			CurrentPrice:  decimal.NewFromFloat(0.62),
			AvgPrice:      decimal.NewFromFloat(0.48),
			UnrealizedPnl: decimal.NewFromInt(70),
			Status:        domain.MarketOpen,
		},
	}
}
