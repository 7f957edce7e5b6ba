package conviction

import (
	"context"
	"testing"

	"github.com/cortexlabs/cortexd/internal/domain"
	"github.com/shopspring/decimal"
)

type fakeLookup struct {
	byWallet map[string][]domain.Position
}

func (f *fakeLookup) Positions(_ context.Context, wallet string) ([]domain.Position, error) {
	return f.byWallet[wallet], nil
}

func TestDetectInformedTraders(t *testing.T) {
	lookup := &fakeLookup{byWallet: map[string][]domain.Position{
		"aligned-trader": {
			{Token: "SOL", UsdValue: decimal.NewFromInt(15000), UnrealizedPnl: decimal.NewFromInt(5000)},
		},
		"no-positions-trader": {},
	}}

	bets := []domain.PredictionMarketBet{
		{Wallet: "aligned-trader", MarketTitle: "Will SOL flip ETH?", Outcome: "YES", AmountUsd: decimal.NewFromInt(500)},
		{Wallet: "no-positions-trader", MarketTitle: "Will SOL flip ETH?", Outcome: "YES", AmountUsd: decimal.NewFromInt(500)},
		{Wallet: "unknown-trader", MarketTitle: "Will SOL flip ETH?", Outcome: "YES", AmountUsd: decimal.NewFromInt(500)},
	}

	traders, err := DetectInformedTraders(context.Background(), bets, lookup, nil, 0.5)
	if err != nil {
		t.Fatalf("DetectInformedTraders returned error: %v", err)
	}
	if len(traders) != 1 {
		t.Fatalf("len(traders) = %d, want 1", len(traders))
	}
	if traders[0].Wallet != "aligned-trader" || traders[0].Direction != "bullish" {
		t.Errorf("trader = %+v, want aligned-trader/bullish", traders[0])
	}
	if traders[0].ExposureUsd != 15000 {
		t.Errorf("ExposureUsd = %v, want 15000", traders[0].ExposureUsd)
	}
}

func TestDetectInformedTradersMinConvictionFilters(t *testing.T) {
	lookup := &fakeLookup{byWallet: map[string][]domain.Position{
		// An aligned $15000 SOL position against a $500 YES bet scores
		// 0.925, so a 0.99 threshold should exclude it.
		"aligned-trader": {
			{Token: "SOL", UsdValue: decimal.NewFromInt(15000), UnrealizedPnl: decimal.NewFromInt(5000)},
		},
	}}
	bets := []domain.PredictionMarketBet{
		{Wallet: "aligned-trader", MarketTitle: "Will SOL flip ETH?", Outcome: "YES", AmountUsd: decimal.NewFromInt(500)},
	}

	traders, err := DetectInformedTraders(context.Background(), bets, lookup, nil, 0.99)
	if err != nil {
		t.Fatalf("DetectInformedTraders returned error: %v", err)
	}
	if len(traders) != 0 {
		t.Fatalf("len(traders) = %d, want 0 (strength 0.925 < 0.99 threshold)", len(traders))
	}
}

func TestSummarizeInformedTradersEmpty(t *testing.T) {
	agg := SummarizeInformedTraders(nil)
	if agg.Confidence != domain.ConfidenceLow {
		t.Errorf("confidence = %q, want %q", agg.Confidence, domain.ConfidenceLow)
	}
	if agg.Direction != "mixed" {
		t.Errorf("direction = %q, want mixed", agg.Direction)
	}
	if agg.AlignmentPct != 0 {
		t.Errorf("alignmentPct = %v, want 0", agg.AlignmentPct)
	}
}

func TestSummarizeInformedTradersBucketing(t *testing.T) {
	mkTrader := func(direction string, exposure float64) InformedTrader {
		return InformedTrader{Wallet: "w", Direction: direction, ExposureUsd: exposure}
	}

	medium := SummarizeInformedTraders([]InformedTrader{mkTrader("bullish", 1000), mkTrader("bullish", 1000)})
	if medium.Confidence != domain.ConfidenceMedium {
		t.Errorf("confidence = %q, want %q (2 traders)", medium.Confidence, domain.ConfidenceMedium)
	}
	if medium.Direction != "bullish" {
		t.Errorf("direction = %q, want bullish", medium.Direction)
	}
	if medium.AlignmentPct != 100 {
		t.Errorf("alignmentPct = %v, want 100 (all exposure on one side)", medium.AlignmentPct)
	}

	five := []InformedTrader{
		mkTrader("bearish", 1000), mkTrader("bearish", 1000), mkTrader("bearish", 1000),
		mkTrader("bullish", 1000), mkTrader("bullish", 1000),
	}
	high := SummarizeInformedTraders(five)
	if high.Confidence != domain.ConfidenceHigh {
		t.Errorf("confidence = %q, want %q (5 traders)", high.Confidence, domain.ConfidenceHigh)
	}
	if high.Direction != "bearish" {
		t.Errorf("direction = %q, want bearish (3 vs 2)", high.Direction)
	}
	if high.AlignmentPct != 60 {
		t.Errorf("alignmentPct = %v, want 60 (3000/5000)", high.AlignmentPct)
	}
}
