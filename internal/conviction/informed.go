package conviction

import (
	"context"

	"github.com/cortexlabs/cortexd/internal/domain"
	"github.com/cortexlabs/cortexd/pkg/ratelimit"
)

// maxBettorsScanned caps how many addresses DetectInformedTraders will walk
// per market, bounding both wall-clock time and Polymarket API usage.
const maxBettorsScanned = 50

// PositionLookup resolves a wallet's current DeFi positions, used to judge
// whether an early bettor also has on-chain conviction.
type PositionLookup interface {
	Positions(ctx context.Context, wallet string) ([]domain.Position, error)
}

// InformedTrader is one address flagged as betting with apparent on-chain
// conviction ahead of a market's broader crowd. ExposureUsd is the dollar
// value of the DeFi positions relevant to the bet's asset, the quantity the
// aggregate signal's alignment percentage is weighted by.
type InformedTrader struct {
	Wallet      string
	Direction   string // "bullish" or "bearish"
	ExposureUsd float64
	Signal      domain.ConvictionSignal
}

// DetectInformedTraders scans up to maxBettorsScanned bettors on a market
// (in the order given — callers should pass earliest-first for front-running
// detection to be meaningful), looks up each one's DeFi positions, and flags
// wallets whose positions align with their bet AND whose alignment strength
// clears minConviction. It is a serial scan paced by limiter so a single
// market's analysis doesn't burst the Polymarket client's rate budget.
func DetectInformedTraders(ctx context.Context, bets []domain.PredictionMarketBet, lookup PositionLookup, limiter *ratelimit.TokenBucket, minConviction float64) ([]InformedTrader, error) {
	var traders []InformedTrader

	n := len(bets)
	if n > maxBettorsScanned {
		n = maxBettorsScanned
	}

	for i := 0; i < n; i++ {
		bet := bets[i]
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return traders, err
			}
		}

		positions, err := lookup.Positions(ctx, bet.Wallet)
		if err != nil || len(positions) == 0 {
			continue
		}

		sig, ok := AnalyseBet(bet, positions)
		if !ok || sig.Type == domain.SignalContradiction || sig.Strength < minConviction {
			continue
		}

		direction := "bullish"
		if sig.Type == domain.SignalBearishAlignment {
			direction = "bearish"
		}
		traders = append(traders, InformedTrader{
			Wallet:      bet.Wallet,
			Direction:   direction,
			ExposureUsd: relevantExposureUsd(bet, positions),
			Signal:      *sig,
		})
	}

	return traders, nil
}

// relevantExposureUsd sums the USD value of the positions AnalyseBet
// considered relevant to bet's asset, duplicating its asset-resolution step
// since AnalyseBet reports only the resulting signal, not the exposure sum
// that produced it.
func relevantExposureUsd(bet domain.PredictionMarketBet, positions []domain.Position) float64 {
	asset, ok := extractMarketAsset(bet.MarketTitle, bet.Category)
	if !ok {
		return 0
	}
	var total float64
	for _, p := range positions {
		if isPositionRelevant(p, asset) {
			v, _ := p.UsdValue.Float64()
			total += v
		}
	}
	return total
}

// AggregateSignal is a market-wide read derived from every informed trader
// detected on one side or the other: which direction the informed money
// leans, and how lopsided that lean is by exposure dollars.
type AggregateSignal struct {
	Direction    string // "bullish", "bearish", or "mixed"
	AlignmentPct float64
	Confidence   domain.Confidence
}

// SummarizeInformedTraders turns a scan result into an AggregateSignal: the
// winning direction by Σ defi_exposure_usd, the winning side's share of
// total exposure as a percentage, and a confidence level from the count of
// informed traders (the same High/Medium/Low levels as per-wallet
// conviction, bucketed here by trader count: 5+ aligned traders is High,
// 2+ is Medium, fewer is Low).
func SummarizeInformedTraders(traders []InformedTrader) AggregateSignal {
	if len(traders) == 0 {
		return AggregateSignal{Direction: "mixed", Confidence: domain.ConfidenceLow}
	}

	var bullishUsd, bearishUsd float64
	for _, t := range traders {
		if t.Direction == "bullish" {
			bullishUsd += t.ExposureUsd
		} else {
			bearishUsd += t.ExposureUsd
		}
	}

	total := bullishUsd + bearishUsd
	direction := "mixed"
	winner := total / 2
	switch {
	case bullishUsd > bearishUsd:
		direction = "bullish"
		winner = bullishUsd
	case bearishUsd > bullishUsd:
		direction = "bearish"
		winner = bearishUsd
	}

	var alignmentPct float64
	if total > 0 {
		alignmentPct = winner / total * 100
	}

	confidence := domain.ConfidenceLow
	switch {
	case len(traders) >= 5:
		confidence = domain.ConfidenceHigh
	case len(traders) >= 2:
		confidence = domain.ConfidenceMedium
	}

	return AggregateSignal{Direction: direction, AlignmentPct: alignmentPct, Confidence: confidence}
}
