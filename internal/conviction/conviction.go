// Package conviction correlates a wallet's Polymarket bets against its
// on-chain DeFi exposure to surface whether the wallet is "putting its money
// where its bets are" — or contradicting itself.
package conviction

import (
	"fmt"
	"strings"

	"github.com/cortexlabs/cortexd/internal/apperr"
	"github.com/cortexlabs/cortexd/internal/domain"
	"github.com/google/uuid"
)

// assetKeywords maps a substring found in a bet's market title to the token
// symbol it refers to. Each keyword is checked independently:
// extractMarketAsset picks the one found earliest in the title, and table
// order only breaks ties between keywords found at the same position.
var assetKeywords = []struct {
	keyword string
	symbol  string
}{
	{"bitcoin", "BTC"},
	{"btc", "BTC"},
	{"ethereum", "ETH"},
	{"eth", "ETH"},
	{"solana", "SOL"},
	{"sol", "SOL"},
	{"bonk", "BONK"},
	{"jup", "JUP"},
	{"usdc", "USDC"},
}

// extractMarketAsset resolves a bet's market title (and category, as a
// fallback) to the token symbol it's betting on. Titles routinely mention
// more than one asset ("Will SOL flip ETH?"), so the winner isn't the first
// keyword in the table but the one that appears earliest in the text — the
// asset the question is fundamentally about is the one named first.
func extractMarketAsset(marketTitle, category string) (string, bool) {
	lower := strings.ToLower(marketTitle)

	bestIndex := -1
	bestSymbol := ""
	for _, k := range assetKeywords {
		idx := strings.Index(lower, k.keyword)
		if idx == -1 {
			continue
		}
		if bestIndex == -1 || idx < bestIndex {
			bestIndex = idx
			bestSymbol = k.symbol
		}
	}
	if bestIndex != -1 {
		return bestSymbol, true
	}

	if strings.EqualFold(category, "crypto") &&
		(strings.Contains(lower, "price") || strings.Contains(lower, "reach")) {
		return "CRYPTO", true
	}
	return "", false
}

// isPositionRelevant reports whether a DeFi position's token corresponds to
// the asset a bet is about: a direct match, a wrapped-token prefix match
// ("WBTC" vs "BTC"), or a liquidity-pool token containing the asset symbol.
func isPositionRelevant(p domain.Position, asset string) bool {
	token := strings.ToUpper(p.Token)
	if token == asset {
		return true
	}
	if len(token) > 1 && strings.HasPrefix(token, "W") && token[1:] == asset {
		return true
	}
	if strings.Contains(token, asset) {
		return true
	}
	return false
}

func isBullishOutcome(outcome string) bool {
	u := strings.ToUpper(outcome)
	if u == "YES" {
		return true
	}
	for _, kw := range []string{"ABOVE", "OVER", "UP", "HIGHER"} {
		if strings.Contains(u, kw) {
			return true
		}
	}
	return false
}

// AnalyseBet produces at most one ConvictionSignal for a bet by comparing it
// against the wallet's DeFi positions relevant to the same asset. Returns
// (nil, false) when the bet's asset can't be resolved or the wallet has no
// relevant exposure — a silent bet, not a contradiction.
func AnalyseBet(bet domain.PredictionMarketBet, positions []domain.Position) (*domain.ConvictionSignal, bool) {
	asset, ok := extractMarketAsset(bet.MarketTitle, bet.Category)
	if !ok {
		return nil, false
	}

	var relevant []domain.Position
	for _, p := range positions {
		if isPositionRelevant(p, asset) {
			relevant = append(relevant, p)
		}
	}
	if len(relevant) == 0 {
		return nil, false
	}

	totalExposure := 0.0
	totalUnrealized := 0.0
	for _, p := range relevant {
		v, _ := p.UsdValue.Float64()
		totalExposure += v
		pnl, _ := p.UnrealizedPnl.Float64()
		totalUnrealized += pnl
	}

	isBullishBet := isBullishOutcome(bet.Outcome)
	// A wallet reads as bullish on an asset when it's both net-long (usd
	// value positive) and currently in the green on that exposure — losing
	// money on a long isn't the same conviction signal as a winning one.
	isBullishPosition := totalExposure > 0 && totalUnrealized >= 0

	betUsd, _ := bet.AmountUsd.Float64()
	betWeight := minFloat(betUsd/1000.0, 1.0)
	positionWeight := minFloat(totalExposure/10000.0, 1.0)

	aligned := isBullishBet == isBullishPosition
	var strength float64
	var signalType domain.SignalType
	var description string

	if aligned {
		strength = 0.7 + betWeight*0.15 + positionWeight*0.15
		if isBullishBet {
			signalType = domain.SignalBullishAlignment
			description = fmt.Sprintf(
				"Wallet is long $%.0f in %s AND betting %s on %q",
				totalExposure, asset, bet.Outcome, bet.MarketTitle,
			)
		} else {
			signalType = domain.SignalBearishAlignment
			description = fmt.Sprintf(
				"Wallet is short %s exposure AND betting %s on %q",
				asset, bet.Outcome, bet.MarketTitle,
			)
		}
	} else {
		strength = 0.3
		signalType = domain.SignalContradiction
		description = fmt.Sprintf(
			"Wallet holds $%.0f in %s but is betting %s on %q, the opposite direction",
			totalExposure, asset, bet.Outcome, bet.MarketTitle,
		)
	}

	return &domain.ConvictionSignal{
		ID:                uuid.New(),
		Type:              signalType,
		Strength:          strength,
		DefiContext:       fmt.Sprintf("%s exposure: $%.0f across %d position(s), unrealized $%.0f", asset, totalExposure, len(relevant), totalUnrealized),
		PredictionContext: fmt.Sprintf("%s on %q ($%.0f)", bet.Outcome, bet.MarketTitle, betUsd),
		Description:       description,
	}, true
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// Conviction is the overall correlation result for a wallet.
type Conviction struct {
	Score          float64
	Confidence     domain.Confidence
	Signals        []domain.ConvictionSignal
	Interpretation string
}

// Calculate scores a wallet's overall conviction across all of its bets.
// Both positions and bets empty is an insufficient-data condition, not a
// zero score — there's nothing to correlate.
func Calculate(positions []domain.Position, bets []domain.PredictionMarketBet) (Conviction, error) {
	if len(positions) == 0 && len(bets) == 0 {
		return Conviction{}, apperr.InsufficientData("wallet has no DeFi positions or prediction bets to correlate")
	}

	var signals []domain.ConvictionSignal
	var totalStrength float64
	for _, bet := range bets {
		if sig, ok := AnalyseBet(bet, positions); ok {
			signals = append(signals, *sig)
			totalStrength += sig.Strength
		}
	}

	score := 0.0
	if len(signals) > 0 {
		score = minFloat(totalStrength/float64(len(signals)), 1.0)
	}

	confidence := calculateConfidence(len(positions), len(bets), len(signals))
	interpretation := generateInterpretation(signals, score)

	return Conviction{
		Score:          score,
		Confidence:     confidence,
		Signals:        signals,
		Interpretation: interpretation,
	}, nil
}

func calculateConfidence(positionCount, betCount, signalCount int) domain.Confidence {
	switch {
	case positionCount >= 3 && betCount >= 2 && signalCount >= 2:
		return domain.ConfidenceHigh
	case (positionCount >= 1 || betCount >= 1) && signalCount >= 1:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}

func generateInterpretation(signals []domain.ConvictionSignal, score float64) string {
	if len(signals) == 0 {
		return "No correlation could be drawn between this wallet's DeFi activity and its prediction market bets."
	}

	var bullish, bearish, contradictions int
	for _, s := range signals {
		switch s.Type {
		case domain.SignalBullishAlignment:
			bullish++
		case domain.SignalBearishAlignment:
			bearish++
		case domain.SignalContradiction:
			contradictions++
		}
	}

	direction := "mixed"
	switch {
	case bullish > bearish:
		direction = "bullish"
	case bearish > bullish:
		direction = "bearish"
	}

	convictionStr := "weak"
	switch {
	case score > 0.7:
		convictionStr = "strong"
	case score > 0.4:
		convictionStr = "moderate"
	}

	sentence := fmt.Sprintf(
		"Wallet shows %s conviction with a %s directional lean across %d signal(s).",
		convictionStr, direction, len(signals),
	)
	if contradictions > 0 {
		sentence += fmt.Sprintf(" %d signal(s) contradict the wallet's on-chain positioning.", contradictions)
	}
	return sentence
}
