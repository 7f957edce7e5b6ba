package metrics

import (
	"github.com/cortexlabs/cortexd/internal/domain"
	"github.com/shopspring/decimal"
)

// Risk is the aggregate exposure-concentration view for a wallet.
type Risk struct {
	Score                int
	LargestPositionPct   decimal.Decimal
	PositionCount        int
	ProtocolConcentration decimal.Decimal
	ProtocolCount        int
}

type positionKey struct {
	token    string
	protocol domain.Protocol
}

// ComputeRisk tallies open exposure per (token, protocol) pair from deposits,
// borrows and LP adds, reduces it on withdrawals/repays/LP removes (floored
// at zero — a transaction history can't show a position going negative), and
// derives a 0-100 score from how concentrated that exposure is.
func ComputeRisk(transactions []*domain.ParsedTransaction) Risk {
	if len(transactions) == 0 {
		return Risk{}
	}

	positions := make(map[positionKey]decimal.Decimal)
	protocols := make(map[domain.Protocol]struct{})

	for _, tx := range transactions {
		protocols[tx.Protocol] = struct{}{}

		switch tx.TxType {
		case domain.TxDeposit, domain.TxAddLiquidity, domain.TxBorrow:
			key := positionKey{token: tx.TokenIn, protocol: tx.Protocol}
			positions[key] = positions[key].Add(tx.UsdValue)

		case domain.TxWithdraw, domain.TxRemoveLiquidity, domain.TxRepay:
			key := positionKey{token: tx.TokenOut, protocol: tx.Protocol}
			remaining := positions[key].Sub(tx.UsdValue)
			if remaining.IsNegative() {
				remaining = decimal.Zero
			}
			positions[key] = remaining

		case domain.TxSwap:
			// Swaps indicate activity but don't themselves create a
			// standing position.
		}
	}

	totalValue := decimal.Zero
	largest := decimal.Zero
	for _, v := range positions {
		totalValue = totalValue.Add(v)
		if v.GreaterThan(largest) {
			largest = v
		}
	}

	largestPct := decimal.Zero
	if totalValue.IsPositive() {
		largestPct = largest.Div(totalValue)
	}

	protocolValues := make(map[domain.Protocol]decimal.Decimal)
	for key, v := range positions {
		protocolValues[key.protocol] = protocolValues[key.protocol].Add(v)
	}
	largestProtocolValue := decimal.Zero
	for _, v := range protocolValues {
		if v.GreaterThan(largestProtocolValue) {
			largestProtocolValue = v
		}
	}
	protocolConcentration := decimal.Zero
	if totalValue.IsPositive() {
		protocolConcentration = largestProtocolValue.Div(totalValue)
	}

	score := calculateRiskScore(largestPct, protocolConcentration, len(protocols), len(positions))

	return Risk{
		Score:                 score,
		LargestPositionPct:    largestPct,
		PositionCount:         len(positions),
		ProtocolConcentration: protocolConcentration,
		ProtocolCount:         len(protocols),
	}
}

// calculateRiskScore is the pinned weight table: concentration contributes
// up to 40 points, protocol concentration up to 30, diversification and
// position-count act as bonuses/penalties on top, clamped to 100.
func calculateRiskScore(largestPositionPct, protocolConcentration decimal.Decimal, protocolCount, positionCount int) int {
	score := 0

	concentrationScore := largestPositionPct.Mul(decimal.NewFromInt(40)).IntPart()
	score += clampInt(int(concentrationScore), 0, 40)

	protocolRisk := protocolConcentration.Mul(decimal.NewFromInt(30)).IntPart()
	score += clampInt(int(protocolRisk), 0, 30)

	switch protocolCount {
	case 0, 1:
		score += 20
	case 2:
		score += 10
	case 3:
		score += 5
	}

	switch {
	case positionCount == 0:
		score += 10
	case positionCount >= 1 && positionCount <= 3:
		score += 5
	case positionCount > 10:
		score += 5
	}

	if score > 100 {
		score = 100
	}
	return score
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
