// Package metrics computes the PnL and risk figures published in a wallet's
// summary. Both formulas are pinned contracts (see the engine's testable
// properties) — they must not be "improved" without re-deriving the expected
// test outputs.
package metrics

import (
	"time"

	"github.com/cortexlabs/cortexd/internal/domain"
	"github.com/shopspring/decimal"
)

// PnL is the aggregate profit-and-loss view computed from a wallet's
// transaction history.
type PnL struct {
	TotalValue    decimal.Decimal
	Realized24h   decimal.Decimal
	Realized7d    decimal.Decimal
	Realized30d   decimal.Decimal
	Unrealized    decimal.Decimal
}

type tokenPosition struct {
	Amount    decimal.Decimal
	CostBasis decimal.Decimal
}

// ComputePnL walks transactions in whatever order they're given (order does
// not matter for the aggregate sums, only for the ephemeral per-token
// position map) and derives realized PnL per window plus a cost-basis proxy
// for total value. Unrealized PnL is left at zero: this function has no
// access to current market prices, only the cost basis recorded at
// deposit/add-liquidity time.
func ComputePnL(transactions []*domain.ParsedTransaction) PnL {
	now := time.Now().UnixMilli()
	cutoff24h := now - 24*time.Hour.Milliseconds()
	cutoff7d := now - 7*24*time.Hour.Milliseconds()
	cutoff30d := now - 30*24*time.Hour.Milliseconds()

	var pnl PnL
	positions := make(map[string]*tokenPosition)

	for _, tx := range transactions {
		if tx.TxType.IsRealized() {
			realized := tx.UsdValue
			if tx.BlockTimeMs >= cutoff24h {
				pnl.Realized24h = pnl.Realized24h.Add(realized)
			}
			if tx.BlockTimeMs >= cutoff7d {
				pnl.Realized7d = pnl.Realized7d.Add(realized)
			}
			if tx.BlockTimeMs >= cutoff30d {
				pnl.Realized30d = pnl.Realized30d.Add(realized)
			}
		}

		switch tx.TxType {
		case domain.TxDeposit, domain.TxAddLiquidity:
			pos := positionFor(positions, tx.TokenIn)
			pos.Amount = pos.Amount.Add(tx.AmountIn)
			pos.CostBasis = pos.CostBasis.Add(tx.UsdValue)

		case domain.TxWithdraw, domain.TxRemoveLiquidity:
			pos, ok := positions[tx.TokenOut]
			if !ok {
				continue
			}
			newAmount := pos.Amount.Sub(tx.AmountOut)
			if !newAmount.IsZero() {
				denom := pos.Amount.Add(tx.AmountOut)
				if denom.IsPositive() {
					ratio := tx.AmountOut.Div(denom)
					pos.CostBasis = pos.CostBasis.Mul(decimal.NewFromInt(1).Sub(ratio))
				}
			}
			pos.Amount = newAmount

		case domain.TxSwap:
			if in, ok := positions[tx.TokenIn]; ok {
				in.Amount = in.Amount.Sub(tx.AmountIn)
			}
			out := positionFor(positions, tx.TokenOut)
			out.Amount = out.Amount.Add(tx.AmountOut)
			out.CostBasis = out.CostBasis.Add(tx.UsdValue)
		}
	}

	for _, pos := range positions {
		if pos.Amount.IsPositive() {
			pnl.TotalValue = pnl.TotalValue.Add(pos.CostBasis)
		}
	}

	return pnl
}

func positionFor(positions map[string]*tokenPosition, token string) *tokenPosition {
	pos, ok := positions[token]
	if !ok {
		pos = &tokenPosition{}
		positions[token] = pos
	}
	return pos
}

// ProtocolPnL is one protocol's realized PnL contribution within a window,
// the projection the by-protocol PnL read endpoint serves — grouping the
// same realized-PnL definition ComputePnL uses by ParsedTransaction.Protocol.
type ProtocolPnL struct {
	Protocol domain.Protocol
	Realized decimal.Decimal
}

// ComputePnLByProtocol sums realized PnL per protocol within window. All
// window carries no cutoff; the named windows use the same 24h/7d/30d
// cutoffs ComputePnL applies to its aggregate sums.
func ComputePnLByProtocol(transactions []*domain.ParsedTransaction, window domain.TimeWindow) []ProtocolPnL {
	var cutoff int64 = -1
	if days, ok := window.Days(); ok {
		cutoff = time.Now().UnixMilli() - int64(days)*24*time.Hour.Milliseconds()
	}

	totals := make(map[domain.Protocol]decimal.Decimal)
	for _, tx := range transactions {
		if !tx.TxType.IsRealized() {
			continue
		}
		if cutoff >= 0 && tx.BlockTimeMs < cutoff {
			continue
		}
		totals[tx.Protocol] = totals[tx.Protocol].Add(tx.UsdValue)
	}

	out := make([]ProtocolPnL, 0, len(totals))
	for p, v := range totals {
		out = append(out, ProtocolPnL{Protocol: p, Realized: v})
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && string(out[j-1].Protocol) > string(out[j].Protocol); j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
