package metrics

import (
	"github.com/cortexlabs/cortexd/internal/domain"
	"github.com/shopspring/decimal"
)

type positionAccum struct {
	amount   decimal.Decimal
	usdValue decimal.Decimal
	kind     domain.PositionType
}

type posKey struct {
	token    string
	protocol domain.Protocol
}

// DerivePositions projects a wallet's transaction history into the set of
// currently open positions, keyed by (token, protocol) like ComputeRisk's
// exposure tally, but also tracking token amounts and opening spot positions
// from swap outputs (ComputeRisk ignores swaps), and returning the richer
// domain.Position shape the positions read endpoint and the conviction
// engine need. Positions are
// always ephemeral projections of transaction history, never persisted.
func DerivePositions(wallet string, transactions []*domain.ParsedTransaction) []domain.Position {
	accum := make(map[posKey]*positionAccum)

	touch := func(key posKey, kind domain.PositionType) *positionAccum {
		a, ok := accum[key]
		if !ok {
			a = &positionAccum{kind: kind}
			accum[key] = a
		}
		return a
	}

	for _, tx := range transactions {
		switch tx.TxType {
		case domain.TxDeposit, domain.TxAddLiquidity:
			kind := domain.PositionLending
			if tx.TxType == domain.TxAddLiquidity {
				kind = domain.PositionLiquidityPool
			}
			key := posKey{token: tx.TokenIn, protocol: tx.Protocol}
			a := touch(key, kind)
			a.amount = a.amount.Add(tx.AmountIn)
			a.usdValue = a.usdValue.Add(tx.UsdValue)

		case domain.TxBorrow:
			key := posKey{token: tx.TokenIn, protocol: tx.Protocol}
			a := touch(key, domain.PositionBorrow)
			a.amount = a.amount.Add(tx.AmountIn)
			a.usdValue = a.usdValue.Add(tx.UsdValue)

		case domain.TxWithdraw, domain.TxRemoveLiquidity, domain.TxRepay:
			key := posKey{token: tx.TokenOut, protocol: tx.Protocol}
			a, ok := accum[key]
			if !ok {
				continue
			}
			a.amount = a.amount.Sub(tx.AmountOut)
			a.usdValue = a.usdValue.Sub(tx.UsdValue)

		case domain.TxSwap:
			if in, ok := accum[posKey{token: tx.TokenIn, protocol: tx.Protocol}]; ok {
				in.amount = in.amount.Sub(tx.AmountIn)
				in.usdValue = in.usdValue.Sub(tx.UsdValue)
			}
			key := posKey{token: tx.TokenOut, protocol: tx.Protocol}
			a := touch(key, domain.PositionSpot)
			a.amount = a.amount.Add(tx.AmountOut)
			a.usdValue = a.usdValue.Add(tx.UsdValue)
		}
	}

	out := make([]domain.Position, 0, len(accum))
	for key, a := range accum {
		if !a.amount.IsPositive() {
			continue
		}
		out = append(out, domain.Position{
			Wallet:   wallet,
			Protocol: key.protocol,
			Type:     a.kind,
			Token:    key.token,
			Amount:   a.amount,
			UsdValue: clampNonNegative(a.usdValue),
		})
	}
	return out
}

func clampNonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
