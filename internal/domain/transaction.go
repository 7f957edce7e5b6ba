package domain

import "github.com/shopspring/decimal"

// TransactionType classifies what a ParsedTransaction did, driving both the
// PnL position bookkeeping (internal/metrics) and the risk exposure tally.
type TransactionType string

const (
	TxSwap            TransactionType = "swap"
	TxDeposit         TransactionType = "deposit"
	TxWithdraw        TransactionType = "withdraw"
	TxBorrow          TransactionType = "borrow"
	TxRepay           TransactionType = "repay"
	TxAddLiquidity    TransactionType = "add_liquidity"
	TxRemoveLiquidity TransactionType = "remove_liquidity"
)

func (t TransactionType) String() string { return string(t) }

// IsRealized reports whether a transaction of this type realizes PnL, per
// the PnL computation's definition (swaps, withdrawals and LP removals close
// out a position; deposits, borrows and repays only move collateral).
func (t TransactionType) IsRealized() bool {
	switch t {
	case TxSwap, TxWithdraw, TxRemoveLiquidity:
		return true
	default:
		return false
	}
}

// ParsedTransaction is the normaliser's output: one economically meaningful
// event extracted from a raw provider record.
type ParsedTransaction struct {
	Signature   string
	Slot        uint64
	BlockTimeMs int64
	Wallet      string
	Protocol    Protocol
	TxType      TransactionType
	TokenIn     string
	TokenOut    string
	AmountIn    decimal.Decimal
	AmountOut   decimal.Decimal
	// UsdValue is zero at parse time; the subscription processor enriches it
	// with a best-effort price lookup before insert (see internal/subscription).
	UsdValue decimal.Decimal
}
