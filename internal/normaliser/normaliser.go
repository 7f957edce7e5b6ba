package normaliser

import (
	"strings"

	"github.com/cortexlabs/cortexd/internal/domain"
	"github.com/shopspring/decimal"
)

// identifyProtocol resolves a record to a Protocol, first by matching the
// decoder tag's substring (jupiter/raydium/kamino/meteora/orca/pump), then
// by looking the record's program ID up in the fixed table. Returns false
// when neither resolves — the record isn't attributable to a tracked venue.
func identifyProtocol(r RawRecord) (domain.Protocol, bool) {
	tag := strings.ToLower(r.decoderTag())
	for _, k := range []struct {
		substr   string
		protocol domain.Protocol
	}{
		{"jupiter", domain.ProtocolJupiter},
		{"raydium", domain.ProtocolRaydium},
		{"kamino", domain.ProtocolKamino},
		{"meteora", domain.ProtocolMeteora},
		{"orca", domain.ProtocolOrca},
		{"pump", domain.ProtocolPumpFun},
	} {
		if strings.Contains(tag, k.substr) {
			return k.protocol, true
		}
	}
	if r.ProgramID != "" {
		if p, ok := domain.IdentifyProtocolByProgramID(r.ProgramID); ok {
			return p, true
		}
	}
	return "", false
}

// Parse is the normaliser's entry point: two-step dispatch on protocol then
// event type, producing one ParsedTransaction or (nil, false) when the
// record carries nothing the engine tracks (protocol not identified, event
// type not in the dispatch table, or a swap with no resolvable token legs).
func Parse(r RawRecord, wallet string) (*domain.ParsedTransaction, bool) {
	protocol, ok := identifyProtocol(r)
	if !ok {
		return nil, false
	}

	tag := strings.ToUpper(r.eventTag())
	switch tag {
	case "SWAP":
		return parseSwap(r, wallet, protocol)
	case "TRANSFER":
		return nil, false
	case "DEPOSIT", "SUPPLY":
		return parseLending(r, wallet, protocol, domain.TxDeposit), true
	case "WITHDRAW", "REDEEM":
		return parseLending(r, wallet, protocol, domain.TxWithdraw), true
	case "BORROW":
		return parseLending(r, wallet, protocol, domain.TxBorrow), true
	case "REPAY":
		return parseLending(r, wallet, protocol, domain.TxRepay), true
	case "ADD_LIQUIDITY":
		return parseLending(r, wallet, protocol, domain.TxAddLiquidity), true
	case "REMOVE_LIQUIDITY":
		return parseLending(r, wallet, protocol, domain.TxRemoveLiquidity), true
	default:
		if domain.IsSwapDecoder(r.decoderTag()) {
			return parseSwap(r, wallet, protocol)
		}
		return nil, false
	}
}

// parseSwap prefers the decoded swap event's first input/output leg; absent
// that, it falls back to the record's single mint/amount field, read as an
// input leg when the wallet is the source and an output leg when it's the
// destination. A record that resolves neither leg isn't a swap the engine
// can price, so it's dropped.
func parseSwap(r RawRecord, wallet string, protocol domain.Protocol) (*domain.ParsedTransaction, bool) {
	tx := &domain.ParsedTransaction{
		Signature:   r.Signature,
		Slot:        r.Slot,
		BlockTimeMs: r.BlockTime * 1000,
		Wallet:      wallet,
		Protocol:    protocol,
		TxType:      domain.TxSwap,
		UsdValue:    decimal.Zero,
	}

	if r.Events.Swap != nil {
		if len(r.Events.Swap.TokenInputs) > 0 {
			in := r.Events.Swap.TokenInputs[0]
			tx.TokenIn = in.Mint
			tx.AmountIn = in.UIAmount
		}
		if len(r.Events.Swap.TokenOutputs) > 0 {
			out := r.Events.Swap.TokenOutputs[0]
			tx.TokenOut = out.Mint
			tx.AmountOut = out.UIAmount
		}
	}

	if tx.TokenIn == "" && r.Mint != "" && r.Source == wallet {
		tx.TokenIn = r.Mint
		tx.AmountIn = fallbackAmount(r)
	}
	if tx.TokenOut == "" && r.Mint != "" && r.Destination == wallet {
		tx.TokenOut = r.Mint
		tx.AmountOut = fallbackAmount(r)
	}

	if tx.TokenIn == "" && tx.TokenOut == "" {
		return nil, false
	}
	return tx, true
}

// fallbackAmount prefers the decoded ui_amount; if that's zero (e.g. the
// decoder only gave us a raw amount string), it parses the raw amount field.
func fallbackAmount(r RawRecord) decimal.Decimal {
	if !r.UIAmount.IsZero() {
		return r.UIAmount
	}
	if r.Amount == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// parseLending builds a single-sided position transaction: deposits/borrows/
// add-liquidity are recorded as an input leg (token entering the position),
// withdraws/repays/remove-liquidity as an output leg (token leaving it).
func parseLending(r RawRecord, wallet string, protocol domain.Protocol, txType domain.TransactionType) *domain.ParsedTransaction {
	tx := &domain.ParsedTransaction{
		Signature:   r.Signature,
		Slot:        r.Slot,
		BlockTimeMs: r.BlockTime * 1000,
		Wallet:      wallet,
		Protocol:    protocol,
		TxType:      txType,
		UsdValue:    decimal.Zero,
	}

	amount := fallbackAmount(r)
	switch txType {
	case domain.TxDeposit, domain.TxBorrow, domain.TxAddLiquidity:
		tx.TokenIn = r.Mint
		tx.AmountIn = amount
	default:
		tx.TokenOut = r.Mint
		tx.AmountOut = amount
	}
	return tx
}
