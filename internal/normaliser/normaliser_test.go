package normaliser

import (
	"testing"

	"github.com/cortexlabs/cortexd/internal/domain"
	"github.com/shopspring/decimal"
)

// TestParseSwap pins the exact scenario: a Raydium AMM swap record must
// produce amount_in=1.5, amount_out=42.0, usd_value=0 and
// block_time_ms = block_time * 1000.
func TestParseSwap(t *testing.T) {
	r := RawRecord{
		Signature:   "sig-1",
		Slot:        100,
		BlockTime:   1700000000,
		DecoderType: "Raydium AMM",
		EventType:   "SWAP",
		Events: Events{
			Swap: &SwapEvent{
				TokenInputs: []TokenAmount{
					{Mint: "Ma", UIAmount: decimal.NewFromFloat(1.5)},
				},
				TokenOutputs: []TokenAmount{
					{Mint: "Mb", UIAmount: decimal.NewFromFloat(42.0)},
				},
			},
		},
	}

	tx, ok := Parse(r, "W")
	if !ok {
		t.Fatal("Parse returned ok=false, want true")
	}

	if tx.Protocol != domain.ProtocolRaydium {
		t.Errorf("Protocol = %q, want %q", tx.Protocol, domain.ProtocolRaydium)
	}
	if tx.TxType != domain.TxSwap {
		t.Errorf("TxType = %q, want %q", tx.TxType, domain.TxSwap)
	}
	if !tx.AmountIn.Equal(decimal.NewFromFloat(1.5)) {
		t.Errorf("AmountIn = %s, want 1.5", tx.AmountIn)
	}
	if !tx.AmountOut.Equal(decimal.NewFromFloat(42.0)) {
		t.Errorf("AmountOut = %s, want 42.0", tx.AmountOut)
	}
	if !tx.UsdValue.IsZero() {
		t.Errorf("UsdValue = %s, want 0", tx.UsdValue)
	}
	if tx.BlockTimeMs != 1_700_000_000_000 {
		t.Errorf("BlockTimeMs = %d, want %d", tx.BlockTimeMs, int64(1_700_000_000_000))
	}
	if tx.TokenIn != "Ma" || tx.TokenOut != "Mb" {
		t.Errorf("legs = %s/%s, want Ma/Mb", tx.TokenIn, tx.TokenOut)
	}
}

func TestParseSwapFallbackLegs(t *testing.T) {
	r := RawRecord{
		Signature: "sig-2",
		BlockTime: 1700000001,
		TxType:    "raydium",
		EventType: "SWAP",
		Mint:      "Mc",
		Source:    "W",
		UIAmount:  decimal.NewFromInt(10),
	}

	tx, ok := Parse(r, "W")
	if !ok {
		t.Fatal("Parse returned ok=false, want true")
	}
	if tx.TokenIn != "Mc" {
		t.Errorf("TokenIn = %q, want %q (fallback leg)", tx.TokenIn, "Mc")
	}
	if !tx.AmountIn.Equal(decimal.NewFromInt(10)) {
		t.Errorf("AmountIn = %s, want 10", tx.AmountIn)
	}
}

func TestParseUnknownProtocolDropped(t *testing.T) {
	r := RawRecord{Signature: "sig-3", TxType: "SWAP", DecoderType: "SomeUnknownDex"}
	if _, ok := Parse(r, "W"); ok {
		t.Fatal("Parse returned ok=true for an unidentifiable protocol, want false")
	}
}

func TestParseTransferDropped(t *testing.T) {
	r := RawRecord{Signature: "sig-4", DecoderType: "jupiter", EventType: "TRANSFER"}
	if _, ok := Parse(r, "W"); ok {
		t.Fatal("Parse returned ok=true for a plain transfer, want false")
	}
}

func TestParseLendingDeposit(t *testing.T) {
	r := RawRecord{
		Signature:   "sig-5",
		BlockTime:   1700000002,
		DecoderType: "kamino",
		EventType:   "DEPOSIT",
		Mint:        "Md",
		Amount:      "2500",
	}
	tx, ok := Parse(r, "W")
	if !ok {
		t.Fatal("Parse returned ok=false, want true")
	}
	if tx.TxType != domain.TxDeposit {
		t.Errorf("TxType = %q, want %q", tx.TxType, domain.TxDeposit)
	}
	if tx.TokenIn != "Md" {
		t.Errorf("TokenIn = %q, want %q", tx.TokenIn, "Md")
	}
	if !tx.AmountIn.Equal(decimal.NewFromInt(2500)) {
		t.Errorf("AmountIn = %s, want 2500", tx.AmountIn)
	}
}

func TestParseLendingWithdraw(t *testing.T) {
	r := RawRecord{
		Signature:   "sig-6",
		DecoderType: "kamino",
		EventType:   "WITHDRAW",
		Mint:        "Md",
		Amount:      "1000",
	}
	tx, ok := Parse(r, "W")
	if !ok {
		t.Fatal("Parse returned ok=false, want true")
	}
	if tx.TxType != domain.TxWithdraw {
		t.Errorf("TxType = %q, want %q", tx.TxType, domain.TxWithdraw)
	}
	if tx.TokenOut != "Md" {
		t.Errorf("TokenOut = %q, want %q", tx.TokenOut, "Md")
	}
}

func TestRawRecordInvolves(t *testing.T) {
	r := RawRecord{
		Source:      "A",
		Destination: "B",
		Accounts:    []string{"C"},
		TokenTransfers: []TokenTransfer{
			{FromAccount: "D", ToAccount: "E"},
		},
	}
	for _, w := range []string{"A", "B", "C", "D", "E"} {
		if !r.Involves(w) {
			t.Errorf("Involves(%q) = false, want true", w)
		}
	}
	if r.Involves("Z") {
		t.Error("Involves(\"Z\") = true, want false")
	}
}
