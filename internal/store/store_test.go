package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cortexlabs/cortexd/internal/domain"
	"github.com/shopspring/decimal"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "cortex.db")
	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleTx(signature string) *domain.ParsedTransaction {
	return &domain.ParsedTransaction{
		Signature:   signature,
		Slot:        1,
		BlockTimeMs: 1700000000000,
		Wallet:      "W",
		Protocol:    domain.ProtocolJupiter,
		TxType:      domain.TxSwap,
		TokenIn:     "USDC",
		TokenOut:    "SOL",
		AmountIn:    decimal.NewFromInt(100),
		AmountOut:   decimal.NewFromInt(1),
		UsdValue:    decimal.NewFromInt(100),
	}
}

func TestInsertAndListTransactions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Insert(ctx, sampleTx("sig-1")); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}

	txs, err := s.ListTransactions(ctx, "W")
	if err != nil {
		t.Fatalf("ListTransactions returned error: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("len(txs) = %d, want 1", len(txs))
	}
	if txs[0].Signature != "sig-1" || !txs[0].AmountOut.Equal(decimal.NewFromInt(1)) {
		t.Errorf("txs[0] = %+v, want round-tripped sig-1", txs[0])
	}
}

func TestInsertDuplicateSignatureIsAbsorbed(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Insert(ctx, sampleTx("sig-dup")); err != nil {
		t.Fatalf("first Insert returned error: %v", err)
	}
	if err := s.Insert(ctx, sampleTx("sig-dup")); err != nil {
		t.Fatalf("duplicate Insert returned error %v, want nil (absorbed)", err)
	}

	txs, err := s.ListTransactions(ctx, "W")
	if err != nil {
		t.Fatalf("ListTransactions returned error: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("len(txs) = %d, want 1 (duplicate must not be stored twice)", len(txs))
	}
}

func TestGetSummaryUnknownWalletIsZeroValueNotError(t *testing.T) {
	s := openTestStore(t)
	summary, err := s.GetSummary(context.Background(), "unknown-wallet")
	if err != nil {
		t.Fatalf("GetSummary returned error: %v", err)
	}
	if summary.Wallet != "unknown-wallet" {
		t.Errorf("Wallet = %q, want %q", summary.Wallet, "unknown-wallet")
	}
	if !summary.TotalValueUsd.IsZero() || summary.RiskScore != 0 {
		t.Errorf("summary = %+v, want zero-valued", summary)
	}
}

func TestUpsertSummaryThenGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	summary := domain.WalletSummary{
		Wallet:             "W",
		TotalValueUsd:      decimal.NewFromInt(1000),
		RiskScore:          42,
		ProtocolCount:      2,
		PositionCount:      3,
		LargestPositionPct: decimal.NewFromFloat(0.5),
		Protocols:          []domain.Protocol{domain.ProtocolJupiter, domain.ProtocolKamino},
	}
	if err := s.UpsertSummary(ctx, summary); err != nil {
		t.Fatalf("UpsertSummary returned error: %v", err)
	}

	got, err := s.GetSummary(ctx, "W")
	if err != nil {
		t.Fatalf("GetSummary returned error: %v", err)
	}
	if !got.TotalValueUsd.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("TotalValueUsd = %s, want 1000", got.TotalValueUsd)
	}
	if got.RiskScore != 42 {
		t.Errorf("RiskScore = %d, want 42", got.RiskScore)
	}
	if len(got.Protocols) != 2 || got.Protocols[0] != domain.ProtocolJupiter || got.Protocols[1] != domain.ProtocolKamino {
		t.Errorf("Protocols = %v, want [jupiter kamino]", got.Protocols)
	}

	// A second upsert overwrites wholesale rather than merging.
	summary.RiskScore = 7
	summary.Protocols = nil
	if err := s.UpsertSummary(ctx, summary); err != nil {
		t.Fatalf("second UpsertSummary returned error: %v", err)
	}
	got, err = s.GetSummary(ctx, "W")
	if err != nil {
		t.Fatalf("GetSummary returned error: %v", err)
	}
	if got.RiskScore != 7 {
		t.Errorf("RiskScore after overwrite = %d, want 7", got.RiskScore)
	}
	if len(got.Protocols) != 0 {
		t.Errorf("Protocols after overwrite = %v, want empty", got.Protocols)
	}
}
