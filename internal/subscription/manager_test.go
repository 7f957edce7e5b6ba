package subscription

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cortexlabs/cortexd/internal/domain"
	"github.com/cortexlabs/cortexd/internal/normaliser"
	"github.com/cortexlabs/cortexd/internal/writer"
	"github.com/shopspring/decimal"
)

// Two well-formed base58 Solana addresses, used so different tests don't
// collide on the manager's uniqueness map.
const (
	walletA = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
	walletB = "So11111111111111111111111111111111111111112"
)

type fakeStore struct {
	mu   sync.Mutex
	txs  []*domain.ParsedTransaction
}

func (f *fakeStore) Insert(_ context.Context, tx *domain.ParsedTransaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txs = append(f.txs, tx)
	return nil
}

func (f *fakeStore) UpsertSummary(_ context.Context, _ domain.WalletSummary) error { return nil }

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.txs)
}

// noHistory/noStream act like providers that deliver nothing: noHistory
// returns no records at once and noStream blocks until the subscription is
// cancelled, so tx_count stays at zero — the shape scenario 1 describes.
type noHistory struct{}

func (noHistory) FetchHistory(context.Context, string, int) ([]normaliser.HeliusEnhancedTx, error) {
	return nil, nil
}

type noStream struct{}

func (noStream) Stream(ctx context.Context, _ string, _ chan<- normaliser.RawRecord) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestStartStopBasic(t *testing.T) {
	m := NewManager(noHistory{}, noStream{}, nil, writer.New(&fakeStore{}), nil)

	result, err := m.Start(walletA)
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if result != Started {
		t.Errorf("Start result = %q, want %q", result, Started)
	}

	list := m.List()
	if len(list) != 1 {
		t.Fatalf("len(List()) = %d, want 1", len(list))
	}
	if !list[0].Running {
		t.Error("list[0].Running = false, want true")
	}
	if list[0].TransactionsIndexed != 0 {
		t.Errorf("list[0].TransactionsIndexed = %d, want 0", list[0].TransactionsIndexed)
	}
	if list[0].Wallet != walletA {
		t.Errorf("list[0].Wallet = %q, want %q", list[0].Wallet, walletA)
	}

	if stopResult := m.Stop(walletA); stopResult != Stopped {
		t.Errorf("Stop result = %q, want %q", stopResult, Stopped)
	}
	if len(m.List()) != 0 {
		t.Errorf("len(List()) after Stop = %d, want 0", len(m.List()))
	}
}

func TestStartIdempotent(t *testing.T) {
	m := NewManager(noHistory{}, noStream{}, nil, writer.New(&fakeStore{}), nil)
	defer m.Stop(walletA)

	if _, err := m.Start(walletA); err != nil {
		t.Fatalf("first Start returned error: %v", err)
	}
	result, err := m.Start(walletA)
	if err != nil {
		t.Fatalf("second Start returned error: %v", err)
	}
	if result != AlreadyRunning {
		t.Errorf("second Start result = %q, want %q", result, AlreadyRunning)
	}
	if m.Count() != 1 {
		t.Errorf("Count() = %d, want 1 (second Start must not spawn another task group)", m.Count())
	}
}

func TestStopIdempotent(t *testing.T) {
	m := NewManager(noHistory{}, noStream{}, nil, writer.New(&fakeStore{}), nil)

	if result := m.Stop(walletA); result != NotRunning {
		t.Errorf("Stop on an unknown wallet = %q, want %q", result, NotRunning)
	}

	if _, err := m.Start(walletA); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if result := m.Stop(walletA); result != Stopped {
		t.Errorf("first Stop = %q, want %q", result, Stopped)
	}
	if result := m.Stop(walletA); result != NotRunning {
		t.Errorf("second Stop = %q, want %q (idempotent, no side effects)", result, NotRunning)
	}
}

func TestStartInvalidAddress(t *testing.T) {
	m := NewManager(noHistory{}, noStream{}, nil, writer.New(&fakeStore{}), nil)
	if _, err := m.Start("not-a-wallet"); err == nil {
		t.Fatal("Start with an invalid address returned nil error, want InvalidInput")
	}
}

// historyWithRecords hands back the same fixed batch of Raydium swap records
// on every call; a subscription calls FetchHistory once per Start.
type historyWithRecords struct {
	records []normaliser.HeliusEnhancedTx
}

func (h historyWithRecords) FetchHistory(context.Context, string, int) ([]normaliser.HeliusEnhancedTx, error) {
	return h.records, nil
}

func swapRecord(signature string, ts int64) normaliser.HeliusEnhancedTx {
	tx := normaliser.HeliusEnhancedTx{
		Signature: signature,
		Timestamp: ts,
		Source:    "raydium",
		Type:      "SWAP",
	}
	tx.Events.Swap = &struct {
		TokenInputs []struct {
			Mint      string `json:"mint"`
			RawAmount string `json:"rawTokenAmount"`
			Decimals  int    `json:"decimals"`
		} `json:"tokenInputs"`
		TokenOutputs []struct {
			Mint      string `json:"mint"`
			RawAmount string `json:"rawTokenAmount"`
			Decimals  int    `json:"decimals"`
		} `json:"tokenOutputs"`
	}{}
	tx.Events.Swap.TokenInputs = append(tx.Events.Swap.TokenInputs, struct {
		Mint      string `json:"mint"`
		RawAmount string `json:"rawTokenAmount"`
		Decimals  int    `json:"decimals"`
	}{Mint: "Ma", RawAmount: "1500000", Decimals: 6})
	tx.Events.Swap.TokenOutputs = append(tx.Events.Swap.TokenOutputs, struct {
		Mint      string `json:"mint"`
		RawAmount string `json:"rawTokenAmount"`
		Decimals  int    `json:"decimals"`
	}{Mint: "Mb", RawAmount: "42000000", Decimals: 6})
	return tx
}

func TestHistoryBackfillIsProcessedBeforeStopReturns(t *testing.T) {
	store := &fakeStore{}
	history := historyWithRecords{records: []normaliser.HeliusEnhancedTx{
		swapRecord("sig-1", 1700000000),
		swapRecord("sig-2", 1700000001),
	}}

	m := NewManager(history, noStream{}, nil, writer.New(store), nil)

	if _, err := m.Start(walletA); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	// Stop blocks until the whole task group (processor included) has
	// unwound, which only happens once the channel is closed and drained —
	// so by the time it returns, every backfilled record has been inserted.
	if result := m.Stop(walletA); result != Stopped {
		t.Fatalf("Stop result = %q, want %q", result, Stopped)
	}

	if got := store.count(); got != 2 {
		t.Errorf("store received %d transactions, want 2", got)
	}
}

type fakePriceEnricher struct {
	price decimal.Decimal
}

func (f fakePriceEnricher) Price(context.Context, string) (decimal.Decimal, bool) {
	return f.price, true
}

func TestEnrichFillsUsdValue(t *testing.T) {
	store := &fakeStore{}
	history := historyWithRecords{records: []normaliser.HeliusEnhancedTx{swapRecord("sig-1", 1700000000)}}

	m := NewManager(history, noStream{}, fakePriceEnricher{price: decimal.NewFromInt(2)}, writer.New(store), nil)

	if _, err := m.Start(walletA); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if result := m.Stop(walletA); result != Stopped {
		t.Fatalf("Stop result = %q, want %q", result, Stopped)
	}

	if got := store.count(); got != 1 {
		t.Fatalf("store received %d transactions, want 1", got)
	}
	if store.txs[0].UsdValue.IsZero() {
		t.Error("UsdValue was not enriched, want a non-zero best-effort price fill")
	}
}

func TestRecomputeSummary(t *testing.T) {
	txs := []*domain.ParsedTransaction{
		{
			Signature: "s1", Protocol: domain.ProtocolJupiter, TxType: domain.TxSwap,
			TokenIn: "USDC", TokenOut: "SOL", AmountIn: decimal.NewFromInt(100), AmountOut: decimal.NewFromInt(1),
			UsdValue: decimal.NewFromInt(100), BlockTimeMs: time.Now().UnixMilli(),
		},
	}
	summary := RecomputeSummary(walletA, txs)
	if summary.Wallet != walletA {
		t.Errorf("Wallet = %q, want %q", summary.Wallet, walletA)
	}
	if len(summary.Protocols) != 1 || summary.Protocols[0] != domain.ProtocolJupiter {
		t.Errorf("Protocols = %v, want [jupiter]", summary.Protocols)
	}
	if summary.LastActivityMs == 0 {
		t.Error("LastActivityMs = 0, want the transaction's block time")
	}
}
