// Package subscription is the per-wallet state machine at the core of the
// ingestion engine: a concurrent map from wallet to WalletSubscription, each
// one owning a processor/history-producer/live-producer task trio wired
// over a bounded channel, with context.Context cancellation and channel
// close standing in for the underlying indexer's cancellation-token model,
// launched and joined with pkg/syncgroup.
package subscription

import (
	"context"
	"sync"
	"time"

	"github.com/cortexlabs/cortexd/internal/apperr"
	"github.com/cortexlabs/cortexd/internal/domain"
	"github.com/cortexlabs/cortexd/internal/metrics"
	"github.com/cortexlabs/cortexd/internal/normaliser"
	"github.com/cortexlabs/cortexd/internal/writer"
	"github.com/cortexlabs/cortexd/pkg/logger"
	"github.com/cortexlabs/cortexd/pkg/syncgroup"
	"github.com/shopspring/decimal"
)

func invalidAddress(wallet string) error {
	return apperr.InvalidInput("%q is not a valid Solana wallet address", wallet)
}

// chanCapacity is the bounded channel's capacity between producers and the
// processor.
const chanCapacity = 1000

// historyMax bounds how many records the history producer fetches per
// subscription, keeping a single Start call's backfill bounded regardless
// of how old the wallet is.
const historyMax = 1000

// StartResult is the outcome of a Start call.
type StartResult string

const (
	Started        StartResult = "started"
	AlreadyRunning StartResult = "already_running"
)

// StopResult is the outcome of a Stop call.
type StopResult string

const (
	Stopped    StopResult = "stopped"
	NotRunning StopResult = "not_running"
)

// HistoryProvider fetches a wallet's transaction history.
type HistoryProvider interface {
	FetchHistory(ctx context.Context, wallet string, max int) ([]normaliser.HeliusEnhancedTx, error)
}

// StreamProvider maintains a wallet's live transaction stream.
type StreamProvider interface {
	Stream(ctx context.Context, wallet string, out chan<- normaliser.RawRecord) error
}

// PriceEnricher resolves a best-effort current price for a mint, used to
// fill in ParsedTransaction.UsdValue before insert: enrichment happens in
// the processor, is additive, and a miss never blocks insert.
type PriceEnricher interface {
	Price(ctx context.Context, mint string) (decimal.Decimal, bool)
}

// TransactionStore supplies the transaction history ComputePnL/ComputeRisk
// need to recompute a wallet's summary.
type TransactionStore interface {
	ListTransactions(ctx context.Context, wallet string) ([]*domain.ParsedTransaction, error)
}

// entry pairs a subscription's public bookkeeping record with the task
// group and channel backing it. Only the Manager ever touches entry; the
// public record (sub) is what List/IsSubscribed project out.
type entry struct {
	sub   *domain.WalletSubscription
	ch    chan normaliser.RawRecord
	group *syncgroup.SyncGroup
}

// Manager is the uniqueness authority for wallet subscriptions: at most one
// live subscription per wallet at a time.
type Manager struct {
	mu   sync.RWMutex
	subs map[string]*entry

	history HistoryProvider
	stream  StreamProvider
	price   PriceEnricher
	writer  *writer.Writer
	store   TransactionStore
}

func NewManager(history HistoryProvider, stream StreamProvider, price PriceEnricher, w *writer.Writer, store TransactionStore) *Manager {
	return &Manager{
		subs:    make(map[string]*entry),
		history: history,
		stream:  stream,
		price:   price,
		writer:  w,
		store:   store,
	}
}

// Start creates and launches a subscription for wallet iff none exists. It
// validates the address, registers the subscription in the map before
// spawning anything (the map is the uniqueness authority, so registration
// must happen under the same lock as the presence check), then launches the
// processor/history/live trio.
func (m *Manager) Start(wallet string) (StartResult, error) {
	if !domain.ValidateSolanaAddress(wallet) {
		return "", invalidAddress(wallet)
	}

	m.mu.Lock()
	if _, exists := m.subs[wallet]; exists {
		m.mu.Unlock()
		return AlreadyRunning, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	sub := domain.NewWalletSubscription(wallet, ctx, cancel)
	ch := make(chan normaliser.RawRecord, chanCapacity)
	e := &entry{sub: sub, ch: ch, group: syncgroup.New()}
	m.subs[wallet] = e
	m.mu.Unlock()

	log := logger.WithField("component", "subscription").WithField("wallet", wallet).WithField("subscription_id", sub.ID)

	var producers sync.WaitGroup
	producers.Add(2)

	e.group.Add(func() {
		m.runProcessor(ctx, wallet, ch, sub)
	})
	e.group.Add(func() {
		defer producers.Done()
		m.runHistoryProducer(ctx, wallet, ch)
	})
	e.group.Add(func() {
		defer producers.Done()
		m.runLiveProducer(ctx, wallet, ch)
	})
	e.group.Run()

	// Close ch once both producers are done so the processor's range loop
	// terminates cleanly once every producer has stopped sending. This must
	// not hold the manager lock.
	go func() {
		producers.Wait()
		close(ch)
	}()

	log.Infof("subscription: started")
	return Started, nil
}

// Stop cancels and removes wallet's subscription. Idempotent: a second call
// on an already-absent wallet returns NotRunning without side effects.
func (m *Manager) Stop(wallet string) StopResult {
	m.mu.Lock()
	e, exists := m.subs[wallet]
	if !exists {
		m.mu.Unlock()
		return NotRunning
	}
	delete(m.subs, wallet)
	m.mu.Unlock()

	e.sub.Cancel()
	// Bound how long Stop waits for the task group to unwind; a stuck
	// provider call must not hang the caller forever.
	done := make(chan struct{})
	go func() {
		e.group.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(15 * time.Second):
		logger.WithField("wallet", wallet).Warnf("subscription: stop timed out waiting for task group")
	}

	logger.WithField("wallet", wallet).Infof("subscription: stopped")
	return Stopped
}

// List returns a snapshot of every active subscription.
func (m *Manager) List() []domain.SubscriptionStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.SubscriptionStatus, 0, len(m.subs))
	for _, e := range m.subs {
		out = append(out, domain.SubscriptionStatus{
			ID:                  e.sub.ID,
			Wallet:              e.sub.Wallet,
			StartedAt:           e.sub.StartedAt,
			TransactionsIndexed: e.sub.TxCount.Load(),
			Running:             e.sub.Running(),
		})
	}
	return out
}

// IsSubscribed reports whether wallet currently has a live subscription.
func (m *Manager) IsSubscribed(wallet string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.subs[wallet]
	return ok
}

// Count returns the number of active subscriptions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs)
}

// runProcessor drains ch, normalises and enriches each record, inserts it,
// and bumps tx_count. It is the only goroutine that mutates sub.TxCount, but
// the field is still atomic because List() reads it concurrently from
// another goroutine (the API handler's call path).
func (m *Manager) runProcessor(ctx context.Context, wallet string, ch <-chan normaliser.RawRecord, sub *domain.WalletSubscription) {
	log := logger.WithField("component", "processor").WithField("wallet", wallet)
	for rec := range ch {
		tx, ok := normaliser.Parse(rec, wallet)
		if !ok {
			continue
		}

		m.enrich(ctx, tx)

		if err := m.writer.Insert(ctx, tx); err != nil {
			log.Warnf("processor: insert failed, continuing: %v", err)
			continue
		}
		sub.TxCount.Add(1)
	}
	log.Debugf("processor: exiting, channel closed")
}

// enrich resolves a best-effort current price for the side of the
// transaction that carries the economically interesting leg (output for a
// swap, whichever side is populated for a one-sided op). A miss leaves
// UsdValue at zero.
func (m *Manager) enrich(ctx context.Context, tx *domain.ParsedTransaction) {
	if m.price == nil || !tx.UsdValue.IsZero() {
		return
	}
	mint := tx.TokenOut
	amount := tx.AmountOut
	if mint == "" {
		mint = tx.TokenIn
		amount = tx.AmountIn
	}
	if mint == "" {
		return
	}
	if p, ok := m.price.Price(ctx, mint); ok {
		tx.UsdValue = amount.Mul(p)
	}
}

func (m *Manager) runHistoryProducer(ctx context.Context, wallet string, ch chan<- normaliser.RawRecord) {
	log := logger.WithField("component", "history-producer").WithField("wallet", wallet)
	if m.history == nil {
		return
	}

	records, err := m.history.FetchHistory(ctx, wallet, historyMax)
	if err != nil {
		log.Warnf("history producer: fetch failed: %v", err)
	}

	for _, rec := range records {
		raw := normaliser.AdaptHistoryRecord(rec)
		// Enqueue without waiting while the buffer has room, so records
		// already fetched are not dropped by a cancellation racing the send.
		select {
		case ch <- raw:
			continue
		default:
		}
		select {
		case ch <- raw:
		case <-ctx.Done():
			return
		}
	}
	log.Debugf("history producer: done, %d records", len(records))
}

func (m *Manager) runLiveProducer(ctx context.Context, wallet string, ch chan<- normaliser.RawRecord) {
	log := logger.WithField("component", "live-producer").WithField("wallet", wallet)
	if m.stream == nil {
		return
	}
	if err := m.stream.Stream(ctx, wallet, ch); err != nil && ctx.Err() == nil {
		log.Warnf("live producer: exited: %v", err)
	}
}

// RecomputeSummary builds wallet's summary rollup from its transaction list:
// PnL figures from metrics.ComputePnL, concentration, counts and score from
// metrics.ComputeRisk, plus the sorted protocol set and the latest block time.
func RecomputeSummary(wallet string, txs []*domain.ParsedTransaction) domain.WalletSummary {
	pnl := metrics.ComputePnL(txs)
	risk := metrics.ComputeRisk(txs)

	protocolSet := make(map[domain.Protocol]struct{})
	var lastActivity int64
	for _, tx := range txs {
		protocolSet[tx.Protocol] = struct{}{}
		if tx.BlockTimeMs > lastActivity {
			lastActivity = tx.BlockTimeMs
		}
	}
	protocols := stableSortedProtocols(protocolSet)

	return domain.WalletSummary{
		Wallet:             wallet,
		TotalValueUsd:      pnl.TotalValue,
		RealizedPnl24h:     pnl.Realized24h,
		RealizedPnl7d:      pnl.Realized7d,
		RealizedPnl30d:     pnl.Realized30d,
		UnrealizedPnl:      pnl.Unrealized,
		LargestPositionPct: risk.LargestPositionPct,
		ProtocolCount:      risk.ProtocolCount,
		PositionCount:      risk.PositionCount,
		RiskScore:          risk.Score,
		LastActivityMs:     lastActivity,
		Protocols:          protocols,
	}
}

func stableSortedProtocols(set map[domain.Protocol]struct{}) []domain.Protocol {
	out := make([]domain.Protocol, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	// Simple insertion sort: the set is small (at most the six known
	// protocols), so this avoids pulling in sort.Slice for a handful of
	// elements compared by a cheap string conversion.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && string(out[j-1]) > string(out[j]); j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
