package subscription

import (
	"context"
	"time"

	"github.com/cortexlabs/cortexd/internal/domain"
	"github.com/cortexlabs/cortexd/internal/normaliser"
)

// maxSnapshotTx and snapshotBudget bound the legacy one-shot mode: up to
// 1000 records, bounded to 15 seconds of wall-clock time.
const (
	maxSnapshotTx  = 1000
	snapshotBudget = 15 * time.Second
)

// IndexSnapshot is the legacy one-shot fill used by callers that want a
// single bulk pass rather than a durable subscription: it collects up to
// maxSnapshotTx records from the live stream within snapshotBudget,
// normalises and bulk-inserts them, recomputes the wallet's summary, and
// returns — no subscription is registered in the map.
func (m *Manager) IndexSnapshot(ctx context.Context, wallet string) (domain.WalletSummary, error) {
	if !domain.ValidateSolanaAddress(wallet) {
		return domain.WalletSummary{}, invalidAddress(wallet)
	}

	ctx, cancel := context.WithTimeout(ctx, snapshotBudget)
	defer cancel()

	ch := make(chan normaliser.RawRecord, chanCapacity)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if m.stream == nil {
			return
		}
		_ = m.stream.Stream(ctx, wallet, ch)
	}()

	inserted := 0
drain:
	for inserted < maxSnapshotTx {
		select {
		case rec, ok := <-ch:
			if !ok {
				break drain
			}
			tx, ok := normaliser.Parse(rec, wallet)
			if !ok {
				continue
			}
			m.enrich(ctx, tx)
			if err := m.writer.Insert(ctx, tx); err == nil {
				inserted++
			}
		case <-ctx.Done():
			break drain
		}
	}
	cancel()
	<-done

	return m.RecomputeAndUpsert(context.Background(), wallet)
}

// RecomputeAndUpsert reads wallet's full transaction history back from the
// store, recomputes PnL/risk, and upserts the refreshed summary. IndexSnapshot
// calls it after its bulk insert; it needs no running subscription.
func (m *Manager) RecomputeAndUpsert(ctx context.Context, wallet string) (domain.WalletSummary, error) {
	txs, err := m.store.ListTransactions(ctx, wallet)
	if err != nil {
		return domain.WalletSummary{}, err
	}
	summary := RecomputeSummary(wallet, txs)
	if err := m.writer.UpsertSummary(ctx, summary); err != nil {
		return summary, err
	}
	return summary, nil
}
