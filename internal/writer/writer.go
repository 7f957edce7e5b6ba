// Package writer is the engine's only path to the store from the ingestion
// side: exactly two operations, append one transaction and overwrite one
// wallet's summary rollup. It does not decide when to recompute a summary
// — that's the subscription manager's (or a read-path caller's) call — it
// only persists whatever it's handed.
package writer

import (
	"context"

	"github.com/cortexlabs/cortexd/internal/domain"
	"github.com/cortexlabs/cortexd/pkg/logger"
)

// Store is the subset of internal/store.Store the writer depends on, kept
// narrow so tests can substitute an in-memory fake.
type Store interface {
	Insert(ctx context.Context, tx *domain.ParsedTransaction) error
	UpsertSummary(ctx context.Context, summary domain.WalletSummary) error
}

// Writer appends normalised transactions and upserts summary rollups. It
// carries no per-wallet state of its own; the store is the serialisation and
// deduplication authority.
type Writer struct {
	store Store
}

func New(store Store) *Writer {
	return &Writer{store: store}
}

// Insert appends one transaction. Duplicate signatures are the store's
// responsibility to reject; the store absorbs them without an error, so
// at-least-once redelivery never reaches the caller as a failure. Any other
// store error is logged and returned.
func (w *Writer) Insert(ctx context.Context, tx *domain.ParsedTransaction) error {
	if err := w.store.Insert(ctx, tx); err != nil {
		logger.WithField("wallet", tx.Wallet).WithField("signature", tx.Signature).
			Warnf("writer: insert failed: %v", err)
		return err
	}
	return nil
}

// UpsertSummary overwrites the current rollup for a wallet with a freshly
// computed one.
func (w *Writer) UpsertSummary(ctx context.Context, summary domain.WalletSummary) error {
	if err := w.store.UpsertSummary(ctx, summary); err != nil {
		logger.WithField("wallet", summary.Wallet).Warnf("writer: upsert summary failed: %v", err)
		return err
	}
	return nil
}
