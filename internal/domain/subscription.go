package domain

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// WalletSubscription is the manager's bookkeeping record for one wallet
// being actively indexed. Cancel stops its processor/producer goroutines;
// TxCount is updated only by the processor goroutine but read from the API
// handler, hence the atomic. ID disambiguates successive subscriptions for
// the same wallet across stop/start cycles in logs.
type WalletSubscription struct {
	ID        uuid.UUID
	Wallet    string
	StartedAt time.Time
	TxCount   atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
}

// NewWalletSubscription creates a subscription bound to ctx/cancel, the pair
// returned by context.WithCancel for this wallet's task group.
func NewWalletSubscription(wallet string, ctx context.Context, cancel context.CancelFunc) *WalletSubscription {
	return &WalletSubscription{
		ID:        uuid.New(),
		Wallet:    wallet,
		StartedAt: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Cancel requests the subscription's tasks stop. Safe to call more than once.
func (w *WalletSubscription) Cancel() {
	if w.cancel != nil {
		w.cancel()
	}
}

// Running reports whether the subscription's context has not yet been
// cancelled.
func (w *WalletSubscription) Running() bool {
	if w.ctx == nil {
		return false
	}
	select {
	case <-w.ctx.Done():
		return false
	default:
		return true
	}
}

// SubscriptionStatus is the read-only API projection of a WalletSubscription.
type SubscriptionStatus struct {
	ID                  uuid.UUID `json:"id"`
	Wallet              string    `json:"wallet"`
	StartedAt           time.Time `json:"started_at"`
	TransactionsIndexed int64     `json:"transactions_indexed"`
	Running             bool      `json:"running"`
}
