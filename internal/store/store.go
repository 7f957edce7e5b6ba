// Package store is the analytical persistence layer for parsed transactions
// and wallet summaries, backed by an embedded SQLite database
// (modernc.org/sqlite) rather than a standalone server process.
// The store is the deduplication authority: a second insert with the same
// signature is rejected by the UNIQUE constraint, not by application logic.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cortexlabs/cortexd/internal/apperr"
	"github.com/cortexlabs/cortexd/internal/domain"
	"github.com/cortexlabs/cortexd/pkg/logger"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// Store wraps a *sql.DB opened against a single SQLite file. Safe for
// concurrent use: writes across wallets are expected and serialised
// internally by the driver's connection pool.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the store at path and runs migrations.
func Open(path string) (*Store, error) {
	if path == "" {
		path = "data/cortex.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: mkdir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	// SQLite tolerates a single writer well; pinning the pool to one
	// connection avoids SQLITE_BUSY under concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA foreign_keys=ON;`,
		`
CREATE TABLE IF NOT EXISTS transactions (
  signature TEXT PRIMARY KEY,
  wallet TEXT NOT NULL,
  slot INTEGER NOT NULL,
  block_time_ms INTEGER NOT NULL,
  protocol TEXT NOT NULL,
  tx_type TEXT NOT NULL,
  token_in TEXT NOT NULL DEFAULT '',
  token_out TEXT NOT NULL DEFAULT '',
  amount_in TEXT NOT NULL DEFAULT '0',
  amount_out TEXT NOT NULL DEFAULT '0',
  usd_value TEXT NOT NULL DEFAULT '0'
);`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_wallet_time ON transactions(wallet, block_time_ms);`,
		`
CREATE TABLE IF NOT EXISTS wallet_summary (
  wallet TEXT PRIMARY KEY,
  total_value_usd TEXT NOT NULL DEFAULT '0',
  realized_pnl_24h TEXT NOT NULL DEFAULT '0',
  realized_pnl_7d TEXT NOT NULL DEFAULT '0',
  realized_pnl_30d TEXT NOT NULL DEFAULT '0',
  unrealized_pnl TEXT NOT NULL DEFAULT '0',
  largest_position_pct TEXT NOT NULL DEFAULT '0',
  protocol_count INTEGER NOT NULL DEFAULT 0,
  position_count INTEGER NOT NULL DEFAULT 0,
  risk_score INTEGER NOT NULL DEFAULT 0,
  last_activity_ms INTEGER NOT NULL DEFAULT 0,
  protocols TEXT NOT NULL DEFAULT ''
);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: migrate: %w", err)
		}
	}
	return nil
}

// Insert appends one transaction row. A duplicate signature is silently
// absorbed: history backfills and live reconnects can both redeliver the
// same transaction, so Insert logs the duplicate at debug level and returns
// nil rather than treating it as an insert failure.
func (s *Store) Insert(ctx context.Context, tx *domain.ParsedTransaction) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO transactions (signature, wallet, slot, block_time_ms, protocol, tx_type, token_in, token_out, amount_in, amount_out, usd_value)
VALUES (?,?,?,?,?,?,?,?,?,?,?)
`,
		tx.Signature, tx.Wallet, tx.Slot, tx.BlockTimeMs, string(tx.Protocol), string(tx.TxType),
		tx.TokenIn, tx.TokenOut, tx.AmountIn.String(), tx.AmountOut.String(), tx.UsdValue.String(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			logger.Debugf("store: duplicate signature %s for wallet %s, dropped", tx.Signature, tx.Wallet)
			return nil
		}
		return apperr.Store(err, "insert transaction %s", tx.Signature)
	}
	return nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint
// failure. modernc.org/sqlite surfaces these as a plain error whose message
// names the constraint, so this is a substring check rather than a typed
// errors.As — matching the lenient-string-matching style the normaliser
// already uses for provider payload dispatch.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "constraint failed: UNIQUE")
}

// ListTransactions returns every row stored for wallet, oldest first, used
// by the metrics engine to recompute PnL/risk. The history and live
// producers make no ordering guarantee among themselves; block_time_ms is
// the store's own ordering authority.
func (s *Store) ListTransactions(ctx context.Context, wallet string) ([]*domain.ParsedTransaction, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT signature, wallet, slot, block_time_ms, protocol, tx_type, token_in, token_out, amount_in, amount_out, usd_value
FROM transactions WHERE wallet = ? ORDER BY block_time_ms ASC
`, wallet)
	if err != nil {
		return nil, apperr.Store(err, "list transactions for %s", wallet)
	}
	defer rows.Close()

	var out []*domain.ParsedTransaction
	for rows.Next() {
		var tx domain.ParsedTransaction
		var protocol, txType, amountIn, amountOut, usdValue string
		if err := rows.Scan(&tx.Signature, &tx.Wallet, &tx.Slot, &tx.BlockTimeMs, &protocol, &txType,
			&tx.TokenIn, &tx.TokenOut, &amountIn, &amountOut, &usdValue); err != nil {
			return nil, apperr.Store(err, "scan transaction row")
		}
		tx.Protocol = domain.Protocol(protocol)
		tx.TxType = domain.TransactionType(txType)
		tx.AmountIn = parseDecimalOrZero(amountIn)
		tx.AmountOut = parseDecimalOrZero(amountOut)
		tx.UsdValue = parseDecimalOrZero(usdValue)
		out = append(out, &tx)
	}
	return out, rows.Err()
}

func parseDecimalOrZero(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// UpsertSummary overwrites a wallet's rollup wholesale: the writer does not
// decide when to recompute, only how to persist the result.
func (s *Store) UpsertSummary(ctx context.Context, summary domain.WalletSummary) error {
	protocols := joinProtocols(summary.Protocols)
	_, err := s.db.ExecContext(ctx, `
INSERT INTO wallet_summary (wallet, total_value_usd, realized_pnl_24h, realized_pnl_7d, realized_pnl_30d, unrealized_pnl, largest_position_pct, protocol_count, position_count, risk_score, last_activity_ms, protocols)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
ON CONFLICT(wallet) DO UPDATE SET
  total_value_usd=excluded.total_value_usd,
  realized_pnl_24h=excluded.realized_pnl_24h,
  realized_pnl_7d=excluded.realized_pnl_7d,
  realized_pnl_30d=excluded.realized_pnl_30d,
  unrealized_pnl=excluded.unrealized_pnl,
  largest_position_pct=excluded.largest_position_pct,
  protocol_count=excluded.protocol_count,
  position_count=excluded.position_count,
  risk_score=excluded.risk_score,
  last_activity_ms=excluded.last_activity_ms,
  protocols=excluded.protocols
`,
		summary.Wallet, summary.TotalValueUsd.String(), summary.RealizedPnl24h.String(), summary.RealizedPnl7d.String(),
		summary.RealizedPnl30d.String(), summary.UnrealizedPnl.String(), summary.LargestPositionPct.String(),
		summary.ProtocolCount, summary.PositionCount, summary.RiskScore, summary.LastActivityMs, protocols,
	)
	if err != nil {
		return apperr.Store(err, "upsert summary for %s", summary.Wallet)
	}
	return nil
}

// GetSummary returns the persisted rollup for wallet, or a zero-valued one
// (with the wallet field set, never an error): unknown wallets get a
// zero-valued summary rather than an error the API would turn into a 404.
func (s *Store) GetSummary(ctx context.Context, wallet string) (domain.WalletSummary, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT wallet, total_value_usd, realized_pnl_24h, realized_pnl_7d, realized_pnl_30d, unrealized_pnl, largest_position_pct, protocol_count, position_count, risk_score, last_activity_ms, protocols
FROM wallet_summary WHERE wallet = ?
`, wallet)

	var summary domain.WalletSummary
	var totalValue, pnl24h, pnl7d, pnl30d, unrealized, largestPct, protocols string
	err := row.Scan(&summary.Wallet, &totalValue, &pnl24h, &pnl7d, &pnl30d, &unrealized, &largestPct,
		&summary.ProtocolCount, &summary.PositionCount, &summary.RiskScore, &summary.LastActivityMs, &protocols)
	if err == sql.ErrNoRows {
		return domain.WalletSummary{Wallet: wallet}, nil
	}
	if err != nil {
		return domain.WalletSummary{}, apperr.Store(err, "get summary for %s", wallet)
	}

	summary.TotalValueUsd = parseDecimalOrZero(totalValue)
	summary.RealizedPnl24h = parseDecimalOrZero(pnl24h)
	summary.RealizedPnl7d = parseDecimalOrZero(pnl7d)
	summary.RealizedPnl30d = parseDecimalOrZero(pnl30d)
	summary.UnrealizedPnl = parseDecimalOrZero(unrealized)
	summary.LargestPositionPct = parseDecimalOrZero(largestPct)
	summary.Protocols = splitProtocols(protocols)
	return summary, nil
}

func joinProtocols(protocols []domain.Protocol) string {
	out := ""
	for i, p := range protocols {
		if i > 0 {
			out += ","
		}
		out += string(p)
	}
	return out
}

func splitProtocols(s string) []domain.Protocol {
	if s == "" {
		return nil
	}
	var out []domain.Protocol
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, domain.Protocol(s[start:i]))
			}
			start = i + 1
		}
	}
	return out
}
