package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// TimeWindow selects the PnL aggregation horizon for the read API.
type TimeWindow string

const (
	Window24h TimeWindow = "24h"
	Window7d  TimeWindow = "7d"
	Window30d TimeWindow = "30d"
	WindowAll TimeWindow = "all"
)

// ParseTimeWindow accepts both the canonical tags and the shorthand aliases
// the original service's query parser allowed ("1d", "1w", "1m").
func ParseTimeWindow(s string) (TimeWindow, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "24h", "1d":
		return Window24h, true
	case "7d", "1w":
		return Window7d, true
	case "30d", "1m":
		return Window30d, true
	case "all", "":
		return WindowAll, true
	default:
		return "", false
	}
}

// Days returns the window length in days, or (0, false) for WindowAll which
// has no fixed horizon.
func (w TimeWindow) Days() (int, bool) {
	switch w {
	case Window24h:
		return 1, true
	case Window7d:
		return 7, true
	case Window30d:
		return 30, true
	default:
		return 0, false
	}
}

// PositionType distinguishes how a wallet holds an exposure, mirroring the
// transaction types that can open one (a deposit opens a Lending position, a
// swap leaves a Spot holding, liquidity adds open an LP position, and so on).
type PositionType string

const (
	PositionSpot          PositionType = "spot"
	PositionLending       PositionType = "lending"
	PositionBorrow        PositionType = "borrow"
	PositionLiquidityPool PositionType = "liquidity_pool"
)

// Position is one open exposure derived from a wallet's transaction history,
// used both by the positions read endpoint and as the risk/conviction
// engines' exposure unit. EntryPrice and Apy are optional: the ingestion
// pipeline doesn't always have enough history to derive them.
type Position struct {
	Wallet       string
	Protocol     Protocol
	Type         PositionType
	Token        string
	Pool         string // optional; set for liquidity-pool positions
	Amount       decimal.Decimal
	EntryPrice   decimal.Decimal
	CurrentPrice decimal.Decimal
	UsdValue     decimal.Decimal
	UnrealizedPnl decimal.Decimal
	Apy          decimal.Decimal
}

// WalletSummary is the materialized view persisted by internal/writer and
// served by the summary read endpoint.
type WalletSummary struct {
	Wallet             string
	TotalValueUsd      decimal.Decimal
	RealizedPnl24h     decimal.Decimal
	RealizedPnl7d      decimal.Decimal
	RealizedPnl30d     decimal.Decimal
	UnrealizedPnl      decimal.Decimal
	LargestPositionPct decimal.Decimal
	ProtocolCount      int
	PositionCount      int
	RiskScore          int
	LastActivityMs     int64
	Protocols          []Protocol
}
