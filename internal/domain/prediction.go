package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MarketStatus describes a Polymarket market's lifecycle, used to explain
// bet freshness in the conviction projection.
type MarketStatus string

const (
	MarketOpen     MarketStatus = "open"
	MarketClosed   MarketStatus = "closed"
	MarketResolved MarketStatus = "resolved"
)

// PredictionMarketBet is one wallet's open position in a Polymarket market,
// normalized from either the Gamma or CLOB API shape.
type PredictionMarketBet struct {
	Wallet       string
	MarketTitle  string
	Category     string
	Outcome      string
	AmountUsd    decimal.Decimal
	CurrentPrice decimal.Decimal
	AvgPrice     decimal.Decimal
	UnrealizedPnl decimal.Decimal
	Status       MarketStatus
}

// SignalType classifies a single conviction signal produced by comparing one
// bet against a wallet's DeFi positions.
type SignalType string

const (
	SignalBullishAlignment SignalType = "bullish_alignment"
	SignalBearishAlignment SignalType = "bearish_alignment"
	SignalContradiction    SignalType = "contradiction"
	SignalFrontRunning     SignalType = "front_running"
	SignalHighConviction   SignalType = "high_conviction"
	SignalTrackRecord      SignalType = "track_record"
)

// ConvictionSignal is one observation linking a bet to on-chain exposure. ID
// lets a caller deduplicate or reference a specific signal once several are
// accumulated into an overall Conviction. DefiContext and PredictionContext
// are short human-readable summaries of the two sides of the join — the
// position group and the bet — kept separate from Description so a caller
// can render them independently (e.g. two columns in a UI) rather than
// re-parsing the combined sentence.
type ConvictionSignal struct {
	ID                uuid.UUID
	Type              SignalType
	Strength          float64 // in [0,1]
	DefiContext       string
	PredictionContext string
	Description       string
}

// Confidence is how much evidence backs a wallet's conviction score.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)
