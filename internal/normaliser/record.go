// Package normaliser turns the heterogeneous wire shapes emitted by the
// history REST API and the live WS stream into the engine's canonical
// domain.ParsedTransaction, via the two-step dispatch described for the
// subscription manager's processor.
package normaliser

import "github.com/shopspring/decimal"

// TokenAmount is a token + raw-or-ui amount pair as it appears nested inside
// swap events and token transfers. decimal.Decimal already accepts both
// quoted and bare-numeric JSON, which covers the amount-as-string-or-number
// leniency the provider payloads need.
type TokenAmount struct {
	Mint     string          `json:"mint"`
	UIAmount decimal.Decimal `json:"ui_amount"`
	Decimals int             `json:"decimals"`
}

// SwapEvent carries the decoded token legs of a swap, when the upstream
// decoder was able to produce one.
type SwapEvent struct {
	TokenInputs  []TokenAmount `json:"token_inputs"`
	TokenOutputs []TokenAmount `json:"token_outputs"`
}

// Events is the decoded-instruction payload attached to a record when the
// decoder recognized the instruction shape.
type Events struct {
	Swap *SwapEvent `json:"swap,omitempty"`
}

// TokenTransfer is one raw SPL token transfer observed in the transaction,
// used as a fallback source/destination/mint signal when no decoded event is
// available (e.g. plain transfers, or history records with a thinner shape).
type TokenTransfer struct {
	Mint        string          `json:"mint"`
	FromAccount string          `json:"from_account"`
	ToAccount   string          `json:"to_account"`
	UIAmount    decimal.Decimal `json:"ui_amount"`
}

// RawRecord is the common wire shape both provider clients normalize their
// payloads into before handing them to Parse. History and stream payloads
// differ in field-naming specifics upstream; the provider clients are
// responsible for mapping onto this shape (history's mapping is
// AdaptHistoryRecord; the stream client already speaks this shape natively).
type RawRecord struct {
	Signature   string `json:"signature"`
	Slot        uint64 `json:"slot"`
	BlockTime   int64  `json:"block_time"` // unix seconds
	Source      string `json:"source"`
	Destination string `json:"destination"`
	FeePayer    string `json:"fee_payer"`
	Accounts    []string `json:"accounts"`

	// DecoderType/Type name the protocol+event in whichever casing the
	// producing decoder used; identifyProtocol lowercases before matching.
	DecoderType string `json:"decoder_type"`
	TxType      string `json:"tx_type"`
	EventType   string `json:"event_type"`

	Events Events `json:"events"`

	// Single-token-transfer convenience fields, populated for lending-style
	// operations (deposit/withdraw/borrow/repay) where there's exactly one
	// leg worth recording.
	Mint     string          `json:"mint"`
	Amount   string          `json:"amount"`
	UIAmount decimal.Decimal `json:"ui_amount"`

	TokenTransfers []TokenTransfer `json:"token_transfers"`

	ProgramID string `json:"program_id"`
}

// eventTag returns whichever of EventType/TxType is set, the field the
// dispatch table keys off of.
func (r RawRecord) eventTag() string {
	if r.EventType != "" {
		return r.EventType
	}
	return r.TxType
}

// decoderTag returns whichever of DecoderType/TxType is set, the field
// protocol identification keys off of — mirroring the original's fallback
// of decoder_type-else-tx_type for protocol identification.
func (r RawRecord) decoderTag() string {
	if r.DecoderType != "" {
		return r.DecoderType
	}
	return r.TxType
}

// Involves reports whether wallet appears anywhere a record could name it:
// source, destination, fee payer, the account list, or as a transfer
// endpoint. The live stream client uses this to filter a shared feed down to
// one wallet's subscription.
func (r RawRecord) Involves(wallet string) bool {
	if r.Source == wallet || r.Destination == wallet || r.FeePayer == wallet {
		return true
	}
	for _, a := range r.Accounts {
		if a == wallet {
			return true
		}
	}
	for _, t := range r.TokenTransfers {
		if t.FromAccount == wallet || t.ToAccount == wallet {
			return true
		}
	}
	return false
}
