package normaliser

import (
	"strings"

	"github.com/shopspring/decimal"
)

// HeliusEnhancedTx is the shape the history provider's REST endpoint hands
// back: one "enhanced transaction" per Solana tx, with its own field names
// distinct from the live stream's RawRecord shape.
type HeliusEnhancedTx struct {
	Signature   string `json:"signature"`
	Slot        uint64 `json:"slot"`
	Timestamp   int64  `json:"timestamp"` // unix seconds
	Source      string `json:"source"`
	Type        string `json:"type"`
	FeePayer    string `json:"feePayer"`
	Accounts    []struct {
		Account string `json:"account"`
	} `json:"accountData"`
	TokenTransfers []struct {
		Mint            string  `json:"mint"`
		FromUserAccount string  `json:"fromUserAccount"`
		ToUserAccount   string  `json:"toUserAccount"`
		TokenAmount     float64 `json:"tokenAmount"`
	} `json:"tokenTransfers"`
	Events struct {
		Swap *struct {
			TokenInputs []struct {
				Mint     string `json:"mint"`
				RawAmount string `json:"rawTokenAmount"`
				Decimals int    `json:"decimals"`
			} `json:"tokenInputs"`
			TokenOutputs []struct {
				Mint      string `json:"mint"`
				RawAmount string `json:"rawTokenAmount"`
				Decimals  int    `json:"decimals"`
			} `json:"tokenOutputs"`
		} `json:"SWAP,omitempty"`
	} `json:"events"`
}

// AdaptHistoryRecord converts one Helius-shaped enhanced transaction into
// the common RawRecord shape Parse understands. The decoder tag is the
// record's source if present, else its type, copied as-is (protocol
// identification lowercases it); the event type is the type, uppercased.
// An UNKNOWN event type is upgraded to SWAP when a decoded swap sub-event is
// present, since some decoders leave the top-level type generic but still
// attach swap legs.
func AdaptHistoryRecord(tx HeliusEnhancedTx) RawRecord {
	decoder := tx.Source
	if decoder == "" {
		decoder = tx.Type
	}

	eventType := strings.ToUpper(tx.Type)
	if eventType == "" || eventType == "UNKNOWN" {
		if tx.Events.Swap != nil {
			eventType = "SWAP"
		}
	}

	r := RawRecord{
		Signature:   tx.Signature,
		Slot:        tx.Slot,
		BlockTime:   tx.Timestamp,
		FeePayer:    tx.FeePayer,
		DecoderType: decoder,
		EventType:   eventType,
		TxType:      tx.Type,
	}

	for _, a := range tx.Accounts {
		r.Accounts = append(r.Accounts, a.Account)
	}

	for _, t := range tx.TokenTransfers {
		r.TokenTransfers = append(r.TokenTransfers, TokenTransfer{
			Mint:        t.Mint,
			FromAccount: t.FromUserAccount,
			ToAccount:   t.ToUserAccount,
		})
	}
	if len(tx.TokenTransfers) > 0 {
		first := tx.TokenTransfers[0]
		r.Mint = first.Mint
		r.Source = first.FromUserAccount
		r.Destination = first.ToUserAccount
	}

	if tx.Events.Swap != nil {
		swap := &SwapEvent{}
		for _, in := range tx.Events.Swap.TokenInputs {
			swap.TokenInputs = append(swap.TokenInputs, TokenAmount{
				Mint:     in.Mint,
				UIAmount: rawToUI(in.RawAmount, in.Decimals),
				Decimals: in.Decimals,
			})
		}
		for _, out := range tx.Events.Swap.TokenOutputs {
			swap.TokenOutputs = append(swap.TokenOutputs, TokenAmount{
				Mint:     out.Mint,
				UIAmount: rawToUI(out.RawAmount, out.Decimals),
				Decimals: out.Decimals,
			})
		}
		r.Events.Swap = swap
	}

	return r
}

// rawToUI scales a raw on-chain integer amount (as Helius reports it, a
// decimal string with no implied point) down by the mint's decimals, e.g.
// rawToUI("1500000", 6) = 1.5. An unparseable raw amount yields zero rather
// than an error — a single malformed leg shouldn't drop the whole record.
func rawToUI(raw string, decimals int) decimal.Decimal {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d.Shift(int32(-decimals))
}
