package domain

import "strings"

// Protocol identifies the on-chain venue a transaction touched.
type Protocol string

const (
	ProtocolJupiter  Protocol = "jupiter"
	ProtocolRaydium  Protocol = "raydium"
	ProtocolKamino   Protocol = "kamino"
	ProtocolMeteora  Protocol = "meteora"
	ProtocolOrca     Protocol = "orca"
	ProtocolPumpFun  Protocol = "pumpfun"
	ProtocolUnknown  Protocol = "unknown"
)

func (p Protocol) String() string { return string(p) }

// ParseProtocol accepts the casings and aliases seen in decoder tags and
// historical REST payloads ("pump_fun", "pump.fun", "PumpFun", ...).
func ParseProtocol(s string) Protocol {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jupiter":
		return ProtocolJupiter
	case "raydium":
		return ProtocolRaydium
	case "kamino":
		return ProtocolKamino
	case "meteora":
		return ProtocolMeteora
	case "orca":
		return ProtocolOrca
	case "pumpfun", "pump_fun", "pump.fun", "pump":
		return ProtocolPumpFun
	default:
		return ProtocolUnknown
	}
}

// programIDProtocols maps known program addresses to the protocol they
// belong to, used as a fallback when the decoder tag itself doesn't name the
// protocol (e.g. a raw instruction decode).
var programIDProtocols = map[string]Protocol{
	"JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4": ProtocolJupiter,
	"JUP4Fb2cqiRUcaTHdrPC8h2gNsA2ETXiPDD33WcGuJB": ProtocolJupiter,
	"675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8": ProtocolRaydium,
	"CAMMCzo5YL8w4VFF8KVHrK22GGUsp5VTaW7grrKgrWqK": ProtocolRaydium,
	"KLend2g3cP87ber41L3rfCMYbkK3YqPjSSahS1E3HVK":  ProtocolKamino,
	"6LtLpnUFNByNXLyCoK9wA2MykKAmQNZKBdY8s47dehDc": ProtocolKamino,
	"LBUZKhRxPF3XUpBCjp4YzTKgLccjZhTSDM9YuVaPwxo":  ProtocolMeteora,
	"whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc":  ProtocolOrca,
	"6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P":  ProtocolPumpFun,
}

// IdentifyProtocolByProgramID looks a program address up in the fixed table.
// The second return value is false when the address isn't recognized.
func IdentifyProtocolByProgramID(programID string) (Protocol, bool) {
	p, ok := programIDProtocols[programID]
	return p, ok
}

// IsSwapDecoder reports whether a decoder tag names a venue that only ever
// produces swap-shaped events, used by the normaliser's default dispatch arm.
func IsSwapDecoder(decoderTag string) bool {
	tag := strings.ToLower(decoderTag)
	for _, s := range []string{"swap", "raydium", "jupiter", "meteora", "orca", "pump"} {
		if strings.Contains(tag, s) {
			return true
		}
	}
	return false
}
