package domain

import "github.com/ethereum/go-ethereum/common"

// base58Alphabet is the Bitcoin/Solana base58 alphabet (no 0, O, I, l).
const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// ValidateSolanaAddress reports whether s looks like a Solana base58 pubkey:
// 32-44 characters, all drawn from the base58 alphabet. This is a shape
// check, not a curve-membership check — the provider clients treat it as a
// cheap filter before making a network call.
func ValidateSolanaAddress(s string) bool {
	if len(s) < 32 || len(s) > 44 {
		return false
	}
	for _, r := range s {
		if !containsRune(base58Alphabet, r) {
			return false
		}
	}
	return true
}

func containsRune(s string, r rune) bool {
	for _, c := range s {
		if c == r {
			return true
		}
	}
	return false
}

// ValidateEVMAddress reports whether s is a well-formed 0x-prefixed 20-byte
// hex address, used to validate wallets before correlating them against
// Polymarket (a Polygon/EVM venue).
func ValidateEVMAddress(s string) bool {
	return common.IsHexAddress(s)
}
