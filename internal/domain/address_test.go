package domain

import "testing"

func TestValidateSolanaAddress(t *testing.T) {
	cases := []struct {
		name string
		addr string
		want bool
	}{
		{"valid base58 pubkey", "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263", true},
		{"too short", "abc", false},
		{"too long", "1111111111111111111111111111111111111111111111111", false},
		{"contains zero, not in alphabet", "0ezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263", false},
		{"empty", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ValidateSolanaAddress(tc.addr); got != tc.want {
				t.Errorf("ValidateSolanaAddress(%q) = %v, want %v", tc.addr, got, tc.want)
			}
		})
	}
}

func TestValidateEVMAddress(t *testing.T) {
	cases := []struct {
		name string
		addr string
		want bool
	}{
		{"valid", "0x71C7656EC7ab88b098defB751B7401B5f6d8976F", true},
		{"missing prefix", "71C7656EC7ab88b098defB751B7401B5f6d8976F", false},
		{"too short", "0x1234", false},
		{"empty", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ValidateEVMAddress(tc.addr); got != tc.want {
				t.Errorf("ValidateEVMAddress(%q) = %v, want %v", tc.addr, got, tc.want)
			}
		})
	}
}
