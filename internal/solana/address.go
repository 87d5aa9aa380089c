package solana

import (
	"fmt"
	"regexp"
	"strings"
)

// LamportsPerSOL is the number of base units in one SOL.
const LamportsPerSOL = 1_000_000_000

// Rough shape check, not a checksum validation.
var base58Re = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)

// IsProbablyAddress reports whether s looks like a base58 Solana address.
func IsProbablyAddress(s string) bool {
	return base58Re.MatchString(strings.TrimSpace(s))
}

// TruncateAddress shortens an address for display: Hx7a…9fQk.
func TruncateAddress(a string) string {
	a = strings.TrimSpace(a)
	if len(a) <= 10 {
		return a
	}
	return fmt.Sprintf("%s…%s", a[:4], a[len(a)-4:])
}

// LamportsToSOL converts lamports to SOL for display only. The monitoring
// core never touches floating point.
func LamportsToSOL(lamports uint64) float64 {
	return float64(lamports) / LamportsPerSOL
}

// FormatSOL renders lamports as a SOL amount with trailing zeros trimmed.
func FormatSOL(lamports uint64) string {
	s := fmt.Sprintf("%.9f", LamportsToSOL(lamports))
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "" {
		return "0"
	}
	return s
}
