package util

import (
	"strings"
)

// SplitList splits a comma separated list, trimming blanks and dropping empty items.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// TickerFromInstrument turns an exchange instrument id (BTC-USDT-SWAP) into
// the table ticker (BTCUSDTSWAP).
func TickerFromInstrument(instID string) string {
	return strings.ToUpper(strings.ReplaceAll(instID, "-", ""))
}
