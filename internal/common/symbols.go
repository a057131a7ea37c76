package common

import (
	"sort"
	"strings"
)

// NormalizeSymbol uppercases and trims a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// NormalizeSymbols normalizes a symbol list, dropping empties and duplicates
// while preserving the first-seen order.
func NormalizeSymbols(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	result := make([]string, 0, len(symbols))
	for _, s := range symbols {
		normalized := NormalizeSymbol(s)
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		result = append(result, normalized)
	}
	return result
}

// SymbolSetKey builds a cache key for a symbol set. The key is order
// independent: the same set of symbols always yields the same key.
func SymbolSetKey(symbols []string) string {
	normalized := NormalizeSymbols(symbols)
	sorted := make([]string, len(normalized))
	copy(sorted, normalized)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
