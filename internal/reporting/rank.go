package reporting

import (
	"sort"

	"solana-curve-indexer/internal/domain"
)

// RankByMarketCap returns a copy of items ordered by market cap descending.
// Assets without a market cap sort last; ties keep contract address order.
func RankByMarketCap(items []domain.AssetAnalytics) []domain.AssetAnalytics {
	out := make([]domain.AssetAnalytics, len(items))
	copy(out, items)

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].MarketCap, out[j].MarketCap
		switch {
		case a == nil && b == nil:
			return out[i].ContractAddress < out[j].ContractAddress
		case a == nil:
			return false
		case b == nil:
			return true
		case *a != *b:
			return *a > *b
		}
		return out[i].ContractAddress < out[j].ContractAddress
	})
	return out
}
