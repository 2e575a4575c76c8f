// Package reporting renders snapshots of the analytics view for offline use.
package reporting

import (
	"fmt"
	"strings"
	"time"

	"solana-curve-indexer/internal/domain"
)

// RenderCSV renders the analytics view as CSV, one asset per row.
func RenderCSV(items []domain.AssetAnalytics) string {
	var sb strings.Builder

	// Header
	sb.WriteString("id,created_at,name,ticker,contract_address,bond_status,bonding_curve_percentage,")
	sb.WriteString("market_cap,volume,holder_count,funds_percent_by_top_10,creator_percent,creator_address\n")

	for _, a := range items {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%s,%s,%d,%s,%.6f,%d,%.4f,%.4f,%s\n",
			a.ID,
			a.CreatedAt.UTC().Format(time.RFC3339),
			csvField(a.Name),
			csvField(a.Ticker),
			a.ContractAddress,
			a.Status,
			a.BondingCurvePercentage,
			marketCap(a.MarketCap),
			a.Volume,
			a.HolderCount,
			a.FundsPercentByTop10,
			a.CreatorPercent,
			a.CreatorAddress,
		))
	}

	return sb.String()
}

// csvField quotes s when it contains a delimiter, quote or newline.
func csvField(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func marketCap(mc *int64) string {
	if mc == nil {
		return ""
	}
	return fmt.Sprintf("%d", *mc)
}
