package reporting

import (
	"fmt"
	"strings"
	"time"

	"solana-curve-indexer/internal/domain"
)

// Summary counts assets per lifecycle status.
type Summary struct {
	Total     int
	ByStatus  map[domain.LifecycleStatus]int
	VolumeSOL float64
}

// Summarize folds the analytics view into per-status counts.
func Summarize(items []domain.AssetAnalytics) Summary {
	s := Summary{Total: len(items), ByStatus: make(map[domain.LifecycleStatus]int)}
	for _, a := range items {
		s.ByStatus[a.Status]++
		s.VolumeSOL += a.Volume
	}
	return s
}

// RenderMarkdown renders a snapshot report: a status summary and the top assets by
// market cap. limit <= 0 lists every asset.
func RenderMarkdown(items []domain.AssetAnalytics, generatedAt time.Time, limit int) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Bonding Curve Snapshot\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", generatedAt.UTC().Format(time.RFC3339)))

	// Summary
	sum := Summarize(items)
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Assets | %d |\n", sum.Total))
	for _, st := range []domain.LifecycleStatus{domain.StatusNewlyLaunched, domain.StatusGraduating, domain.StatusGraduated} {
		sb.WriteString(fmt.Sprintf("| %s | %d |\n", st, sum.ByStatus[st]))
	}
	sb.WriteString(fmt.Sprintf("| Volume (SOL) | %.4f |\n", sum.VolumeSOL))
	sb.WriteString("\n")

	ranked := RankByMarketCap(items)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	sb.WriteString("## Assets by Market Cap\n\n")
	if len(ranked) == 0 {
		sb.WriteString("No assets.\n")
		return sb.String()
	}
	sb.WriteString("| Ticker | Mint | Status | Curve % | Market Cap | Holders | Top 10 % | Creator % |\n")
	sb.WriteString("|--------|------|--------|---------|------------|---------|----------|-----------|\n")
	for _, a := range ranked {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %d | %s | %d | %.2f | %.2f |\n",
			escapePipe(a.Ticker), a.ContractAddress, a.Status, a.BondingCurvePercentage,
			marketCap(a.MarketCap), a.HolderCount, a.FundsPercentByTop10, a.CreatorPercent))
	}
	return sb.String()
}

func escapePipe(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
