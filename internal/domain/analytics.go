package domain

import "time"

// AssetAnalytics is one element of the GET /tokens read model.
type AssetAnalytics struct {
	ID                     string          `json:"id"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`
	Name                   string          `json:"name"`
	Ticker                 string          `json:"ticker"`
	ContractAddress        string          `json:"contract_address"`
	BondingCurvePercentage int             `json:"bonding_curve_percentage"`
	Status                 LifecycleStatus `json:"bond_status"`
	Volume                 float64         `json:"volume"` // SOL
	MarketCap              *int64          `json:"market_cap"`
	URI                    string          `json:"uri"`
	BondingCurveAddress    string          `json:"bonding_curve_address"`
	CreatorAddress         string          `json:"creator_address"`
	FundsPercentByTop10    float64         `json:"funds_percent_by_top_10"`
	HolderCount            int             `json:"holder_count"`
	CreatorPercent         float64         `json:"creator_percent"`
}

// Holding is the net token balance of one trader in one asset.
// Derived from the trade ledger, never stored.
type Holding struct {
	ContractAddress string
	Trader          string
	NetTokens       int64
}
