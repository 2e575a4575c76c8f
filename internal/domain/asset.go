package domain

import (
	"time"

	"github.com/google/uuid"
)

// LifecycleStatus is the bond status of an asset.
type LifecycleStatus string

// Lifecycle statuses, stored as snake_case text in the asset table.
const (
	StatusNewlyLaunched LifecycleStatus = "newly_launched"
	StatusGraduating    LifecycleStatus = "graduating"
	StatusGraduated     LifecycleStatus = "graduated"
)

// Market cap thresholds (USD) for the derived lifecycle status.
const (
	GraduatingMarketCap int64 = 25_000
	GraduatedMarketCap  int64 = 62_500
)

// Valid reports whether s is a known status.
func (s LifecycleStatus) Valid() bool {
	switch s {
	case StatusNewlyLaunched, StatusGraduating, StatusGraduated:
		return true
	}
	return false
}

// StatusForMarketCap derives a status from market cap alone.
// [25,000, 62,500] is Graduating, anything above is Graduated.
func StatusForMarketCap(marketCap int64) LifecycleStatus {
	switch {
	case marketCap < GraduatingMarketCap:
		return StatusNewlyLaunched
	case marketCap <= GraduatedMarketCap:
		return StatusGraduating
	default:
		return StatusGraduated
	}
}

// ResolveStatus returns the status to report for an asset.
// A persisted Graduated status is terminal and never derived away.
func ResolveStatus(persisted LifecycleStatus, marketCap *int64) LifecycleStatus {
	if persisted == StatusGraduated {
		return StatusGraduated
	}
	var mc int64
	if marketCap != nil {
		mc = *marketCap
	}
	return StatusForMarketCap(mc)
}

// Asset is a token tracked from its Create event.
// Corresponds to the asset table.
type Asset struct {
	ID                     uuid.UUID       // PK, generated on create
	CreatedAt              time.Time       // creation timestamp
	UpdatedAt              time.Time       // last curve/status write
	Name                   string          // display name
	Ticker                 string          // symbol
	ContractAddress        string          // mint address (unique)
	BondingCurvePercentage int             // 0..100
	Status                 LifecycleStatus // persisted bond status
	MarketCap              *int64          // USD, nullable
	URI                    string          // metadata uri (immutable)
	BondingCurveAddress    string          // bonding curve account
	CreatorAddress         string          // creator wallet
}

// NewAsset builds the initial asset row for a Create event.
// The asset starts NewlyLaunched at 0% with a zero market cap.
func NewAsset(e *CreateEvent, bondingCurve string, now time.Time) *Asset {
	zero := int64(0)
	created := unixOr(e.Timestamp, now)
	return &Asset{
		ID:                     uuid.New(),
		CreatedAt:              created,
		UpdatedAt:              now.UTC(),
		Name:                   e.Name,
		Ticker:                 e.Symbol,
		ContractAddress:        e.Mint,
		BondingCurvePercentage: 0,
		Status:                 StatusNewlyLaunched,
		MarketCap:              &zero,
		URI:                    e.URI,
		BondingCurveAddress:    bondingCurve,
		CreatorAddress:         e.CreatorAddress(),
	}
}

// CurveState returns the in-memory bonding state for the asset.
func (a *Asset) CurveState() CurveState {
	var mc *int64
	if a.MarketCap != nil {
		v := *a.MarketCap
		mc = &v
	}
	return CurveState{
		ContractAddress:        a.ContractAddress,
		BondingCurveAddress:    a.BondingCurveAddress,
		BondingCurvePercentage: a.BondingCurvePercentage,
		MarketCap:              mc,
		Graduated:              a.Status == StatusGraduated,
	}
}
