package domain

// CurveState is the live bonding-curve figures of one asset.
// It only ever lives in memory; the state flusher writes it back to the asset table.
type CurveState struct {
	ContractAddress        string
	BondingCurveAddress    string
	BondingCurvePercentage int
	MarketCap              *int64 // USD, nil until first computed
	Graduated              bool   // set by a Complete event
}

// Clone returns a deep copy.
func (s CurveState) Clone() CurveState {
	if s.MarketCap != nil {
		v := *s.MarketCap
		s.MarketCap = &v
	}
	return s
}
