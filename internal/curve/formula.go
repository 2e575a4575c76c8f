package curve

import (
	"math"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Progress returns the bonding-curve completion percentage for the current real
// token reserves (raw units), floored and clamped to [0,100].
func (p Params) Progress(realTokenReserves uint64) int {
	if p.InitialRealTokenReserves <= 0 {
		return 0
	}
	whole := decimal.NewFromUint64(realTokenReserves).Shift(-p.TokenDecimals).Floor()
	left := whole.Sub(decimal.NewFromInt(p.ReservedTokens))

	pct := hundred.Sub(left.Mul(hundred).Div(decimal.NewFromInt(p.InitialRealTokenReserves))).Floor()
	switch {
	case pct.LessThan(decimal.Zero):
		return 0
	case pct.GreaterThan(hundred):
		return 100
	}
	return int(pct.IntPart())
}

// MarketCap returns the USD market cap (token price × total supply), truncated to whole
// dollars. Zero when the token reserve is empty; saturates at MaxInt64.
func (p Params) MarketCap(virtualSolReserves, virtualTokenReserves uint64, solUSD decimal.Decimal) int64 {
	if virtualTokenReserves == 0 || solUSD.Sign() <= 0 {
		return 0
	}
	// Multiply before dividing so the only truncation is the final integer quotient.
	num := decimal.NewFromUint64(virtualSolReserves).
		Shift(p.TokenDecimals).
		Mul(solUSD).
		Mul(decimal.NewFromInt(p.TotalSupply))
	den := decimal.NewFromUint64(virtualTokenReserves).Mul(decimal.NewFromInt(p.LamportsPerSOL))

	mc, _ := num.QuoRem(den, 0)
	if mc.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return math.MaxInt64
	}
	return mc.IntPart()
}
