// Package curve holds the pump.fun bonding-curve constants and the pure
// functions deriving progress and market cap from reserve figures.
package curve

// PumpFunProgramID is the pump.fun bonding-curve program.
const PumpFunProgramID = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"

// BondingCurveSeed is the PDA seed prefix of bonding-curve accounts.
const BondingCurveSeed = "bonding-curve"

// Params are the global curve constants. They are fixed for every asset;
// total supply in particular is not read per token.
type Params struct {
	InitialRealTokenReserves int64 // whole tokens sold along the curve
	ReservedTokens           int64 // whole tokens subtracted from real reserves before scaling
	TokenDecimals            int32
	TotalSupply              int64 // whole tokens
	LamportsPerSOL           int64
}

// DefaultParams returns the pump.fun launch constants.
func DefaultParams() Params {
	return Params{
		InitialRealTokenReserves: 793_100_000,
		ReservedTokens:           206_900_000,
		TokenDecimals:            6,
		TotalSupply:              1_000_000_000,
		LamportsPerSOL:           1_000_000_000,
	}
}
