package curve

import (
	"fmt"

	"github.com/mr-tron/base58"

	"solana-curve-indexer/internal/solana"
)

// DeriveBondingCurveAddress returns the bonding-curve PDA for a pump.fun mint.
func DeriveBondingCurveAddress(mint string) (string, error) {
	raw, err := base58.Decode(mint)
	if err != nil || len(raw) != 32 {
		return "", fmt.Errorf("invalid mint %q", mint)
	}
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte(BondingCurveSeed), raw}, PumpFunProgramID)
	if err != nil {
		return "", fmt.Errorf("derive bonding curve for %s: %w", mint, err)
	}
	return addr, nil
}
