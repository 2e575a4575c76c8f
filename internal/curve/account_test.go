package curve

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAccount(t *testing.T) {
	want := &Account{
		VirtualTokenReserves: 1_073_000_000_000_000,
		VirtualSolReserves:   30_000_000_000,
		RealTokenReserves:    793_100_000_000_000,
		RealSolReserves:      0,
		TokenTotalSupply:     1_000_000_000_000_000,
		Complete:             true,
		Creator:              "So11111111111111111111111111111111111111112",
	}

	got, err := DecodeAccount(base64.StdEncoding.EncodeToString(want.Encode()))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestParseAccount_WithoutCreator(t *testing.T) {
	acc := &Account{VirtualSolReserves: 5, RealTokenReserves: 7}
	raw := acc.Encode()[:accountMinLen]

	got, err := ParseAccount(raw)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), got.VirtualSolReserves)
	assert.Equal(t, uint64(7), got.RealTokenReserves)
	assert.False(t, got.Complete)
	assert.Empty(t, got.Creator)
}

func TestParseAccount_Invalid(t *testing.T) {
	_, err := ParseAccount(make([]byte, 10))
	assert.Error(t, err)

	raw := (&Account{}).Encode()
	raw[0] ^= 0xff
	_, err = ParseAccount(raw)
	assert.Error(t, err)

	_, err = DecodeAccount("!!not-base64!!")
	assert.Error(t, err)
}

func TestDeriveBondingCurveAddress(t *testing.T) {
	mint := "So11111111111111111111111111111111111111112"
	a, err := DeriveBondingCurveAddress(mint)
	require.NoError(t, err)
	assert.NotEmpty(t, a)
	assert.NotEqual(t, mint, a)

	b, err := DeriveBondingCurveAddress(mint)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, err = DeriveBondingCurveAddress("short")
	assert.Error(t, err)
}
