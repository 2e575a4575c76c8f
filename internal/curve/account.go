package curve

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"
)

// accountDiscriminator is the anchor discriminator of the BondingCurve account.
var accountDiscriminator = [8]byte{0x17, 0xb7, 0xf8, 0x37, 0x60, 0xd8, 0xac, 0x60}

const (
	accountMinLen     = 8 + 5*8 + 1 // discriminator, reserves and supply, complete flag
	accountCreatorLen = accountMinLen + 32
)

// Account is the decoded on-chain state of a bonding curve.
type Account struct {
	VirtualTokenReserves uint64
	VirtualSolReserves   uint64
	RealTokenReserves    uint64
	RealSolReserves      uint64
	TokenTotalSupply     uint64
	Complete             bool
	Creator              string // empty on accounts created before the creator field existed
}

// DecodeAccount parses base64 account data returned by getAccountInfo.
func DecodeAccount(data string) (*Account, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return ParseAccount(raw)
}

// ParseAccount parses raw bonding-curve account bytes.
func ParseAccount(raw []byte) (*Account, error) {
	if len(raw) < accountMinLen {
		return nil, fmt.Errorf("bonding curve account too short: %d bytes", len(raw))
	}
	if [8]byte(raw[:8]) != accountDiscriminator {
		return nil, fmt.Errorf("not a bonding curve account")
	}

	le := binary.LittleEndian
	acc := &Account{
		VirtualTokenReserves: le.Uint64(raw[8:16]),
		VirtualSolReserves:   le.Uint64(raw[16:24]),
		RealTokenReserves:    le.Uint64(raw[24:32]),
		RealSolReserves:      le.Uint64(raw[32:40]),
		TokenTotalSupply:     le.Uint64(raw[40:48]),
		Complete:             raw[48] != 0,
	}
	if len(raw) >= accountCreatorLen {
		acc.Creator = base58.Encode(raw[accountMinLen:accountCreatorLen])
	}
	return acc, nil
}

// Encode serializes the account in on-chain layout. Used by fixtures and tests.
func (a *Account) Encode() []byte {
	raw := make([]byte, accountCreatorLen)
	copy(raw, accountDiscriminator[:])
	le := binary.LittleEndian
	le.PutUint64(raw[8:], a.VirtualTokenReserves)
	le.PutUint64(raw[16:], a.VirtualSolReserves)
	le.PutUint64(raw[24:], a.RealTokenReserves)
	le.PutUint64(raw[32:], a.RealSolReserves)
	le.PutUint64(raw[40:], a.TokenTotalSupply)
	if a.Complete {
		raw[48] = 1
	}
	if a.Creator != "" {
		if b, err := base58.Decode(a.Creator); err == nil && len(b) == 32 {
			copy(raw[accountMinLen:], b)
		}
	}
	return raw
}
