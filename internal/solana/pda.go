package solana

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// ErrNoViableBump is returned when every bump seed lands on the ed25519 curve.
var ErrNoViableBump = errors.New("no viable bump seed")

const pdaMarker = "ProgramDerivedAddress"

// FindProgramAddress derives a Program Derived Address for seeds under programID.
// Bumps are tried from 255 down; the first hash that is off the ed25519 curve wins.
func FindProgramAddress(seeds [][]byte, programID string) (string, uint8, error) {
	program, err := base58.Decode(programID)
	if err != nil || len(program) != 32 {
		return "", 0, fmt.Errorf("invalid program id %q", programID)
	}

	for bump := 255; bump >= 0; bump-- {
		data := make([]byte, 0, 64+len(pdaMarker))
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, byte(bump))
		data = append(data, program...)
		data = append(data, pdaMarker...)

		hash := sha256.Sum256(data)
		if !isOnCurve(hash[:]) {
			return base58.Encode(hash[:]), uint8(bump), nil
		}
	}
	return "", 0, ErrNoViableBump
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
