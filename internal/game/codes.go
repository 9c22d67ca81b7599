package game

import (
	crand "crypto/rand"
	"math/big"
	"math/rand/v2"
)

// Room codes are read aloud and typed on phones, so the alphabet avoids
// visually ambiguous characters (no 0/O, 1/I/L, B/8 collisions beyond the
// digits kept below).
const (
	roomCodeAlphabet = "CDEHKMPRTUWXY012458"
	roomCodeLength   = 6
)

// generateRoomCode creates a random 6-character room code.
func generateRoomCode() string {
	code := make([]byte, roomCodeLength)
	for i := range code {
		n, err := crand.Int(crand.Reader, big.NewInt(int64(len(roomCodeAlphabet))))
		if err != nil {
			// fall back to math/rand if crypto fails
			code[i] = roomCodeAlphabet[rand.IntN(len(roomCodeAlphabet))]
			continue
		}
		code[i] = roomCodeAlphabet[n.Int64()]
	}
	return string(code)
}
