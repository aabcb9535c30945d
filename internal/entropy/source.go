// Package entropy provides seeded randomness sources. Deterministic when
// given a seed; otherwise seeded from crypto/rand so separate runs do not
// share shuffle order.
package entropy

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"time"
)

// NewSource returns a rand.Rand for the given seed. Seed 0 draws a seed
// from crypto/rand instead.
func NewSource(seed int64) *rand.Rand {
	if seed == 0 {
		seed = CryptoSeed()
	}
	return rand.New(rand.NewSource(seed))
}

// CryptoSeed returns a seed from crypto/rand, falling back to the wall
// clock if the system source is unavailable.
func CryptoSeed() int64 {
	var buf [8]byte
	if _, err := crand.Read(buf[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
}
