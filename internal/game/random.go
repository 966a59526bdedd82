package game

import (
	crand "crypto/rand"
	"encoding/binary"
	mathrand "math/rand"
	"time"
)

// newRand returns a PRNG seeded from crypto/rand. Service serializes access
// to it.
func newRand() *mathrand.Rand {
	var b [8]byte
	seed := time.Now().UnixNano()
	if _, err := crand.Read(b[:]); err == nil {
		seed = int64(binary.LittleEndian.Uint64(b[:]))
	}
	return mathrand.New(mathrand.NewSource(seed))
}
