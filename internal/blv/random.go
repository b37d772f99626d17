package blv

import (
	"crypto/rand"
	"encoding/binary"
)

const (
	minDecoy = 5
	maxDecoy = 20
)

// decoy returns minDecoy..maxDecoy random bytes.
func decoy() []byte {
	n := minDecoy + int(cryptoRandUint32()%uint32(maxDecoy-minDecoy+1))
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand unavailable: " + err.Error())
	}
	return b
}

// cryptoRandUint32 generates a cryptographically secure random uint32
func cryptoRandUint32() uint32 {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("crypto/rand unavailable: " + err.Error())
	}
	return binary.BigEndian.Uint32(b[:])
}
