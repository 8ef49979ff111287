package source

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest - фиксированный 256 битный хеш контента (SHA-256).
type Digest [32]byte

// DigestOf hashes raw bytes into a Digest.
func DigestOf(data []byte) Digest {
	return sha256.Sum256(data)
}

// DigestOfString hashes a string without copying it into a byte slice first.
func DigestOfString(s string) Digest {
	h := sha256.New()
	_, _ = h.Write([]byte(s))
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// Combine строит составной хеш: H( base || part1 || part2 ... ).
// Порядок parts должен быть детерминированным у вызывающего.
func Combine(base Digest, parts ...Digest) Digest {
	h := sha256.New()
	_, _ = h.Write(base[:])
	for _, p := range parts {
		_, _ = h.Write(p[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

func (d Digest) IsZero() bool {
	return d == Digest{}
}

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Short returns the first 8 hex characters, enough for trace output.
func (d Digest) Short() string {
	return hex.EncodeToString(d[:4])
}
