package object

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// frame builds the canonical "<type> <len>\0<payload>" envelope the VCS
// hashes to produce an object name. Any deviation from this exact byte
// sequence changes object names and corrupts repository identity.
func frame(t Type, payload []byte) []byte {
	header := fmt.Sprintf("%s %d\x00", t, len(payload))
	out := make([]byte, 0, len(header)+len(payload))
	out = append(out, header...)
	out = append(out, payload...)
	return out
}

// HashObject computes the 40-hex object name of (t, payload), hashing the
// uncompressed canonical framing exactly as the VCS defines it.
func HashObject(t Type, payload []byte) Hash {
	sum := sha1.Sum(frame(t, payload))
	return Hash(hex.EncodeToString(sum[:]))
}

// ValidHash reports whether h looks like a well-formed 40-hex object name.
func ValidHash(h Hash) bool {
	if len(h) != 40 {
		return false
	}
	_, err := hex.DecodeString(string(h))
	return err == nil
}
