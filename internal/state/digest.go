package state

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainState is the domain prefix for document digests. The version suffix
// enables future algorithm migration without ambiguity.
const DomainState = "focal/state/v1"

// Digest computes the content digest of the document:
// SHA256(domain + 0x00 + canonical JSON), hex encoded. The null separator
// prevents domain/data boundary ambiguity.
//
// Channels compare digests to drop echoes of their own writes, and the
// syncer treats an incoming snapshot with the local digest as a no-op.
func Digest(s *State) (string, error) {
	canonical, err := MarshalCanonical(s)
	if err != nil {
		return "", fmt.Errorf("Digest: %w", err)
	}
	return DigestBytes(canonical), nil
}

// DigestBytes computes the digest over already-canonical bytes, for callers
// that hold the canonical form anyway and should not marshal twice.
func DigestBytes(canonical []byte) string {
	h := sha256.New()
	h.Write([]byte(DomainState))
	h.Write([]byte{0x00})
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil))
}

// MustDigest is like Digest but panics on error.
// Use only in tests or when the document is known to be marshalable.
func MustDigest(s *State) string {
	d, err := Digest(s)
	if err != nil {
		panic(err)
	}
	return d
}
