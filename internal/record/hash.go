package record

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainRecord separates record hashes from any other hash computed over
// canonical JSON.
const DomainRecord = "spotview/record/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Hash returns the content hash of r. Two records hash equal iff Equal
// reports true for them (up to NaN payloads, which cannot be hashed).
func (r Record) Hash() (string, error) {
	canonical, err := MarshalCanonical(r.Canonical())
	if err != nil {
		return "", fmt.Errorf("hash record %d: %w", r.ID, err)
	}
	return hashWithDomain(DomainRecord, canonical), nil
}

// MustHash is like Hash but panics on error.
// Use only in tests or when the record is known to be finite.
func (r Record) MustHash() string {
	h, err := r.Hash()
	if err != nil {
		panic(err)
	}
	return h
}
