package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix allows a later change of algorithm.
const (
	DomainRequest = "fedunion/request/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte keeps the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// RequestHash returns the content hash of a query request.
func RequestHash(req any) (string, error) {
	data, err := Marshal(req)
	if err != nil {
		return "", fmt.Errorf("RequestHash: %w", err)
	}
	return hashWithDomain(DomainRequest, data), nil
}

// MustRequestHash is like RequestHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustRequestHash(req any) string {
	h, err := RequestHash(req)
	if err != nil {
		panic(err)
	}
	return h
}
