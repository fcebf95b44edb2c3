package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainOutput = "jamc/output/v1"
	DomainJCond  = "jamc/jcond/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// OutputHash computes the content address of a pass output. Two passes over
// the same tree with the same collaborators produce the same hash.
func OutputHash(out *Output) (string, error) {
	return hashValue(DomainOutput, out)
}

// JCondHash computes the content address of a condition descriptor. The
// history store keeps one per condition so two runs can be compared
// condition by condition.
func JCondHash(c JCond) (string, error) {
	return hashValue(DomainJCond, c)
}

func hashValue(domain string, v any) (string, error) {
	plain, err := ToCanonicalValue(v)
	if err != nil {
		return "", fmt.Errorf("%s: %w", domain, err)
	}
	canonical, err := MarshalCanonical(plain)
	if err != nil {
		return "", fmt.Errorf("%s: failed to marshal: %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}

// MustOutputHash is like OutputHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustOutputHash(out *Output) string {
	h, err := OutputHash(out)
	if err != nil {
		panic(err)
	}
	return h
}

// MustJCondHash is like JCondHash but panics on error.
func MustJCondHash(c JCond) string {
	h, err := JCondHash(c)
	if err != nil {
		panic(err)
	}
	return h
}
