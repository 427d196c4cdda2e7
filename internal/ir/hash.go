package ir

import (
	"crypto/sha256"
	"encoding/hex"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainPattern = "kbgraph/pattern/v1"
	DomainBinding = "kbgraph/binding/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint computes a stable identity for a pattern.
// Two patterns with the same triples in the same order share a fingerprint;
// the engine keys its plan cache on it.
func Fingerprint(p Pattern) string {
	return hashWithDomain(DomainPattern, []byte(p.String()))
}

// BindingHash computes a stable identity for a binding, independent of the
// order in which its variables were bound.
func BindingHash(b Binding) string {
	return hashWithDomain(DomainBinding, []byte(b.Key()))
}
