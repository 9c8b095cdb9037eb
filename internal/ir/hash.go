package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainRuleSet = "reach/ruleset/v1"
	DomainResult  = "reach/result/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// RuleSetHash identifies a normalized rule-set by content. Two rule-sets
// that decode to the same tree hash identically regardless of key order
// or whitespace in their source.
func RuleSetHash(rs *RuleSet) (string, error) {
	canonical, err := MarshalCanonical(rs.ToValue())
	if err != nil {
		return "", fmt.Errorf("RuleSetHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRuleSet, canonical), nil
}

// ResultHash identifies a reachable-region set. Order of regions does not
// matter; callers pass them sorted.
func ResultHash(regions []string) (string, error) {
	canonical, err := MarshalCanonical(stringList(regions))
	if err != nil {
		return "", fmt.Errorf("ResultHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainResult, canonical), nil
}

// MustRuleSetHash is like RuleSetHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustRuleSetHash(rs *RuleSet) string {
	h, err := RuleSetHash(rs)
	if err != nil {
		panic(err)
	}
	return h
}
