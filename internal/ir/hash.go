package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed memo keys.
// Version suffix enables future algorithm migration.
const (
	DomainPayload = "vizq/payload/v1"
	DomainRequest = "vizq/request/v1"
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

// ContentHash computes the memo key of an arbitrary decoded JSON payload.
// Structurally equal payloads hash equally regardless of map ordering.
func ContentHash(v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("ContentHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainPayload, canonical), nil
}

// RequestHash computes the memo key of a remote request. The attempt string
// lets callers force a new key for polls of the same URL.
func RequestHash(url, attempt string, config any) (string, error) {
	canonical, err := MarshalCanonical(map[string]any{
		"url":     url,
		"attempt": attempt,
		"config":  config,
	})
	if err != nil {
		return "", fmt.Errorf("RequestHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRequest, canonical), nil
}

// MustContentHash is like ContentHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustContentHash(v any) string {
	h, err := ContentHash(v)
	if err != nil {
		panic(err)
	}
	return h
}
