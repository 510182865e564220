package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentHashDeterminism(t *testing.T) {
	payload := map[string]any{
		"rows":  []any{map[string]any{"region": "north", "value": 3.0}},
		"total": 1.0,
	}

	h1, err := ContentHash(payload)
	require.NoError(t, err)
	h2, err := ContentHash(payload)
	require.NoError(t, err)

	assert.Equal(t, h1, h2, "ContentHash must be deterministic")
	assert.Len(t, h1, 64, "SHA-256 hex is 64 characters")
}

func TestContentHashIgnoresMapOrder(t *testing.T) {
	a := map[string]any{"a": 1.0, "b": 2.0, "c": 3.0}
	b := map[string]any{"c": 3.0, "b": 2.0, "a": 1.0}

	assert.Equal(t, MustContentHash(a), MustContentHash(b))
}

func TestContentHashChangesWithValue(t *testing.T) {
	a := MustContentHash(map[string]any{"x": 1.0})
	b := MustContentHash(map[string]any{"x": 2.0})

	assert.NotEqual(t, a, b)
}

func TestRequestHashChangesWithInput(t *testing.T) {
	config := map[string]any{"method": "GET"}

	base, err := RequestHash("https://example.test/data", "0", config)
	require.NoError(t, err)

	otherURL, err := RequestHash("https://example.test/other", "0", config)
	require.NoError(t, err)

	otherAttempt, err := RequestHash("https://example.test/data", "1", config)
	require.NoError(t, err)

	otherConfig, err := RequestHash("https://example.test/data", "0", map[string]any{"method": "POST"})
	require.NoError(t, err)

	assert.NotEqual(t, base, otherURL, "different URLs should produce different keys")
	assert.NotEqual(t, base, otherAttempt, "different attempts should produce different keys")
	assert.NotEqual(t, base, otherConfig, "different configs should produce different keys")
}

func TestDomainSeparation(t *testing.T) {
	// The same canonical bytes under two domains must not collide.
	data := []byte(`{"x":1}`)

	assert.NotEqual(t, hashWithDomain(DomainPayload, data), hashWithDomain(DomainRequest, data))
}

func TestContentHashRejectsUnsupported(t *testing.T) {
	_, err := ContentHash(map[string]any{"x": func() {}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ContentHash")
}

func TestMustContentHashPanics(t *testing.T) {
	assert.Panics(t, func() {
		MustContentHash(make(chan int))
	})
}
