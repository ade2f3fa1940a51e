package bench

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seqbench/internal/transport"
)

func TestParseHeader(t *testing.T) {
	f, ok, err := ParseHeader("X-Test: 123")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "X-Test", f.Name)
	assert.Equal(t, "123", f.Value)

	f, ok, err = ParseHeader("Authorization: Bearer a:b:c")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Authorization", f.Name)
	assert.Equal(t, "Bearer a:b:c", f.Value)
}

func TestParseHeaderWithoutSeparatorIsDropped(t *testing.T) {
	_, ok, err := ParseHeader("NoColonHere")
	assert.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, []string{"NoColonHere"}, DroppedHeaders([]string{"A: 1", "NoColonHere"}))
}

func TestParseHeaderInvalid(t *testing.T) {
	for _, raw := range []string{"Bad Name: x", ": empty-name", "X-Ok: bad\x00value"} {
		_, ok, err := ParseHeader(raw)
		assert.True(t, ok, raw)
		var hErr *HeaderError
		assert.True(t, errors.As(err, &hErr), "%q: expected HeaderError, got %v", raw, err)
	}
}

func fieldMap(h *transport.RequestHeader) map[string]string {
	m := make(map[string]string, len(h.Fields))
	for _, f := range h.Fields {
		m[f.Name] = f.Value
	}
	return m
}

func TestBuildHeaderOrderAndDefaults(t *testing.T) {
	spec := testSpec()
	spec.Headers = []string{"X-First: 1", "NoColonHere", "X-Second: 2"}

	hdr, err := BuildHeader(spec)
	require.NoError(t, err)

	names := make([]string, 0, len(hdr.Fields))
	for _, f := range hdr.Fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"Host", "User-Agent", "X-First", "X-Second"}, names)
	assert.Equal(t, ClientID, fieldMap(hdr)["User-Agent"])
}

func TestBuildHeaderWithBody(t *testing.T) {
	spec := testSpec()
	spec.Method = "POST"
	spec.Body = []byte(`{"a":1}`)
	spec.HasBody = true
	spec.Headers = []string{"Content-Type: text/plain"}

	hdr, err := BuildHeader(spec)
	require.NoError(t, err)
	m := fieldMap(hdr)
	assert.Equal(t, "7", m["Content-Length"])
	assert.Equal(t, DefaultContentType, m["Content-Type"])

	spec.ContentType = "application/x-www-form-urlencoded"
	hdr, err = BuildHeader(spec)
	require.NoError(t, err)
	assert.Equal(t, "application/x-www-form-urlencoded", fieldMap(hdr)["Content-Type"])
}

func TestBuildHeaderEmptyBodyStillSetsLength(t *testing.T) {
	spec := testSpec()
	spec.HasBody = true

	hdr, err := BuildHeader(spec)
	require.NoError(t, err)
	assert.Equal(t, "0", fieldMap(hdr)["Content-Length"])
}

func TestBuildHeaderUserHostOverrides(t *testing.T) {
	spec := testSpec()
	spec.Headers = []string{"host: other.test"}

	hdr, err := BuildHeader(spec)
	require.NoError(t, err)
	assert.Equal(t, "other.test", fieldMap(hdr)["Host"])
}

func TestBuildHeaderInvalid(t *testing.T) {
	spec := testSpec()
	spec.Headers = []string{"Bad Name: x"}
	_, err := BuildHeader(spec)
	var hErr *HeaderError
	assert.True(t, errors.As(err, &hErr))
}
