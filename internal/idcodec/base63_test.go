package idcodec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 62, 63, 1000, 1 << 40, ^uint64(0)}
	for _, v := range values {
		enc := Encode(v)
		dec, err := Decode(enc)
		require.NoError(t, err)
		assert.Equal(t, v, dec)
	}
}

func TestEncodeZeroIsNotEmpty(t *testing.T) {
	assert.NotEmpty(t, Encode(0))
}

func TestDecodeInvalid(t *testing.T) {
	_, err := Decode("")
	assert.ErrorIs(t, err, ErrEmptyString)

	_, err = Decode("not valid!")
	assert.ErrorIs(t, err, ErrInvalidChar)
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid(Encode(12345)))
	assert.False(t, IsValid(""))
	assert.False(t, IsValid("has space"))
}

func TestSymbolAndFileIDRoundTrip(t *testing.T) {
	id := int64(98765)
	assert.Equal(t, id, mustDecodeSymbolID(t, EncodeSymbolID(id)))
	assert.Equal(t, id, mustDecodeFileID(t, EncodeFileID(id)))
}

func mustDecodeSymbolID(t *testing.T, s string) int64 {
	t.Helper()
	v, err := DecodeSymbolID(s)
	require.NoError(t, err)
	return v
}

func mustDecodeFileID(t *testing.T, s string) int64 {
	t.Helper()
	v, err := DecodeFileID(s)
	require.NoError(t, err)
	return v
}
