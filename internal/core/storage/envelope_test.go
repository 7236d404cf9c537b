package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpen(t *testing.T) {
	payload := []byte("scene payload")
	sealed := Seal(payload)

	h, err := Inspect(sealed)
	require.NoError(t, err)
	assert.Equal(t, byte(EnvelopeVersion), h.Version)
	assert.Equal(t, len(payload), h.Size)

	got, err := Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestOpenEmptyPayload(t *testing.T) {
	got, err := Open(Seal(nil))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOpenRejectsCorruption(t *testing.T) {
	sealed := Seal([]byte("scene payload"))

	flipped := append([]byte(nil), sealed...)
	flipped[len(flipped)-1] ^= 0xFF
	_, err := Open(flipped)
	assert.ErrorIs(t, err, ErrChecksumMismatch)

	_, err = Open([]byte("PNG\x00 not a scene at all"))
	assert.ErrorIs(t, err, ErrBadMagic)

	_, err = Open(sealed[:6])
	assert.ErrorIs(t, err, ErrTruncated)

	future := append([]byte(nil), sealed...)
	future[4] = EnvelopeVersion + 1
	_, err = Open(future)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}
