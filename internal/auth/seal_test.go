package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpen(t *testing.T) {
	key := &[32]byte{1, 2, 3}

	sealed, err := Seal(key, "bearer-abc")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "bearer-abc")

	plain, err := Open(key, sealed)
	require.NoError(t, err)
	assert.Equal(t, "bearer-abc", plain)
}

func TestOpenRejectsTamperedOrForeign(t *testing.T) {
	key := &[32]byte{1}
	other := &[32]byte{2}

	sealed, err := Seal(key, "bearer-abc")
	require.NoError(t, err)

	_, err = Open(other, sealed)
	assert.ErrorIs(t, err, ErrUnsealable)

	_, err = Open(key, "plain-legacy-token")
	assert.ErrorIs(t, err, ErrUnsealable)

	tampered := []byte(sealed)
	tampered[len(tampered)-2] ^= 'A' ^ 'B'
	_, err = Open(key, string(tampered))
	assert.ErrorIs(t, err, ErrUnsealable)
}
