package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGeneratesUsableKeypair(t *testing.T) {
	id, err := New()
	require.NoError(t, err)
	assert.Len(t, id.PublicKey(), 32)
	assert.Len(t, id.PrivateKey(), 32)
}

func TestAddressIsStableForSameIdentity(t *testing.T) {
	id, err := New()
	require.NoError(t, err)

	a1 := id.Address()
	a2 := id.Address()
	assert.Equal(t, a1, a2)
}

func TestAddressHasExpectedForm(t *testing.T) {
	id, err := New()
	require.NoError(t, err)

	addr := id.Address()
	assert.True(t, len(addr) > len("taior://"))
	assert.Equal(t, "taior://", addr[:len("taior://")])

	hexPart := addr[len("taior://"):]
	assert.Len(t, hexPart, addressHexChars)
}

func TestDistinctIdentitiesProduceDistinctAddresses(t *testing.T) {
	a, err := New()
	require.NoError(t, err)
	b, err := New()
	require.NoError(t, err)

	assert.NotEqual(t, a.Address(), b.Address())
}

func TestZeroScrubsPrivateKey(t *testing.T) {
	id, err := New()
	require.NoError(t, err)

	id.Zero()
	priv := id.PrivateKey()
	for _, b := range priv {
		assert.Equal(t, byte(0), b)
	}
}
