package aorp

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildParseRoundTrip(t *testing.T) {
	dest := bytes.Repeat([]byte{0x42}, DestinationIDSize)
	payload := []byte("hello room")

	frame, err := Build(payload, dest, true)
	require.NoError(t, err)

	parsed, err := Parse(frame)
	require.NoError(t, err)
	assert.Equal(t, payload, parsed.Payload)
	assert.True(t, parsed.HasNext)
	assert.Equal(t, dest, parsed.Destination[:])
}

func TestBuildPadsToBoundary(t *testing.T) {
	frame, err := Build([]byte("x"), nil, false)
	require.NoError(t, err)
	assert.Zero(t, len(frame)%PaddingBoundary)
	assert.GreaterOrEqual(t, len(frame), PaddingBoundary)
}

func TestBuildPadsLargePayloadToNextBoundary(t *testing.T) {
	payload := bytes.Repeat([]byte{0x01}, 600)
	frame, err := Build(payload, nil, false)
	require.NoError(t, err)
	assert.Zero(t, len(frame)%PaddingBoundary)
	assert.Equal(t, PaddingBoundary*2, len(frame))
}

func TestBuildRejectsOversizedPayload(t *testing.T) {
	_, err := Build(make([]byte, MaxPayloadSize+1), nil, false)
	assert.Error(t, err)
}

func TestBuildRejectsOversizedDestination(t *testing.T) {
	_, err := Build([]byte("x"), make([]byte, DestinationIDSize+1), false)
	assert.Error(t, err)
}

func TestParseRejectsBadMagic(t *testing.T) {
	frame, err := Build([]byte("x"), nil, false)
	require.NoError(t, err)
	frame[0] = 0x00

	_, err = Parse(frame)
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestParseRejectsTruncatedHeader(t *testing.T) {
	_, err := Parse([]byte{byte(MagicAORP), 0x00})
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestParseRejectsInconsistentLength(t *testing.T) {
	frame, err := Build([]byte("x"), nil, false)
	require.NoError(t, err)
	// Claim a payload far larger than the frame actually carries.
	frame[2+DestinationIDSize] = 0xFF
	frame[2+DestinationIDSize+1] = 0xFF

	_, err = Parse(frame)
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestWrapStripNextHopRoundTrip(t *testing.T) {
	nextID := []byte("peer-123")
	inner := []byte("inner body bytes")

	wrapped := WrapNextHop(nextID, inner)
	assert.Len(t, wrapped, NextHopFieldSize+len(inner))

	gotID, gotInner, err := StripNextHop(wrapped)
	require.NoError(t, err)
	assert.Equal(t, nextID, gotID)
	assert.Equal(t, inner, gotInner)
}

func TestStripNextHopTrimsTrailingNUL(t *testing.T) {
	nextID := []byte{0x01, 0x02, 0x03}
	wrapped := WrapNextHop(nextID, []byte("body"))

	gotID, _, err := StripNextHop(wrapped)
	require.NoError(t, err)
	assert.Equal(t, nextID, gotID)
}

func TestStripNextHopRejectsTooShort(t *testing.T) {
	_, _, err := StripNextHop(make([]byte, NextHopFieldSize-1))
	assert.ErrorIs(t, err, ErrMalformedFrame)
}
