package taior

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taior/taior/config"
)

// S3 — cover traffic must be indistinguishable from real traffic by size
// after encryption (§4.6): a cover frame is wrapped through exactly the
// same wrapForCircuit pipeline as any real Send payload, so two inputs of
// equal length always produce equal-length wire output regardless of
// content.
func TestCoverFrameWireSizeMatchesRealPayloadOfEqualLength(t *testing.T) {
	cfg := testConfig()
	cores, _ := newMeshNetwork(t, 4, cfg)
	origin := cores[0]
	waitForCandidates(t, origin, 3, 2*time.Second)

	circuit, err := origin.awaitCircuit(config.ModeAdaptive)
	require.NoError(t, err)

	cover := buildCoverFrame()
	realPayload := make([]byte, len(cover))
	for i := range realPayload {
		realPayload[i] = 0x42
	}

	wrappedCover, err := origin.wrapForCircuit(cover, circuit)
	require.NoError(t, err)

	wrappedReal, err := origin.wrapForCircuit(realPayload, circuit)
	require.NoError(t, err)

	assert.Equal(t, len(wrappedReal), len(wrappedCover),
		"equal-length cover and real payloads must produce equal-length onion-wrapped frames")

	for _, c := range cores {
		c.Disconnect()
	}
}

func TestBuildCoverFrameSizeWithinSpecRange(t *testing.T) {
	seen := map[int]bool{}
	for i := 0; i < 200; i++ {
		frame := buildCoverFrame()
		size := len(frame) - 1 // exclude the leading magic byte
		require.GreaterOrEqual(t, size, 512)
		require.LessOrEqual(t, size, 2048)
		seen[size] = true
	}
	assert.Greater(t, len(seen), 1, "sizes should vary across draws, not be fixed")
}

func TestJitteredCoverIntervalStaysWithinPlusOrMinus25Percent(t *testing.T) {
	const rate = 2.0
	mean := time.Duration(float64(time.Second) / rate)
	lower := time.Duration(float64(mean) * 0.75)
	upper := time.Duration(float64(mean) * 1.25)

	for i := 0; i < 200; i++ {
		d := jitteredCoverInterval(rate)
		assert.GreaterOrEqual(t, d, lower)
		assert.LessOrEqual(t, d, upper)
	}
}

func TestSendCoverFrameNoopWithoutActiveCircuit(t *testing.T) {
	c := newBareCore(t)
	// No circuit has been built; sendCoverFrame must return quietly
	// rather than panic or emit anything.
	c.sendCoverFrame()
}
