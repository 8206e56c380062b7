package taior

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taior/taior/aorp"
	"github.com/taior/taior/config"
	"github.com/taior/taior/crypto"
	"github.com/taior/taior/log"
)

// noopSubstrate is a Substrate that never delivers anything on its own;
// tests drive Core's unexported handlers directly and only need SendFrame
// calls to go somewhere harmless.
type noopSubstrate struct{}

func (noopSubstrate) SendFrame(string, []byte) error { return nil }
func (noopSubstrate) OnFrame(func(string, []byte))   {}
func (noopSubstrate) OnPeerUp(func(string, string))  {}
func (noopSubstrate) OnPeerDown(func(string))        {}

func newBareCore(t *testing.T) *Core {
	t.Helper()
	cfg := testConfig()
	c, err := New(cfg, noopSubstrate{}, log.Discard())
	require.NoError(t, err)
	t.Cleanup(c.Disconnect)
	return c
}

// S2 — forwarding hands the next hop exactly the onward ciphertext this
// node peeled off, re-prefixed with a fresh onion magic byte, never
// re-encrypted or otherwise altered (§4.6).
func TestForwardPreservesOnwardCiphertextBytes(t *testing.T) {
	c := newBareCore(t)

	const nextHop = "next-hop-peer"
	captured := make(chan []byte, 1)
	conn := newConnection(nextHop, "addr", log.Discard())
	conn.markHandshaked()
	defer conn.close()
	go conn.run(0, func(frame []byte) error {
		captured <- frame
		return nil
	})

	c.mu.Lock()
	c.conns[nextHop] = conn
	c.mu.Unlock()

	// onwardCiphertext stands in for whatever this hop is meant to pass
	// along untouched: it is not itself a valid onion layer, because
	// forward must not care about (or touch) its contents.
	onwardCiphertext := []byte("opaque-onward-bytes-unchanged")
	routingBody := aorp.WrapNextHop([]byte(nextHop), onwardCiphertext)

	layer, err := crypto.EncryptLayer(routingBody, c.identity.PublicKey())
	require.NoError(t, err)

	c.handleOnionFrame("sender-peer", layer)

	select {
	case got := <-captured:
		want := withMagic(aorp.MagicAORP, onwardCiphertext)
		assert.Equal(t, want, got, "forwarded frame must be magic byte + exact onward ciphertext, unmodified")
	case <-time.After(time.Second):
		t.Fatal("next hop never received a forwarded frame")
	}
}

// A routing layer addressed to a next hop that has no usable connection
// is dropped, never delivered locally as a fallback.
func TestForwardDropsWhenNextHopConnectionMissing(t *testing.T) {
	c := newBareCore(t)

	delivered := make(chan struct{}, 1)
	c.OnDelivery(func(payload []byte, fromTag string) {
		delivered <- struct{}{}
	})

	routingBody := aorp.WrapNextHop([]byte("unknown-next-hop"), []byte("onward"))
	layer, err := crypto.EncryptLayer(routingBody, c.identity.PublicKey())
	require.NoError(t, err)

	c.handleOnionFrame("sender-peer", layer)

	select {
	case <-delivered:
		t.Fatal("a frame addressed elsewhere must never be delivered locally")
	case <-time.After(100 * time.Millisecond):
	}
}

// A terminal frame (no next-hop wrapping) addressed to this node is
// delivered, not forwarded.
func TestHandleOnionFrameDeliversTerminalFrame(t *testing.T) {
	c := newBareCore(t)

	delivered := make(chan string, 1)
	c.OnDelivery(func(payload []byte, fromTag string) {
		delivered <- string(payload)
	})

	dest := DestinationToken(c.Address())
	body, err := aorp.Build([]byte("hello"), dest[:], false)
	require.NoError(t, err)

	layer, err := crypto.EncryptLayer(body, c.identity.PublicKey())
	require.NoError(t, err)

	c.handleOnionFrame("sender-peer", layer)

	select {
	case got := <-delivered:
		assert.Equal(t, "hello", got)
	case <-time.After(time.Second):
		t.Fatal("terminal frame was never delivered")
	}
}

// S1/S2 combined at the mesh level — exactly the destination hop
// delivers the payload; every other hop along the path forwards without
// ever invoking its own delivery callback.
func TestSendDeliversOnlyToTheDestinationHop(t *testing.T) {
	cfg := testConfig()
	cores, _ := newMeshNetwork(t, 5, cfg)
	origin := cores[0]

	for _, c := range cores[1:] {
		waitForCandidates(t, c, 1, 2*time.Second)
	}
	waitForCandidates(t, origin, 3, 2*time.Second)

	circuit, err := origin.awaitCircuit(config.ModeAdaptive)
	require.NoError(t, err)
	destination := circuit.Hops[len(circuit.Hops)-1]

	deliveries := make(chan string, len(cores))
	for _, c := range cores[1:] {
		c := c
		c.OnDelivery(func(payload []byte, fromTag string) {
			deliveries <- c.Address()
		})
	}

	_, err = origin.Send([]byte("only for the last hop"), config.ModeAdaptive)
	require.NoError(t, err)

	select {
	case who := <-deliveries:
		assert.Equal(t, destination, who, "only the circuit's last hop should deliver")
	case <-time.After(2 * time.Second):
		t.Fatal("nobody delivered the payload")
	}

	select {
	case who := <-deliveries:
		t.Fatalf("a second hop (%s) also delivered; intermediate hops must only forward", who)
	case <-time.After(300 * time.Millisecond):
	}

	for _, c := range cores {
		c.Disconnect()
	}
}
