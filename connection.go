package taior

import (
	"math/big"
	"sync"
	"time"

	"github.com/taior/taior/aorp"
	"github.com/taior/taior/crypto"
	"github.com/taior/taior/log"
)

// connState is a per-substrate-connection handshake stage (§4.6).
type connState int

const (
	// connPending is set immediately on open: our 0xBB has been queued,
	// the peer's has not yet arrived. Onion traffic to this peer is not
	// yet permitted.
	connPending connState = iota
	// connHandshaked is set once the peer's 0xBB has been received.
	connHandshaked
)

// connection tracks one substrate peer link: its handshake stage and a
// serialized, jittered outbound worker. A dedicated worker per peer is
// what lets jitter(§4.6: "wait a uniformly sampled delay...before every
// forwarded or originated frame") coexist with the ordering guarantee of
// §5 ("within a single substrate connection...preserved"): frames queue
// in arrival order and the worker releases them one at a time, each
// after its own jittered delay, so delays never reorder a single peer's
// stream. Grounded on the teacher's per-connection cellReader/writer
// split in connection.go, generalized from a single TLS socket to a
// substrate-addressed outbound queue.
type connection struct {
	peerID string
	addr   string

	mu    sync.Mutex
	state connState

	logger log.Logger

	outbound  chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newConnection(peerID, addr string, logger log.Logger) *connection {
	return &connection{
		peerID:   peerID,
		addr:     addr,
		state:    connPending,
		logger:   log.ForComponent(logger, "connection").With("peer", peerID),
		outbound: make(chan []byte, 64),
		done:     make(chan struct{}),
	}
}

// State returns the connection's current handshake stage.
func (c *connection) State() connState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// markHandshaked transitions the connection to connHandshaked. Returns
// true the first time it is called for this connection.
func (c *connection) markHandshaked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	first := c.state != connHandshaked
	c.state = connHandshaked
	return first
}

// Usable reports whether onion traffic may flow to this peer: both sides
// must have exchanged 0xBB frames (§4.6).
func (c *connection) Usable() bool {
	return c.State() == connHandshaked
}

// enqueue queues frame (already including its leading magic byte) for
// jittered, in-order delivery to the substrate.
func (c *connection) enqueue(frame []byte) {
	select {
	case c.outbound <- frame:
	case <-c.done:
	}
}

// run drains the outbound queue, sleeping a uniformly sampled jitter
// delay in [0, jitterMax) before handing each frame to send. It returns
// when close is called.
func (c *connection) run(jitterMax time.Duration, send func(frame []byte) error) {
	for {
		select {
		case frame := <-c.outbound:
			sleepJitter(jitterMax)
			if err := send(frame); err != nil {
				log.Err(c.logger, err, "send frame failed")
			}
		case <-c.done:
			return
		}
	}
}

func (c *connection) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// sleepJitter blocks for a CSPRNG-sampled duration uniformly distributed
// in [0, max).
func sleepJitter(max time.Duration) {
	if max <= 0 {
		return
	}
	n := randUint64(uint64(max))
	time.Sleep(time.Duration(n))
}

// randUint64 returns a CSPRNG-sampled value uniformly distributed in
// [0, bound), drawing from the module's one shared CSPRNG (§5: "the
// CSPRNG is shared and must be thread-safe").
func randUint64(bound uint64) uint64 {
	if bound == 0 {
		return 0
	}
	n := new(big.Int).SetBytes(crypto.Rand(8))
	return n.Mod(n, new(big.Int).SetUint64(bound)).Uint64()
}

// buildCoverFrame constructs a 0xFF-prefixed random-filled frame of
// uniformly random size in [512, 2048], per §3/§4.6.
func buildCoverFrame() []byte {
	const minSize, maxSize = 512, 2048
	size := minSize + int(randUint64(uint64(maxSize-minSize+1)))
	frame := make([]byte, 1+size)
	frame[0] = byte(aorp.MagicCover)
	copy(frame[1:], crypto.Rand(size))
	return frame
}
