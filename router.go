package taior

import (
	"time"

	"github.com/pkg/errors"

	"github.com/taior/taior/aorp"
	"github.com/taior/taior/config"
	"github.com/taior/taior/crypto"
	"github.com/taior/taior/log"
)

// handshakePollInterval is how often Send re-checks for enough completed
// candidates while waiting out a peer's in-flight handshake (S5).
const handshakePollInterval = 20 * time.Millisecond

// handlePeerUp is the substrate's OnPeerUp callback: registers the peer
// as Pending in the directory, opens a connection record with its
// jittered outbound worker, and sends our own 0xBB handshake frame.
func (c *Core) handlePeerUp(peerID, addr string) {
	now := time.Now()
	c.directory.Insert(peerID, addr, now)

	conn := newConnection(peerID, addr, c.logger)
	c.mu.Lock()
	c.conns[peerID] = conn
	c.mu.Unlock()
	c.metrics.Connections.Alloc()

	go conn.run(c.cfg.JitterMax, func(frame []byte) error {
		return c.substrate.SendFrame(peerID, frame)
	})

	conn.enqueue(withMagic(aorp.MagicHandshake, c.identity.PublicKey()))
}

// handlePeerDown is the substrate's OnPeerDown callback: marks the peer
// Failed in the directory, so it is no longer a circuit candidate, purges
// any circuit referencing it, and tears down its connection record. The
// directory entry itself is not removed here; the staleness sweep in
// runMaintenance removes it once it is older than StalenessWindow.
func (c *Core) handlePeerDown(peerID string) {
	c.directory.Fail(peerID)
	c.circuits.Purge(peerID)

	c.mu.Lock()
	conn, ok := c.conns[peerID]
	delete(c.conns, peerID)
	c.mu.Unlock()

	if ok {
		conn.close()
		c.metrics.Connections.Free()
	}
}

// handleFrame is the substrate's OnFrame callback: classifies the frame
// by its leading magic byte (§4.6) and dispatches accordingly. Every
// failure path here is a silent local drop — never surfaced upward.
func (c *Core) handleFrame(peerID string, frame []byte) {
	now := time.Now()
	c.directory.Touch(peerID, now)

	if len(frame) < 1 {
		c.drop(peerID, "empty frame")
		return
	}

	magic, body := aorp.Magic(frame[0]), frame[1:]
	switch magic {
	case aorp.MagicHandshake:
		c.handleHandshakeFrame(peerID, body, now)
	case aorp.MagicCover:
		// Cover traffic: C4 already touched above; nothing else to do.
	case aorp.MagicAORP:
		c.handleOnionFrame(peerID, body)
	default:
		c.drop(peerID, "unrecognized magic")
	}
}

func (c *Core) handleHandshakeFrame(peerID string, staticPub []byte, now time.Time) {
	if err := c.directory.CompleteHandshake(peerID, staticPub, now); err != nil {
		log.Err(c.logger, err, "handshake rejected")
		return
	}

	c.mu.Lock()
	conn, ok := c.conns[peerID]
	c.mu.Unlock()
	if ok {
		conn.markHandshaked()
	}
}

// handleOnionFrame peels one onion layer and either delivers or forwards
// the result, per §4.6.
func (c *Core) handleOnionFrame(peerID string, ciphertext []byte) {
	cleartext, err := crypto.DecryptLayer(ciphertext, c.identity.PrivateKey())
	if err != nil {
		c.drop(peerID, "decrypt failed")
		return
	}

	if frame, err := aorp.Parse(cleartext); err == nil {
		mine := DestinationToken(c.Address())
		if frame.Destination == mine {
			c.deliver(frame.Payload, peerID)
			return
		}
	}

	nextHopID, inner, err := aorp.StripNextHop(cleartext)
	if err != nil {
		c.drop(peerID, "neither a terminal frame nor a routing layer")
		return
	}

	c.forward(string(nextHopID), inner)
}

func (c *Core) deliver(payload []byte, fromPeerID string) {
	c.metrics.Inbound.Write(payload)

	c.mu.Lock()
	cb := c.delivery
	c.mu.Unlock()
	if cb == nil {
		return
	}

	tag := fromPeerID
	if tag == "" {
		tag = "anonymous"
	}
	cb(payload, tag)
}

// forward hands the untouched onward ciphertext to nextHopID, prefixed
// with a fresh onion magic byte. The ciphertext itself is never
// re-encrypted or otherwise modified (§4.6).
func (c *Core) forward(nextHopID string, onwardCiphertext []byte) {
	c.mu.Lock()
	conn, ok := c.conns[nextHopID]
	c.mu.Unlock()
	if !ok || !conn.Usable() {
		c.drop(nextHopID, "no usable connection to next hop")
		return
	}
	conn.enqueue(withMagic(aorp.MagicAORP, onwardCiphertext))
}

func (c *Core) drop(peerID, reason string) {
	c.metrics.Dropped.Inc(1)
	c.logger.With("peer", peerID).With("reason", reason).Debug("dropped frame")
}

// awaitCircuit builds (or reuses) a circuit for mode, retrying across a
// peer's in-flight handshake up to cfg.HandshakeTimeout before giving up
// (S5: "send blocks...until handshake completes within
// handshake_timeout_ms, then proceeds").
func (c *Core) awaitCircuit(mode config.Mode) (*Circuit, error) {
	deadline := time.Now().Add(c.cfg.HandshakeTimeout)

	for {
		now := time.Now()
		if circuit, ok := c.circuits.Active(mode, now); ok {
			return circuit, nil
		}

		circuit, err := c.circuits.Build(mode, now)
		if err == nil {
			c.metrics.Circuits.Alloc()
			return circuit, nil
		}
		if !errors.Is(err, ErrInsufficientAnonymity) {
			return nil, err
		}
		if time.Now().After(deadline) {
			return nil, err
		}

		select {
		case <-c.stop:
			return nil, ErrCancelled
		case <-time.After(handshakePollInterval):
		}
	}
}

// wrapForCircuit builds the inner AORP frame and wraps it in one onion
// layer per hop, innermost (destination) first. For hop i<len-1 the
// layer's cleartext is first prefixed with the next hop's full peer id
// (wrap_next_hop) before being encrypted for hop i — so peeling hop i at
// the receiving node yields exactly "next-hop id + onward ciphertext"
// (§4.6 step 3, using the corrected circuit[i+1] forward-pointing index
// documented in SPEC_FULL.md §9).
func (c *Core) wrapForCircuit(payload []byte, circuit *Circuit) ([]byte, error) {
	n := len(circuit.Hops)
	if n == 0 {
		return nil, ErrNoCircuit
	}

	destToken := DestinationToken(circuit.Hops[n-1])
	body, err := aorp.Build(payload, destToken[:], n > 1)
	if err != nil {
		return nil, errors.Wrap(err, "build aorp frame")
	}

	for i := n - 1; i >= 0; i-- {
		if i < n-1 {
			body = aorp.WrapNextHop([]byte(circuit.Hops[i+1]), body)
		}

		hop, ok := c.directory.Get(circuit.Hops[i])
		if !ok {
			return nil, errors.Errorf("taior: circuit hop %q no longer in directory", circuit.Hops[i])
		}

		body, err = crypto.EncryptLayer(body, hop.StaticPub)
		if err != nil {
			return nil, errors.Wrapf(err, "encrypt layer for hop %d", i)
		}
	}

	return body, nil
}

func errorsWrapSendFailed(cause error) error {
	return errors.Wrap(ErrSendFailed, cause.Error())
}

// maintenanceLoop runs the periodic circuit-refresh/expiry sweep and the
// directory staleness sweep, purging circuits referencing any peer it
// evicts (§4.4/§4.5).
func (c *Core) maintenanceLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.CircuitRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case now := <-ticker.C:
			c.runMaintenance(now)
		}
	}
}

func (c *Core) runMaintenance(now time.Time) {
	if n := c.circuits.Sweep(now); n > 0 {
		for i := 0; i < n; i++ {
			c.metrics.Circuits.Free()
		}
	}

	timedOut := c.directory.EvictPendingTimeouts(now, c.cfg.HandshakeTimeout)
	for _, id := range timedOut {
		log.Err(c.logger.With("peer", id), ErrHandshakeTimeout, "peer handshake timed out")
		c.handlePeerDown(id)
	}

	evicted := c.directory.EvictStale(now, c.cfg.StalenessWindow)
	for _, id := range evicted {
		c.handlePeerDown(id)
	}
}
