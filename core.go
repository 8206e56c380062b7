// Package taior implements an anonymous onion-routing overlay for
// room-scoped messaging: multi-hop circuits over a pluggable
// peer-to-peer substrate, layered authenticated encryption per hop,
// indistinguishable cover traffic, and delivery of opaque datagrams to a
// named destination.
package taior

import (
	"sync"

	"github.com/uber-go/tally"

	"github.com/taior/taior/aorp"
	"github.com/taior/taior/config"
	"github.com/taior/taior/identity"
	"github.com/taior/taior/log"
	"github.com/taior/taior/peer"
)

// DeliveryCallback is invoked when an inbound AORP packet terminates at
// this node. fromTag is literal "anonymous" or the last-hop substrate
// id — never a claimed origin (§6).
type DeliveryCallback func(payload []byte, fromTag string)

// Core owns everything scoped to one node: identity, peer directory,
// circuit manager, router state, and background timers. Multiple Cores
// may coexist in one process (§9), each independent.
type Core struct {
	cfg       *config.Config
	identity  *identity.Identity
	directory *peer.Directory
	circuits  *CircuitManager
	substrate Substrate
	logger    log.Logger
	metrics   *Metrics

	mu           sync.Mutex
	conns        map[string]*connection
	delivery     DeliveryCallback
	coverEnabled bool
	coverRate    float64

	stop     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New constructs a Core over substrate using cfg, generating a fresh
// ephemeral identity and starting its background tasks (circuit
// refresh, staleness sweep, handshake-timeout sweep, and the
// cover-traffic scheduler if enabled). This is §6's `init(config) ->
// address_token`, expressed as a constructor returning the Core whose
// Address() method yields the token.
func New(cfg *config.Config, substrate Substrate, logger log.Logger) (*Core, error) {
	return NewWithScope(cfg, substrate, logger, tally.NoopScope)
}

// NewWithScope is New with an explicit tally.Scope for metrics, for
// callers (such as the serve command) that report to a real telemetry
// backend rather than discarding metrics.
func NewWithScope(cfg *config.Config, substrate Substrate, logger log.Logger, scope tally.Scope) (*Core, error) {
	id, err := identity.New()
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = log.Discard()
	}
	if scope == nil {
		scope = tally.NoopScope
	}

	c := &Core{
		cfg:          cfg,
		identity:     id,
		directory:    peer.New(len(id.PublicKey())),
		substrate:    substrate,
		logger:       log.ForComponent(logger, "core").With("address", id.Address()),
		metrics:      NewMetrics(scope, logger),
		conns:        make(map[string]*connection),
		coverEnabled: cfg.CoverEnabled,
		coverRate:    cfg.CoverRate,
		stop:         make(chan struct{}),
	}
	c.circuits = NewCircuitManager(c.directory, cfg, nil)

	substrate.OnFrame(c.handleFrame)
	substrate.OnPeerUp(c.handlePeerUp)
	substrate.OnPeerDown(c.handlePeerDown)

	c.wg.Add(1)
	go c.maintenanceLoop()

	if c.coverEnabled {
		c.wg.Add(1)
		go c.coverLoop()
	}

	c.logger.Info("core initialized")
	return c, nil
}

// Address returns the node's human-visible address token.
func (c *Core) Address() string {
	return c.identity.Address()
}

// OnDelivery registers cb to be invoked for every inbound AORP packet
// that terminates at this node.
func (c *Core) OnDelivery(cb DeliveryCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delivery = cb
}

// EnableCoverTraffic toggles the cover-traffic scheduler and sets its
// target rate in packets/second.
func (c *Core) EnableCoverTraffic(enabled bool, rate float64) {
	c.mu.Lock()
	wasEnabled := c.coverEnabled
	c.coverEnabled = enabled
	c.coverRate = rate
	c.mu.Unlock()

	if enabled && !wasEnabled {
		c.wg.Add(1)
		go c.coverLoop()
	}
}

// Send originates payload through a circuit matching mode, returning the
// exact bytes handed to the substrate for the first hop (opaque;
// intended for logging/diagnostics only per §6). Send never transmits
// payload bytes that are not wrapped by a valid circuit and
// authenticated encryption — failures are always surfaced, never
// silently downgraded to plaintext.
func (c *Core) Send(payload []byte, mode config.Mode) ([]byte, error) {
	select {
	case <-c.stop:
		return nil, ErrNotInitialized
	default:
	}

	circuit, err := c.awaitCircuit(mode)
	if err != nil {
		return nil, err
	}

	out, err := c.wrapForCircuit(payload, circuit)
	if err != nil {
		return nil, errorsWrapSendFailed(err)
	}

	sleepJitter(c.cfg.JitterMax)

	select {
	case <-c.stop:
		return nil, ErrCancelled
	default:
	}

	// The circuit may have been purged or swept while the onion layers
	// above were being built (e.g. a hop's connection just went down);
	// re-check rather than hand bytes to a substrate peer we no longer
	// track.
	if _, err := c.circuits.Get(circuit.ID); err != nil {
		return nil, err
	}

	firstHop := circuit.Hops[0]
	frame := withMagic(aorp.MagicAORP, out)
	if err := c.substrate.SendFrame(firstHop, frame); err != nil {
		return nil, errorsWrapSendFailed(err)
	}
	c.metrics.Outbound.Write(out)

	return frame, nil
}

// Disconnect tears down all substrate connections, cancels background
// timers, empties the peer directory (C4) and circuit manager (C5), and
// scrubs the identity's private key — no secret material (static peer
// keys, circuit paths, our own private key) remains reachable once
// Disconnect returns (§5). In-flight Send calls that have not yet handed
// bytes to the substrate return ErrCancelled; calls made afterward return
// ErrNotInitialized.
func (c *Core) Disconnect() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
	c.wg.Wait()

	c.mu.Lock()
	conns := c.conns
	c.conns = make(map[string]*connection)
	c.mu.Unlock()

	for _, conn := range conns {
		conn.close()
	}

	c.circuits.Clear()
	c.directory.Clear()
	c.identity.Zero()
}

// withMagic prepends the given wire magic to body, never mutating body
// itself (§4.6: "forwarding must not...modify the onward bytes").
func withMagic(m aorp.Magic, body []byte) []byte {
	out := make([]byte, 1+len(body))
	out[0] = byte(m)
	copy(out[1:], body)
	return out
}
