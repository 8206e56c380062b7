package taior

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/taior/taior/config"
	"github.com/taior/taior/crypto"
	"github.com/taior/taior/peer"
)

// CircuitIDSize is the width, in bytes, of a circuit's CSPRNG-generated
// identifier (§3: "random 16-byte id").
const CircuitIDSize = 16

// Circuit is an ordered path of peer ids forming a route, per §3.
// Hops holds peer ids rather than pointers into the directory: peer
// records are resolved through the directory at send/forward time so a
// peer's handshake state can change without invalidating the circuit
// struct itself.
type Circuit struct {
	ID        [CircuitIDSize]byte
	Mode      config.Mode
	Hops      []string
	Created   time.Time
	TTL       time.Duration
	RefreshAt time.Time
}

// Expired reports whether c is past its TTL at now.
func (c *Circuit) Expired(now time.Time) bool {
	return now.Sub(c.Created) > c.TTL
}

// NeedsRefresh reports whether c is due for proactive replacement.
func (c *Circuit) NeedsRefresh(now time.Time) bool {
	return !c.RefreshAt.IsZero() && now.After(c.RefreshAt)
}

// generateCircuitID draws a fresh CSPRNG circuit id, grounded on the
// teacher's GenerateCircID (torcrypto.Rand feeding a fixed-width
// identifier).
func generateCircuitID() [CircuitIDSize]byte {
	var id [CircuitIDSize]byte
	copy(id[:], crypto.Rand(CircuitIDSize))
	return id
}

// DecideNextHop is the optional external policy hook of §4.5: given the
// eligible candidate ids and the number of hops still to choose, returns
// the next hop to select. A nil DecideNextHop falls back to uniform
// random selection.
type DecideNextHop func(candidateIDs []string, remainingHops int) string

// CircuitManager builds and tracks circuits by sampling the peer
// directory, grounded on the teacher's CircuitManager (a
// sync.RWMutex-guarded map of active state) generalized from per-link
// circuit bookkeeping to full path construction.
type CircuitManager struct {
	directory *peer.Directory
	config    *config.Config
	decide    DecideNextHop

	mu       sync.RWMutex
	circuits map[[CircuitIDSize]byte]*Circuit
}

// NewCircuitManager constructs a CircuitManager over directory using cfg.
// decide may be nil to use uniform-random hop selection.
func NewCircuitManager(directory *peer.Directory, cfg *config.Config, decide DecideNextHop) *CircuitManager {
	return &CircuitManager{
		directory: directory,
		config:    cfg,
		decide:    decide,
		circuits:  make(map[[CircuitIDSize]byte]*Circuit),
	}
}

// Active returns an unexpired circuit built for mode, if one exists.
func (m *CircuitManager) Active(mode config.Mode, now time.Time) (*Circuit, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.circuits {
		if c.Mode == mode && !c.Expired(now) {
			return c, true
		}
	}
	return nil, false
}

// AnyActive returns an arbitrary unexpired circuit, regardless of mode,
// for the cover-traffic scheduler to route through (§4.6: cover packets
// are wrapped through "the active circuit", not a mode-specific one).
func (m *CircuitManager) AnyActive(now time.Time) (*Circuit, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.circuits {
		if !c.Expired(now) {
			return c, true
		}
	}
	return nil, false
}

// Build constructs a new circuit for mode by sampling without replacement
// from the directory's candidates. Every circuit built here carries (or
// will carry) user payload, so the target length is never allowed below
// cfg.MinHops regardless of what mode nominally requests (§4.5's "minimum
// of 3 is enforced for any circuit actually carrying user payload").
func (m *CircuitManager) Build(mode config.Mode, now time.Time) (*Circuit, error) {
	min, max := m.config.HopRange(mode)
	target := min
	if max > min {
		target = min + int(crypto.Rand(1)[0])%(max-min+1)
	}
	if target < m.config.MinHops {
		target = m.config.MinHops
	}

	candidates := m.directory.Candidates(now, m.config.StalenessWindow)
	if len(candidates) < target {
		return nil, ErrInsufficientAnonymity
	}

	hops, err := m.sample(candidates, target)
	if err != nil {
		return nil, err
	}

	c := &Circuit{
		ID:        generateCircuitID(),
		Mode:      mode,
		Hops:      hops,
		Created:   now,
		TTL:       m.config.CircuitTTL,
		RefreshAt: now.Add(m.config.CircuitRefreshInterval),
	}

	m.mu.Lock()
	m.circuits[c.ID] = c
	m.mu.Unlock()

	return c, nil
}

// sample draws target distinct peer ids without replacement from
// candidates, consulting the DecideNextHop policy hook if configured.
func (m *CircuitManager) sample(candidates []*peer.Peer, target int) ([]string, error) {
	pool := make([]string, len(candidates))
	for i, c := range candidates {
		pool[i] = c.ID
	}

	hops := make([]string, 0, target)
	for remaining := target; remaining > 0; remaining-- {
		if len(pool) == 0 {
			return nil, ErrInsufficientAnonymity
		}

		var idx int
		if m.decide != nil {
			id := m.decide(pool, remaining)
			idx = indexOf(pool, id)
			if idx < 0 {
				idx = 0
			}
		} else {
			idx = int(binary.BigEndian.Uint32(crypto.Rand(4))) % len(pool)
			if idx < 0 {
				idx += len(pool)
			}
		}

		hops = append(hops, pool[idx])
		pool = append(pool[:idx], pool[idx+1:]...)
	}

	return hops, nil
}

func indexOf(pool []string, id string) int {
	for i, p := range pool {
		if p == id {
			return i
		}
	}
	return -1
}

// Purge removes every circuit referencing peerID, per §4.4/§4.5: "circuit
// is purged when any referenced peer is evicted."
func (m *CircuitManager) Purge(peerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, c := range m.circuits {
		for _, hop := range c.Hops {
			if hop == peerID {
				delete(m.circuits, id)
				break
			}
		}
	}
}

// Sweep expires circuits past TTL, returning the number removed. Called
// from the periodic refresh task.
func (m *CircuitManager) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, c := range m.circuits {
		if c.Expired(now) {
			delete(m.circuits, id)
			removed++
		}
	}
	return removed
}

// Len reports the number of tracked circuits, expired or not.
func (m *CircuitManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.circuits)
}

// Get returns the circuit with the given id, or ErrCircuitNotFound if the
// manager no longer tracks it (e.g. purged or swept concurrently).
func (m *CircuitManager) Get(id [CircuitIDSize]byte) (*Circuit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.circuits[id]
	if !ok {
		return nil, ErrCircuitNotFound
	}
	return c, nil
}

// ErrCircuitNotFound is returned by operations addressing a circuit id
// that the manager no longer tracks (e.g. expired concurrently).
var ErrCircuitNotFound = errors.New("taior: circuit not found")

// Clear empties the manager of every tracked circuit. Called from
// Disconnect so no circuit path remains reachable once a Core shuts down
// (§5, property 7).
func (m *CircuitManager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.circuits = make(map[[CircuitIDSize]byte]*Circuit)
}
