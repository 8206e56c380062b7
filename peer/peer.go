// Package peer implements the peer directory (C4): the map from peer id
// to handshake state, static public key, and liveness, consulted by the
// circuit manager when sampling candidates.
//
// Grounded on the teacher's ConnectionManager/SenderManager pattern (a
// sync.RWMutex-guarded map keyed by identifier, in connectionmanager.go
// and cellio.go) generalized from "manage live link connections" to
// "manage peer handshake records".
package peer

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

// State is a peer's handshake lifecycle stage.
type State int

const (
	// Pending means insert() has recorded the peer but no 0xBB
	// handshake frame has been received from it yet.
	Pending State = iota
	// Completed means a valid static public key has been received.
	Completed
	// Failed means handshake establishment was abandoned (e.g. the
	// substrate connection closed before a handshake frame arrived).
	Failed
)

// ErrKeyTooShort is returned by CompleteHandshake when the supplied
// static public key is shorter than the curve's expected length.
var ErrKeyTooShort = errors.New("peer: static public key shorter than curve-expected length")

// Peer is one directory entry.
type Peer struct {
	ID            string
	SubstrateAddr string
	StaticPub     []byte
	State         State
	LastSeen      time.Time
}

// Directory is the peer id -> Peer map. The zero value is not usable;
// construct with New.
type Directory struct {
	keySize int

	mu    sync.RWMutex
	peers map[string]*Peer
}

// New constructs an empty Directory. keySize is the expected length, in
// bytes, of a static public key for the deployment's curve (32 for
// Curve25519); CompleteHandshake rejects shorter keys.
func New(keySize int) *Directory {
	return &Directory{
		keySize: keySize,
		peers:   make(map[string]*Peer),
	}
}

// Insert creates a Pending entry for id if one does not already exist.
// Idempotent: inserting an id already present is a no-op.
func (d *Directory) Insert(id, substrateAddr string, now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.peers[id]; ok {
		return
	}
	d.peers[id] = &Peer{
		ID:            id,
		SubstrateAddr: substrateAddr,
		State:         Pending,
		LastSeen:      now,
	}
}

// CompleteHandshake transitions id from Pending to Completed once its
// static public key has been received, invalidating any previously
// cached key so that the next layer build re-imports it. Peers not
// already present are inserted implicitly (a handshake frame can arrive
// before a substrate-level Insert in some transport orderings).
func (d *Directory) CompleteHandshake(id string, staticPub []byte, now time.Time) error {
	if len(staticPub) < d.keySize {
		return ErrKeyTooShort
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.peers[id]
	if !ok {
		p = &Peer{ID: id}
		d.peers[id] = p
	}
	p.StaticPub = append([]byte(nil), staticPub...)
	p.State = Completed
	p.LastSeen = now
	return nil
}

// Touch updates id's last-seen timestamp. A no-op if id is unknown.
func (d *Directory) Touch(id string, now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p, ok := d.peers[id]; ok {
		p.LastSeen = now
	}
}

// Fail marks id Failed. A no-op if id is unknown.
func (d *Directory) Fail(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p, ok := d.peers[id]; ok {
		p.State = Failed
	}
}

// EvictStale removes every entry whose LastSeen is older than window
// relative to now, returning the evicted ids so the caller (C5) can
// purge any circuit referencing them.
func (d *Directory) EvictStale(now time.Time, window time.Duration) []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	var evicted []string
	for id, p := range d.peers {
		if now.Sub(p.LastSeen) > window {
			evicted = append(evicted, id)
			delete(d.peers, id)
		}
	}
	return evicted
}

// EvictPendingTimeouts removes every Pending entry whose handshake has
// not completed within timeout of its LastSeen, returning the evicted
// ids (§4.6: "a peer that fails to complete handshake within 5s is
// evicted").
func (d *Directory) EvictPendingTimeouts(now time.Time, timeout time.Duration) []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	var evicted []string
	for id, p := range d.peers {
		if p.State == Pending && now.Sub(p.LastSeen) > timeout {
			evicted = append(evicted, id)
			delete(d.peers, id)
		}
	}
	return evicted
}

// Candidates returns every peer eligible for circuit selection: state
// Completed, a non-empty public key, and seen within window of now.
func (d *Directory) Candidates(now time.Time, window time.Duration) []*Peer {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []*Peer
	for _, p := range d.peers {
		if p.State != Completed {
			continue
		}
		if len(p.StaticPub) == 0 {
			continue
		}
		if now.Sub(p.LastSeen) > window {
			continue
		}
		cp := *p
		cp.StaticPub = append([]byte(nil), p.StaticPub...)
		out = append(out, &cp)
	}
	return out
}

// Get returns the current record for id, if any.
func (d *Directory) Get(id string) (Peer, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p, ok := d.peers[id]
	if !ok {
		return Peer{}, false
	}
	cp := *p
	cp.StaticPub = append([]byte(nil), p.StaticPub...)
	return cp, true
}

// Len reports the number of directory entries, regardless of state.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.peers)
}

// Clear scrubs every peer's static public key and empties the directory.
// Called from Disconnect so no peer key material remains reachable once
// a Core shuts down (§5, property 7).
func (d *Directory) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, p := range d.peers {
		for i := range p.StaticPub {
			p.StaticPub[i] = 0
		}
	}
	d.peers = make(map[string]*Peer)
}
