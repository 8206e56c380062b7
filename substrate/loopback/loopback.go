// Package loopback provides an in-memory Substrate implementation for
// tests and local demos: a Hub connects named Nodes and delivers frames
// between them directly, with no real network I/O.
//
// Grounded on the teacher's channel-based CellChan pattern (formerly in
// cellio.go: a buffered channel per peer link feeding a reader
// goroutine), generalized here from per-connection cell delivery to
// per-node frame delivery across an arbitrary number of peers.
package loopback

import (
	"sync"

	"github.com/pkg/errors"
)

// ErrUnknownPeer is returned by SendFrame when no Node with the given id
// is registered on the Hub.
var ErrUnknownPeer = errors.New("loopback: unknown peer")

// Hub is the shared in-memory medium a set of Nodes communicate over.
type Hub struct {
	mu    sync.RWMutex
	nodes map[string]*Node
}

// NewHub constructs an empty Hub.
func NewHub() *Hub {
	return &Hub{nodes: make(map[string]*Node)}
}

// Node registers and returns a new Substrate endpoint identified by id.
func (h *Hub) Node(id string) *Node {
	n := &Node{id: id, hub: h}

	h.mu.Lock()
	h.nodes[id] = n
	h.mu.Unlock()

	return n
}

// Alias re-registers node under newID, removing its old registration.
// Useful when a node's externally-visible peer id (e.g. a Core's
// cryptographic address) is only known after construction: register a
// placeholder id first, then Alias once the real id is available, before
// any Connect call references it.
func (h *Hub) Alias(node *Node, newID string) {
	h.mu.Lock()
	delete(h.nodes, node.id)
	node.id = newID
	h.nodes[newID] = node
	h.mu.Unlock()
}

// Connect links a and b: each is notified via OnPeerUp of the other,
// using the peer's own id as its "address". Connect is symmetric and
// idempotent from the caller's point of view (calling it twice just
// re-fires both OnPeerUp callbacks).
func (h *Hub) Connect(a, b *Node) {
	a.notifyPeerUp(b.id, b.id)
	b.notifyPeerUp(a.id, a.id)
}

// Disconnect tears down the link between a and b, notifying both sides
// via OnPeerDown.
func (h *Hub) Disconnect(a, b *Node) {
	a.notifyPeerDown(b.id)
	b.notifyPeerDown(a.id)
}

func (h *Hub) node(id string) (*Node, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n, ok := h.nodes[id]
	return n, ok
}

// Node is one endpoint on a Hub, implementing taior.Substrate.
type Node struct {
	id  string
	hub *Hub

	mu       sync.Mutex
	onFrame  func(peerID string, frame []byte)
	onPeerUp func(peerID, addr string)
	onPeerDn func(peerID string)
}

// SendFrame delivers frame to peerID's registered OnFrame callback,
// tagging it with this node's own id as sender. Delivery runs on its own
// goroutine so SendFrame never blocks on the recipient's processing,
// mirroring an unordered, unreliable substrate (§5).
func (n *Node) SendFrame(peerID string, frame []byte) error {
	peer, ok := n.hub.node(peerID)
	if !ok {
		return ErrUnknownPeer
	}

	cp := make([]byte, len(frame))
	copy(cp, frame)

	go peer.deliver(n.id, cp)
	return nil
}

func (n *Node) deliver(fromID string, frame []byte) {
	n.mu.Lock()
	cb := n.onFrame
	n.mu.Unlock()
	if cb != nil {
		cb(fromID, frame)
	}
}

// OnFrame registers the inbound-frame callback.
func (n *Node) OnFrame(cb func(peerID string, frame []byte)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onFrame = cb
}

// OnPeerUp registers the peer-up callback.
func (n *Node) OnPeerUp(cb func(peerID, addr string)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onPeerUp = cb
}

// OnPeerDown registers the peer-down callback.
func (n *Node) OnPeerDown(cb func(peerID string)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onPeerDn = cb
}

func (n *Node) notifyPeerUp(peerID, addr string) {
	n.mu.Lock()
	cb := n.onPeerUp
	n.mu.Unlock()
	if cb != nil {
		cb(peerID, addr)
	}
}

func (n *Node) notifyPeerDown(peerID string) {
	n.mu.Lock()
	cb := n.onPeerDn
	n.mu.Unlock()
	if cb != nil {
		cb(peerID)
	}
}
