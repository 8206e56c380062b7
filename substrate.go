package taior

// Substrate is the downward collaborator (§6): an opaque peer-to-peer
// transport the router hands frames to and receives frames from. Taior
// never assumes anything about the substrate's delivery guarantees
// beyond "unordered, unreliable, frames up to 65535 bytes" (§5).
type Substrate interface {
	// SendFrame hands an opaque frame to peerID. Frames are at most
	// 65535 bytes.
	SendFrame(peerID string, frame []byte) error

	// OnFrame registers the callback invoked when a frame arrives from
	// peerID. Only one callback is active at a time; a later
	// registration replaces an earlier one.
	OnFrame(cb func(peerID string, frame []byte))

	// OnPeerUp registers the callback invoked when a new substrate
	// connection to peerID becomes usable.
	OnPeerUp(cb func(peerID, addr string))

	// OnPeerDown registers the callback invoked when a substrate
	// connection to peerID is lost.
	OnPeerDown(cb func(peerID string))
}
