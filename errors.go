package taior

import "github.com/pkg/errors"

// Error kinds observable to callers of Core, per §7. Crypto and parsing
// failures on inbound frames (MalformedFrame, DecryptFailed,
// HandshakeTimeout) are never returned from an upward API call: they are
// always local drops or evictions, logged and otherwise silent.
var (
	// ErrNotInitialized is returned by Send called on a Core that has
	// already been torn down by Disconnect (its C4/C5 state cleared and
	// identity scrubbed, so it is no longer in an initialized, usable
	// state).
	ErrNotInitialized = errors.New("taior: core not initialized")

	// ErrNoCircuit is returned when no usable circuit exists and one
	// could not be built synchronously.
	ErrNoCircuit = errors.New("taior: no usable circuit")

	// ErrInsufficientAnonymity is returned when a circuit of at least
	// MinHops could not be built from available candidates.
	ErrInsufficientAnonymity = errors.New("taior: insufficient candidates for minimum-hop circuit")

	// ErrSendFailed wraps any failure during onion construction. The
	// payload is never transmitted in the clear as a fallback.
	ErrSendFailed = errors.New("taior: send failed")

	// ErrMalformedFrame indicates an inbound frame failed to parse.
	// Surfaced only as a local drop.
	ErrMalformedFrame = errors.New("taior: malformed frame")

	// ErrDecryptFailed indicates an inbound onion layer failed to
	// authenticate. Surfaced only as a local drop.
	ErrDecryptFailed = errors.New("taior: layer decrypt failed")

	// ErrCancelled is returned by an in-flight operation interrupted by
	// Disconnect before it handed bytes to the substrate.
	ErrCancelled = errors.New("taior: operation cancelled")

	// ErrHandshakeTimeout indicates a peer failed to complete handshake
	// within the configured window. Internal: the peer is evicted, this
	// is never surfaced to the upward API.
	ErrHandshakeTimeout = errors.New("taior: handshake timeout")
)
