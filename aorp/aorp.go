// Package aorp implements the inner packet format carried inside onion
// layers: framing, destination addressing, and the random padding that
// hides a message's true length. It is pure functions; no I/O, grounded
// on the teacher's cell.go layout-as-byte-slice style (magic byte,
// fixed-width fields, [buf.Consume]-driven parsing) generalized from Tor's
// CELL format to this spec's AORP frame.
package aorp

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/taior/taior/buf"
	"github.com/taior/taior/crypto"
)

// Magic is the one-byte wire tag distinguishing frame kinds. The outer
// tag of a wire frame is transport framing layered on top of the onion
// ciphertext, stripped on receive and freshly re-prepended on forward; it
// is not encrypted or authenticated. The inner AORP frame produced by
// Build also starts with MagicAORP, and that byte is inside the
// encrypted layers.
type Magic byte

const (
	MagicAORP      Magic = 0xAA
	MagicHandshake Magic = 0xBB
	MagicCover     Magic = 0xFF
)

const (
	// DestinationIDSize is the width of the truncated peer id carried in
	// an AORP frame.
	DestinationIDSize = 16

	// NextHopFieldSize is the width of the next-hop field prepended by
	// WrapNextHop ahead of a routing layer's body.
	NextHopFieldSize = 32

	// PaddingBoundary is the block size every built AORP frame is padded
	// up to.
	PaddingBoundary = 512

	// headerSize is magic(1) + flags(1) + destination(16) + length(2).
	headerSize = 1 + 1 + DestinationIDSize + 2

	flagHasNextHop = 1 << 0
)

// MaxPayloadSize is the largest payload build_aorp will accept: it must
// fit in the 16-bit length field.
const MaxPayloadSize = 1<<16 - 1

// ErrMalformedFrame is returned by Parse and StripNextHop when bytes do
// not conform to the expected layout.
var ErrMalformedFrame = errors.New("aorp: malformed frame")

// Frame is the parsed result of an inner AORP frame.
type Frame struct {
	Destination [DestinationIDSize]byte
	Payload     []byte
	HasNext     bool
}

// Build emits the inner AORP frame for payload addressed to destinationID,
// padded with random bytes to the next PaddingBoundary-byte boundary.
func Build(payload, destinationID []byte, hasNext bool) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, errors.Errorf("aorp: payload too large: %d bytes", len(payload))
	}
	if len(destinationID) > DestinationIDSize {
		return nil, errors.Errorf("aorp: destination id too large: %d bytes", len(destinationID))
	}

	var dest [DestinationIDSize]byte
	copy(dest[:], destinationID)

	var flags byte
	if hasNext {
		flags |= flagHasNextHop
	}

	total := headerSize + len(payload)
	padded := nextMultiple(total, PaddingBoundary)

	out := make([]byte, padded)
	out[0] = byte(MagicAORP)
	out[1] = flags
	copy(out[2:2+DestinationIDSize], dest[:])
	binary.BigEndian.PutUint16(out[2+DestinationIDSize:headerSize], uint16(len(payload)))
	copy(out[headerSize:total], payload)

	if pad := out[total:]; len(pad) > 0 {
		copy(pad, crypto.Rand(len(pad)))
	}

	return out, nil
}

// Parse validates and decodes an inner AORP frame, returning the exact
// payload slice (no padding, no header).
func Parse(b []byte) (Frame, error) {
	if len(b) < headerSize {
		return Frame{}, ErrMalformedFrame
	}
	if Magic(b[0]) != MagicAORP {
		return Frame{}, ErrMalformedFrame
	}

	flags := b[1]
	var dest [DestinationIDSize]byte
	copy(dest[:], b[2:2+DestinationIDSize])

	payloadLen := int(binary.BigEndian.Uint16(b[2+DestinationIDSize : headerSize]))
	if payloadLen > len(b)-headerSize {
		return Frame{}, ErrMalformedFrame
	}

	payload := make([]byte, payloadLen)
	copy(payload, b[headerSize:headerSize+payloadLen])

	return Frame{
		Destination: dest,
		Payload:     payload,
		HasNext:     flags&flagHasNextHop != 0,
	}, nil
}

// StripNextHop parses the leading NextHopFieldSize-byte next-hop id field
// prepended by WrapNextHop, trimming trailing NUL padding from the id, and
// returns the remaining inner body.
func StripNextHop(b []byte) (nextHopID []byte, inner []byte, err error) {
	if len(b) < NextHopFieldSize {
		return nil, nil, ErrMalformedFrame
	}
	field, rest := buf.Consume(b, NextHopFieldSize)
	return trimTrailingNUL(field), rest, nil
}

// WrapNextHop prepends the fixed NextHopFieldSize-byte next-hop id field
// (zero-padded) ahead of inner.
func WrapNextHop(nextID, inner []byte) []byte {
	var field [NextHopFieldSize]byte
	copy(field[:], nextID)

	out := make([]byte, 0, NextHopFieldSize+len(inner))
	out = append(out, field[:]...)
	out = append(out, inner...)
	return out
}

func trimTrailingNUL(b []byte) []byte {
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	out := make([]byte, end)
	copy(out, b[:end])
	return out
}

func nextMultiple(n, multiple int) int {
	if n%multiple == 0 {
		return n
	}
	return (n/multiple + 1) * multiple
}
