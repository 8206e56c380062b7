package taior

// DestinationIDSize is the width of the truncated peer id carried as an
// AORP frame's destination field.
const DestinationIDSize = 16

// DestinationToken derives the 16-byte destination-matching token for
// peerID (§9, resolving the ambiguous isForMe comparison): the first 16
// bytes of the id's raw bytes, right-padded with zeros if shorter.
func DestinationToken(peerID string) [DestinationIDSize]byte {
	var tok [DestinationIDSize]byte
	copy(tok[:], peerID)
	return tok
}
