package reactor

import "encoding/binary"

// frameHeaderSize is the length, in bytes, of the big-endian uint32
// length prefix on the wire (SPEC_FULL.md §5).
const frameHeaderSize = 4

// extractFrame is the pure operation described in SPEC_FULL.md §6.1:
// given the unframed tail of a connection's byte stream, remove and
// return exactly one complete frame's payload from the front of buf,
// or report that no complete frame is present yet. buf itself is never
// written: the payload is a copy, and rest is the unconsumed tail of
// buf (all of buf when ok is false).
//
// There is no error return: any length prefix is accepted, including
// zero. Bounding N against a maximum frame size is an out-of-scope
// policy left to a future layer (SPEC_FULL.md §1).
func extractFrame(buf []byte) (payload []byte, rest []byte, ok bool) {
	if len(buf) < frameHeaderSize {
		return nil, buf, false
	}
	n := binary.BigEndian.Uint32(buf[:frameHeaderSize])
	total := frameHeaderSize + int(n)
	if len(buf) < total {
		return nil, buf, false
	}
	payload = make([]byte, n)
	copy(payload, buf[frameHeaderSize:total])
	return payload, buf[total:], true
}

// drainFrames repeatedly applies extractFrame to buf, invoking emit
// for every complete frame found, and returns the remaining unframed
// tail. This is this implementation's resolution of REDESIGN FLAG 1:
// the distilled spec extracted at most one frame per read pass; this
// loops to exhaustion so pipelined frames delivered in a single read
// are all dispatched in the same pass.
func drainFrames(buf []byte, emit func(payload []byte)) []byte {
	for {
		payload, rest, ok := extractFrame(buf)
		if !ok {
			return rest
		}
		emit(payload)
		buf = rest
	}
}

// encodeFrame prepends the 4-byte big-endian length prefix to
// payload, for the rare caller that wants to hand-frame outgoing
// bytes directly rather than through a Protocol/Transport pair (only
// the tests use it).
func encodeFrame(payload []byte) []byte {
	out := make([]byte, frameHeaderSize+len(payload))
	binary.BigEndian.PutUint32(out[:frameHeaderSize], uint32(len(payload)))
	copy(out[frameHeaderSize:], payload)
	return out
}
