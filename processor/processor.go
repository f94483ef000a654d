// Package processor defines the opaque request-dispatcher contract
// the core Worker invokes per frame (SPEC_FULL.md §1, §6.2) and ships
// one demonstration implementation. The core never inspects a
// Processor beyond calling Process; nothing in reactor imports this
// package's concrete types, only the interface.
package processor

import "github.com/sphinxmux/nbrpc/protocol"

// Processor is handed a decoded request stream and an encoder for the
// response stream, and must not assume it is only ever invoked from
// one goroutine at a time: frames from the same connection may be
// processed concurrently by different workers (SPEC_FULL.md §6.2).
type Processor interface {
	Process(in protocol.Protocol, out protocol.Protocol) error
}
