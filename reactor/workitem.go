package reactor

// workItem is a unit handed from the Reactor to the worker pool
// (SPEC_FULL.md §5). A zero-value workItem with shutdown == true
// carries no connection/payload and simply tells the receiving worker
// to exit its loop.
type workItem struct {
	shutdown bool
	conn     Connection
	payload  []byte
}

// signalKind tags a controlSignal.
type signalKind int

const (
	// signalConnection registers a newly accepted connection.
	signalConnection signalKind = iota
	// signalShutdown begins the drain-and-stop sequence.
	signalShutdown
	// signalReadable reports that a non-fd-backed (bridged)
	// connection has bytes ready. This is this implementation's
	// extension of the control-signal sum type described in
	// SPEC_FULL.md §5, unifying the epoll fast path and the
	// WebSocket/QUIC bridge under one readiness demultiplexer.
	signalReadable
)

// controlSignal is the tagged record queued from any producer to the
// Reactor (SPEC_FULL.md §5). Connection identity for signalReadable is
// the Connection value itself: concrete connections are always
// pointers, so they are comparable and usable as the Reactor's
// bookkeeping map key.
type controlSignal struct {
	kind    signalKind
	conn    Connection // signalConnection, signalReadable
	timeout float64    // signalShutdown: seconds, see REDESIGN FLAG 2
}
