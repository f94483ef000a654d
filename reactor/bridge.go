package reactor

import (
	"io"
	"sync"
)

// Bridge adapts any io.ReadWriteCloser that is not file-descriptor
// backed (a WebSocket or QUIC stream — see transport/websocket.go and
// transport/quic.go) into the Connection interface, by running a
// background goroutine that performs blocking reads and stages the
// bytes for a nonblocking Read. It is the mechanism SPEC_FULL.md §5
// and §6.3 describe for unifying the epoll fast path (FDConn) with
// readiness-stream transports under one Reactor demultiplexer: the
// Reactor learns of new data via Readable() rather than epoll.
type Bridge struct {
	raw io.ReadWriteCloser

	mu      sync.Mutex
	buf     []byte
	err     error // sticky terminal error, typically io.EOF
	readyCh chan struct{}
	doneCh  chan struct{}
	once    sync.Once
}

// NewBridge starts pumping raw in the background and returns the
// adapted Connection.
func NewBridge(raw io.ReadWriteCloser) *Bridge {
	b := &Bridge{
		raw:     raw,
		readyCh: make(chan struct{}, 1),
		doneCh:  make(chan struct{}),
	}
	go b.pump()
	return b
}

func (b *Bridge) pump() {
	scratch := make([]byte, defaultReadBufferSize)
	for {
		n, err := b.raw.Read(scratch)
		if n > 0 {
			b.mu.Lock()
			b.buf = append(b.buf, scratch[:n]...)
			b.mu.Unlock()
			b.ping()
		}
		if err != nil {
			b.mu.Lock()
			if b.err == nil {
				b.err = err
			}
			b.mu.Unlock()
			b.ping()
			return
		}
	}
}

func (b *Bridge) ping() {
	select {
	case b.readyCh <- struct{}{}:
	default:
	}
}

// Readable fires whenever new bytes have landed, or the underlying
// stream has reached a terminal error/EOF.
func (b *Bridge) Readable() <-chan struct{} {
	return b.readyCh
}

// Done fires once this Bridge has been closed.
func (b *Bridge) Done() <-chan struct{} {
	return b.doneCh
}

func (b *Bridge) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.buf) > 0 {
		n := copy(p, b.buf)
		b.buf = b.buf[n:]
		return n, nil
	}
	if b.err != nil {
		return 0, b.err
	}
	return 0, ErrWouldBlock
}

func (b *Bridge) Write(p []byte) (int, error) {
	return b.raw.Write(p)
}

func (b *Bridge) Close() error {
	var err error
	b.once.Do(func() {
		close(b.doneCh)
		err = b.raw.Close()
	})
	return err
}
