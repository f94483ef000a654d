package transport

import (
	"context"
	"crypto/tls"
	"fmt"

	quic "github.com/quic-go/quic-go"

	"github.com/sphinxmux/nbrpc/reactor"
)

// QUICServerTransport accepts one bidirectional QUIC stream per
// session and exposes it as a frame stream, following the same
// session-to-stream convention the pack's own QUIC proxy code (
// sockatz/common/conn.go) uses. Like WebSocketServerTransport it has
// no fd, so every accepted stream is wrapped in a reactor.Bridge.
type QUICServerTransport struct {
	Address   string
	TLSConfig *tls.Config

	ln     *quic.Listener
	doneCh chan struct{}
}

func NewQUICServerTransport(address string, tlsConfig *tls.Config) *QUICServerTransport {
	return &QUICServerTransport{Address: address, TLSConfig: tlsConfig, doneCh: make(chan struct{})}
}

func (t *QUICServerTransport) Listen() error {
	ln, err := quic.ListenAddr(t.Address, t.TLSConfig, nil)
	if err != nil {
		return fmt.Errorf("transport: quic listen: %w", err)
	}
	t.ln = ln
	return nil
}

func (t *QUICServerTransport) Accept() (reactor.Connection, error) {
	conn, err := t.ln.Accept(context.Background())
	if err != nil {
		select {
		case <-t.doneCh:
			return nil, fmt.Errorf("transport: quic transport closed")
		default:
			return nil, err
		}
	}
	stream, err := conn.AcceptStream(context.Background())
	if err != nil {
		return nil, fmt.Errorf("transport: quic accept stream: %w", err)
	}
	return reactor.NewBridge(&quicStream{stream}), nil
}

func (t *QUICServerTransport) Close() error {
	close(t.doneCh)
	if t.ln != nil {
		return t.ln.Close()
	}
	return nil
}

// quicStream narrows quic.Stream down to io.ReadWriteCloser for
// reactor.NewBridge, which wants nothing more.
type quicStream struct {
	quic.Stream
}
