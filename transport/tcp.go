// Package transport provides the concrete ServerTransport/Connection
// implementations the Acceptor and Reactor consume (SPEC_FULL.md §6.4,
// §8): a default fd-backed TCP/Unix listener plus the WebSocket and
// QUIC alternates bridged through reactor.Bridge.
package transport

import (
	"fmt"
	"net"
	"sync"

	"github.com/sphinxmux/nbrpc/reactor"
)

// TCPServerTransport listens on a TCP or Unix-domain address and hands
// back fd-backed connections the Reactor can register directly with
// epoll/kqueue via reactor.FDConn.
type TCPServerTransport struct {
	Network string // "tcp" or "unix"
	Address string

	mu sync.Mutex
	ln net.Listener
}

func NewTCPServerTransport(network, address string) *TCPServerTransport {
	if network == "" {
		network = "tcp"
	}
	return &TCPServerTransport{Network: network, Address: address}
}

func (t *TCPServerTransport) Listen() error {
	ln, err := net.Listen(t.Network, t.Address)
	if err != nil {
		return fmt.Errorf("transport: listen %s %s: %w", t.Network, t.Address, err)
	}
	t.mu.Lock()
	t.ln = ln
	t.mu.Unlock()
	return nil
}

func (t *TCPServerTransport) Accept() (reactor.Connection, error) {
	t.mu.Lock()
	ln := t.ln
	t.mu.Unlock()
	if ln == nil {
		return nil, fmt.Errorf("transport: Accept called before Listen")
	}
	conn, err := ln.Accept()
	if err != nil {
		return nil, err
	}
	return newFDConn(conn)
}

func (t *TCPServerTransport) Close() error {
	t.mu.Lock()
	ln := t.ln
	t.mu.Unlock()
	if ln == nil {
		return nil
	}
	return ln.Close()
}

// Addr reports the transport's bound address; valid only after Listen.
func (t *TCPServerTransport) Addr() net.Addr {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ln == nil {
		return nil
	}
	return t.ln.Addr()
}
