package transport

import (
	"fmt"
	"net"
	"syscall"
)

// fdConn adapts a net.Conn backed by a real file descriptor (TCP or
// Unix-domain) into reactor.FDConn. The fd is extracted once, via
// SyscallConn, and cached: the Reactor needs it outside of any read
// deadline or blocking call, to register directly with epoll/kqueue.
type fdConn struct {
	net.Conn
	fd int
}

func newFDConn(conn net.Conn) (*fdConn, error) {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return nil, fmt.Errorf("transport: %T is not fd-backed", conn)
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return nil, fmt.Errorf("transport: SyscallConn: %w", err)
	}
	var fd int
	var ctrlErr error
	err = raw.Control(func(u uintptr) {
		fd, ctrlErr = dupFD(int(u))
	})
	if err != nil {
		return nil, fmt.Errorf("transport: raw control: %w", err)
	}
	if ctrlErr != nil {
		return nil, fmt.Errorf("transport: dup fd: %w", ctrlErr)
	}
	return &fdConn{Conn: conn, fd: fd}, nil
}

// dupFD duplicates fd so the reactor can own a descriptor whose
// lifetime it controls independently of net.Conn's internal runtime
// pollFD bookkeeping. It does not change the fd's blocking mode; the
// Reactor sets it non-blocking when it registers the connection.
func dupFD(fd int) (int, error) {
	newFd, err := syscall.Dup(fd)
	if err != nil {
		return -1, err
	}
	return newFd, nil
}

func (c *fdConn) FD() int {
	return c.fd
}

// Read satisfies reactor.Connection's nonblocking contract by reading
// directly off the duplicated fd rather than through net.Conn (whose
// Read would block using the runtime netpoller). The Reactor itself
// does not call it: it reads fd-backed connections through FD()
// directly, after the poller reports the fd readable.
func (c *fdConn) Read(p []byte) (int, error) {
	return rawFDRead(c.fd, p)
}

func (c *fdConn) Close() error {
	closeFD(c.fd)
	return c.Conn.Close()
}
