//go:build linux

package reactor

import (
	"fmt"
	"io"

	"golang.org/x/sys/unix"
)

// poller is the Reactor's readiness primitive: wait on a dynamic set
// of file descriptors for readability, interruptible via the self-pipe
// fd registered like any other (the three properties the Reactor
// relies on). On Linux this is epoll, the
// same mechanism the pack's own epoll-reactor idiom
// (the retrieved gnet-style server_unix.go) uses.
type poller struct {
	epfd   int
	events []unix.EpollEvent
}

func newPoller() (*poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("reactor: epoll_create1: %w", err)
	}
	return &poller{epfd: epfd, events: make([]unix.EpollEvent, 128)}, nil
}

func (p *poller) Add(fd int) error {
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

func (p *poller) Remove(fd int) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

// Wait blocks until at least one registered fd is readable (or
// timeoutMs elapses, -1 meaning forever) and returns the readable
// fds.
func (p *poller) Wait(timeoutMs int) ([]int, error) {
	for {
		n, err := unix.EpollWait(p.epfd, p.events, timeoutMs)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return nil, err
		}
		ready := make([]int, 0, n)
		for i := 0; i < n; i++ {
			ready = append(ready, int(p.events[i].Fd))
		}
		return ready, nil
	}
}

func (p *poller) Close() error {
	return unix.Close(p.epfd)
}

// newWakePipe creates the self-pipe used to interrupt Wait. It is not
// a data channel, only a wakeup: the Reactor drains
// and discards every byte it finds there.
func newWakePipe() (r, w int, err error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return -1, -1, fmt.Errorf("reactor: pipe2: %w", err)
	}
	return fds[0], fds[1], nil
}

func setNonblocking(fd int) error {
	return unix.SetNonblock(fd, true)
}

func rawRead(fd int, p []byte) (int, error) {
	n, err := unix.Read(fd, p)
	if err != nil {
		if err == unix.EAGAIN {
			return 0, ErrWouldBlock
		}
		return 0, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

func drainPipe(fd int) {
	var scratch [64]byte
	for {
		n, err := unix.Read(fd, scratch[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

func closeFD(fd int) {
	_ = unix.Close(fd)
}

// wakeByte writes a single byte to the wake pipe's write end, kicking
// the Reactor out of a blocked Wait. EAGAIN means the pipe is already
// primed with an unread wakeup, which is just as good.
func wakeByte(fd int) {
	_, err := unix.Write(fd, []byte{0})
	if err != nil && err != unix.EAGAIN {
		_ = err
	}
}
