//go:build darwin || freebsd || dragonfly || netbsd || openbsd

package reactor

import (
	"fmt"
	"io"

	"golang.org/x/sys/unix"
)

// poller mirrors poller_linux.go's contract using kqueue, the BSD
// family's equivalent readiness primitive.
type poller struct {
	kq     int
	events []unix.Kevent_t
}

func newPoller() (*poller, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, fmt.Errorf("reactor: kqueue: %w", err)
	}
	return &poller{kq: kq, events: make([]unix.Kevent_t, 128)}, nil
}

func (p *poller) Add(fd int) error {
	ev := unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_ADD}
	_, err := unix.Kevent(p.kq, []unix.Kevent_t{ev}, nil, nil)
	return err
}

func (p *poller) Remove(fd int) error {
	ev := unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_DELETE}
	_, err := unix.Kevent(p.kq, []unix.Kevent_t{ev}, nil, nil)
	return err
}

func (p *poller) Wait(timeoutMs int) ([]int, error) {
	var ts *unix.Timespec
	if timeoutMs >= 0 {
		t := unix.NsecToTimespec(int64(timeoutMs) * 1e6)
		ts = &t
	}
	for {
		n, err := unix.Kevent(p.kq, nil, p.events, ts)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return nil, err
		}
		ready := make([]int, 0, n)
		for i := 0; i < n; i++ {
			ready = append(ready, int(p.events[i].Ident))
		}
		return ready, nil
	}
}

func (p *poller) Close() error {
	return unix.Close(p.kq)
}

func newWakePipe() (r, w int, err error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return -1, -1, fmt.Errorf("reactor: pipe: %w", err)
	}
	if err := unix.SetNonblock(fds[0], true); err != nil {
		return -1, -1, err
	}
	if err := unix.SetNonblock(fds[1], true); err != nil {
		return -1, -1, err
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

// wakeByte mirrors poller_linux.go's wakeByte.
func wakeByte(fd int) {
	_, err := unix.Write(fd, []byte{0})
	if err != nil && err != unix.EAGAIN {
		_ = err
	}
}
