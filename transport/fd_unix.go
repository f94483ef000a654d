//go:build linux || darwin || freebsd || dragonfly || netbsd || openbsd

package transport

import (
	"io"

	"golang.org/x/sys/unix"

	"github.com/sphinxmux/nbrpc/reactor"
)

func rawFDRead(fd int, p []byte) (int, error) {
	n, err := unix.Read(fd, p)
	if err != nil {
		if err == unix.EAGAIN {
			return 0, reactor.ErrWouldBlock
		}
		return 0, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

func closeFD(fd int) {
	_ = unix.Close(fd)
}
