//go:build !windows

package trace

import (
	"syscall"
	"time"
)

// isReadable reports whether fd has data available to read within timeout,
// implemented with select(2) as the platform layer's readiness check.
func isReadable(fd socketFD, timeout time.Duration) (bool, error) {
	n := socketFDInt(fd)
	var rfds syscall.FdSet
	fdSet(&rfds, n)

	tv := syscall.NsecToTimeval(timeout.Nanoseconds())
	for {
		nReady, err := syscallSelect(n+1, &rfds, nil, nil, &tv)
		if err == syscall.EINTR {
			continue
		}
		if err != nil {
			return false, newIoError("select failed", err)
		}
		return nReady > 0, nil
	}
}

// isWritable reports whether fd is ready for writing, which for a
// connecting TCP socket means the non-blocking connect has either completed
// or failed (the caller distinguishes the two via getSocketError).
func isWritable(fd socketFD) (bool, error) {
	n := socketFDInt(fd)
	var wfds syscall.FdSet
	fdSet(&wfds, n)

	tv := syscall.Timeval{}
	for {
		nReady, err := syscallSelect(n+1, nil, &wfds, nil, &tv)
		if err == syscall.EINTR {
			continue
		}
		if err != nil {
			return false, newIoError("select failed", err)
		}
		return nReady > 0, nil
	}
}

func fdSet(set *syscall.FdSet, fd int) {
	idx := fd / fdSetWordBits
	bit := uint(fd % fdSetWordBits)
	set.Bits[idx] |= 1 << bit
}

func syscallSelect(nfd int, r, w, e *syscall.FdSet, timeout *syscall.Timeval) (int, error) {
	return syscall.Select(nfd, r, w, e, timeout)
}
