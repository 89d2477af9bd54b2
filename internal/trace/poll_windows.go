//go:build windows

package trace

import (
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	pollIn  = 0x0100
	pollOut = 0x0010
)

type wsaPollFd struct {
	fd      syscall.Handle
	events  int16
	revents int16
}

var procWSAPoll = modws2_32.NewProc("WSAPoll")

func wsaPoll(fds []wsaPollFd, timeoutMs int32) (int, error) {
	r1, _, e1 := procWSAPoll.Call(
		uintptr(unsafe.Pointer(&fds[0])),
		uintptr(len(fds)),
		uintptr(timeoutMs),
	)
	n := int(int32(r1))
	if n < 0 {
		if e1 != windows.Errno(0) {
			return 0, e1
		}
		return 0, syscall.EINVAL
	}
	return n, nil
}

// isReadable reports whether fd has data available to read within timeout,
// implemented with WSAPoll as the platform layer's readiness check.
func isReadable(fd socketFD, timeout time.Duration) (bool, error) {
	fds := []wsaPollFd{{fd: syscall.Handle(fd), events: pollIn}}
	n, err := wsaPoll(fds, int32(timeout.Milliseconds()))
	if err != nil {
		return false, newIoError("WSAPoll failed", err)
	}
	return n > 0 && fds[0].revents&pollIn != 0, nil
}

// isWritable reports whether fd is ready for writing (connect completed or
// failed).
func isWritable(fd socketFD) (bool, error) {
	fds := []wsaPollFd{{fd: syscall.Handle(fd), events: pollOut}}
	n, err := wsaPoll(fds, 0)
	if err != nil {
		return false, newIoError("WSAPoll failed", err)
	}
	return n > 0 && fds[0].revents&pollOut != 0, nil
}
