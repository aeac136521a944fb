//go:build !linux && !darwin && (unix || aix || solaris)

package reactorcore

import (
	"golang.org/x/sys/unix"
)

// createWakeFd creates a self-pipe for owner-wake notifications, returning
// the read end and the write end. Platforms without eventfd (Linux) or a
// cheap syscall.Pipe (Darwin) fall back to the same pipe(2) primitive the
// poll(2) backend they pair with already assumes is available.
func createWakeFd() (int, int, error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return 0, 0, err
	}

	cleanup := func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	}

	unix.CloseOnExec(fds[0])
	unix.CloseOnExec(fds[1])

	if err := unix.SetNonblock(fds[0], true); err != nil {
		cleanup()
		return 0, 0, err
	}
	if err := unix.SetNonblock(fds[1], true); err != nil {
		cleanup()
		return 0, 0, err
	}

	return fds[0], fds[1], nil
}

func closeWakeFd(wakeFd, wakeWriteFd int) error {
	if wakeFd >= 0 {
		_ = unix.Close(wakeFd)
	}
	if wakeWriteFd >= 0 && wakeWriteFd != wakeFd {
		_ = unix.Close(wakeWriteFd)
	}
	return nil
}

// drainWakeFd reads and discards every pending notification on fd.
func drainWakeFd(fd int) {
	var buf [8]byte
	for {
		if _, err := unix.Read(fd, buf[:]); err != nil {
			return
		}
	}
}
