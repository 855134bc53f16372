//go:build unix

package asyncserial

import (
	"go.bug.st/serial"
	"golang.org/x/sys/unix"
)

// defaultRetryableErrors returns the error codes treated as transient read
// failures: the read is retried with no other state change.
func defaultRetryableErrors() []error {
	return []error{unix.EINTR, unix.EBUSY}
}

// portCodeErrno translates a go.bug.st/serial error code onto the errno
// vocabulary of the retryable allow-list. PortError exposes no Unwrap, so
// code translation is the only way to match it against errno entries.
func portCodeErrno(code serial.PortErrorCode) error {
	if code == serial.PortBusy {
		return unix.EBUSY
	}

	return nil
}
