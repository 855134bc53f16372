//go:build !unix

package asyncserial

import "go.bug.st/serial"

func defaultRetryableErrors() []error {
	return nil
}

func portCodeErrno(_ serial.PortErrorCode) error {
	return nil
}
