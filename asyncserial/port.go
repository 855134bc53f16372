package asyncserial

import (
	"io"
	"time"
)

// NoReadTimeout disables the read poll timeout: Read blocks until data
// arrives or the port is closed. Used by the blocking-worker model.
const NoReadTimeout time.Duration = -1

// Port represents an open, configured serial device.
//
// A Port is assumed to be ready for raw byte I/O. Typical implementations
// are real serial ports (see the default opener), pseudo-terminals, or
// in-memory fakes used for testing.
//
// Close must unblock any in-progress Read; the engine's close sequence
// relies on it.
type Port interface {
	io.ReadWriteCloser

	// SetReadTimeout sets the maximum time a Read blocks waiting for data.
	// A timed-out Read returns (0, nil). NoReadTimeout restores fully
	// blocking reads.
	SetReadTimeout(t time.Duration) error
}

// Opener acquires a Port for the device described by cfg, applying the
// configured line parameters (baud rate, parity, character size, flow
// control, stop bits).
//
// Opener abstracts how the device is acquired so tests and exotic
// transports can substitute their own; it is consulted during
// [Engine.Open] only.
type Opener interface {
	OpenPort(cfg *Config) (Port, error)
}
