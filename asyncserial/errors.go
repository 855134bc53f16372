package asyncserial

import "errors"

// Sentinel errors for the serial engine.
var (
	// ErrOpenFailed indicates the device could not be opened or its line
	// parameters were rejected.
	ErrOpenFailed = errors.New("asyncserial: failed to open device")

	// ErrCloseFailed indicates an I/O error surfaced during teardown. The
	// device handle is released regardless.
	ErrCloseFailed = errors.New("asyncserial: error while closing the device")

	// ErrCloseTimeout indicates the background goroutine did not terminate
	// within the configured close timeout.
	ErrCloseTimeout = errors.New("asyncserial: close timeout waiting for background task")

	// ErrUnsupportedFlowControl indicates the configured opener cannot apply
	// the requested flow-control discipline.
	ErrUnsupportedFlowControl = errors.New("asyncserial: flow control mode not supported by opener")
)

// errPortReleased marks I/O attempted after the device handle was released
// by the close sequence. It is always suppressed, never surfaced.
var errPortReleased = errors.New("asyncserial: device already released")
