package asyncserial

// executionContext is the background execution model driving device I/O for
// one open session. A fresh executionContext is created on every successful
// Open and discarded on Close.
type executionContext interface {
	// start arms the context on the current port and launches its background
	// task. Any bytes already queued before start are scheduled for
	// transmission.
	start() error

	// scheduleWrite requests transmission of the pending byte queue. It must
	// be safe to call from any goroutine.
	scheduleWrite()

	// cancelAndStop terminates the background task, waiting up to the
	// configured close timeout. The device handle is released by the
	// model's teardown on loop exit, or by the close sequence.
	cancelAndStop() error
}
