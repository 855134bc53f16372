package asyncserial

// reactor is the event-loop execution model. A single background goroutine
// services drain requests and polls the device for incoming bytes, so every
// read delivery and the whole drain protocol run serially on one goroutine.
//
// The reactor owns its session's task manager, port reference, and read
// buffer; a stale loop left over from a timed-out close therefore cannot
// touch the resources of a reopened session.
type reactor struct {
	engine *Engine
	tasks  *taskManager
	port   Port
	buf    []byte

	// drainReq carries write-drain requests into the event loop. Capacity 1
	// with a non-blocking send coalesces bursts of Write calls into a single
	// drain, which transmits the whole queue anyway.
	drainReq chan struct{}
}

func newReactor(e *Engine, tasks *taskManager) *reactor {
	return &reactor{
		engine:   e,
		tasks:    tasks,
		drainReq: make(chan struct{}, 1),
	}
}

func (r *reactor) start() error {
	r.port = r.engine.getPort()
	if r.port == nil {
		return errPortReleased
	}

	// a bounded poll keeps the loop responsive to drain requests and
	// cancellation while the line is idle
	if err := r.port.SetReadTimeout(r.engine.cfg.PollTimeout()); err != nil {
		return err
	}

	r.buf = make([]byte, r.engine.cfg.ReadBufferSize())

	// transmit anything queued before the device came up
	r.scheduleWrite()

	return r.tasks.Start("eventLoop", r.iteration, r.teardown)
}

func (r *reactor) scheduleWrite() {
	select {
	case r.drainReq <- struct{}{}:
	default:
	}
}

// iteration runs one turn of the event loop: pending drain requests win over
// polling the device for reads. Cancellation is observed by the surrounding
// task loop between iterations.
func (r *reactor) iteration() bool {
	select {
	case <-r.drainReq:
		return r.engine.drainWriteQueue(true)
	default:
		return r.pollRead()
	}
}

// pollRead performs one bounded read. A timed-out poll returns (0, nil) and
// simply re-arms.
func (r *reactor) pollRead() bool {
	n, err := r.port.Read(r.buf)
	if n > 0 {
		r.engine.dispatchRead(r.buf[:n], n)
	}

	if err != nil {
		if r.engine.isRetryable(err) {
			r.engine.metrics.incRetryableReadErrCount()
			r.engine.logger.Debug("retryable read error", "device", r.engine.cfg.Device(), "error", err)

			return true
		}

		if r.engine.opened.Load() {
			r.engine.closeOnError(err)
		}

		return false
	}

	return true
}

// teardown runs when the event loop exits for any reason, including parent
// context cancellation, so an abandoned engine still releases the device. A
// session already superseded by a reopen leaves the engine alone.
func (r *reactor) teardown() {
	if r.engine.getExec() == executionContext(r) {
		r.engine.opened.Store(false)
		r.engine.closePort()
	}
}

func (r *reactor) cancelAndStop() error {
	r.tasks.Stop()

	return r.tasks.WaitTimeout(r.engine.cfg.CloseTimeout())
}
