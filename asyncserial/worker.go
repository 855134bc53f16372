package asyncserial

import "sync"

// blockingWorker is the blocking-read execution model. A single background
// goroutine performs fully blocking reads; writes happen synchronously on
// the calling goroutine. Used where a poll-driven loop cannot drive serial
// devices reliably.
//
// Like the reactor, the worker owns its session's task manager, port
// reference, and read buffer. Cancelling the parent context alone does not
// unblock a pending read; only closing the device does, which is why the
// close sequence releases the handle before joining the loop.
type blockingWorker struct {
	engine *Engine
	tasks  *taskManager
	port   Port
	buf    []byte

	// drainMutex serializes concurrent writers so at most one drain is in
	// flight at any time.
	drainMutex sync.Mutex
}

func newBlockingWorker(e *Engine, tasks *taskManager) *blockingWorker {
	return &blockingWorker{engine: e, tasks: tasks}
}

func (w *blockingWorker) start() error {
	w.port = w.engine.getPort()
	if w.port == nil {
		return errPortReleased
	}

	if err := w.port.SetReadTimeout(NoReadTimeout); err != nil {
		return err
	}

	w.buf = make([]byte, w.engine.cfg.ReadBufferSize())

	// transmit anything queued before the device came up
	w.scheduleWrite()

	return w.tasks.Start("readLoop", w.iteration, w.teardown)
}

// scheduleWrite drains the pending queue on the calling goroutine. A write
// failure raises the error flag but leaves the engine open; closing the
// device out from under a blocked read is the close sequence's job.
func (w *blockingWorker) scheduleWrite() {
	w.drainMutex.Lock()
	defer w.drainMutex.Unlock()

	w.engine.drainWriteQueue(false)
}

// iteration performs one blocking read. The loop only terminates when the
// engine leaves the open state: closing the port unblocks the pending read.
func (w *blockingWorker) iteration() bool {
	n, err := w.port.Read(w.buf)
	if n > 0 {
		w.engine.dispatchRead(w.buf[:n], n)
	}

	if err != nil {
		if !w.engine.opened.Load() {
			return false
		}

		if w.engine.isRetryable(err) {
			w.engine.metrics.incRetryableReadErrCount()
			w.engine.logger.Debug("retryable read error", "device", w.engine.cfg.Device(), "error", err)

			return true
		}

		w.engine.metrics.incIOErrorCount()
		w.engine.setErrorStatus(true)
		w.engine.logger.Error("device read error", "device", w.engine.cfg.Device(), "error", err)

		return true
	}

	return true
}

// teardown runs when the read loop exits; see the reactor counterpart.
func (w *blockingWorker) teardown() {
	if w.engine.getExec() == executionContext(w) {
		w.engine.opened.Store(false)
		w.engine.closePort()
	}
}

// cancelAndStop releases the device first: a blocking Read only returns once
// the handle is closed.
func (w *blockingWorker) cancelAndStop() error {
	w.engine.closePort()
	w.tasks.Stop()

	return w.tasks.WaitTimeout(w.engine.cfg.CloseTimeout())
}
