package asyncserial

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/arloliu/go-asyncserial/internal/queue"
	"github.com/arloliu/go-asyncserial/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"go.bug.st/serial"
)

// ReadCallback is invoked by the engine's background execution context for
// every chunk of bytes read from the device. data holds the received bytes
// and length is the number of valid bytes in data.
//
// The callback runs on the engine's background goroutine; data is only valid
// for the duration of the call. Callbacks must copy data if they retain it,
// and must not block for long or incoming bytes back up.
type ReadCallback func(data []byte, length int)

// Engine is an asynchronous serial-port communication engine.
//
// An Engine is created closed; Open acquires the device and starts the
// background execution context, Close tears both down. The zero Engine is
// not usable, use NewEngine.
//
// All methods are safe for concurrent use.
type Engine struct {
	pctx   context.Context
	cfg    *Config
	logger logger.Logger

	// lifecycleMutex serializes Open and Close.
	lifecycleMutex sync.Mutex

	portMutex sync.Mutex
	port      Port

	opened atomic.Bool

	// errMutex guards errFlag. Reads vastly outnumber writes: ErrorStatus is
	// polled by callers while the flag only flips on open and on failure.
	errMutex *xsync.RBMutex
	errFlag  bool

	callback atomic.Pointer[ReadCallback]

	// queueMutex guards writeQueue and the in-flight slot. inflight is
	// non-nil exactly while a drained buffer is being transmitted.
	queueMutex sync.Mutex
	writeQueue *queue.ByteQueue
	inflight   []byte

	execMutex sync.Mutex
	exec      executionContext

	metrics EngineMetrics
}

// NewEngine creates a serial engine with the given parent context and
// configuration. The engine starts closed; call Open to acquire the device.
func NewEngine(ctx context.Context, cfg *Config) *Engine {
	l := cfg.GetLogger()

	return &Engine{
		pctx:       ctx,
		cfg:        cfg,
		logger:     l,
		errMutex:   xsync.NewRBMutex(),
		writeQueue: queue.NewByteQueue(cfg.ReadBufferSize()),
	}
}

// Open acquires the device and starts the background execution context.
//
// If the engine is already open it is closed first; a failure of that
// implicit close is logged and does not abort the open. Bytes queued by
// Write before Open are transmitted once the device is up.
//
// On success the error flag is cleared. On failure the flag stays raised and
// the returned error wraps ErrOpenFailed.
func (e *Engine) Open() error {
	e.lifecycleMutex.Lock()
	defer e.lifecycleMutex.Unlock()

	if e.opened.Load() {
		if err := e.doClose(); err != nil {
			e.logger.Warn("failed to close device before reopen", "device", e.cfg.Device(), "error", err)
		}
	}

	// raised until the open sequence completes
	e.setErrorStatus(true)

	port, err := e.cfg.opener.OpenPort(e.cfg)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrOpenFailed, e.cfg.Device(), err)
	}

	e.setPort(port)

	e.queueMutex.Lock()
	e.inflight = nil
	e.queueMutex.Unlock()

	// each session gets its own task manager, so a close that timed out
	// waiting for a stale background task cannot wedge this open
	tasks := newTaskManager(e.pctx, e.logger)

	var exec executionContext
	switch e.cfg.Model() {
	case ModelBlockingWorker:
		exec = newBlockingWorker(e, tasks)
	default:
		exec = newReactor(e, tasks)
	}
	e.setExec(exec)

	// the execution context classifies errors by the opened flag, so it must
	// be set before the background task can observe any failure
	e.opened.Store(true)

	if err := exec.start(); err != nil {
		e.opened.Store(false)
		e.setExec(nil)
		e.closePort()

		return fmt.Errorf("%w: %s: %w", ErrOpenFailed, e.cfg.Device(), err)
	}

	e.setErrorStatus(false)
	e.metrics.incOpenCount()
	e.logger.Debug("device opened", "device", e.cfg.Device(), "model", e.cfg.Model())

	return nil
}

// Close stops the background execution context and releases the device.
//
// Close is a no-op on a closed engine. It returns ErrCloseFailed (possibly
// joined with other teardown errors) when an I/O error surfaced during the
// session or the teardown itself; the device handle is released regardless.
func (e *Engine) Close() error {
	e.lifecycleMutex.Lock()
	defer e.lifecycleMutex.Unlock()

	return e.doClose()
}

// doClose runs the teardown sequence. Caller holds lifecycleMutex.
func (e *Engine) doClose() error {
	if !e.opened.Load() {
		return nil
	}

	// mark closed first so background failures during teardown are benign
	e.opened.Store(false)

	var errs []error

	if exec := e.getExec(); exec != nil {
		if err := exec.cancelAndStop(); err != nil {
			errs = append(errs, err)
		}
		e.setExec(nil)
	}

	e.closePort()

	if e.ErrorStatus() {
		errs = append(errs, ErrCloseFailed)
	}

	e.logger.Debug("device closed", "device", e.cfg.Device())

	return errors.Join(errs...)
}

// closePort releases the device handle if still held. Safe to call multiple
// times and from any goroutine.
func (e *Engine) closePort() {
	e.portMutex.Lock()
	port := e.port
	e.port = nil
	e.portMutex.Unlock()

	if port == nil {
		return
	}

	if err := port.Close(); err != nil {
		e.logger.Error("failed to close device", "device", e.cfg.Device(), "error", err)
		e.setErrorStatus(true)
	}
}

// closeOnError is the involuntary teardown path: a fatal background I/O
// error raises the error flag and forces the engine closed.
func (e *Engine) closeOnError(err error) {
	e.logger.Error("device I/O error", "device", e.cfg.Device(), "error", err)
	e.metrics.incIOErrorCount()
	e.setErrorStatus(true)
	e.opened.Store(false)
	e.closePort()
}

// Write queues p for background transmission and returns immediately.
//
// The bytes are copied; the caller may reuse p. Bytes from successive Write
// calls are transmitted in call order. Transmission failures surface through
// ErrorStatus, not here.
func (e *Engine) Write(p []byte) {
	if len(p) == 0 {
		return
	}

	e.queueMutex.Lock()
	e.writeQueue.Append(p)
	e.queueMutex.Unlock()

	if exec := e.getExec(); exec != nil {
		exec.scheduleWrite()
	}
}

// WriteString queues the bytes of s for background transmission. See Write.
func (e *Engine) WriteString(s string) {
	if len(s) == 0 {
		return
	}

	e.queueMutex.Lock()
	e.writeQueue.AppendString(s)
	e.queueMutex.Unlock()

	if exec := e.getExec(); exec != nil {
		exec.scheduleWrite()
	}
}

// drainWriteQueue transmits the pending byte queue, chaining drains until the
// queue is observed empty. At most one in-flight buffer exists at any time.
//
// closeOnErr selects the failure policy: true forces the engine closed on a
// write error (reactor), false only raises the error flag (blocking worker).
// The return value reports whether the execution context should keep running.
func (e *Engine) drainWriteQueue(closeOnErr bool) bool {
	e.queueMutex.Lock()
	if e.inflight != nil {
		// a previous drain is still transmitting
		e.queueMutex.Unlock()

		return true
	}
	e.queueMutex.Unlock()

	for {
		e.queueMutex.Lock()
		if e.writeQueue.IsEmpty() {
			e.inflight = nil
			e.queueMutex.Unlock()

			return true
		}
		e.inflight = e.writeQueue.TakeAll()
		data := e.inflight
		e.queueMutex.Unlock()

		n, err := e.writeAll(data)
		if err != nil {
			e.queueMutex.Lock()
			e.inflight = nil
			e.queueMutex.Unlock()

			if errors.Is(err, errPortReleased) || !e.opened.Load() {
				// teardown in progress, nothing to report
				return false
			}

			if closeOnErr {
				e.closeOnError(err)

				return false
			}

			e.logger.Error("device write error", "device", e.cfg.Device(), "error", err)
			e.metrics.incIOErrorCount()
			e.setErrorStatus(true)

			return true
		}

		e.metrics.addBytesWritten(n)
		e.metrics.incWriteDrainCount()
	}
}

// writeAll writes data to the port, retrying on partial writes.
func (e *Engine) writeAll(data []byte) (int, error) {
	port := e.getPort()
	if port == nil {
		return 0, errPortReleased
	}

	written := 0
	for written < len(data) {
		n, err := port.Write(data[written:])
		written += n
		if err != nil {
			return written, err
		}
	}

	return written, nil
}

// dispatchRead delivers a received chunk to the registered callback, if any.
// A panicking callback is logged and does not take down the background task.
func (e *Engine) dispatchRead(data []byte, n int) {
	e.metrics.addBytesRead(n)
	e.metrics.incReadChunkCount()

	cb := e.callback.Load()
	if cb == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("panic in read callback", "panic", r)
		}
	}()

	(*cb)(data, n)
}

// IsOpen reports whether the engine holds an open device with a running
// execution context.
func (e *Engine) IsOpen() bool {
	return e.opened.Load()
}

// ErrorStatus reports whether an error was raised since the last successful
// Open.
func (e *Engine) ErrorStatus() bool {
	token := e.errMutex.RLock()
	defer e.errMutex.RUnlock(token)

	return e.errFlag
}

func (e *Engine) setErrorStatus(flag bool) {
	e.errMutex.Lock()
	e.errFlag = flag
	e.errMutex.Unlock()
}

// SetReadCallback registers cb as the receiver of incoming bytes, replacing
// any previous callback. A nil cb clears the registration. The callback may
// be replaced while the engine is open.
func (e *Engine) SetReadCallback(cb ReadCallback) {
	if cb == nil {
		e.callback.Store(nil)

		return
	}

	e.callback.Store(&cb)
}

// ClearReadCallback removes the registered read callback. Subsequent
// incoming bytes are discarded.
func (e *Engine) ClearReadCallback() {
	e.callback.Store(nil)
}

// GetLogger returns the engine's logger.
func (e *Engine) GetLogger() logger.Logger {
	return e.logger
}

// GetMetrics returns the engine's metrics.
func (e *Engine) GetMetrics() *EngineMetrics {
	return &e.metrics
}

func (e *Engine) getPort() Port {
	e.portMutex.Lock()
	defer e.portMutex.Unlock()

	return e.port
}

func (e *Engine) setPort(p Port) {
	e.portMutex.Lock()
	e.port = p
	e.portMutex.Unlock()
}

func (e *Engine) getExec() executionContext {
	e.execMutex.Lock()
	defer e.execMutex.Unlock()

	return e.exec
}

func (e *Engine) setExec(exec executionContext) {
	e.execMutex.Lock()
	e.exec = exec
	e.execMutex.Unlock()
}

// isRetryable reports whether a read error is on the transient allow-list.
// PortError values from the default opener carry a code instead of a
// wrapped cause, so the code is translated before matching.
func (e *Engine) isRetryable(err error) bool {
	var portErr *serial.PortError
	if errors.As(err, &portErr) {
		if mapped := portCodeErrno(portErr.Code()); mapped != nil {
			err = mapped
		}
	}

	for _, target := range e.cfg.RetryableErrors() {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}
