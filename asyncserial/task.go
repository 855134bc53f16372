package asyncserial

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-asyncserial/internal/pool"
	"github.com/arloliu/go-asyncserial/logger"
)

// taskFunc represents a function that performs one iteration of a task within
// a goroutine managed by the taskManager. It should return true to continue
// running the task, or false to stop the goroutine.
type taskFunc func() bool

// taskCancelFunc is called when a goroutine managed by the taskManager exits
// or is canceled. It is used to release resources tied to the task.
type taskCancelFunc func()

// taskManager manages the lifecycle of the engine's background goroutine.
// It provides a structured way to start, stop, and wait for the goroutine,
// ensuring proper cancellation and cleanup.
//
// A context.Context governs the goroutine lifecycle: cancellation signals
// the task loop to stop, and Wait blocks until it has terminated. Wait also
// recreates the context from the parent so the manager is reusable across
// open/close cycles.
type taskManager struct {
	pctx   context.Context
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger logger.Logger
	count  atomic.Int32
	mu     sync.RWMutex // protect ctx and cancel
	taskMu sync.RWMutex // protect task creation during Wait()
}

// newTaskManager creates a new taskManager with the given context as the
// parent context and logger.
func newTaskManager(ctx context.Context, l logger.Logger) *taskManager {
	mgr := &taskManager{pctx: ctx, logger: l}
	mgr.ctx, mgr.cancel = context.WithCancel(ctx)

	return mgr
}

// getContext safely returns the current context.
func (mgr *taskManager) getContext() context.Context {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()

	return mgr.ctx
}

// Start starts a new goroutine with the given name and task function.
//
// The taskFunc should return true to continue running, or false to stop the
// goroutine. The cancelFn, if non-nil, runs when the goroutine exits for any
// reason, including context cancellation.
func (mgr *taskManager) Start(name string, fn taskFunc, cancelFn taskCancelFunc) error {
	mgr.logger.Debug("Start task", "name", name)

	starter, err := mgr.newTaskStarter(name)
	if err != nil {
		return err
	}

	starter.startTask(func() {
		if cancelFn != nil {
			defer cancelFn()
		}

		mgr.runTaskLoop(fn)
	})

	return starter.waitForStart()
}

// Stop signals all running goroutines.
func (mgr *taskManager) Stop() {
	mgr.mu.Lock()
	if mgr.cancel != nil {
		mgr.cancel()
	}
	mgr.mu.Unlock()
}

// Wait waits for all goroutines to terminate.
func (mgr *taskManager) Wait() {
	mgr.taskMu.Lock()
	defer mgr.taskMu.Unlock()

	// wait all tasks be terminated
	mgr.wg.Wait()

	// recreate context with lock
	mgr.mu.Lock()
	mgr.ctx, mgr.cancel = context.WithCancel(mgr.pctx)
	mgr.mu.Unlock()
}

// WaitTimeout waits up to d for all goroutines to terminate. It returns
// ErrCloseTimeout when the deadline expires first; the goroutines keep
// draining in the background in that case.
func (mgr *taskManager) WaitTimeout(d time.Duration) error {
	done := make(chan struct{})
	go func() {
		mgr.Wait()
		close(done)
	}()

	timer := pool.GetTimer(d)
	defer pool.PutTimer(timer)

	select {
	case <-done:
		return nil
	case <-timer.C:
		return ErrCloseTimeout
	}
}

// TaskCount returns the number of currently running goroutines.
func (mgr *taskManager) TaskCount() int {
	return int(mgr.count.Load())
}

// taskStarter encapsulates common startup logic.
type taskStarter struct {
	mgr     *taskManager
	name    string
	started chan error
}

func (mgr *taskManager) newTaskStarter(name string) (*taskStarter, error) {
	ctx := mgr.getContext()

	// check if already cancelled
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("task manager already stopped")
	default:
	}

	return &taskStarter{
		mgr:     mgr,
		name:    name,
		started: make(chan error, 1),
	}, nil
}

// startTask runs the common startup sequence for all tasks.
func (s *taskStarter) startTask(taskBody func()) {
	s.mgr.taskMu.RLock()
	defer s.mgr.taskMu.RUnlock()

	s.mgr.wg.Add(1)

	go func() {
		defer s.mgr.wg.Done()

		// signal startup status
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.started <- fmt.Errorf("panic during startup: %v", r)
				}
			}()

			s.mgr.count.Add(1)
			s.started <- nil
		}()

		// setup cleanup
		defer func() {
			s.mgr.count.Add(-1)
			s.mgr.logger.Debug(fmt.Sprintf("%s task terminated", s.name), "task_count", s.mgr.TaskCount())
		}()

		// run the actual task body
		taskBody()
	}()
}

// waitForStart waits for the task to start with timeout.
func (s *taskStarter) waitForStart() error {
	ctx := s.mgr.getContext()

	select {
	case err := <-s.started:
		if err != nil {
			s.mgr.wg.Done() // compensate for failed start
			return fmt.Errorf("failed to start %s: %w", s.name, err)
		}

		return nil

	case <-time.After(5 * time.Second):
		return fmt.Errorf("timeout waiting for %s to start", s.name)

	case <-ctx.Done():
		return fmt.Errorf("context cancelled while starting %s", s.name)
	}
}

// runTaskLoop runs a task function in a loop with context cancellation.
func (mgr *taskManager) runTaskLoop(fn taskFunc) {
	defer func() {
		if r := recover(); r != nil {
			mgr.logger.Error("panic in task loop", "panic", r)
		}
	}()

	for {
		ctx := mgr.getContext()
		select {
		case <-ctx.Done():
			return
		default:
			if !fn() {
				return
			}
		}
	}
}
