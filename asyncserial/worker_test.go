package asyncserial

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWorker_SynchronousWrite(t *testing.T) {
	require := require.New(t)

	opener := &fakeOpener{}
	e := newTestEngine(t, opener, WithExecutionModel(ModelBlockingWorker))

	require.NoError(e.Open())

	// the worker model drains on the calling goroutine, so the bytes are on
	// the wire when Write returns
	e.Write([]byte("AB"))
	require.Equal([]byte("AB"), opener.lastPort().writtenBytes())

	e.WriteString("CD")
	require.Equal([]byte("ABCD"), opener.lastPort().writtenBytes())
}

func TestWorker_ReadDelivery(t *testing.T) {
	require := require.New(t)

	opener := &fakeOpener{}
	e := newTestEngine(t, opener, WithExecutionModel(ModelBlockingWorker))

	var mu sync.Mutex
	var received []byte
	e.SetReadCallback(func(data []byte, length int) {
		mu.Lock()
		received = append(received, data[:length]...)
		mu.Unlock()
	})

	require.NoError(e.Open())

	opener.lastPort().injectRead([]byte("hello"))

	require.Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return string(received) == "hello"
	}, time.Second, time.Millisecond)
}

func TestWorker_ReadErrorSetsFlagLoopContinues(t *testing.T) {
	require := require.New(t)

	opener := &fakeOpener{}
	e := newTestEngine(t, opener, WithExecutionModel(ModelBlockingWorker))

	var mu sync.Mutex
	var received []byte
	e.SetReadCallback(func(data []byte, length int) {
		mu.Lock()
		received = append(received, data[:length]...)
		mu.Unlock()
	})

	require.NoError(e.Open())

	port := opener.lastPort()
	port.injectReadErr(errors.New("framing error"))

	require.Eventually(func() bool {
		return e.ErrorStatus()
	}, time.Second, time.Millisecond)

	// the read loop survives the error and keeps delivering
	require.True(e.IsOpen())
	port.injectRead([]byte("still here"))

	require.Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return string(received) == "still here"
	}, time.Second, time.Millisecond)
}

func TestWorker_RetryableReadError(t *testing.T) {
	require := require.New(t)

	errTransient := errors.New("transient glitch")

	opener := &fakeOpener{}
	e := newTestEngine(t, opener,
		WithExecutionModel(ModelBlockingWorker),
		WithRetryableErrors(errTransient),
	)

	require.NoError(e.Open())

	opener.lastPort().injectReadErr(errTransient)

	require.Eventually(func() bool {
		return e.GetMetrics().RetryableReadErrCount.Load() == 1
	}, time.Second, time.Millisecond)
	require.False(e.ErrorStatus())
	require.True(e.IsOpen())
}

func TestWorker_CloseUnblocksRead(t *testing.T) {
	require := require.New(t)

	opener := &fakeOpener{}
	e := newTestEngine(t, opener, WithExecutionModel(ModelBlockingWorker))

	require.NoError(e.Open())

	// no data is pending, so the worker sits in a fully blocking read; Close
	// must release the handle to unblock it and still return clean
	done := make(chan error, 1)
	go func() {
		done <- e.Close()
	}()

	select {
	case err := <-done:
		require.NoError(err)
	case <-time.After(time.Second):
		t.Fatal("Close did not unblock the read loop")
	}

	require.False(e.IsOpen())
}

func TestWorker_WriteErrorSetsFlag(t *testing.T) {
	require := require.New(t)

	opener := &fakeOpener{}
	e := newTestEngine(t, opener, WithExecutionModel(ModelBlockingWorker))

	require.NoError(e.Open())

	opener.lastPort().failWrites(errors.New("line down"))
	e.Write([]byte("doomed"))

	// synchronous drain: the flag is already raised when Write returns
	require.True(e.ErrorStatus())
	require.True(e.IsOpen())
	require.Equal(uint64(1), e.GetMetrics().IOErrorCount.Load())
}
