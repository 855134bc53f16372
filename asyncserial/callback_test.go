package asyncserial

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestCallbackEngine(t *testing.T, opener Opener, cb ReadCallback) *CallbackEngine {
	t.Helper()

	cfg, err := NewConfig("/dev/fake0", 115200,
		WithOpener(opener),
		WithExecutionModel(ModelReactor),
		WithPollTimeout(5*time.Millisecond),
		WithCloseTimeout(2*time.Second),
	)
	require.NoError(t, err)

	e := NewCallbackEngine(t.Context(), cfg, cb)
	t.Cleanup(func() {
		_ = e.Close()
	})

	return e
}

func TestCallbackEngine_Delivery(t *testing.T) {
	require := require.New(t)

	var mu sync.Mutex
	var received []byte

	opener := &fakeOpener{}
	e := newTestCallbackEngine(t, opener, func(data []byte, length int) {
		mu.Lock()
		received = append(received, data[:length]...)
		mu.Unlock()
	})

	require.NoError(e.Open())

	opener.lastPort().injectRead([]byte("ping"))

	require.Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return string(received) == "ping"
	}, time.Second, time.Millisecond)
}

func TestCallbackEngine_LateRegistration(t *testing.T) {
	require := require.New(t)

	opener := &fakeOpener{}
	e := newTestCallbackEngine(t, opener, nil)

	require.NoError(e.Open())

	var mu sync.Mutex
	var received []byte
	e.SetCallback(func(data []byte, length int) {
		mu.Lock()
		received = append(received, data[:length]...)
		mu.Unlock()
	})

	opener.lastPort().injectRead([]byte("late"))

	require.Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return string(received) == "late"
	}, time.Second, time.Millisecond)
}

func TestCallbackEngine_CloseDetachesCallback(t *testing.T) {
	require := require.New(t)

	opener := &fakeOpener{}
	e := newTestCallbackEngine(t, opener, func(_ []byte, _ int) {})

	require.NoError(e.Open())
	require.NoError(e.Close())

	// teardown detached the callback; nothing is registered afterwards
	require.Nil(e.callback.Load())
}
