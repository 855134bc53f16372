package asyncserial

import (
	"bytes"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/arloliu/go-asyncserial/logger"
)

func TestMain(m *testing.M) {
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	var level logger.LogLevel
	switch logLevel {
	case "debug":
		level = logger.DebugLevel
	case "info":
		level = logger.InfoLevel
	case "warn":
		level = logger.WarnLevel
	case "error":
		level = logger.ErrorLevel
	default:
		level = logger.InfoLevel
	}

	logger.SetLevel(level)

	os.Exit(m.Run())
}

var errFakeClosed = errors.New("fake port closed")

type readItem struct {
	data []byte
	err  error
}

// fakePort is an in-memory Port. Reads are fed through an injection channel,
// writes accumulate in a buffer, and Close unblocks pending reads the way a
// real device handle does.
type fakePort struct {
	readCh    chan readItem
	closed    chan struct{}
	closeOnce sync.Once
	closeErr  error

	// readTimeout in nanoseconds; <= 0 blocks until data or close.
	readTimeout atomic.Int64

	writeMu    sync.Mutex
	written    bytes.Buffer
	writeErr   atomic.Pointer[error]
	writeDelay time.Duration

	inflight    atomic.Int32
	maxInflight atomic.Int32
}

var _ Port = (*fakePort)(nil)

func newFakePort() *fakePort {
	return &fakePort{
		readCh: make(chan readItem, 64),
		closed: make(chan struct{}),
	}
}

func (p *fakePort) Read(b []byte) (int, error) {
	var timeout <-chan time.Time
	if d := time.Duration(p.readTimeout.Load()); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case item := <-p.readCh:
		n := copy(b, item.data)
		return n, item.err
	case <-p.closed:
		return 0, errFakeClosed
	case <-timeout:
		return 0, nil
	}
}

func (p *fakePort) Write(b []byte) (int, error) {
	cur := p.inflight.Add(1)
	defer p.inflight.Add(-1)

	for {
		maxv := p.maxInflight.Load()
		if cur <= maxv || p.maxInflight.CompareAndSwap(maxv, cur) {
			break
		}
	}

	if p.writeDelay > 0 {
		time.Sleep(p.writeDelay)
	}

	if errp := p.writeErr.Load(); errp != nil {
		return 0, *errp
	}

	select {
	case <-p.closed:
		return 0, errFakeClosed
	default:
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	return p.written.Write(b)
}

func (p *fakePort) Close() error {
	p.closeOnce.Do(func() {
		close(p.closed)
	})

	return p.closeErr
}

func (p *fakePort) SetReadTimeout(t time.Duration) error {
	p.readTimeout.Store(int64(t))

	return nil
}

func (p *fakePort) injectRead(data []byte) {
	p.readCh <- readItem{data: data}
}

func (p *fakePort) injectReadErr(err error) {
	p.readCh <- readItem{err: err}
}

func (p *fakePort) isClosed() bool {
	select {
	case <-p.closed:
		return true
	default:
		return false
	}
}

func (p *fakePort) failWrites(err error) {
	p.writeErr.Store(&err)
}

func (p *fakePort) writtenBytes() []byte {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	out := make([]byte, p.written.Len())
	copy(out, p.written.Bytes())

	return out
}

// fakeOpener hands out a fresh fakePort per open so reopen tests see a clean
// device. makePort customizes the port before the engine touches it.
type fakeOpener struct {
	mu       sync.Mutex
	ports    []*fakePort
	openErr  error
	makePort func() *fakePort
}

var _ Opener = (*fakeOpener)(nil)

func (o *fakeOpener) OpenPort(_ *Config) (Port, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.openErr != nil {
		return nil, o.openErr
	}

	port := newFakePort()
	if o.makePort != nil {
		port = o.makePort()
	}
	o.ports = append(o.ports, port)

	return port, nil
}

func (o *fakeOpener) lastPort() *fakePort {
	o.mu.Lock()
	defer o.mu.Unlock()

	if len(o.ports) == 0 {
		return nil
	}

	return o.ports[len(o.ports)-1]
}

// newTestEngine creates an engine on the given opener with short timeouts
// suitable for tests.
func newTestEngine(t *testing.T, opener Opener, opts ...Option) *Engine {
	t.Helper()

	defaults := []Option{
		WithOpener(opener),
		WithPollTimeout(5 * time.Millisecond),
		WithCloseTimeout(2 * time.Second),
	}

	cfg, err := NewConfig("/dev/fake0", 115200, append(defaults, opts...)...)
	if err != nil {
		t.Fatalf("newTestEngine: %v", err)
	}

	e := NewEngine(t.Context(), cfg)
	t.Cleanup(func() {
		_ = e.Close()
	})

	return e
}
