package asyncserial

import "context"

// CallbackEngine is a serial engine whose read side is driven entirely by a
// caller-supplied callback. It is a thin veneer over Engine that pairs the
// callback registration with the engine lifecycle: Close always detaches the
// callback before tearing the engine down, so no delivery can race teardown.
type CallbackEngine struct {
	*Engine
}

// NewCallbackEngine creates a callback-driven serial engine. cb may be nil
// and registered later with SetCallback.
func NewCallbackEngine(ctx context.Context, cfg *Config, cb ReadCallback) *CallbackEngine {
	e := &CallbackEngine{Engine: NewEngine(ctx, cfg)}
	e.SetReadCallback(cb)

	return e
}

// SetCallback registers cb as the receiver of incoming bytes, replacing any
// previous callback.
func (e *CallbackEngine) SetCallback(cb ReadCallback) {
	e.SetReadCallback(cb)
}

// ClearCallback removes the registered callback.
func (e *CallbackEngine) ClearCallback() {
	e.ClearReadCallback()
}

// Close detaches the read callback, then stops the engine.
func (e *CallbackEngine) Close() error {
	e.ClearReadCallback()

	return e.Engine.Close()
}
