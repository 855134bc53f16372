package asyncserial

import (
	"sync/atomic"
)

// EngineMetrics contains atomic metrics for a serial engine.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type EngineMetrics struct {
	// BytesRead indicates the total number of bytes delivered to the read
	// callback.
	BytesRead atomic.Uint64
	// BytesWritten indicates the total number of bytes written to the device.
	BytesWritten atomic.Uint64

	// ReadChunkCount indicates the number of read completions delivered.
	ReadChunkCount atomic.Uint64
	// WriteDrainCount indicates the number of queue drains transmitted.
	WriteDrainCount atomic.Uint64

	// RetryableReadErrCount indicates the number of transient read errors
	// that were retried.
	RetryableReadErrCount atomic.Uint64
	// IOErrorCount indicates the number of fatal I/O errors.
	IOErrorCount atomic.Uint64

	// OpenCount indicates the number of successful opens.
	OpenCount atomic.Uint64
}

func (m *EngineMetrics) addBytesRead(n int) {
	m.BytesRead.Add(uint64(n)) //nolint:gosec
}

func (m *EngineMetrics) addBytesWritten(n int) {
	m.BytesWritten.Add(uint64(n)) //nolint:gosec
}

func (m *EngineMetrics) incReadChunkCount() {
	m.ReadChunkCount.Add(1)
}

func (m *EngineMetrics) incWriteDrainCount() {
	m.WriteDrainCount.Add(1)
}

func (m *EngineMetrics) incRetryableReadErrCount() {
	m.RetryableReadErrCount.Add(1)
}

func (m *EngineMetrics) incIOErrorCount() {
	m.IOErrorCount.Add(1)
}

func (m *EngineMetrics) incOpenCount() {
	m.OpenCount.Add(1)
}
