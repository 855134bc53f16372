//go:build darwin

package asyncserial

// Poll-driven reads on serial devices are unreliable on this platform, so
// the blocking worker is the default.
const defaultExecutionModel = ModelBlockingWorker
