//go:build !darwin

package asyncserial

// The reactor event loop is the default wherever poll-driven reads work
// reliably on serial devices.
const defaultExecutionModel = ModelReactor
