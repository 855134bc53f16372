// Package asyncserial provides an asynchronous serial-port communication
// engine: incoming bytes are delivered to a registered callback without
// blocking the caller, and outgoing bytes are queued and transmitted in the
// background.
//
// # Execution Models
//
// The engine runs one of two background execution models, selected once per
// [Engine] at construction time:
//
//   - Reactor (default on most platforms): a single background goroutine runs
//     an event loop that services write-drain requests and polls the device
//     for incoming bytes. All read deliveries and the whole write-drain
//     protocol execute serially on that one goroutine, so only the append to
//     the pending-byte queue needs a lock.
//   - Blocking worker: a single background goroutine performs blocking reads
//     in a loop. Writes are issued synchronously on the calling goroutine. It
//     is the default on platforms where a poll-driven loop cannot drive
//     serial devices reliably, and can be selected explicitly with
//     [WithExecutionModel].
//
// # Write Semantics
//
// In the reactor model [Engine.Write] never blocks and never fails: bytes are
// appended to a pending queue and the event loop drains the entire queue into
// a single in-flight buffer per transmission, chaining drains until the queue
// is empty. At most one write is outstanding at any time and all bytes are
// transmitted in append order. Transmission failures surface through
// [Engine.ErrorStatus], not through Write.
//
// # Error Model
//
// Lifecycle failures are returned from [Engine.Open] and [Engine.Close].
// Background I/O failures never cross the goroutine boundary as errors:
// they raise the engine's error flag and force an internal close, after
// which [Engine.IsOpen] reports false and the read callback stops firing.
// The caller recovers by calling Open again, which resets the flag.
package asyncserial
