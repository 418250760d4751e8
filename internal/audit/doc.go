// Package audit relays security events to a pluggable sink.
//
// The [Dispatcher] buffers events and forwards them from a single goroutine,
// either dropping (and counting) or blocking when the buffer is full. Which
// events are emitted is decided by the Engine, not here.
package audit
