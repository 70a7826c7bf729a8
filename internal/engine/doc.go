// Package engine runs a state store and its selector graph on a single
// goroutine.
//
// Single-writer loop:
// Actions and closures are enqueued from any goroutine and processed one at
// a time, in FIFO order, by Run. Every store transition, every propagation
// pass through the selector graph and every observer callback therefore
// happens on the loop goroutine, which is the only goroutine allowed to
// touch the graph. Readers that need a consistent view of node values use
// Call.
//
// Journal:
// Each applied action is stamped with a seq from the engine Clock and, when
// a journal is configured, appended with the session token and the graph
// tick it produced. Replay feeds journaled actions back through a
// dispatcher to rebuild state; node values are never persisted.
//
// Failures:
// A panicking selector producer aborts the propagation pass it ran in. The
// loop recovers it as a PRODUCER_PANIC RuntimeError, logs it and moves on;
// the transition stays applied and the next tick re-evaluates the node.
package engine
